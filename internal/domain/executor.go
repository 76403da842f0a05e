package domain

import "strings"

// Executor is a person tasks can be assigned to.
type Executor struct {
	ID       int64  `json:"id"`
	Position string `json:"position"`
	FullName string `json:"full_name"`
}

// ShortName renders "Surname N.P." from "Surname Name Patronymic". A
// single-word name is returned as is.
func (e *Executor) ShortName() string {
	parts := strings.Fields(e.FullName)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	var initials strings.Builder
	for _, p := range parts[1:min(len(parts), 3)] {
		r := []rune(p)
		initials.WriteRune(r[0])
		initials.WriteByte('.')
	}
	return parts[0] + " " + initials.String()
}

// Normalize trims the editable fields.
func (e *Executor) Normalize() {
	e.Position = strings.TrimSpace(e.Position)
	e.FullName = strings.Join(strings.Fields(e.FullName), " ")
}

// Validate requires both the name and the position.
func (e *Executor) Validate() error {
	if strings.TrimSpace(e.FullName) == "" {
		return &ValidationError{Field: "full_name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(e.Position) == "" {
		return &ValidationError{Field: "position", Reason: "must not be empty"}
	}
	return nil
}
