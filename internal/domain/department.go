package domain

import (
	"strings"
	"time"
)

// Department is an organizational unit that department tasks are routed to.
type Department struct {
	ID        int64  `json:"id"`
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
}

// DepartmentAssignment tracks one department's part of a department task.
type DepartmentAssignment struct {
	DepartmentID int64      `json:"department_id"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// DepartmentTask is an obligation routed to one or more departments.
type DepartmentTask struct {
	ID               int64                  `json:"id"`
	Number           string                 `json:"number"`
	Description      string                 `json:"description"`
	Source           string                 `json:"source,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	Importance       Importance             `json:"importance"`
	SentAt           time.Time              `json:"sent_at"`
	DueDate          time.Time              `json:"due_date"`
	ForcedCompleted  bool                   `json:"forced_completed"`
	ForcedCompleteAt *time.Time             `json:"forced_completed_at,omitempty"`
	Assignments      []DepartmentAssignment `json:"assignments"`
	CreatedAt        time.Time              `json:"created_at"`
}

// IsCompleted is true when forced, or when every assignment is completed.
func (t *DepartmentTask) IsCompleted() bool {
	if t.ForcedCompleted {
		return true
	}
	if len(t.Assignments) == 0 {
		return false
	}
	for _, a := range t.Assignments {
		if !a.Completed {
			return false
		}
	}
	return true
}

// CompletedAt returns the latest assignment completion, or the forced
// completion time when no assignment carries one.
func (t *DepartmentTask) CompletedAt() *time.Time {
	if !t.IsCompleted() {
		return nil
	}
	var latest *time.Time
	for _, a := range t.Assignments {
		if a.CompletedAt != nil && (latest == nil || a.CompletedAt.After(*latest)) {
			c := *a.CompletedAt
			latest = &c
		}
	}
	if latest == nil {
		return t.ForcedCompleteAt
	}
	return latest
}

// IsOverdue reports an unfinished task past its due date.
func (t *DepartmentTask) IsOverdue(now time.Time) bool {
	return !t.IsCompleted() && t.DueDate.Before(now)
}

// Assignment returns a pointer to the assignment for deptID.
func (t *DepartmentTask) Assignment(deptID int64) (*DepartmentAssignment, bool) {
	for i := range t.Assignments {
		if t.Assignments[i].DepartmentID == deptID {
			return &t.Assignments[i], true
		}
	}
	return nil, false
}

// Validate checks a department task before it is stored.
func (t *DepartmentTask) Validate() error {
	if strings.TrimSpace(t.Number) == "" {
		return &ValidationError{Field: "number", Reason: "must not be empty"}
	}
	if t.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "is required"}
	}
	if len(t.Assignments) == 0 {
		return &ValidationError{Field: "assignments", Reason: "at least one department is required"}
	}
	seen := make(map[int64]struct{}, len(t.Assignments))
	for _, a := range t.Assignments {
		if _, dup := seen[a.DepartmentID]; dup {
			return &ValidationError{Field: "assignments", Reason: "duplicate department"}
		}
		seen[a.DepartmentID] = struct{}{}
	}
	return nil
}

// CompleteFor marks deptID's part as done. Completing a part twice keeps the
// first completion time.
func (t *DepartmentTask) CompleteFor(deptID int64, now time.Time) error {
	a, ok := t.Assignment(deptID)
	if !ok {
		return &DepartmentNotFoundError{DepartmentID: deptID}
	}
	if a.Completed {
		return nil
	}
	done := now
	a.Completed = true
	a.CompletedAt = &done
	return nil
}

// ForceComplete closes the task regardless of the open assignments.
func (t *DepartmentTask) ForceComplete(now time.Time) {
	if t.ForcedCompleted {
		return
	}
	done := now
	t.ForcedCompleted = true
	t.ForcedCompleteAt = &done
}
