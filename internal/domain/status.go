package domain

import "strings"

// Status represents the lifecycle states of a task.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Labels written by older releases. They are still accepted on read until
// the startup normalization has rewritten every stored row.
var legacyStatuses = map[string]Status{
	"IN_WORK":     StatusInProgress,
	"IN WORK":     StatusInProgress,
	"IN PROGRESS": StatusInProgress,
	"ACTIVE":      StatusInProgress,
	"DONE":        StatusCompleted,
	"COMPLETE":    StatusCompleted,
	"CANCELED":    StatusCancelled,
}

// LegacyStatusLabels returns the stored labels that NormalizeStatus rewrites.
func LegacyStatusLabels() map[string]Status {
	out := make(map[string]Status, len(legacyStatuses))
	for k, v := range legacyStatuses {
		out[k] = v
	}
	return out
}

// NormalizeStatus maps a stored label, canonical or legacy and in any case,
// to its canonical status. Unknown labels are returned upper-cased unchanged.
func NormalizeStatus(label string) Status {
	key := strings.ToUpper(strings.TrimSpace(label))
	switch Status(key) {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(key)
	}
	if s, ok := legacyStatuses[key]; ok {
		return s
	}
	return Status(key)
}

// IsFinished returns true for Completed and Cancelled, whichever label was stored.
func (s Status) IsFinished() bool {
	n := NormalizeStatus(string(s))
	return n == StatusCompleted || n == StatusCancelled
}
