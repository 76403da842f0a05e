package domain

import (
	"strings"
	"time"
)

// RecurrenceType describes how a task's due date moves after each resolved cycle.
type RecurrenceType string

const (
	RecurrenceOnce        RecurrenceType = "ONCE"
	RecurrenceDaily       RecurrenceType = "DAILY"
	RecurrenceWeekly      RecurrenceType = "WEEKLY"
	RecurrenceMonthly     RecurrenceType = "MONTHLY"
	RecurrenceQuarterly   RecurrenceType = "QUARTERLY"
	RecurrenceSemiAnnual  RecurrenceType = "SEMI_ANNUAL"
	RecurrenceAnnual      RecurrenceType = "ANNUAL"
	RecurrenceCustomDates RecurrenceType = "CUSTOM_DATES"
	RecurrenceInquiry     RecurrenceType = "INQUIRY"
	RecurrenceRequest     RecurrenceType = "REQUEST"
)

var recurrenceTypes = map[RecurrenceType]struct{}{
	RecurrenceOnce: {}, RecurrenceDaily: {}, RecurrenceWeekly: {},
	RecurrenceMonthly: {}, RecurrenceQuarterly: {}, RecurrenceSemiAnnual: {},
	RecurrenceAnnual: {}, RecurrenceCustomDates: {}, RecurrenceInquiry: {},
	RecurrenceRequest: {},
}

// Valid reports whether r is one of the known recurrence types.
func (r RecurrenceType) Valid() bool {
	_, ok := recurrenceTypes[r]
	return ok
}

// IsCyclic returns false for one-shot types: resolving them finalizes the task.
func (r RecurrenceType) IsCyclic() bool {
	switch r {
	case RecurrenceOnce, RecurrenceInquiry, RecurrenceRequest:
		return false
	}
	return true
}

// Importance of a task.
type Importance string

const (
	ImportanceStandard Importance = "STANDARD"
	ImportanceHigh     Importance = "HIGH"
)

// Urgency of a task.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyCritical Urgency = "CRITICAL"
)

// ActionKind tags an entry of a task's resolution audit log.
type ActionKind string

const (
	ActionReportSent        ActionKind = "REPORT_SENT"
	ActionReportSentFinal   ActionKind = "REPORT_SENT_FINAL"
	ActionWorkingOrder      ActionKind = "WORKING_ORDER"
	ActionWorkingOrderFinal ActionKind = "WORKING_ORDER_FINAL"
)

// IntermediateResponse is one append-only audit entry recorded when a
// notification of the task is resolved.
type IntermediateResponse struct {
	Date            time.Time  `json:"date"`
	Action          ActionKind `json:"action"`
	OutgoingNumber  string     `json:"outgoing_number,omitempty"`
	OriginalDueDate time.Time  `json:"original_due_date"`
}

// Task is a deadline-bound control task routed to an individual.
type Task struct {
	ID            int64                  `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	ControlNumber string                 `json:"control_number,omitempty"`
	Assignee      string                 `json:"assignee,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Importance    Importance             `json:"importance"`
	Urgency       Urgency                `json:"urgency"`
	Recurrence    RecurrenceType         `json:"recurrence"`
	Status        Status                 `json:"status"`
	DueDate       time.Time              `json:"due_date"`
	CustomDates   []time.Time            `json:"custom_dates,omitempty"`
	Responses     []IntermediateResponse `json:"responses,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}

// IsCyclic reports whether resolving the task reschedules it.
func (t *Task) IsCyclic() bool { return t.Recurrence.IsCyclic() }

// IsFinished reports whether the task is completed or cancelled.
func (t *Task) IsFinished() bool { return t.Status.IsFinished() }

// IsOverdue reports whether the task is still open past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsFinished() && t.DueDate.Before(now)
}

// LastResponse returns the most recent audit entry, if any.
func (t *Task) LastResponse() (IntermediateResponse, bool) {
	if len(t.Responses) == 0 {
		return IntermediateResponse{}, false
	}
	return t.Responses[len(t.Responses)-1], true
}

// Validate checks the fields a caller must supply before the task is stored.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if t.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "is required"}
	}
	if !t.Recurrence.Valid() {
		return &ValidationError{Field: "recurrence", Reason: "unknown type " + string(t.Recurrence)}
	}
	if t.Recurrence == RecurrenceCustomDates && len(t.CustomDates) == 0 {
		return &ValidationError{Field: "custom_dates", Reason: "required for CUSTOM_DATES"}
	}
	return nil
}

// ApplyDefaults fills optional enum fields left empty by the caller.
func (t *Task) ApplyDefaults() {
	if t.Importance == "" {
		t.Importance = ImportanceStandard
	}
	if t.Urgency == "" {
		t.Urgency = UrgencyNormal
	}
	if t.Recurrence == "" {
		t.Recurrence = RecurrenceOnce
	}
	if t.Status == "" {
		t.Status = StatusNew
	}
	t.Status = NormalizeStatus(string(t.Status))
}
