package domain

import (
	"fmt"
	"time"
)

// Kind is derived from where a task's due date falls relative to today.
type Kind string

const (
	KindDueTomorrow Kind = "DUE_TOMORROW"
	KindDueToday    Kind = "DUE_TODAY"
	KindOverdue     Kind = "OVERDUE"
)

// Kinds lists every notification kind in display order.
func Kinds() []Kind { return []Kind{KindDueTomorrow, KindDueToday, KindOverdue} }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindDueTomorrow || k == KindDueToday || k == KindOverdue
}

// Title is the short heading shown with an alert of this kind.
func (k Kind) Title() string {
	switch k {
	case KindDueTomorrow:
		return "Due tomorrow"
	case KindDueToday:
		return "Due today"
	case KindOverdue:
		return "Overdue"
	}
	return "Notification"
}

// KindFor derives the notification kind for a due date, comparing calendar
// days in now's location. ok is false when no notification should exist.
func KindFor(due, now time.Time) (kind Kind, ok bool) {
	today := StartOfDay(now)
	day := StartOfDay(due.In(now.Location()))
	switch {
	case day.Equal(today.AddDate(0, 0, 1)):
		return KindDueTomorrow, true
	case day.Equal(today):
		return KindDueToday, true
	case day.Before(today):
		return KindOverdue, true
	}
	return "", false
}

// DateLayout is the day.month.year format used in notification text.
const DateLayout = "02.01.2006"

// Message renders the notification text for a task. It depends only on the
// title, the due date and the kind, so a changed due date yields new text.
func Message(title string, due time.Time, kind Kind) string {
	switch kind {
	case KindDueTomorrow:
		return fmt.Sprintf("Tomorrow %s the deadline expires for task: %s", due.Format(DateLayout), title)
	case KindDueToday:
		return fmt.Sprintf("Today the deadline expires for task: %s", title)
	case KindOverdue:
		return fmt.Sprintf("Task overdue: %s (deadline was %s)", title, due.Format(DateLayout))
	}
	return fmt.Sprintf("Notification for task: %s", title)
}

// Notification is a derived deadline reminder attached to one task.
type Notification struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`

	Read                    bool       `json:"read"`
	Acknowledged            bool       `json:"acknowledged"`
	ReportSent              bool       `json:"report_sent"`
	OutgoingNumber          string     `json:"outgoing_number,omitempty"`
	OutgoingDate            *time.Time `json:"outgoing_date,omitempty"`
	CompletedInWorkingOrder bool       `json:"completed_in_working_order"`
	AwaitingReport          bool       `json:"awaiting_report"`

	OSAlertSent   bool       `json:"os_alert_sent"`
	LastOSAlertAt *time.Time `json:"last_os_alert_at,omitempty"`
}

// IsProcessed is computed from the resolution flags and never stored.
func (n *Notification) IsProcessed() bool {
	switch n.Kind {
	case KindDueTomorrow:
		return n.Acknowledged
	case KindDueToday:
		return n.ReportSent || n.CompletedInWorkingOrder
	case KindOverdue:
		return n.ReportSent
	}
	return false
}

// IsActive reports an open notification that nobody has promised to follow up.
func (n *Notification) IsActive() bool { return !n.IsProcessed() && !n.AwaitingReport }

// IsAwaiting reports an open notification parked until a report is sent.
func (n *Notification) IsAwaiting() bool { return !n.IsProcessed() && n.AwaitingReport }

// AlertDue reports whether enough time has passed since the last alert.
func (n *Notification) AlertDue(now time.Time, interval time.Duration) bool {
	return n.LastOSAlertAt == nil || now.Sub(*n.LastOSAlertAt) >= interval
}
