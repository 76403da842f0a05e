package domain

import "fmt"

// TaskNotFoundError is returned when a task ID does not exist.
type TaskNotFoundError struct {
	TaskID int64
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %d", e.TaskID)
}

// NotificationNotFoundError is returned when a notification ID does not exist.
type NotificationNotFoundError struct {
	NotificationID int64
}

func (e *NotificationNotFoundError) Error() string {
	return fmt.Sprintf("notification not found: %d", e.NotificationID)
}

// NotificationAlreadyResolvedError is returned when a resolution is requested
// for a notification that is already processed.
type NotificationAlreadyResolvedError struct {
	NotificationID int64
	Kind           Kind
}

func (e *NotificationAlreadyResolvedError) Error() string {
	return fmt.Sprintf("notification %d (%s) already resolved", e.NotificationID, e.Kind)
}

// TaskFinishedError is returned when a resolution targets a notification
// whose task was already completed or cancelled.
type TaskFinishedError struct {
	TaskID int64
	Status Status
}

func (e *TaskFinishedError) Error() string {
	return fmt.Sprintf("task %d is %s", e.TaskID, e.Status)
}

// DepartmentNotFoundError is returned when a department ID does not exist.
type DepartmentNotFoundError struct {
	DepartmentID int64
}

func (e *DepartmentNotFoundError) Error() string {
	return fmt.Sprintf("department not found: %d", e.DepartmentID)
}

// DepartmentTaskNotFoundError is returned when a department task ID does not exist.
type DepartmentTaskNotFoundError struct {
	TaskID int64
}

func (e *DepartmentTaskNotFoundError) Error() string {
	return fmt.Sprintf("department task not found: %d", e.TaskID)
}

// ExecutorNotFoundError is returned when an executor ID does not exist.
type ExecutorNotFoundError struct {
	ExecutorID int64
}

func (e *ExecutorNotFoundError) Error() string {
	return fmt.Sprintf("executor not found: %d", e.ExecutorID)
}

// ValidationError is returned when caller-supplied input is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreUnavailableError wraps a failure to reach the backing store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// UnknownChannelError is returned when no delivery channel is registered under a name.
type UnknownChannelError struct {
	Channel string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("no delivery channel registered for %q", e.Channel)
}

// AlertAlreadyDeliveredError is returned when a redelivered alert was
// already handed to its channels.
type AlertAlreadyDeliveredError struct {
	AlertID string
}

func (e *AlertAlreadyDeliveredError) Error() string {
	return fmt.Sprintf("alert %s already delivered", e.AlertID)
}
