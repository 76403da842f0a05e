package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

func TestTaskNotFoundError(t *testing.T) {
	err := &domain.TaskNotFoundError{TaskID: 42}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error message should contain task ID, got: %q", err.Error())
	}
}

func TestNotificationNotFoundError(t *testing.T) {
	err := &domain.NotificationNotFoundError{NotificationID: 7}
	if !strings.Contains(err.Error(), "7") {
		t.Errorf("error message should contain notification ID, got: %q", err.Error())
	}
}

func TestNotificationAlreadyResolvedError(t *testing.T) {
	err := &domain.NotificationAlreadyResolvedError{NotificationID: 9, Kind: domain.KindOverdue}
	msg := err.Error()
	if !strings.Contains(msg, "9") {
		t.Errorf("error message should contain notification ID, got: %q", msg)
	}
	if !strings.Contains(msg, string(domain.KindOverdue)) {
		t.Errorf("error message should contain kind, got: %q", msg)
	}
}

func TestUnknownChannelError(t *testing.T) {
	err := &domain.UnknownChannelError{Channel: "pager"}
	if !strings.Contains(err.Error(), "pager") {
		t.Errorf("error message should contain channel, got: %q", err.Error())
	}
}

func TestAlertAlreadyDeliveredError(t *testing.T) {
	err := &domain.AlertAlreadyDeliveredError{AlertID: "a-1"}
	if !strings.Contains(err.Error(), "a-1") {
		t.Errorf("error message should contain alert ID, got: %q", err.Error())
	}
}

func TestTaskFinishedError(t *testing.T) {
	err := &domain.TaskFinishedError{TaskID: 7, Status: domain.StatusCancelled}
	if err.Error() != "task 7 is CANCELLED" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestStoreUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &domain.StoreUnavailableError{Op: "begin", Err: cause}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause through Unwrap")
	}
	if !strings.Contains(err.Error(), "begin") {
		t.Errorf("error message should contain op, got: %q", err.Error())
	}
}

func TestErrorsAs_TypedErrors(t *testing.T) {
	var wrapped error = &domain.DepartmentTaskNotFoundError{TaskID: 3}
	var target *domain.DepartmentTaskNotFoundError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should match *DepartmentTaskNotFoundError")
	}
	if target.TaskID != 3 {
		t.Errorf("TaskID = %d, want 3", target.TaskID)
	}
}
