package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

func TestRecurrenceType_IsCyclic(t *testing.T) {
	tests := []struct {
		rec  domain.RecurrenceType
		want bool
	}{
		{domain.RecurrenceOnce, false},
		{domain.RecurrenceInquiry, false},
		{domain.RecurrenceRequest, false},
		{domain.RecurrenceDaily, true},
		{domain.RecurrenceWeekly, true},
		{domain.RecurrenceMonthly, true},
		{domain.RecurrenceQuarterly, true},
		{domain.RecurrenceSemiAnnual, true},
		{domain.RecurrenceAnnual, true},
		{domain.RecurrenceCustomDates, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.rec), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.IsCyclic())
			assert.True(t, tt.rec.Valid())
		})
	}
	assert.False(t, domain.RecurrenceType("FORTNIGHTLY").Valid())
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Status
	}{
		{"NEW", domain.StatusNew},
		{"in_progress", domain.StatusInProgress},
		{"In work", domain.StatusInProgress},
		{"IN_WORK", domain.StatusInProgress},
		{"Done", domain.StatusCompleted},
		{" completed ", domain.StatusCompleted},
		{"Canceled", domain.StatusCancelled},
		{"weird", domain.Status("WEIRD")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeStatus(tt.in))
		})
	}
}

func TestStatus_IsFinished_ToleratesLegacyLabels(t *testing.T) {
	assert.True(t, domain.Status("DONE").IsFinished())
	assert.True(t, domain.StatusCancelled.IsFinished())
	assert.False(t, domain.Status("IN_WORK").IsFinished())
	assert.False(t, domain.StatusNew.IsFinished())
}

func TestTask_Validate(t *testing.T) {
	due := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	tests := []struct {
		name  string
		task  domain.Task
		field string
	}{
		{"empty title", domain.Task{Title: " ", DueDate: due, Recurrence: domain.RecurrenceOnce}, "title"},
		{"no due date", domain.Task{Title: "a", Recurrence: domain.RecurrenceOnce}, "due_date"},
		{"bad recurrence", domain.Task{Title: "a", DueDate: due, Recurrence: "X"}, "recurrence"},
		{"custom without dates", domain.Task{Title: "a", DueDate: due, Recurrence: domain.RecurrenceCustomDates}, "custom_dates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	ok := domain.Task{Title: "a", DueDate: due, Recurrence: domain.RecurrenceWeekly}
	assert.NoError(t, ok.Validate())
}

func TestTask_ApplyDefaults(t *testing.T) {
	task := domain.Task{Status: "Done"}
	task.ApplyDefaults()
	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Equal(t, domain.RecurrenceOnce, task.Recurrence)
	assert.Equal(t, domain.ImportanceStandard, task.Importance)
	assert.Equal(t, domain.UrgencyNormal, task.Urgency)
}

func TestDepartmentTask_Completion(t *testing.T) {
	d1 := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)

	task := domain.DepartmentTask{Assignments: []domain.DepartmentAssignment{
		{DepartmentID: 1, Completed: true, CompletedAt: &d2},
		{DepartmentID: 2},
	}}
	assert.False(t, task.IsCompleted())
	assert.Nil(t, task.CompletedAt())

	a, ok := task.Assignment(2)
	require.True(t, ok)
	a.Completed = true
	a.CompletedAt = &d1
	assert.True(t, task.IsCompleted())
	assert.Equal(t, d2, *task.CompletedAt())

	forced := domain.DepartmentTask{ForcedCompleted: true, ForcedCompleteAt: &d1,
		Assignments: []domain.DepartmentAssignment{{DepartmentID: 1}}}
	assert.True(t, forced.IsCompleted())
	assert.Equal(t, d1, *forced.CompletedAt())

	assert.False(t, (&domain.DepartmentTask{}).IsCompleted())
}

func TestDepartmentTask_Validate(t *testing.T) {
	task := domain.DepartmentTask{Number: "17/3", DueDate: time.Now(),
		Assignments: []domain.DepartmentAssignment{{DepartmentID: 1}, {DepartmentID: 1}}}
	var ve *domain.ValidationError
	require.True(t, errors.As(task.Validate(), &ve))
	assert.Equal(t, "assignments", ve.Field)
}

func TestDepartmentTask_CompleteForAndForce(t *testing.T) {
	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)
	task := domain.DepartmentTask{Assignments: []domain.DepartmentAssignment{{DepartmentID: 1}, {DepartmentID: 2}}}

	require.NoError(t, task.CompleteFor(1, first))
	require.NoError(t, task.CompleteFor(1, later))
	a, _ := task.Assignment(1)
	assert.Equal(t, first, *a.CompletedAt)
	assert.False(t, task.IsCompleted())

	var nf *domain.DepartmentNotFoundError
	require.True(t, errors.As(task.CompleteFor(9, later), &nf))
	assert.Equal(t, int64(9), nf.DepartmentID)

	task.ForceComplete(later)
	task.ForceComplete(later.Add(time.Hour))
	assert.True(t, task.IsCompleted())
	assert.Equal(t, later, *task.ForcedCompleteAt)
}
