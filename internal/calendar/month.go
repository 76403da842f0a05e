package calendar

import (
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// GridDays is six Monday-first weeks.
const GridDays = 42

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time      `json:"date"`
	InMonth bool           `json:"in_month"`
	Tasks   []*domain.Task `json:"tasks"`
}

// ParseMonth reads YYYY-MM in loc. An empty value means the month of now.
func ParseMonth(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01", s, now.Location())
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "month", Reason: "must be YYYY-MM"}
	}
	return t, nil
}

// MonthView lays out the grid around month and places every unfinished task
// on each day it falls due, projecting cyclic tasks forward from their due
// date.
func MonthView(tasks []*domain.Task, month time.Time) []Day {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)

	days := make([]Day, GridDays)
	for i := range days {
		date := start.AddDate(0, 0, i)
		days[i] = Day{Date: date, InMonth: date.Month() == first.Month(), Tasks: []*domain.Task{}}
		for _, t := range tasks {
			if !t.IsFinished() && OccursOn(t, date) {
				days[i].Tasks = append(days[i].Tasks, t)
			}
		}
	}
	return days
}

// OccursOn reports whether t falls due on date's calendar day.
func OccursOn(t *domain.Task, date time.Time) bool {
	loc := date.Location()
	day := domain.StartOfDay(date)
	due := domain.StartOfDay(t.DueDate.In(loc))
	if day.Equal(due) {
		return true
	}
	if day.Before(due) || (!t.CreatedAt.IsZero() && day.Before(domain.StartOfDay(t.CreatedAt.In(loc)))) {
		return false
	}

	months := 0
	switch t.Recurrence {
	case domain.RecurrenceDaily:
		return true
	case domain.RecurrenceWeekly:
		return int(day.Sub(due).Hours()/24+0.5)%7 == 0
	case domain.RecurrenceCustomDates:
		for _, d := range t.CustomDates {
			if !d.IsZero() && domain.StartOfDay(d.In(loc)).Equal(day) {
				return true
			}
		}
		return false
	case domain.RecurrenceMonthly:
		months = 1
	case domain.RecurrenceQuarterly:
		months = 3
	case domain.RecurrenceSemiAnnual:
		months = 6
	case domain.RecurrenceAnnual:
		months = 12
	default:
		return false
	}

	diff := (day.Year()-due.Year())*12 + int(day.Month()) - int(due.Month())
	if diff <= 0 || diff%months != 0 {
		return false
	}
	return domain.AddMonthsClamped(due, diff).Equal(day)
}
