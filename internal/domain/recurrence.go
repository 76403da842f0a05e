package domain

import (
	"sort"
	"time"
)

// NextDueDate computes the due date that follows t's current one.
//
// Non-cyclic tasks keep their due date. Custom-date tasks move to the first
// listed date after today, or to the earliest listed date one year on when
// the list is exhausted. Fixed-period tasks are stepped forward until the
// result lies strictly after now. Every moved result lands on 23:59:59 of
// its calendar day in now's location.
func NextDueDate(t *Task, now time.Time) time.Time {
	if !t.Recurrence.IsCyclic() {
		return t.DueDate
	}
	if t.Recurrence == RecurrenceCustomDates {
		return nextCustomDate(t, now)
	}

	step := periodStep(t.Recurrence)
	if step == nil {
		return t.DueDate
	}

	next := step(t.DueDate.In(now.Location()))
	for !next.After(now) {
		next = step(next)
	}
	return EndOfDay(next)
}

func nextCustomDate(t *Task, now time.Time) time.Time {
	if len(t.CustomDates) == 0 {
		return t.DueDate
	}
	loc := now.Location()
	dates := make([]time.Time, 0, len(t.CustomDates))
	for _, d := range t.CustomDates {
		if d.IsZero() {
			continue
		}
		dates = append(dates, StartOfDay(d.In(loc)))
	}
	if len(dates) == 0 {
		return t.DueDate
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	today := StartOfDay(now)
	for _, d := range dates {
		if d.After(today) {
			return EndOfDay(d)
		}
	}
	return EndOfDay(AddMonthsClamped(dates[0], 12))
}

func periodStep(r RecurrenceType) func(time.Time) time.Time {
	switch r {
	case RecurrenceDaily:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case RecurrenceWeekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case RecurrenceMonthly:
		return func(t time.Time) time.Time { return AddMonthsClamped(t, 1) }
	case RecurrenceQuarterly:
		return func(t time.Time) time.Time { return AddMonthsClamped(t, 3) }
	case RecurrenceSemiAnnual:
		return func(t time.Time) time.Time { return AddMonthsClamped(t, 6) }
	case RecurrenceAnnual:
		return func(t time.Time) time.Time { return AddMonthsClamped(t, 12) }
	}
	return nil
}

// AddMonthsClamped adds n months to t, pinning the day to the last day of
// the target month when it would overflow (Jan 31 + 1 month = Feb 28/29).
// time.AddDate normalizes overflow into the following month instead.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
