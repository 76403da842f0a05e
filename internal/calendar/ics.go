// Package calendar renders task deadlines as iCalendar files and as a
// month grid.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

const (
	icsDateLayout  = "20060102"
	icsStampLayout = "20060102T150405Z"
	prodID         = "-//Controls//Deadline Export//EN"
	maxLineOctets  = 75
)

// TaskICS builds an all-day event on the task's due date, repeating the
// way the task recurs.
func TaskICS(t *domain.Task, now time.Time) (string, error) {
	if t.DueDate.IsZero() {
		return "", &domain.ValidationError{Field: "due_date", Reason: "required for calendar export"}
	}
	due := domain.StartOfDay(t.DueDate)

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Control task"
	}
	if t.ControlNumber != "" {
		title = t.ControlNumber + " " + title
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:task-%d@controls", t.ID),
		"DTSTAMP:" + now.UTC().Format(icsStampLayout),
		"SUMMARY:" + escapeText(title),
		"DTSTART;VALUE=DATE:" + due.Format(icsDateLayout),
		"DTEND;VALUE=DATE:" + due.AddDate(0, 0, 1).Format(icsDateLayout),
	}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		lines = append(lines, "DESCRIPTION:"+escapeText(desc))
	}
	if t.Assignee != "" {
		lines = append(lines, "X-CONTROLS-ASSIGNEE:"+escapeText(t.Assignee))
	}
	if rule := rrule(t.Recurrence); rule != "" {
		lines = append(lines, "RRULE:"+rule)
	}
	if t.Recurrence == domain.RecurrenceCustomDates {
		if rdate := rdates(t.CustomDates, due); rdate != "" {
			lines = append(lines, "RDATE;VALUE=DATE:"+rdate)
		}
	}
	if t.IsFinished() {
		lines = append(lines, "STATUS:CANCELLED")
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(fold(l))
		b.WriteString("\r\n")
	}
	return b.String(), nil
}

func rrule(r domain.RecurrenceType) string {
	switch r {
	case domain.RecurrenceDaily:
		return "FREQ=DAILY;INTERVAL=1"
	case domain.RecurrenceWeekly:
		return "FREQ=WEEKLY;INTERVAL=1"
	case domain.RecurrenceMonthly:
		return "FREQ=MONTHLY;INTERVAL=1"
	case domain.RecurrenceQuarterly:
		return "FREQ=MONTHLY;INTERVAL=3"
	case domain.RecurrenceSemiAnnual:
		return "FREQ=MONTHLY;INTERVAL=6"
	case domain.RecurrenceAnnual:
		return "FREQ=YEARLY;INTERVAL=1"
	}
	return ""
}

// rdates lists the custom dates other than the due date itself.
func rdates(dates []time.Time, due time.Time) string {
	seen := map[string]bool{due.Format(icsDateLayout): true}
	var out []string
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		s := d.Format(icsDateLayout)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func escapeText(s string) string {
	return strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	).Replace(s)
}

// fold splits a content line into 75-octet pieces joined by CRLF and a
// space, without cutting a UTF-8 sequence.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}

func isRuneStart(c byte) bool { return c&0xC0 != 0x80 }
