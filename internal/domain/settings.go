package domain

import "time"

// Settings holds the user-tunable cadences of the notification passes.
type Settings struct {
	CheckInterval       time.Duration `json:"check_interval"`
	DueTomorrowInterval time.Duration `json:"due_tomorrow_interval"`
	DueTodayInterval    time.Duration `json:"due_today_interval"`
	OverdueInterval     time.Duration `json:"overdue_interval"`
}

// DefaultSettings mirrors the values seeded into a fresh database.
func DefaultSettings() Settings {
	return Settings{
		CheckInterval:       30 * time.Minute,
		DueTomorrowInterval: 720 * time.Minute,
		DueTodayInterval:    30 * time.Minute,
		OverdueInterval:     15 * time.Minute,
	}
}

// AlertInterval returns the re-alert threshold for kind.
func (s Settings) AlertInterval(kind Kind) time.Duration {
	switch kind {
	case KindDueTomorrow:
		return s.DueTomorrowInterval
	case KindDueToday:
		return s.DueTodayInterval
	case KindOverdue:
		return s.OverdueInterval
	}
	return 0
}

// WithDefaults replaces non-positive intervals with the defaults.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.CheckInterval <= 0 {
		s.CheckInterval = d.CheckInterval
	}
	if s.DueTomorrowInterval <= 0 {
		s.DueTomorrowInterval = d.DueTomorrowInterval
	}
	if s.DueTodayInterval <= 0 {
		s.DueTodayInterval = d.DueTodayInterval
	}
	if s.OverdueInterval <= 0 {
		s.OverdueInterval = d.OverdueInterval
	}
	return s
}
