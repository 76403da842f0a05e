package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

type settingsRepo struct{ s *Store }

// Load reads the single settings row. A missing row yields the defaults.
func (r settingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	var check, tomorrow, today, overdue int
	err := r.s.q.QueryRow(ctx, `
		SELECT check_interval_minutes, due_tomorrow_interval_minutes,
		       due_today_interval_minutes, overdue_interval_minutes
		FROM app_settings WHERE id = 1
	`).Scan(&check, &tomorrow, &today, &overdue)
	if err != nil {
		if isNoRows(err) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return domain.Settings{
		CheckInterval:       minutes(check),
		DueTomorrowInterval: minutes(tomorrow),
		DueTodayInterval:    minutes(today),
		OverdueInterval:     minutes(overdue),
	}.WithDefaults(), nil
}

func (r settingsRepo) Save(ctx context.Context, st domain.Settings) error {
	st = st.WithDefaults()
	_, err := r.s.q.Exec(ctx, `
		INSERT INTO app_settings (id, check_interval_minutes, due_tomorrow_interval_minutes,
		                          due_today_interval_minutes, overdue_interval_minutes)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			check_interval_minutes = EXCLUDED.check_interval_minutes,
			due_tomorrow_interval_minutes = EXCLUDED.due_tomorrow_interval_minutes,
			due_today_interval_minutes = EXCLUDED.due_today_interval_minutes,
			overdue_interval_minutes = EXCLUDED.overdue_interval_minutes
	`, int(st.CheckInterval/time.Minute), int(st.DueTomorrowInterval/time.Minute),
		int(st.DueTodayInterval/time.Minute), int(st.OverdueInterval/time.Minute))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
