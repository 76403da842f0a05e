package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/internal/postgres"
	"github.com/ramiqadoumi/go-control-tracker/services/tracker/config"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite legacy task status labels",
	Long: `Rewrite task statuses stored by older releases ("Done", "In work", ...)
to the canonical values. serve does the same on every start.`,
	RunE: runNormalize,
}

func runNormalize(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	if cfg.PostgresDSN == "" {
		return errors.New("postgres_dsn is not set")
	}
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat, "tracker")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	n, err := postgres.New(pool, logger, cfg.Location()).NormalizeStatuses(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("normalized %d task(s)\n", n)
	return nil
}
