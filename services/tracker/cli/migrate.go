package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/internal/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Connect to PostgreSQL and apply the embedded schema migrations.

Reads the DSN from --postgres-dsn flag, POSTGRES_DSN env var, or config file.`,
	RunE: runMigrate,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	dsn := viper.GetString("postgres_dsn")
	if dsn == "" {
		return errors.New("postgres_dsn is not set")
	}
	if err := postgres.Migrate(dsn); err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(dsn)
	if err != nil {
		return err
	}
	fmt.Printf("migrations complete (version %d)\n", v)
	return nil
}
