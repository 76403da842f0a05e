package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/services/tracker/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "tracker",
	Short:        "Control tracker: deadline notifications for control tasks",
	SilenceUsage: true,
}

// Execute is the entry point called from cmd/tracker/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./tracker.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug | info | warn | error")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json | text")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "PostgreSQL connection string")
	bindFlag("log_level", rootCmd.PersistentFlags(), "log-level")
	bindFlag("log_format", rootCmd.PersistentFlags(), "log-format")
	bindFlag("postgres_dsn", rootCmd.PersistentFlags(), "postgres-dsn")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(newInitCmd("tracker", defaultTrackerYAML))
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.SetConfigName("tracker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(home + "/.go-control-tracker")
		viper.AddConfigPath("/etc/go-control-tracker")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "error reading config file:", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintln(os.Stderr, "config:", viper.ConfigFileUsed())
	}
}

func buildLogger(level, format, service string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = tint.NewHandler(os.Stdout, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h).With(slog.String("service", service))
}

func bindFlag(viperKey string, fs *pflag.FlagSet, flagName string) {
	if err := viper.BindPFlag(viperKey, fs.Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("bindFlag %q → %q: %v", flagName, viperKey, err))
	}
}
