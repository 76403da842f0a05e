package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultAlerterYAML = `# Control alerter config
# Priority: CLI flag > env var > this file > default.

kafka_brokers: "localhost:9092"
group_id:      "alerter-group"
redis_addr:    "localhost:6379"   # empty disables redelivery suppression
log_level:     "info"
log_format:    "json"

max_retries:      3
delivery_timeout: "30s"
metrics_addr:     ":9091"

alert_channels:   ["log"]   # log | email | webhook | ses
alert_recipients: ["controls@example.com"]

# --- Local (MailHog) ---
# smtp_host: "localhost"
# smtp_port: 1025
# smtp_from: "controls@example.com"
# smtp_username: ""
# smtp_password: ""

# webhook_url: "http://localhost:9000/alerts"

# ses_region: "eu-central-1"
# ses_from:   "controls@example.com"

# otel_endpoint: "localhost:4318"  # uncomment to enable OpenTelemetry tracing
`

func newInitCmd(serviceName, defaultYAML string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: fmt.Sprintf(`Write default configuration for %s.

If --config is given the file is written to that path.
Otherwise it is written to ~/.go-control-tracker/%s.yaml.
Fails if the file already exists unless --force is passed.`, serviceName, serviceName),
		RunE: func(_ *cobra.Command, _ []string) error {
			dest := cfgFile
			if dest == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("home dir: %w", err)
				}
				dest = filepath.Join(home, ".go-control-tracker", serviceName+".yaml")
			}

			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", dest, err)
				}
			}

			if err := os.WriteFile(dest, []byte(defaultYAML), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("config written to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
