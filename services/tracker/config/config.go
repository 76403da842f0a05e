package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// Config holds typed configuration for the tracker service.
type Config struct {
	LogLevel  string
	LogFormat string

	StoreDriver    string // postgres | memory
	PostgresDSN    string
	MigrateOnStart bool
	Timezone       string

	RedisAddr    string
	KafkaBrokers string

	HTTPAddr     string
	GRPCAddr     string // health and reflection; empty disables
	CORSOrigins  []string
	MetricsAddr  string
	OTelEndpoint string
	OTelSample   float64

	GenerateInterval time.Duration
	AlertInterval    time.Duration
	PassTimeout      time.Duration

	AlertRateLimit  int
	AlertRateWindow time.Duration

	// Alert thresholds used when the settings row cannot be read.
	Fallback domain.Settings

	MonitorStartupDelay time.Duration
	MonitorInterval     time.Duration
	MonitorTimeout      time.Duration

	// Channels used when Kafka is not configured and alerts are delivered
	// in-process.
	AlertChannels   []string
	AlertRecipients []string
	WebhookURL      string
	SMTPHost        string
	SMTPPort        int
	SMTPFrom        string
	SMTPUsername    string
	SMTPPassword    string
	SESRegion       string
	SESFrom         string
}

// SetDefaults registers the defaults every key falls back to.
func SetDefaults(v *viper.Viper) {
	d := domain.DefaultSettings()
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("store", "postgres")
	v.SetDefault("timezone", "Local")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("grpc_addr", ":9095")
	v.SetDefault("otel_sample_ratio", 1.0)
	v.SetDefault("generate_interval", d.CheckInterval)
	v.SetDefault("alert_interval", time.Minute)
	v.SetDefault("pass_timeout", 2*time.Minute)
	v.SetDefault("alert_rate_limit", 0)
	v.SetDefault("alert_rate_window", time.Minute)
	v.SetDefault("due_tomorrow_interval", d.DueTomorrowInterval)
	v.SetDefault("due_today_interval", d.DueTodayInterval)
	v.SetDefault("overdue_interval", d.OverdueInterval)
	v.SetDefault("monitor_startup_delay", 15*time.Second)
	v.SetDefault("monitor_interval", 5*time.Second)
	v.SetDefault("monitor_timeout", 4*time.Second)
	v.SetDefault("alert_channels", []string{"log"})
	v.SetDefault("smtp_port", 587)
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		StoreDriver:    v.GetString("store"),
		PostgresDSN:    v.GetString("postgres_dsn"),
		MigrateOnStart: v.GetBool("migrate_on_start"),
		Timezone:       v.GetString("timezone"),
		RedisAddr:      v.GetString("redis_addr"),
		KafkaBrokers:   v.GetString("kafka_brokers"),
		HTTPAddr:       v.GetString("http_addr"),
		GRPCAddr:       v.GetString("grpc_addr"),
		CORSOrigins:    list(v, "cors_origins"),
		MetricsAddr:    v.GetString("metrics_addr"),
		OTelEndpoint:   v.GetString("otel_endpoint"),
		OTelSample:     v.GetFloat64("otel_sample_ratio"),

		GenerateInterval: v.GetDuration("generate_interval"),
		AlertInterval:    v.GetDuration("alert_interval"),
		PassTimeout:      v.GetDuration("pass_timeout"),
		AlertRateLimit:   v.GetInt("alert_rate_limit"),
		AlertRateWindow:  v.GetDuration("alert_rate_window"),
		Fallback: domain.Settings{
			CheckInterval:       v.GetDuration("generate_interval"),
			DueTomorrowInterval: v.GetDuration("due_tomorrow_interval"),
			DueTodayInterval:    v.GetDuration("due_today_interval"),
			OverdueInterval:     v.GetDuration("overdue_interval"),
		}.WithDefaults(),

		MonitorStartupDelay: v.GetDuration("monitor_startup_delay"),
		MonitorInterval:     v.GetDuration("monitor_interval"),
		MonitorTimeout:      v.GetDuration("monitor_timeout"),

		AlertChannels:   list(v, "alert_channels"),
		AlertRecipients: list(v, "alert_recipients"),
		WebhookURL:      v.GetString("webhook_url"),
		SMTPHost:        v.GetString("smtp_host"),
		SMTPPort:        v.GetInt("smtp_port"),
		SMTPFrom:        v.GetString("smtp_from"),
		SMTPUsername:    v.GetString("smtp_username"),
		SMTPPassword:    v.GetString("smtp_password"),
		SESRegion:       v.GetString("ses_region"),
		SESFrom:         v.GetString("ses_from"),
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// list reads a YAML list or a comma separated string, as env vars arrive.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
