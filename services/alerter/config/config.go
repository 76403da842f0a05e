package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the alerter service.
type Config struct {
	LogLevel        string
	LogFormat       string
	KafkaBrokers    string
	GroupID         string
	RedisAddr       string
	MaxRetries      int
	DeliveryTimeout time.Duration
	MetricsAddr     string
	OTelEndpoint    string
	OTelSample      float64

	Channels     []string
	Recipients   []string
	WebhookURL   string
	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SESRegion    string
	SESFrom      string
}

// SetDefaults registers the defaults every key falls back to.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("group_id", "alerter-group")
	v.SetDefault("max_retries", 3)
	v.SetDefault("delivery_timeout", 30*time.Second)
	v.SetDefault("metrics_addr", ":9091")
	v.SetDefault("otel_sample_ratio", 1.0)
	v.SetDefault("alert_channels", []string{"log"})
	v.SetDefault("smtp_port", 587)
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		KafkaBrokers:    v.GetString("kafka_brokers"),
		GroupID:         v.GetString("group_id"),
		RedisAddr:       v.GetString("redis_addr"),
		MaxRetries:      v.GetInt("max_retries"),
		DeliveryTimeout: v.GetDuration("delivery_timeout"),
		MetricsAddr:     v.GetString("metrics_addr"),
		OTelEndpoint:    v.GetString("otel_endpoint"),
		OTelSample:      v.GetFloat64("otel_sample_ratio"),

		Channels:     list(v, "alert_channels"),
		Recipients:   list(v, "alert_recipients"),
		WebhookURL:   v.GetString("webhook_url"),
		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPFrom:     v.GetString("smtp_from"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		SESRegion:    v.GetString("ses_region"),
		SESFrom:      v.GetString("ses_from"),
	}
}

// Brokers splits KafkaBrokers.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

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
