package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/ramiqadoumi/go-control-tracker/services/tracker/config"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	cfg := config.Load(v)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.GenerateInterval)
	assert.Equal(t, time.Minute, cfg.AlertInterval)
	assert.Equal(t, 720*time.Minute, cfg.Fallback.DueTomorrowInterval)
	assert.Equal(t, 15*time.Minute, cfg.Fallback.OverdueInterval)
	assert.Equal(t, []string{"log"}, cfg.AlertChannels)
	assert.Equal(t, time.Local, cfg.Location())
	assert.Equal(t, ":9095", cfg.GRPCAddr)
}

func TestLocation_Configured(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("timezone", "UTC")
	assert.Equal(t, time.UTC, config.Load(v).Location())

	v.Set("timezone", "Mars/Olympus")
	assert.Equal(t, time.Local, config.Load(v).Location(), "unknown zone falls back to host")
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("store", "memory")
	v.Set("overdue_interval", "5m")
	v.Set("alert_channels", "webhook,email")
	v.Set("timezone", "Europe/Berlin")

	cfg := config.Load(v)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.Fallback.OverdueInterval)
	assert.Equal(t, []string{"webhook", "email"}, cfg.AlertChannels)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}
