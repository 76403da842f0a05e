package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := Load(v)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers())
	assert.Equal(t, "alerter-group", cfg.GroupID)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, []string{"log"}, cfg.Channels)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_CommaSeparatedValues(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("kafka_brokers", "k1:9092, k2:9092,")
	v.Set("alert_channels", "email,webhook")
	v.Set("alert_recipients", "a@example.com, b@example.com")
	cfg := Load(v)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	assert.Equal(t, []string{"email", "webhook"}, cfg.Channels)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Recipients)
}
