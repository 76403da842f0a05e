package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/internal/channels"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
	redisstore "github.com/ramiqadoumi/go-control-tracker/internal/redis"
	"github.com/ramiqadoumi/go-control-tracker/internal/version"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
	"github.com/ramiqadoumi/go-control-tracker/services/alerter"
	"github.com/ramiqadoumi/go-control-tracker/services/alerter/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alerter",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("kafka-brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	serveCmd.Flags().String("redis-addr", "", "Redis address (host:port); empty disables redelivery suppression")
	serveCmd.Flags().String("group-id", "alerter-group", "Kafka consumer group")
	serveCmd.Flags().Int("max-retries", 3, "maximum retry attempts per channel")
	serveCmd.Flags().Duration("delivery-timeout", 30*time.Second, "per-attempt delivery timeout")
	serveCmd.Flags().StringSlice("channels", []string{"log"}, "channels to deliver through: log, email, webhook, ses")
	serveCmd.Flags().String("smtp-host", "", "SMTP server host")
	serveCmd.Flags().Int("smtp-port", 587, "SMTP server port")
	serveCmd.Flags().String("smtp-from", "", "SMTP sender address")
	serveCmd.Flags().String("smtp-username", "", "SMTP auth username")
	serveCmd.Flags().String("smtp-password", "", "SMTP auth password or app password")
	serveCmd.Flags().String("webhook-url", "", "webhook endpoint receiving alert JSON")
	serveCmd.Flags().String("metrics-addr", ":9091", "Prometheus metrics server address")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("group_id", serveCmd.Flags(), "group-id")
	bindFlag("max_retries", serveCmd.Flags(), "max-retries")
	bindFlag("delivery_timeout", serveCmd.Flags(), "delivery-timeout")
	bindFlag("alert_channels", serveCmd.Flags(), "channels")
	bindFlag("smtp_host", serveCmd.Flags(), "smtp-host")
	bindFlag("smtp_port", serveCmd.Flags(), "smtp-port")
	bindFlag("smtp_from", serveCmd.Flags(), "smtp-from")
	bindFlag("smtp_username", serveCmd.Flags(), "smtp-username")
	bindFlag("smtp_password", serveCmd.Flags(), "smtp-password")
	bindFlag("webhook_url", serveCmd.Flags(), "webhook-url")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	instanceID := "alerter-" + uuid.New().String()[:8]
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat, "alerter").With(slog.String("instance_id", instanceID))

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName: "alerter",
		Version:     version.Version,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSample,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	registry, err := channels.Build(initCtx, channels.Config{
		Enabled: cfg.Channels,
		Email: channels.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			To:       cfg.Recipients,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		},
		Webhook: channels.WebhookConfig{URL: cfg.WebhookURL},
		SES:     channels.SESConfig{Region: cfg.SESRegion, From: cfg.SESFrom, To: cfg.Recipients},
	}, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	names := cfg.Channels
	if len(names) == 0 {
		names = []string{"log"}
	}

	brokers := cfg.Brokers()
	consumer := kafka.NewConsumer(brokers, kafka.TopicAlerts, cfg.GroupID, logger)
	defer func() { _ = consumer.Close() }()

	producer := kafka.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	opts := []alerter.Option{
		alerter.WithLogger(logger),
		alerter.WithRetries(cfg.MaxRetries),
		alerter.WithTimeout(cfg.DeliveryTimeout),
	}
	var ready telemetry.ReadyFunc
	if cfg.RedisAddr != "" {
		redisClient := redisstore.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		opts = append(opts, alerter.WithDeliveryStore(redisstore.NewDeliveryStore(redisClient)))
		ready = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	a := alerter.New(consumer, producer, registry, names, opts...)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger, ready)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		logger.Info("shutting down, draining in-flight deliveries...")
		runCancel()
	}()

	logger.Info("alerter starting",
		slog.String("topic", kafka.TopicAlerts),
		slog.Any("channels", names),
		slog.Int("max_retries", cfg.MaxRetries),
		slog.String("version", version.String()),
	)

	if err := a.Run(runCtx); err != nil {
		return fmt.Errorf("alerter: %w", err)
	}

	a.Wait()
	logger.Info("stopped cleanly")
	return nil
}
