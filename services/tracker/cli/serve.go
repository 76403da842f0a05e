package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/channels"
	"github.com/ramiqadoumi/go-control-tracker/internal/healthrpc"
	"github.com/ramiqadoumi/go-control-tracker/internal/httpapi"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
	"github.com/ramiqadoumi/go-control-tracker/internal/memstore"
	"github.com/ramiqadoumi/go-control-tracker/internal/monitor"
	"github.com/ramiqadoumi/go-control-tracker/internal/notify"
	"github.com/ramiqadoumi/go-control-tracker/internal/postgres"
	redisstore "github.com/ramiqadoumi/go-control-tracker/internal/redis"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/internal/version"
	"github.com/ramiqadoumi/go-control-tracker/pkg/clock"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
	"github.com/ramiqadoumi/go-control-tracker/services/tracker"
	"github.com/ramiqadoumi/go-control-tracker/services/tracker/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracker: REST API, notification passes and store monitor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("store", "postgres", "store backend: postgres | memory")
	serveCmd.Flags().Bool("migrate-on-start", false, "apply migrations before serving")
	serveCmd.Flags().String("redis-addr", "", "Redis address (host:port); empty disables leader election and caching")
	serveCmd.Flags().String("kafka-brokers", "", "comma-separated Kafka brokers; empty delivers alerts in-process")
	serveCmd.Flags().String("http-addr", ":8080", "REST API listen address")
	serveCmd.Flags().String("metrics-addr", ":9090", "Prometheus metrics server address")
	serveCmd.Flags().String("grpc-addr", ":9095", "gRPC health server address; empty disables it")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")
	serveCmd.Flags().Duration("generate-interval", 30*time.Minute, "notification generation cadence")
	serveCmd.Flags().Duration("alert-interval", time.Minute, "alert pass cadence")

	bindFlag("store", serveCmd.Flags(), "store")
	bindFlag("migrate_on_start", serveCmd.Flags(), "migrate-on-start")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("http_addr", serveCmd.Flags(), "http-addr")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("grpc_addr", serveCmd.Flags(), "grpc-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	bindFlag("generate_interval", serveCmd.Flags(), "generate-interval")
	bindFlag("alert_interval", serveCmd.Flags(), "alert-interval")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat, "tracker")
	instanceID := "tracker-" + uuid.New().String()[:8]

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName: "tracker",
		Version:     version.Version,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSample,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	// ── store ─────────────────────────────────────────────────────────────────
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, closeStore, err := openStore(initCtx, cfg, logger)
	if err != nil {
		cancel()
		return err
	}
	defer closeStore()

	if n, err := st.NormalizeStatuses(initCtx); err != nil {
		logger.Warn("normalize legacy statuses", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("normalized legacy statuses", slog.Int64("tasks", n))
	}
	cancel()

	// ── redis ─────────────────────────────────────────────────────────────────
	var (
		leader tracker.Leader
		counts *redisstore.CountCache
		limit  notify.Limiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redisstore.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		leader = redisstore.NewLeader(redisClient, instanceID, logger)
		counts = redisstore.NewCountCache(redisClient, 2*cfg.GenerateInterval)
		if cfg.AlertRateLimit > 0 {
			limit = redisstore.NewRateLimiter(redisClient, cfg.AlertRateLimit, cfg.AlertRateWindow)
		}
	}

	// ── alert dispatch ────────────────────────────────────────────────────────
	events := notify.NewBroadcaster()
	clk := clock.In(cfg.Location())
	managerOpts := []notify.Option{
		notify.WithClock(clk),
		notify.WithLogger(logger),
		notify.WithFallbackSettings(cfg.Fallback),
		notify.WithObserver(events),
	}
	if limit != nil {
		managerOpts = append(managerOpts, notify.WithLimiter(limit))
	}

	if cfg.KafkaBrokers != "" {
		producer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
		managerOpts = append(managerOpts,
			notify.WithDispatcher(alert.NewKafkaDispatcher(producer)),
			notify.WithObserver(kafka.NewTaskEventPublisher(producer, logger)),
		)
	} else {
		d, err := buildChannelDispatcher(cfg, logger)
		if err != nil {
			return err
		}
		managerOpts = append(managerOpts, notify.WithDispatcher(d))
	}
	manager := notify.NewManager(st, managerOpts...)

	// ── scheduler and monitor ─────────────────────────────────────────────────
	schedOpts := []tracker.Option{
		tracker.WithIntervals(cfg.GenerateInterval, cfg.AlertInterval),
		tracker.WithPassTimeout(cfg.PassTimeout),
	}
	if leader != nil {
		schedOpts = append(schedOpts, tracker.WithLeader(leader), tracker.WithCountSink(counts))
	}
	sched := tracker.NewScheduler(manager, logger, schedOpts...)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── gRPC health ──────────────────────────────────────────────────────────
	var (
		healthSrv *healthrpc.Server
		healthLis net.Listener
	)
	monOpts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithStartupDelay(cfg.MonitorStartupDelay),
		monitor.WithInterval(cfg.MonitorInterval),
		monitor.WithTimeout(cfg.MonitorTimeout),
		monitor.OnRestored(func() { go sched.RunGeneration(runCtx) }),
	}
	if cfg.GRPCAddr != "" {
		healthLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		healthSrv = healthrpc.New(logger)
		monOpts = append(monOpts,
			monitor.OnLost(func() { healthSrv.SetServing(false) }),
			monitor.OnRestored(func() { healthSrv.SetServing(true) }),
		)
	}
	mon := monitor.New(st, monOpts...)

	// ── HTTP server ───────────────────────────────────────────────────────────
	apiOpts := []httpapi.Option{
		httpapi.WithClock(clk),
		httpapi.WithLogger(logger),
		httpapi.WithEvents(events),
	}
	if counts != nil {
		apiOpts = append(apiOpts, httpapi.WithCountCache(counts))
	}
	api := httpapi.New(st, manager, apiOpts...)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(api, logger, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── signal handling ───────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger, st.Ping)

	go mon.Run(runCtx)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(runCtx); err != nil {
			logger.Error("scheduler stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		logger.Info("tracker HTTP starting",
			slog.String("addr", httpSrv.Addr),
			slog.String("instance_id", instanceID),
			slog.String("version", version.String()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	if healthSrv != nil {
		go func() {
			logger.Info("tracker gRPC health starting", slog.String("addr", healthLis.Addr().String()))
			if err := healthSrv.Serve(healthLis); err != nil {
				logger.Error("gRPC server error", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}()
	}

	<-quit
	logger.Info("shutting down...")
	runCancel()

	if healthSrv != nil {
		healthSrv.Stop()
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	<-schedDone
	logger.Info("stopped")
	return nil
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	case "postgres", "":
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.StoreDriver)
	}

	if cfg.PostgresDSN == "" {
		return nil, nil, errors.New("postgres_dsn is not set")
	}
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return nil, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return postgres.New(pool, logger, cfg.Location()), pool.Close, nil
}

func buildChannelDispatcher(cfg config.Config, logger *slog.Logger) (alert.Dispatcher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg, err := channels.Build(ctx, channels.Config{
		Enabled: cfg.AlertChannels,
		Email: channels.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			To:       cfg.AlertRecipients,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		},
		Webhook: channels.WebhookConfig{URL: cfg.WebhookURL},
		SES:     channels.SESConfig{Region: cfg.SESRegion, From: cfg.SESFrom, To: cfg.AlertRecipients},
	}, logger)
	if err != nil {
		return nil, err
	}
	names := cfg.AlertChannels
	if len(names) == 0 {
		names = []string{"log"}
	}
	return channels.NewDispatcher(reg, logger, names...)
}
