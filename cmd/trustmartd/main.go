package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trustmart/config"
	"trustmart/core/events"
	"trustmart/gateway"
	"trustmart/gateway/auth"
	gwmw "trustmart/gateway/middleware"
	"trustmart/native/common"
	"trustmart/native/escrow"
	"trustmart/native/marketplace"
	"trustmart/native/reputation"
	"trustmart/observability"
	"trustmart/observability/logging"
	"trustmart/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var rotation *logging.FileRotation
	if strings.TrimSpace(cfg.Log.File) != "" {
		rotation = &logging.FileRotation{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}
	}
	logger := logging.Setup("trustmart", cfg.Environment, rotation)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := storage.AutoMigrate(db); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	store := storage.NewStore(db)

	emitter := observability.EmitterWithMetrics(&logEmitter{logger: logger})
	coordinator := marketplace.New(marketplace.Config{
		Store:    store,
		Emitter:  emitter,
		Notifier: &logNotifier{logger: logger},
		Pauses:   common.NewStaticPauses(cfg.Paused),
		Trust:    reputation.Config{DisputePenalty: cfg.Trust.DisputePenalty},
		Logger:   logger,
	})

	authn, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		logger.Error("configure authenticator", slog.Any("error", err))
		os.Exit(1)
	}

	server := gateway.New(gateway.Config{
		Store:       store,
		Coordinator: coordinator,
		Auth:        authn,
		RateLimit: gwmw.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/metrics/http", server.MetricsHandler())
	mux.Handle("/", otelhttp.NewHandler(server.Handler(), "trustmart-gateway"))

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", slog.String("address", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func openDatabase(cfg config.Database) (*gorm.DB, error) {
	opts := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), opts)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// logEmitter writes every lifecycle event to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(p events.Payload) {
	if p == nil {
		return
	}
	evt := p.Event()
	if evt == nil {
		return
	}
	attrs := make([]any, 0, len(evt.Attributes)+1)
	attrs = append(attrs, slog.String("event", evt.Type))
	for k, v := range evt.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	l.logger.Info("lifecycle event", attrs...)
}

// logNotifier records settlements; a delivery integration can replace it
// without touching the coordinator.
type logNotifier struct {
	logger *slog.Logger
}

func (l *logNotifier) OrderSettled(_ context.Context, orderID uuid.UUID, status escrow.EscrowStatus) {
	l.logger.Info("order settled",
		slog.String("order_id", orderID.String()),
		slog.String("status", string(status)),
	)
}
