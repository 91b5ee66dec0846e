package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/courtapps/internal/platform/logging"
	"github.com/louisbranch/courtapps/internal/platform/timeouts"
	"github.com/louisbranch/courtapps/internal/services/projector/observability"
	"github.com/louisbranch/courtapps/internal/services/projector/projection"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
	"github.com/louisbranch/courtapps/internal/services/projector/storage/memory"
	projectorsqlite "github.com/louisbranch/courtapps/internal/services/projector/storage/sqlite"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// HealthServiceName is the gRPC health service reported while the runtime serves.
const HealthServiceName = "projector.runtime"

const (
	defaultProjectorPort = 8091
	defaultMetricsAddr   = ":9091"
	defaultProjectorDB   = "data/projector.db"
)

// RuntimeConfig controls projector startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port          int
	MetricsAddr   string
	StoreBackend  string
	DBPath        string
	Kafka         KafkaConfig
	RedisAddr     string
	DedupeTTL     time.Duration
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	Logger        *zap.Logger
}

func (c RuntimeConfig) normalized() (RuntimeConfig, error) {
	if c.Port <= 0 {
		c.Port = defaultProjectorPort
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		c.MetricsAddr = defaultMetricsAddr
	}
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	if c.StoreBackend == "" {
		c.StoreBackend = StoreSQLite
	}
	if c.StoreBackend != StoreSQLite && c.StoreBackend != StoreMemory {
		return RuntimeConfig{}, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = defaultProjectorDB
	}
	c.Logger = logging.OrNop(c.Logger)
	return c, nil
}

func (c RuntimeConfig) retryConfig() RetryConfig {
	return RetryConfig{
		PollInterval:  c.PollInterval,
		LeaseTTL:      c.LeaseTTL,
		MaxAttempts:   c.MaxAttempts,
		RetryBackoff:  c.RetryBackoff,
		RetryMaxDelay: c.RetryMaxDelay,
	}.normalized()
}

// Run starts the projector and blocks until ctx ends or a component fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}
	logger := cfg.Logger

	store, err := openStore(ctx, cfg.StoreBackend, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("close projector store", zap.Error(closeErr))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	retryCfg := cfg.retryConfig()
	applier := projection.NewApplier(store, store, logger, metrics)
	applier.RetryDelay = retryCfg.RetryBackoff

	kafkaClient, err := NewKafkaClient(cfg.Kafka)
	if err != nil {
		return err
	}
	defer kafkaClient.Close()

	var dedupe Deduper
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		redisClient, err := OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		dedupe = NewRedisDeduper(redisClient, cfg.DedupeTTL)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on projector port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsHandler(registry),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	consumer := NewConsumer(kafkaClient, applier, dedupe, logger)
	retryLoop := NewRetryLoop(store, applier, retryCfg, logger, metrics)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("projector health listening", zap.String("addr", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("projector metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return consumer.Run(groupCtx)
	})
	group.Go(func() error {
		return retryLoop.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return mux
}

func openStore(ctx context.Context, backend, path string) (storage.Store, error) {
	if backend == StoreMemory {
		return memory.New(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create projector storage dir: %w", err)
		}
	}
	store, err := projectorsqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open projector sqlite store: %w", err)
	}
	return store, nil
}
