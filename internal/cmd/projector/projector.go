// Package projector parses projector command flags and launches the projector
// runtime.
package projector

import (
	"context"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/courtapps/internal/platform/cmd"
	"github.com/louisbranch/courtapps/internal/platform/config"
	platformgrpc "github.com/louisbranch/courtapps/internal/platform/grpc"
	"github.com/louisbranch/courtapps/internal/platform/logging"
	"github.com/louisbranch/courtapps/internal/platform/timeouts"
	projectorapp "github.com/louisbranch/courtapps/internal/services/projector/app"
)

// EnvPrefix prefixes every projector environment variable.
const EnvPrefix = config.EnvPrefix + "PROJECTOR_"

// Config holds projector command configuration.
type Config struct {
	Port          int           `env:"PORT" envDefault:"8091"`
	MetricsAddr   string        `env:"METRICS_ADDR" envDefault:":9091"`
	StoreBackend  string        `env:"STORE" envDefault:"sqlite"`
	DBPath        string        `env:"DB_PATH" envDefault:"data/projector.db"`
	KafkaBrokers  string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaTopic    string        `env:"KAFKA_TOPIC" envDefault:"courtapps.events"`
	KafkaGroup    string        `env:"KAFKA_GROUP" envDefault:"courtapps-projector"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	DedupeTTL     time.Duration `env:"DEDUPE_TTL" envDefault:"24h"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	LeaseTTL      time.Duration `env:"LEASE_TTL" envDefault:"30s"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"8"`
	RetryBackoff  time.Duration `env:"RETRY_BACKOFF" envDefault:"1s"`
	RetryMaxDelay time.Duration `env:"RETRY_MAX_DELAY" envDefault:"5m"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`

	// Healthcheck probes a running projector instead of starting one.
	Healthcheck bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithPrefix(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The projector health gRPC server port")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "The Prometheus metrics HTTP address")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Projection store backend (sqlite or memory)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The projector SQLite database path")
	fs.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Comma-separated Kafka seed brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic carrying domain events")
	fs.StringVar(&cfg.KafkaGroup, "kafka-group", cfg.KafkaGroup, "Kafka consumer group")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for delivery dedupe; empty disables it")
	fs.DurationVar(&cfg.DedupeTTL, "dedupe-ttl", cfg.DedupeTTL, "How long processed event ids are remembered")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Projection outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Projection outbox lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum retry attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json or console)")
	fs.BoolVar(&cfg.Healthcheck, "healthcheck", false, "Probe the local projector health endpoint and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Brokers splits KafkaBrokers on commas.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Run starts the projector runtime.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", entrypoint.ServiceProjector))

	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceProjector, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		return projectorapp.Run(ctx, projectorapp.RuntimeConfig{
			Port:         cfg.Port,
			MetricsAddr:  cfg.MetricsAddr,
			StoreBackend: cfg.StoreBackend,
			DBPath:       cfg.DBPath,
			Kafka: projectorapp.KafkaConfig{
				Brokers: cfg.Brokers(),
				Topic:   cfg.KafkaTopic,
				Group:   cfg.KafkaGroup,
			},
			RedisAddr:     cfg.RedisAddr,
			DedupeTTL:     cfg.DedupeTTL,
			PollInterval:  cfg.PollInterval,
			LeaseTTL:      cfg.LeaseTTL,
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			RetryMaxDelay: cfg.RetryMaxDelay,
			Logger:        logger,
		})
	})
}

// HealthAddr is the local address of the projector health server.
func (c Config) HealthAddr() string {
	return net.JoinHostPort("localhost", strconv.Itoa(c.Port))
}

// Probe waits for a running projector to report SERVING.
func Probe(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	return platformgrpc.Probe(ctx, cfg.HealthAddr(), projectorapp.HealthServiceName, timeouts.HealthProbe, logger)
}
