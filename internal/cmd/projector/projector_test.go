package projector

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)
	t.Setenv("COURTAPPS_PROJECTOR_PORT", "9099")
	t.Setenv("COURTAPPS_PROJECTOR_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := ParseConfig(fs, []string{"-store", "memory", "-max-attempts", "3", "-retry-backoff", "250ms"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("port = %d, want 9099", cfg.Port)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("store = %q, want %q", cfg.StoreBackend, "memory")
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryBackoff != 250*time.Millisecond {
		t.Fatalf("retry backoff = %v, want 250ms", cfg.RetryBackoff)
	}
	brokers := cfg.Brokers()
	if len(brokers) != 2 || brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Fatalf("brokers = %v", brokers)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.KafkaTopic != "courtapps.events" {
		t.Fatalf("topic = %q", cfg.KafkaTopic)
	}
	if cfg.DedupeTTL != 24*time.Hour {
		t.Fatalf("dedupe ttl = %v, want 24h", cfg.DedupeTTL)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redis addr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("log format = %q, want json", cfg.LogFormat)
	}
}

func TestParseConfig_RejectsBadEnv(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)
	t.Setenv("COURTAPPS_PROJECTOR_LEASE_TTL", "soon")

	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunRejectsUnknownLogFormat(t *testing.T) {
	if err := Run(t.Context(), Config{LogFormat: "xml"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseConfig_HealthcheckFlag(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-healthcheck", "-port", "9100"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Healthcheck {
		t.Fatal("expected healthcheck mode")
	}
	if got := cfg.HealthAddr(); got != "localhost:9100" {
		t.Fatalf("health addr = %q, want localhost:9100", got)
	}
}

func TestProbeRejectsUnknownLogFormat(t *testing.T) {
	if err := Probe(t.Context(), Config{Port: 9100, LogFormat: "xml"}); err == nil {
		t.Fatal("expected error")
	}
}
