// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the metrics HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second

// RedisDial caps the wait time when pinging the dedupe Redis at startup.
const RedisDial = 2 * time.Second

// OffsetCommit caps a single Kafka offset commit after a record is handled.
const OffsetCommit = 5 * time.Second

// HealthProbe bounds the command-line health probe against a running service.
const HealthProbe = 5 * time.Second
