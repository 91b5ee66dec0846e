// Package app runs the projector: it consumes domain events from Kafka,
// applies them to the projection stores, and retries parked projection steps
// from the outbox.
package app
