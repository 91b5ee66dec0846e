package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/platform/logging"
	"github.com/louisbranch/courtapps/internal/platform/timeouts"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

const defaultRedeliveryDelay = time.Second

// KafkaConfig selects the topic the projector consumes.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// NewKafkaClient creates a consumer-group client with auto-commit disabled;
// the Consumer commits each record itself.
func NewKafkaClient(cfg KafkaConfig) (*kgo.Client, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if strings.TrimSpace(cfg.Group) == "" {
		return nil, fmt.Errorf("kafka consumer group is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// recordClient is the part of *kgo.Client the consumer uses.
type recordClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

type eventApplier interface {
	Apply(ctx context.Context, env event.Envelope) error
}

// Consumer feeds Kafka records to the applier.
//
// A record's offset is committed once the applier returns. Envelopes that
// cannot be parsed, malformed payloads and unknown types are committed and
// logged. Any other failure holds the partition: the record is retried in
// place and never committed until it succeeds.
type Consumer struct {
	client  recordClient
	applier eventApplier
	dedupe  Deduper
	logger  *zap.Logger

	redeliveryDelay time.Duration
}

// NewConsumer creates a Consumer. dedupe is optional.
func NewConsumer(client recordClient, applier eventApplier, dedupe Deduper, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:          client,
		applier:         applier,
		dedupe:          dedupe,
		logger:          logging.OrNop(logger).Named("consumer"),
		redeliveryDelay: defaultRedeliveryDelay,
	}
}

// Run polls until ctx ends or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil || c.client == nil || c.applier == nil {
		return fmt.Errorf("consumer is not configured")
	}
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("fetch failed", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, rec := range p.Records {
				if err := c.process(ctx, rec); err != nil {
					return
				}
			}
		})
	}
}

// process handles rec until it can be committed, then commits it. It only
// fails when ctx ends first.
func (c *Consumer) process(ctx context.Context, rec *kgo.Record) error {
	for {
		err := c.handle(ctx, rec)
		if err == nil {
			c.commit(ctx, rec)
			return nil
		}
		c.logger.Error("event not applied, retrying",
			zap.String("topic", rec.Topic),
			zap.Int32("partition", rec.Partition),
			zap.Int64("offset", rec.Offset),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.redeliveryDelay):
		}
	}
}

// handle applies one record. A nil return means the record may be committed.
func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) error {
	env, err := event.Parse(rec.Value)
	if err != nil {
		c.logger.Warn("drop undecodable record",
			zap.String("topic", rec.Topic),
			zap.Int64("offset", rec.Offset),
			zap.Error(err),
		)
		return nil
	}
	log := c.logger.With(zap.String("event_type", string(env.Type)), zap.String("event_id", env.ID))

	if c.dedupe != nil {
		seen, err := c.dedupe.Seen(ctx, env.ID)
		switch {
		case err != nil:
			log.Warn("dedupe unavailable", zap.Error(err))
		case seen:
			log.Info("skip duplicate delivery")
			return nil
		}
	}

	if err := c.applier.Apply(ctx, env); err != nil {
		code := apperrors.GetCode(err)
		if code.Retryable() {
			return err
		}
		log.Warn("drop rejected event", zap.String("code", string(code)), zap.Error(err))
	}
	c.markProcessed(ctx, log, env.ID)
	return nil
}

func (c *Consumer) markProcessed(ctx context.Context, log *zap.Logger, eventID string) {
	if c.dedupe == nil {
		return
	}
	if err := c.dedupe.MarkProcessed(ctx, eventID); err != nil {
		log.Warn("mark event processed", zap.Error(err))
	}
}

// commit failures are logged; the record is then redelivered after a
// rebalance and deduplicated.
func (c *Consumer) commit(ctx context.Context, rec *kgo.Record) {
	commitCtx, cancel := context.WithTimeout(ctx, timeouts.OffsetCommit)
	defer cancel()
	if err := c.client.CommitRecords(commitCtx, rec); err != nil {
		c.logger.Warn("commit offset", zap.Int64("offset", rec.Offset), zap.Error(err))
	}
}
