package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Sivaraj16/medicals/pkg/logger"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// MaxRetries is how many times a failing handler is attempted before
	// the message is dead-lettered (or dropped without a DLQ).
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterer interface {
	Publish(ctx context.Context, msg kafka.Message, lastErr error, consumerGroup string) error
}

// Consumer reads one topic as part of a consumer group and commits each
// message once it has been handled, dead-lettered or found undecodable.
type Consumer struct {
	reader    messageReader
	topic     string
	group     string
	handler   Handler
	dlq       deadLetterer
	metrics   *Metrics
	logger    *slog.Logger
	retries   int
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a consumer for cfg.Topic in group cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, metrics *Metrics, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, metrics, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, metrics *Metrics, logger *slog.Logger) *Consumer {
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	return &Consumer{
		reader:  r,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		handler: handler,
		metrics: metrics,
		logger:  logger,
		retries: cfg.MaxRetries,
		backoff: cfg.RetryBackoff,
	}
}

// WithDLQ routes messages that exhaust their retries to a dead-letter topic
// instead of dropping them.
func (c *Consumer) WithDLQ(d *DLQProducer) *Consumer {
	c.dlq = d
	return c
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topic", c.topic),
		slog.String("group", c.group),
	)
	defer func() {
		c.logger.Info("consumer stopping", slog.String("topic", c.topic))
		_ = c.Close()
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch message",
				slog.String("topic", c.topic),
				slog.String("error", err.Error()),
			)
			if sleepErr := sleep(ctx, c.backoff); sleepErr != nil {
				return nil
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	c.metrics.Received.WithLabelValues(c.topic, c.group).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
		)
		c.commit(ctx, msg)
		return
	}

	hctx := ExtractTraceContext(ctx, &msg)
	if event.CorrelationID != "" {
		hctx = logger.WithCorrelationID(hctx, event.CorrelationID)
	}

	start := time.Now()
	lastErr := c.handleWithRetry(hctx, event, msg)
	c.metrics.HandlerDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		if ctx.Err() != nil {
			// Shutting down mid-retry; leave the offset for the next owner.
			return
		}
		c.metrics.Failed.WithLabelValues(c.topic, c.group).Inc()
		c.logger.ErrorContext(hctx, "handler failed after all retries",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int64("offset", msg.Offset),
			slog.Int("retries", c.retries),
		)
		if c.dlq != nil {
			if err := c.dlq.Publish(ctx, msg, lastErr, c.group); err != nil {
				c.logger.Error("failed to dead-letter message", slog.String("error", err.Error()))
			} else {
				c.metrics.DeadLettered.WithLabelValues(c.topic, c.group).Inc()
			}
		}
		c.commit(ctx, msg)
		return
	}

	c.metrics.Processed.WithLabelValues(c.topic, c.group).Inc()
	c.commit(ctx, msg)
}

func (c *Consumer) handleWithRetry(ctx context.Context, event *Event, msg kafka.Message) error {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		lastErr = c.handler(ctx, event)
		if lastErr == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
		)
		if attempt < c.retries {
			if err := sleep(ctx, time.Duration(attempt)*c.backoff); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
