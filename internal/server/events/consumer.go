package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/dverbin/audiochat/internal/logging"
	"github.com/dverbin/audiochat/internal/server/pipeline"
)

// Dispatcher accepts upload events for processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, event pipeline.UploadEvent)
}

// reader is the subset of kafka.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads upload completion events from Kafka and hands them to the
// pipeline. Offsets are committed only after dispatch, so a crash before
// dispatch redelivers the event; the pipeline's idempotency check absorbs
// the duplicates.
type Consumer struct {
	reader   reader
	workflow Dispatcher
	logger   logging.Logger
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// NewConsumer creates a consumer in the given consumer group.
func NewConsumer(cfg ConsumerConfig, workflow Dispatcher, logger logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
	})
	return &Consumer{reader: r, workflow: workflow, logger: logger}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var event pipeline.UploadEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// malformed message: log and commit past it
			c.logger.Error(ctx, "error decoding upload event",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
		} else if event.Key == "" || event.UserID == "" {
			c.logger.Error(ctx, "upload event missing key or user id",
				"topic", msg.Topic, "offset", msg.Offset)
		} else {
			c.workflow.Dispatch(ctx, event)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Close closes the underlying reader, unblocking Run.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
