// Package events connects the pipeline to Kafka: an optional consumer for
// upload completion events and a publisher for finished transcripts.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dverbin/audiochat/internal/logging"
	"github.com/dverbin/audiochat/internal/server/models"
	"github.com/dverbin/audiochat/internal/server/observability"
)

// TranscriptEvent is the payload published after a transcript is committed.
type TranscriptEvent struct {
	FileID     string `json:"file_id"`
	UserID     string `json:"user_id"`
	StorageKey string `json:"storage_key"`
	Name       string `json:"name"`
	Body       string `json:"body"`
}

// Publisher writes transcript completion events to Kafka. When disabled it
// logs the event and drops it, so callers never need a nil check.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *observability.Metrics
	logger  logging.Logger
}

// PublisherConfig holds Kafka publisher configuration.
type PublisherConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// NewPublisher creates a transcript event publisher.
func NewPublisher(cfg PublisherConfig, metrics *observability.Metrics, logger logging.Logger) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info(context.Background(), "kafka publisher disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic, metrics: metrics, logger: logger}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info(context.Background(), "kafka publisher initialized",
		"brokers", cfg.Brokers, "topic", cfg.Topic)

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: metrics,
		logger:  logger,
	}
}

// TranscriptCompleted publishes a transcript completion event keyed by the
// storage key.
func (p *Publisher) TranscriptCompleted(ctx context.Context, file *models.File, transcript *models.Transcript) error {
	event := TranscriptEvent{
		FileID:     file.ID,
		UserID:     file.UserID,
		StorageKey: file.StorageKey,
		Name:       file.Name,
		Body:       transcript.Body,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.Debug(ctx, "publishing transcript event",
		"topic", p.topic, "key", file.StorageKey)

	if !p.enabled || p.writer == nil {
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(file.StorageKey),
		Value: payload,
	})
	p.metrics.RecordKafkaPublish(p.topic, err)
	if err != nil {
		p.logger.Error(ctx, "error writing to kafka",
			"topic", p.topic, "key", file.StorageKey, "error", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
