// Package kafka consumes ingestion-completed events and triggers a
// detection run over the freshest window, so alerts follow new case
// batches without waiting for the next scheduled pass.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
)

// RunFunc triggers a detection run for a window. Wired to
// DetectionService.Run in main.
type RunFunc func(ctx context.Context, window models.TimeWindow) error

// ingestionEvent is the message shape published by the ingestion
// pipeline after a case batch lands.
type ingestionEvent struct {
	EventType string `json:"event_type"`
	BatchID   string `json:"batch_id"`
	Count     int    `json:"count"`
}

// Consumer reads the ingestion topic and fires post-ingestion detection
// runs. One bad message is logged and skipped, never fatal.
type Consumer struct {
	reader *kafkago.Reader
	run    RunFunc
	window models.TimeWindow
	logger *slog.Logger
}

// NewConsumer creates a consumer over brokers. Detection triggered from
// ingestion always uses the hourly window: that is the window fresh
// data lands in.
func NewConsumer(brokers []string, topic, groupID string, run RunFunc, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})
	return &Consumer{
		reader: reader,
		run:    run,
		window: models.WindowHourly,
		logger: logger,
	}
}

// Start blocks consuming until ctx is cancelled or the reader closes.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka consumer started", "topic", c.reader.Config().Topic, "group", c.reader.Config().GroupID)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			metrics.KafkaMessagesTotal.WithLabelValues("error").Inc()
			c.logger.Error("kafka read failed", "error", err)
			continue
		}
		c.handle(ctx, msg.Value)
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) {
	var ev ingestionEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		metrics.KafkaMessagesTotal.WithLabelValues("invalid").Inc()
		c.logger.Error("kafka message unmarshal failed", "error", err)
		return
	}
	if ev.EventType != "cases_ingested" {
		metrics.KafkaMessagesTotal.WithLabelValues("skipped").Inc()
		return
	}
	if ev.Count < 1 {
		metrics.KafkaMessagesTotal.WithLabelValues("invalid").Inc()
		c.logger.Warn("kafka message has no cases", "batch_id", ev.BatchID)
		return
	}

	c.logger.Info("ingestion batch received", "batch_id", ev.BatchID, "count", ev.Count)
	if err := c.run(ctx, c.window); err != nil {
		metrics.KafkaMessagesTotal.WithLabelValues("run_failed").Inc()
		c.logger.Error("post-ingestion detection run failed", "batch_id", ev.BatchID, "error", err)
		return
	}
	metrics.KafkaMessagesTotal.WithLabelValues("processed").Inc()
}

// Close shuts the reader down, unblocking Start.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
