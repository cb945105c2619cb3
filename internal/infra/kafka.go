package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/service"
	"github.com/segmentio/kafka-go"
)

// KafkaProducer mirrors processed events to a Kafka topic for internal
// consumers (analytics, advisory recompute workers). If disabled, publishes
// are no-ops.
type KafkaProducer struct {
	writer  *kafka.Writer
	topic   string
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. If brokers is empty or disabled,
// writes are no-ops.
func NewKafkaProducer(brokers, topic string, enabled bool, logger *slog.Logger) *KafkaProducer {
	if !enabled || brokers == "" {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{enabled: false, logger: logger}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)
	return &KafkaProducer{writer: w, topic: topic, logger: logger, enabled: true}
}

// PublishProcessed mirrors one processed event, keyed by client so per-client
// ordering survives partitioning.
func (p *KafkaProducer) PublishProcessed(ctx context.Context, ev *domain.DomainEvent) error {
	if !p.enabled {
		return nil
	}

	value, err := json.Marshal(map[string]interface{}{
		"eventId":   ev.ID.String(),
		"type":      string(ev.Type),
		"source":    ev.Source,
		"clientId":  ev.ClientID,
		"timestamp": ev.Timestamp.UTC().Format(time.RFC3339),
		"priority":  ev.Priority.String(),
		"data":      ev.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal mirror message: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(ev.ClientID),
		Value: value,
	})
}

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// ingestMessage is the wire shape provider bridges publish to the ingest
// topic.
type ingestMessage struct {
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	ClientID   string          `json:"clientId"`
	Priority   string          `json:"priority,omitempty"`
	MaxRetries int             `json:"maxRetries,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// KafkaIngest consumes provider events from the ingest topic and enqueues
// them into the pipeline.
type KafkaIngest struct {
	reader  *kafka.Reader
	events  *service.EventService
	logger  *slog.Logger
	enabled bool
}

// NewKafkaIngest creates the ingest consumer. If disabled, Run returns
// immediately.
func NewKafkaIngest(brokers, topic, groupID string, enabled bool, events *service.EventService, logger *slog.Logger) *KafkaIngest {
	if !enabled || brokers == "" {
		logger.Info("kafka ingest disabled")
		return &KafkaIngest{enabled: false, logger: logger}
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(brokers, ","),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	logger.Info("kafka ingest initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaIngest{reader: r, events: events, logger: logger, enabled: true}
}

// Run consumes until ctx is cancelled. Malformed messages are logged and
// skipped; they never enter the queue.
func (c *KafkaIngest) Run(ctx context.Context) {
	if !c.enabled {
		return
	}

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("kafka ingest stopped")
				return
			}
			c.logger.Error("kafka read failed", "error", err)
			continue
		}

		var im ingestMessage
		if err := json.Unmarshal(msg.Value, &im); err != nil {
			c.logger.Warn("kafka ingest: malformed message skipped", "offset", msg.Offset, "error", err)
			continue
		}

		payload, err := domain.ParsePayload(domain.EventType(im.Type), im.Data)
		if err != nil {
			c.logger.Warn("kafka ingest: invalid payload skipped", "offset", msg.Offset, "error", err)
			continue
		}

		opts := service.EnqueueOptions{MaxRetries: im.MaxRetries}
		if im.Priority != "" {
			if prio, ok := domain.ParsePriority(im.Priority); ok {
				opts.Priority = &prio
			}
		}

		if _, err := c.events.Enqueue(domain.EventType(im.Type), im.Source, im.ClientID, payload, opts); err != nil {
			c.logger.Warn("kafka ingest: enqueue rejected", "offset", msg.Offset, "error", err)
		}
	}
}

// Close shuts down the Kafka reader.
func (c *KafkaIngest) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
