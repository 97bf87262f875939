package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/config"
	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

const (
	KindAlert    = "alert"
	KindLocation = "location"

	fetchBackoff = 2 * time.Second
)

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type AlertCreator interface {
	Create(ctx context.Context, in service.CreateAlertInput) (*models.Alert, error)
}

type LocationRecorder interface {
	Record(ctx context.Context, in service.RecordLocationInput) (*models.Location, error)
}

// Event is one detection published by a device gateway.
type Event struct {
	Kind   string `json:"kind"`
	UserID string `json:"userId"`

	Category models.AlertCategory `json:"category,omitempty"`
	Severity models.AlertSeverity `json:"severity,omitempty"`
	Message  string               `json:"message,omitempty"`

	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Heading    *float64   `json:"heading,omitempty"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

type Consumer struct {
	reader    Reader
	alerts    AlertCreator
	locations LocationRecorder
	metrics   *metrics.Metrics
	backoff   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(reader Reader, alerts AlertCreator, locations LocationRecorder, m *metrics.Metrics) *Consumer {
	return &Consumer{
		reader:    reader,
		alerts:    alerts,
		locations: locations,
		metrics:   m,
		backoff:   fetchBackoff,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop ends the fetch loop and closes the reader.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	slog.Info("ingestion consumer stopped")
	return c.reader.Close()
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()
	slog.Info("starting ingestion consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("failed to commit message", "offset", msg.Offset, "partition", msg.Partition, "error", err)
		}
	}
}

// handle processes one message. Every outcome is committed, so a malformed
// or rejected event is logged once and never redelivered.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		slog.Warn("dropping malformed detection event", "offset", msg.Offset, "error", err)
		c.metrics.Ingested("unknown", "invalid")
		return
	}

	err := c.apply(ctx, ev)
	switch {
	case err == nil:
		slog.Debug("detection event applied", "kind", ev.Kind, "user_id", ev.UserID)
		c.metrics.Ingested(ev.Kind, "ok")
	case apperr.KindOf(err) == apperr.KindInternal:
		slog.Error("failed to apply detection event", "kind", ev.Kind, "user_id", ev.UserID, "error", err)
		c.metrics.Ingested(ev.Kind, "failed")
	default:
		slog.Warn("rejected detection event", "kind", ev.Kind, "user_id", ev.UserID, "error", err)
		c.metrics.Ingested(ev.Kind, "invalid")
	}
}

func (c *Consumer) apply(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case KindAlert:
		_, err := c.alerts.Create(ctx, service.CreateAlertInput{
			UserID:    ev.UserID,
			Category:  ev.Category,
			Severity:  ev.Severity,
			Message:   ev.Message,
			Latitude:  ev.Latitude,
			Longitude: ev.Longitude,
		})
		return err
	case KindLocation:
		_, err := c.locations.Record(ctx, service.RecordLocationInput{
			UserID:     ev.UserID,
			Latitude:   ev.Latitude,
			Longitude:  ev.Longitude,
			Accuracy:   ev.Accuracy,
			Speed:      ev.Speed,
			Heading:    ev.Heading,
			RecordedAt: ev.RecordedAt,
		})
		return err
	}
	return apperr.FieldError("kind", fmt.Sprintf("unknown event kind %q", ev.Kind))
}
