package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matjip-map/discovery-service/internal/config"
	"github.com/matjip-map/discovery-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventLocationUpdated is the event_type header of every published message.
const EventLocationUpdated = "location.updated"

// LocationEvent is the JSON payload of a location update message.
type LocationEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher produces session location updates to a Kafka topic.
// It implements domain.LocationPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured location topic.
// Messages are keyed by session id so one session's updates stay ordered.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLocationTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishLocation serializes and writes one location update.
func (p *Publisher) PublishLocation(ctx context.Context, loc domain.SessionLocation) error {
	msg, err := serializeToMessage(loc, uuid.NewString())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish location: %w", err)
	}
	p.logger.Debug("location event published", "session_id", loc.SessionID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a SessionLocation into a Kafka message.
func serializeToMessage(loc domain.SessionLocation, eventID string) (kafkago.Message, error) {
	data, err := json.Marshal(LocationEvent{
		EventID:   eventID,
		Type:      EventLocationUpdated,
		SessionID: loc.SessionID,
		Lat:       loc.Coordinate.Lat,
		Lng:       loc.Coordinate.Lng,
		UpdatedAt: loc.UpdatedAt.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(loc.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventLocationUpdated)},
			{Key: "updated_at", Value: []byte(loc.UpdatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
