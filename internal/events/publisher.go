package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/config"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// EventBookingConfirmed is emitted once per confirmed booking
const EventBookingConfirmed = "booking.confirmed"

// BookingConfirmedEvent is consumed by ticket rendering and notification
// services. It carries no payment details.
type BookingConfirmedEvent struct {
	Type         string     `json:"type"`
	BookingID    uuid.UUID  `json:"booking_id"`
	Reference    string     `json:"reference"`
	TripID       uuid.UUID  `json:"trip_id"`
	ReturnTripID *uuid.UUID `json:"return_trip_id,omitempty"`
	ContactEmail string     `json:"contact_email"`
	TotalAmount  int64      `json:"total_amount"`
	TicketCodes  []string   `json:"ticket_codes"`
	Passengers   int        `json:"passengers"`
	ConfirmedAt  time.Time  `json:"confirmed_at"`
}

// NewBookingConfirmedEvent builds the event for a booking
func NewBookingConfirmedEvent(b *models.Booking) BookingConfirmedEvent {
	codes := make([]string, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		codes = append(codes, t.Code)
	}
	confirmedAt := b.CreatedAt
	if b.ConfirmedAt != nil {
		confirmedAt = *b.ConfirmedAt
	}
	return BookingConfirmedEvent{
		Type:         EventBookingConfirmed,
		BookingID:    b.ID,
		Reference:    b.Reference,
		TripID:       b.TripID,
		ReturnTripID: b.ReturnTripID,
		ContactEmail: b.ContactEmail,
		TotalAmount:  b.TotalAmount,
		TicketCodes:  codes,
		Passengers:   len(b.Passengers),
		ConfirmedAt:  confirmedAt,
	}
}

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes booking events to kafka
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

// NewKafkaPublisher creates an async publisher. Delivery errors are logged by
// the writer's completion callback and never reach the booking flow.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logrus.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WithError(err).WithField("messages", len(messages)).Error("Failed to deliver booking events")
			}
		},
	}
	return &KafkaPublisher{writer: writer, topic: cfg.Topic, logger: logger}
}

// PublishBookingConfirmed emits booking.confirmed keyed by booking reference
func (p *KafkaPublisher) PublishBookingConfirmed(ctx context.Context, b *models.Booking) error {
	data, err := json.Marshal(NewBookingConfirmedEvent(b))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(b.Reference),
		Value: data,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventBookingConfirmed)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"reference": b.Reference,
	}).Debug("Booking event queued")
	return nil
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs booking events when no broker is configured
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishBookingConfirmed logs the event
func (p *LogPublisher) PublishBookingConfirmed(ctx context.Context, b *models.Booking) error {
	p.logger.WithFields(logrus.Fields{
		"event":     EventBookingConfirmed,
		"reference": b.Reference,
		"tickets":   len(b.Tickets),
	}).Info("Booking event (no broker configured)")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error { return nil }
