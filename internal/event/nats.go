package event

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subject = "booking.events"

// NatsSink publishes booking events to NATS.
type NatsSink struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNatsSink(natsURL string, logger *zap.Logger) (*NatsSink, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &NatsSink{conn: nc, logger: logger}, nil
}

func (s *NatsSink) Publish(_ context.Context, e BookingEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("marshal booking event", zap.String("type", e.EventType), zap.Error(err))
		return
	}

	if err := s.conn.Publish(subject, payload); err != nil {
		s.logger.Error("publish booking event",
			zap.String("type", e.EventType),
			zap.String("booking_id", e.BookingID),
			zap.Error(err))
		return
	}

	s.logger.Info("published booking event",
		zap.String("type", e.EventType),
		zap.String("booking_id", e.BookingID))
}

func (s *NatsSink) Close() {
	s.conn.Close()
}
