// Package events announces stored evaluations to other services over NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "bookeval.evaluation.recorded"

// EvaluationRecorded is emitted after an evaluation record is saved.
type EvaluationRecorded struct {
	RecordID      string    `json:"record_id"`
	UserID        string    `json:"user_id"`
	InputType     string    `json:"input_type"`
	FileRef       string    `json:"file_ref"`
	OverallRating string    `json:"overall_rating"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type publisherConn interface {
	Publish(subject string, data []byte) error
}

// Publisher writes events to a NATS subject.
type Publisher struct {
	conn    publisherConn
	nc      *nats.Conn
	subject string
	logger  zerolog.Logger
}

// Connect dials NATS and returns a publisher for subject.
func Connect(url, subject string, logger zerolog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	nc, err := nats.Connect(url, nats.Name("bookeval-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	publisher := newPublisher(nc, subject, logger)
	publisher.nc = nc
	return publisher, nil
}

func newPublisher(conn publisherConn, subject string, logger zerolog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// PublishEvaluationRecorded sends the event. Delivery is fire and forget.
func (p *Publisher) PublishEvaluationRecorded(_ context.Context, event EvaluationRecorded) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}
	p.logger.Debug().Str("record_id", event.RecordID).Str("subject", p.subject).Msg("evaluation event published")
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to drain nats connection")
	}
}
