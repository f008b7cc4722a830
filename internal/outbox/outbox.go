// Package outbox moves ledger records onto the event stream. The postgres
// ledger store writes an outbox row in the same transaction as the record;
// a Relay later produces unpublished rows to Kafka and marks them published.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types written by the ledger.
const (
	EventRefusalAppended   = "ledger.refusal.appended"
	EventExecutionAppended = "ledger.execution.appended"
)

// Event is one outbox row. AggregateID is the partition key on the stream.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	CreatedAt     time.Time
}

// NewEvent marshals payload into a new event.
func NewEvent(aggregateType, aggregateID, eventType string, payload any, createdAt time.Time) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		CreatedAt:     createdAt.UTC(),
	}, nil
}

// Publisher delivers events to the stream. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, events ...Event) error

func (f PublisherFunc) Publish(ctx context.Context, events ...Event) error {
	return f(ctx, events...)
}
