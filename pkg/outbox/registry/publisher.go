// Package registry decides where each outbox row is published and checks the
// row decodes into the payload subscribers expect.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/enums"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox/payloads"
)

// EventDescriptor routes one event type. Version is the envelope version the
// publisher understands.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	Version       int

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is a row that passed every check and is ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// aggregated payloads name the aggregate they describe.
type aggregated interface {
	AggregateID() uuid.UUID
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	return &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{
		enums.EventOrderCreated: {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Topic:         cfg.OrdersTopic,
			Version:       1,
			decode:        decodeAs[payloads.OrderCreatedEvent],
		},
	}}, nil
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	payload := new(T)
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Topics lists the distinct topics in name order.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, desc := range r.entries {
		if !seen[desc.Topic] {
			seen[desc.Topic] = true
			topics = append(topics, desc.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve decodes event and checks it against its descriptor. Every failure
// is a NonRetryableError: the row will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, reject("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, reject("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, reject("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, reject("decode envelope: %w", err)
	}
	if envelope.Version != desc.Version {
		return nil, reject("%s envelope version %d, want %d", event.EventType, envelope.Version, desc.Version)
	}
	if envelope.EventID != event.ID.String() {
		return nil, reject("envelope event id %q does not match row %s", envelope.EventID, event.ID)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, reject("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, reject("decode %s payload: %w", event.EventType, err)
	}
	if agg, ok := payload.(aggregated); ok && agg.AggregateID() != event.AggregateID {
		return nil, reject("%s payload describes %s, row says %s", event.EventType, agg.AggregateID(), event.AggregateID)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
