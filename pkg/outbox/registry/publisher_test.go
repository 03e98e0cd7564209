package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/dbtest"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/enums"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox/payloads"
)

func orderCreatedRow(t *testing.T, orderID uuid.UUID, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	id := outbox.EventID(enums.EventOrderCreated, orderID)
	env, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: id.String(), Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       env,
	}
}

func TestResolveOrderCreated(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "shop-orders"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	orderID := uuid.New()
	row := orderCreatedRow(t, orderID, payloads.OrderCreatedEvent{OrderID: orderID, CustomerID: 7, Total: decimal.RequireFromString("45.00")})

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "shop-orders" {
		t.Fatalf("unexpected topic %s", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.CustomerID != 7 || !payload.Total.Equal(decimal.RequireFromString("45")) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestResolveRejectsBadRowsAsNonRetryable(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "shop-orders"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	orderID := uuid.New()
	valid := payloads.OrderCreatedEvent{OrderID: orderID}

	mismatch := orderCreatedRow(t, orderID, valid)
	mismatch.AggregateType = "cart"

	missingPayload := orderCreatedRow(t, orderID, nil)

	garbage := orderCreatedRow(t, orderID, valid)
	garbage.Payload = json.RawMessage(`{not json`)

	unknown := orderCreatedRow(t, orderID, valid)
	unknown.EventType = "order_shipped"

	otherOrder := orderCreatedRow(t, orderID, payloads.OrderCreatedEvent{OrderID: uuid.New()})

	foreignID := orderCreatedRow(t, orderID, valid)
	foreignID.ID = uuid.New()

	newerVersion := orderCreatedRow(t, orderID, valid)
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(newerVersion.Payload, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	env.Version = 2
	if newerVersion.Payload, err = json.Marshal(env); err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	for name, row := range map[string]models.OutboxEvent{
		"aggregate mismatch":   mismatch,
		"missing payload":      missingPayload,
		"garbage envelope":     garbage,
		"unknown type":         unknown,
		"payload for other id": otherOrder,
		"event id not row id":  foreignID,
		"unknown version":      newerVersion,
	} {
		_, err := reg.Resolve(row)
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected NonRetryableError, got %v", name, err)
		}
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatalf("expected error without orders topic")
	}
	reg, _ := NewEventRegistry(config.PubSubConfig{OrdersTopic: "shop-orders"})
	if topics := reg.Topics(); len(topics) != 1 || topics[0] != "shop-orders" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestResolveAcceptsEmittedRow(t *testing.T) {
	db := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(db), nil)
	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderCreatedEvent{OrderID: orderID, CustomerID: 3},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	var row models.OutboxEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}

	reg, _ := NewEventRegistry(config.PubSubConfig{OrdersTopic: "shop-orders"})
	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve emitted row: %v", err)
	}
	if resolved.Envelope.EventID != row.ID.String() {
		t.Fatalf("expected envelope id %s, got %s", row.ID, resolved.Envelope.EventID)
	}
}
