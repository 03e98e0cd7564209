package enums

import "fmt"

// The outbox types mirror the Postgres enums created by the outbox migration.
// Adding a value means adding it there too.

type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

type OutboxEventType string

const EventOrderCreated OutboxEventType = "order_created"

// OutboxDLQErrorReason records why a row left the outbox for the DLQ.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonDecodeFailed marks rows whose type, aggregate or payload
	// could not be resolved to a registered order event.
	OutboxDLQReasonDecodeFailed OutboxDLQErrorReason = "decode_failed"
	// OutboxDLQReasonNonRetryable marks rows the broker side rejected outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOrder}
	eventTypes     = []OutboxEventType{EventOrderCreated}
	dlqReasons     = []OutboxDLQErrorReason{OutboxDLQReasonDecodeFailed, OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts}
)

func (a OutboxAggregateType) IsValid() bool  { return contains(aggregateTypes, a) }
func (e OutboxEventType) IsValid() bool      { return contains(eventTypes, e) }
func (r OutboxDLQErrorReason) IsValid() bool { return contains(dlqReasons, r) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, "aggregate type", value)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(eventTypes, "event type", value)
}

func contains[T ~string](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

func parse[T ~string](set []T, kind, value string) (T, error) {
	if contains(set, T(value)) {
		return T(value), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
