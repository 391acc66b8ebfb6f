package registry

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

// EventDescriptor is the routing entry for one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, with its decoded payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks failures that will never succeed on retry, such as a row
// whose payload cannot be decoded. The publisher dead-letters these immediately.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry validates outbox rows and routes them to topics.
type EventRegistry struct {
	descriptors map[enums.OutboxEventType]EventDescriptor
	decoders    *DecoderRegistry
}

// NewEventRegistry binds the catalog to the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[topicGroup]string{
		ordersTopic:    cfg.OrdersTopic,
		reviewsTopic:   cfg.ReviewsTopic,
		inventoryTopic: cfg.InventoryTopic,
	}
	var missing error
	for _, group := range []topicGroup{ordersTopic, reviewsTopic, inventoryTopic} {
		if topics[group] == "" {
			missing = multierr.Append(missing, fmt.Errorf("%s topic is required", group))
		}
	}
	if missing != nil {
		return nil, missing
	}

	reg := &EventRegistry{
		descriptors: make(map[enums.OutboxEventType]EventDescriptor, len(catalog)),
		decoders:    NewDomainDecoders(),
	}
	for _, entry := range catalog {
		reg.descriptors[entry.event] = EventDescriptor{
			EventType:     entry.event,
			AggregateType: entry.aggregate,
			Topic:         topics[entry.group],
		}
	}
	return reg, nil
}

// Topics lists each destination topic once, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, desc := range r.descriptors {
		if !slices.Contains(topics, desc.Topic) {
			topics = append(topics, desc.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload. Every error it
// returns is a NonRetryableError.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.descriptors[row.EventType]
	if !ok {
		return nil, permanent("unsupported event type %q", row.EventType)
	}
	if row.AggregateType != desc.AggregateType {
		return nil, permanent("%s belongs to %s aggregates, row has %s", row.EventType, desc.AggregateType, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return nil, permanent("%s row %s has no aggregate id", row.EventType, row.ID)
	}

	envelope, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if !envelope.HasData() {
		return nil, permanent("%s envelope has no data", row.EventType)
	}
	payload, err := r.decoders.Decode(row.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
