// Package registry knows, for every outbox event type, which aggregate emits it,
// which topic carries it and how to decode its payload.
package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

// DecodeFunc turns an envelope's data field into its typed payload value.
type DecodeFunc func(data json.RawMessage) (any, error)

func decodeAs[T any](data json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type topicGroup int

const (
	ordersTopic topicGroup = iota
	reviewsTopic
	inventoryTopic
)

func (g topicGroup) String() string {
	return [...]string{"orders", "reviews", "inventory"}[g]
}

// catalog lists every published event at schema version 1.
var catalog = []struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	group     topicGroup
	decode    DecodeFunc
}{
	{enums.EventOrderCreated, enums.AggregateOrder, ordersTopic, decodeAs[payloads.OrderCreatedEvent]},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, ordersTopic, decodeAs[payloads.OrderStatusChangedEvent]},
	{enums.EventOrderCancelled, enums.AggregateOrder, ordersTopic, decodeAs[payloads.OrderCancelledEvent]},
	{enums.EventProductReviewed, enums.AggregateProductReview, reviewsTopic, decodeAs[payloads.ProductReviewedEvent]},
	{enums.EventSupplierReviewed, enums.AggregateSupplierReview, reviewsTopic, decodeAs[payloads.SupplierReviewedEvent]},
	{enums.EventReviewReplied, enums.AggregateProductReview, reviewsTopic, decodeAs[payloads.ReviewRepliedEvent]},
	{enums.EventStockUpdated, enums.AggregateProduct, inventoryTopic, decodeAs[payloads.StockUpdatedEvent]},
}

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry holds payload decoders per event type and schema version. Consumers
// use it to turn a received envelope into a typed payload.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]DecodeFunc{}}
}

// NewDomainDecoders is preloaded with every catalog entry.
func NewDomainDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, entry := range catalog {
		reg.Register(entry.event, 1, entry.decode)
	}
	return reg
}

// Register replaces any decoder already set for the pair.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType, version}] = decode
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[decoderKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	out, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", eventType, version, err)
	}
	return out, nil
}
