package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateProduct        OutboxAggregateType = "product"
	AggregateProductReview  OutboxAggregateType = "product_review"
	AggregateSupplierReview OutboxAggregateType = "supplier_review"
)

var aggregateTypes = exact("aggregate type",
	AggregateOrder,
	AggregateProduct,
	AggregateProductReview,
	AggregateSupplierReview,
)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType names a domain event written to the outbox. The value doubles as
// the event_type message attribute on Pub/Sub.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventProductReviewed    OutboxEventType = "product_reviewed"
	EventSupplierReviewed   OutboxEventType = "supplier_reviewed"
	EventReviewReplied      OutboxEventType = "review_replied"
	EventStockUpdated       OutboxEventType = "stock_updated"
)

var eventTypes = exact("event type",
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventProductReviewed,
	EventSupplierReviewed,
	EventReviewReplied,
	EventStockUpdated,
)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse(value)
}

// OutboxDLQErrorReason explains why an event was parked in the dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
