package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per order produced by a checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CheckoutID  uuid.UUID       `json:"checkout_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent notifies the customer about a lifecycle step.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	SupplierID     uuid.UUID         `json:"supplier_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	Carrier        *string           `json:"carrier,omitempty"`
}

// OrderCancelledEvent notifies the supplier that the customer cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type ProductReviewedEvent struct {
	ReviewID   uuid.UUID `json:"review_id"`
	ProductID  uuid.UUID `json:"product_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
}

type SupplierReviewedEvent struct {
	ReviewID      uuid.UUID `json:"review_id"`
	SupplierID    uuid.UUID `json:"supplier_id"`
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	OverallRating int       `json:"overall_rating"`
}

// ReviewRepliedEvent notifies the reviewer that the supplier answered.
type ReviewRepliedEvent struct {
	ReplyID    uuid.UUID `json:"reply_id"`
	ReviewID   uuid.UUID `json:"review_id"`
	ProductID  uuid.UUID `json:"product_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
}

type StockUpdatedEvent struct {
	ProductID   uuid.UUID `json:"product_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	ProductName string    `json:"product_name"`
	OldStock    int       `json:"old_stock"`
	NewStock    int       `json:"new_stock"`
	IsAvailable bool      `json:"is_available"`
	IsLowStock  bool      `json:"is_low_stock"`
}
