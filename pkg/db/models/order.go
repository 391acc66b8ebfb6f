package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Order is one supplier's share of a checkout.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	CheckoutID         uuid.UUID           `gorm:"column:checkout_id;type:uuid;not null;index"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SupplierID         uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ShippingAddress    types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress     types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost       decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Tax                decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Total              decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	TrackingNumber     *string             `gorm:"column:tracking_number"`
	Carrier            *string             `gorm:"column:carrier"`
	EstimatedDelivery  time.Time           `gorm:"column:estimated_delivery;not null"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	ConfirmedAt        *time.Time          `gorm:"column:confirmed_at"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
