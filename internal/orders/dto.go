package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// CreateOrdersInput carries the checkout details shared by every supplier order.
type CreateOrdersInput struct {
	ShippingAddress types.Address
	BillingAddress  types.Address
	PaymentMethod   enums.PaymentMethod
}

// UpdateStatusInput requests a lifecycle transition.
type UpdateStatusInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
	Carrier        *string
}

// ListOrdersInput filters the caller's orders.
type ListOrdersInput struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// CheckoutResult groups every order produced by one checkout.
type CheckoutResult struct {
	CheckoutID uuid.UUID       `json:"checkoutId"`
	Orders     []OrderDTO      `json:"orders"`
	Total      decimal.Decimal `json:"total"`
}

type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage *string         `json:"productImage,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"orderNumber"`
	CheckoutID         uuid.UUID           `json:"checkoutId"`
	UserID             uuid.UUID           `json:"userId"`
	SupplierID         uuid.UUID           `json:"supplierId"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod      enums.PaymentMethod `json:"paymentMethod"`
	ShippingAddress    types.Address       `json:"shippingAddress"`
	BillingAddress     types.Address       `json:"billingAddress"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	ShippingCost       decimal.Decimal     `json:"shippingCost"`
	Tax                decimal.Decimal     `json:"tax"`
	Total              decimal.Decimal     `json:"total"`
	TrackingNumber     *string             `json:"trackingNumber,omitempty"`
	Carrier            *string             `json:"carrier,omitempty"`
	EstimatedDelivery  time.Time           `json:"estimatedDelivery"`
	CancellationReason *string             `json:"cancellationReason,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmedAt,omitempty"`
	ShippedAt          *time.Time          `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time          `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time          `json:"cancelledAt,omitempty"`
	Items              []OrderItemDTO      `json:"items"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// TrackingDTO is the shipment view of an order.
type TrackingDTO struct {
	OrderID           uuid.UUID         `json:"orderId"`
	OrderNumber       string            `json:"orderNumber"`
	Status            enums.OrderStatus `json:"status"`
	TrackingNumber    *string           `json:"trackingNumber,omitempty"`
	Carrier           *string           `json:"carrier,omitempty"`
	ShippedAt         *time.Time        `json:"shippedAt,omitempty"`
	EstimatedDelivery time.Time         `json:"estimatedDelivery"`
	DeliveredAt       *time.Time        `json:"deliveredAt,omitempty"`
}

func NewOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		CheckoutID:         order.CheckoutID,
		UserID:             order.UserID,
		SupplierID:         order.SupplierID,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		PaymentMethod:      order.PaymentMethod,
		ShippingAddress:    order.ShippingAddress,
		BillingAddress:     order.BillingAddress,
		Subtotal:           order.Subtotal,
		ShippingCost:       order.ShippingCost,
		Tax:                order.Tax,
		Total:              order.Total,
		TrackingNumber:     order.TrackingNumber,
		Carrier:            order.Carrier,
		EstimatedDelivery:  order.EstimatedDelivery,
		CancellationReason: order.CancellationReason,
		ConfirmedAt:        order.ConfirmedAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		Items:              make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Price:        item.Price,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}
	return dto
}

func NewTrackingDTO(order models.Order) *TrackingDTO {
	return &TrackingDTO{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		Carrier:           order.Carrier,
		ShippedAt:         order.ShippedAt,
		EstimatedDelivery: order.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
	}
}
