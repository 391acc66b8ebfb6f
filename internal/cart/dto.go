package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// CartDTO is the cart snapshot returned to callers.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewCartDTO(cart models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:       cart.ID,
		UserID:   cart.UserID,
		Items:    make([]CartItemDTO, 0, len(cart.Items)),
		Subtotal: cart.Subtotal,
		Total:    cart.Total,
	}
	if !cart.UpdatedAt.IsZero() {
		updated := cart.UpdatedAt
		dto.UpdatedAt = &updated
	}
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal,
		})
		dto.ItemCount += item.Quantity
	}
	return dto
}

func emptyCart(userID uuid.UUID) *CartDTO {
	return &CartDTO{
		UserID:   userID,
		Items:    []CartItemDTO{},
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
}
