package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/activity"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// ProductDTO is the public product representation.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	SupplierID    uuid.UUID       `json:"supplierId"`
	Name          string          `json:"name"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	IsAvailable   bool            `json:"isAvailable"`
	Rating        decimal.Decimal `json:"rating"`
	TotalReviews  int             `json:"totalReviews"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func NewProductDTO(product models.Product) *ProductDTO {
	return &ProductDTO{
		ID:            product.ID,
		SupplierID:    product.SupplierID,
		Name:          product.Name,
		ImageURL:      product.ImageURL,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		IsAvailable:   product.IsAvailable,
		Rating:        product.Rating,
		TotalReviews:  product.TotalReviews,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

// PriceUpdateResult reports the new price and how many cart lines were repriced.
type PriceUpdateResult struct {
	Product           *ProductDTO `json:"product"`
	RepricedCartItems int         `json:"repricedCartItems"`
}

// ActivityDTO is one audit entry on a product.
type ActivityDTO struct {
	ActorID   uuid.UUID      `json:"actorId"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func NewActivityDTO(entry activity.Entry) ActivityDTO {
	return ActivityDTO{
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
}
