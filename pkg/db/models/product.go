package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a supplier listing with its live stock level.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID    uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;not null"`
	ImageURL      *string         `gorm:"column:image_url"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0;check:chk_products_stock_nonnegative,stock_quantity >= 0"`
	IsAvailable   bool            `gorm:"column:is_available;not null"`
	Rating        decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	TotalReviews  int             `gorm:"column:total_reviews;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
