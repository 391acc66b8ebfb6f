package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierReview rates a supplier across three axes for one order.
type SupplierReview struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_supplier_reviews_order_user_supplier,priority:1"`
	UserID              uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_supplier_reviews_order_user_supplier,priority:2"`
	SupplierID          uuid.UUID `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_supplier_reviews_order_user_supplier,priority:3;index"`
	QualityRating       int       `gorm:"column:quality_rating;not null"`
	DeliveryRating      int       `gorm:"column:delivery_rating;not null"`
	CommunicationRating int       `gorm:"column:communication_rating;not null"`
	OverallRating       int       `gorm:"column:overall_rating;not null"`
	Comment             string    `gorm:"column:comment;type:text;not null;default:''"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *SupplierReview) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
