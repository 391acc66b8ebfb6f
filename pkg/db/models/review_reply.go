package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewReply is the supplier's single public answer to a product review.
type ReviewReply struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReviewID   uuid.UUID `gorm:"column:review_id;type:uuid;not null;uniqueIndex:ux_review_replies_review_id"`
	SupplierID uuid.UUID `gorm:"column:supplier_id;type:uuid;not null"`
	Text       string    `gorm:"column:text;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReviewReply) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
