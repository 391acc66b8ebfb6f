package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/bazaar-backend/pkg/db/types"
)

// ProductReview is a verified buyer's rating of a product from one order.
type ProductReview struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_product_reviews_order_user_product,priority:1"`
	UserID             uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_product_reviews_order_user_product,priority:2"`
	ProductID          uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_reviews_order_user_product,priority:3;index"`
	Rating             int               `gorm:"column:rating;not null"`
	Comment            string            `gorm:"column:comment;type:text;not null;default:''"`
	Images             dbtypes.TextArray `gorm:"column:images;not null"`
	IsVerifiedPurchase bool              `gorm:"column:is_verified_purchase;not null;default:false"`
	Reply              *ReviewReply      `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ProductReview) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
