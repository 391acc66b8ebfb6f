package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const (
	productReviewConstraint  = "ux_product_reviews_order_user_product"
	supplierReviewConstraint = "ux_supplier_reviews_order_user_supplier"
)

// RatingStats is the aggregate a rating column is recomputed from.
type RatingStats struct {
	Average decimal.Decimal
	Count   int
}

// Repository defines persistence for product reviews, supplier reviews and replies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProductReview(ctx context.Context, review models.ProductReview) (models.ProductReview, error)
	CreateSupplierReview(ctx context.Context, review models.SupplierReview) (models.SupplierReview, error)
	FindProductReview(ctx context.Context, id uuid.UUID) (models.ProductReview, error)
	ProductReviewExists(ctx context.Context, orderID, userID, productID uuid.UUID) (bool, error)
	SupplierReviewExists(ctx context.Context, orderID, userID, supplierID uuid.UUID) (bool, error)
	ProductRatingStats(ctx context.Context, productID uuid.UUID) (RatingStats, error)
	SupplierRatingStats(ctx context.Context, supplierID uuid.UUID) (RatingStats, error)
	UpsertReply(ctx context.Context, reply models.ReviewReply) (models.ReviewReply, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProductReview, error)
	ListSupplierReviews(ctx context.Context, supplierID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SupplierReview, error)
}

type repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) CreateProductReview(ctx context.Context, review models.ProductReview) (models.ProductReview, error) {
	if err := r.base.DB(ctx).Omit("Reply").Create(&review).Error; err != nil {
		return models.ProductReview{}, err
	}
	return review, nil
}

func (r *repository) CreateSupplierReview(ctx context.Context, review models.SupplierReview) (models.SupplierReview, error) {
	if err := r.base.DB(ctx).Create(&review).Error; err != nil {
		return models.SupplierReview{}, err
	}
	return review, nil
}

func (r *repository) FindProductReview(ctx context.Context, id uuid.UUID) (models.ProductReview, error) {
	var review models.ProductReview
	err := r.base.DB(ctx).Preload("Reply").Where("id = ?", id).First(&review).Error
	return review, err
}

func (r *repository) ProductReviewExists(ctx context.Context, orderID, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.ProductReview{}).
		Where("order_id = ? AND user_id = ? AND product_id = ?", orderID, userID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SupplierReviewExists(ctx context.Context, orderID, userID, supplierID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.SupplierReview{}).
		Where("order_id = ? AND user_id = ? AND supplier_id = ?", orderID, userID, supplierID).
		Count(&count).Error
	return count > 0, err
}

type statsRow struct {
	Average *float64
	Total   int64
}

func (r *repository) ProductRatingStats(ctx context.Context, productID uuid.UUID) (RatingStats, error) {
	var row statsRow
	err := r.base.DB(ctx).
		Model(&models.ProductReview{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.stats(), err
}

func (r *repository) SupplierRatingStats(ctx context.Context, supplierID uuid.UUID) (RatingStats, error) {
	var row statsRow
	err := r.base.DB(ctx).
		Model(&models.SupplierReview{}).
		Select("AVG(overall_rating) AS average, COUNT(*) AS total").
		Where("supplier_id = ?", supplierID).
		Scan(&row).Error
	return row.stats(), err
}

func (s statsRow) stats() RatingStats {
	out := RatingStats{Average: decimal.Zero, Count: int(s.Total)}
	if s.Average != nil {
		out.Average = decimal.NewFromFloat(*s.Average).Round(2)
	}
	return out
}

// UpsertReply writes the review's only reply, replacing the text of an earlier one.
func (r *repository) UpsertReply(ctx context.Context, reply models.ReviewReply) (models.ReviewReply, error) {
	err := r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "review_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "supplier_id", "updated_at"}),
		}).
		Create(&reply).Error
	if err != nil {
		return models.ReviewReply{}, err
	}

	var stored models.ReviewReply
	err = r.base.DB(ctx).Where("review_id = ?", reply.ReviewID).First(&stored).Error
	return stored, err
}

func (r *repository) ListProductReviews(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProductReview, error) {
	query := r.base.DB(ctx).Preload("Reply").Where("product_id = ?", productID)
	var rows []models.ProductReview
	err := pagination.Seek(query, cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListSupplierReviews(ctx context.Context, supplierID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SupplierReview, error) {
	query := r.base.DB(ctx).Where("supplier_id = ?", supplierID)
	var rows []models.SupplierReview
	err := pagination.Seek(query, cursor, limit).Find(&rows).Error
	return rows, err
}
