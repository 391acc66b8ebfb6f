package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// OrderNumberConstraint is the unique index guarding order numbers.
const OrderNumberConstraint = "ux_orders_order_number"

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order models.Order) (models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
}

// ListFilter scopes an order listing; nil fields are unrestricted.
type ListFilter struct {
	UserID     *uuid.UUID
	SupplierID *uuid.UUID
	Status     *enums.OrderStatus
	Cursor     *pagination.Cursor
	Limit      int
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

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order models.Order) (models.Order, error) {
	if err := r.base.DB(ctx).Create(&order).Error; err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	return r.find(r.base.DB(ctx), id)
}

// FindByIDForUpdate holds a row lock on Postgres for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (models.Order, error) {
	query := r.base.DB(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}})
	}
	return r.find(query, id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (models.Order, error) {
	var order models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	return order, err
}

// List returns up to LimitWithBuffer rows, newest first, after the cursor.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.base.DB(ctx).Model(&models.Order{}).Preload("Items")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var orders []models.Order
	err := pagination.Seek(query, filter.Cursor, filter.Limit).Find(&orders).Error
	return orders, err
}

// UpdateIfStatus applies updates only while the order still has the expected status.
func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
