package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// ProductStore is the product persistence surface shared with the order and review engines.
type ProductStore interface {
	WithTx(tx *gorm.DB) ProductStore
	FindByID(ctx context.Context, id uuid.UUID) (models.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
	SetStock(ctx context.Context, id uuid.UUID, quantity int, available bool) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, total int) error
}

// SupplierStore reads suppliers and maintains their aggregate rating.
type SupplierStore interface {
	WithTx(tx *gorm.DB) SupplierStore
	FindByID(ctx context.Context, id uuid.UUID) (models.Supplier, error)
	OwnerUserID(ctx context.Context, supplierID uuid.UUID) (uuid.UUID, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, total int) error
}

// Repository persists products and their stock ledger.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductStore {
	if tx == nil {
		return r
	}
	return &Repository{base: r.base.WithTx(tx)}
}

// FindByID loads a product snapshot.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (models.Product, error) {
	var product models.Product
	err := r.base.DB(ctx).Where("id = ?", id).First(&product).Error
	return product, err
}

// FindByIDForUpdate loads a product and, on Postgres, holds a row lock until the transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (models.Product, error) {
	query := r.base.DB(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product models.Product
	err := query.Where("id = ?", id).First(&product).Error
	return product, err
}

// FindByIDs loads products keyed by id; missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.base.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// DecrementStock removes qty units only when enough stock remains and flips
// availability off when the product sells out. It reports false when the
// guard rejected the update.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, errors.New("quantity must be positive")
	}
	res := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"is_available":   gorm.Expr("CASE WHEN stock_quantity - ? = 0 THEN ? ELSE is_available END", qty, false),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock returns qty units and re-enables a product that had sold out.
func (r *Repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	res := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"is_available":   gorm.Expr("CASE WHEN stock_quantity = 0 THEN ? ELSE is_available END", true),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetStock writes an absolute stock level together with the derived availability flag.
func (r *Repository) SetStock(ctx context.Context, id uuid.UUID, quantity int, available bool) error {
	return r.updateColumns(ctx, id, map[string]any{
		"stock_quantity": quantity,
		"is_available":   available,
	})
}

func (r *Repository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return r.updateColumns(ctx, id, map[string]any{"price": price})
}

// UpdateRating stores the aggregate rating and review count.
func (r *Repository) UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, total int) error {
	return r.updateColumns(ctx, id, map[string]any{
		"rating":        rating,
		"total_reviews": total,
	})
}

func (r *Repository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	res := r.base.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SupplierRepository persists supplier profiles and their aggregate rating.
type SupplierRepository struct {
	base repo.Base
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{base: repo.NewBase(db)}
}

func (r *SupplierRepository) WithTx(tx *gorm.DB) SupplierStore {
	if tx == nil {
		return r
	}
	return &SupplierRepository{base: r.base.WithTx(tx)}
}

func (r *SupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Supplier, error) {
	var supplier models.Supplier
	err := r.base.DB(ctx).Where("id = ?", id).First(&supplier).Error
	return supplier, err
}

// OwnerUserID resolves the user account behind a supplier.
func (r *SupplierRepository) OwnerUserID(ctx context.Context, supplierID uuid.UUID) (uuid.UUID, error) {
	supplier, err := r.FindByID(ctx, supplierID)
	if err != nil {
		return uuid.Nil, err
	}
	return supplier.UserID, nil
}

func (r *SupplierRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, total int) error {
	res := r.base.DB(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(map[string]any{
		"rating":        rating,
		"total_reviews": total,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
