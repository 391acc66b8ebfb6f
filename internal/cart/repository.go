package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// CartStore is the persistence surface of the cart engine, also used by checkout.
type CartStore interface {
	WithTx(tx *gorm.DB) CartStore
	FindByUser(ctx context.Context, userID uuid.UUID) (models.Cart, error)
	FindOrCreate(ctx context.Context, userID uuid.UUID) (models.Cart, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (models.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (models.CartItem, error)
	CreateItem(ctx context.Context, item models.CartItem) (models.CartItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int, price decimal.Decimal) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	RecomputeTotals(ctx context.Context, cartID uuid.UUID) (models.Cart, error)
}

// Repository persists carts and their line items.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartStore {
	if tx == nil {
		return r
	}
	return &Repository{base: r.base.WithTx(tx)}
}

// FindByUser loads the user's cart with items in insertion order.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (models.Cart, error) {
	var cart models.Cart
	err := r.base.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	return cart, err
}

// FindOrCreate returns the user's cart, creating an empty one on first use.
// Concurrent first adds converge on the same row through the user_id unique index.
func (r *Repository) FindOrCreate(ctx context.Context, userID uuid.UUID) (models.Cart, error) {
	cart := models.Cart{
		UserID:   userID,
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
	err := r.base.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error
	if err != nil {
		return models.Cart{}, err
	}
	return r.FindByUser(ctx, userID)
}

func (r *Repository) FindItem(ctx context.Context, itemID uuid.UUID) (models.CartItem, error) {
	var item models.CartItem
	err := r.base.DB(ctx).Where("id = ?", itemID).First(&item).Error
	return item, err
}

func (r *Repository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (models.CartItem, error) {
	var item models.CartItem
	err := r.base.DB(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	return item, err
}

func (r *Repository) CreateItem(ctx context.Context, item models.CartItem) (models.CartItem, error) {
	item.Subtotal = lineSubtotal(item.Price, item.Quantity)
	if err := r.base.DB(ctx).Create(&item).Error; err != nil {
		return models.CartItem{}, err
	}
	return item, nil
}

// UpdateItem rewrites quantity and price snapshot, keeping subtotal in step.
func (r *Repository) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int, price decimal.Decimal) error {
	res := r.base.DB(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).Updates(map[string]any{
		"quantity": quantity,
		"price":    price,
		"subtotal": lineSubtotal(price, quantity),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	res := r.base.DB(ctx).Where("id = ?", itemID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.base.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// RecomputeTotals derives subtotal and total from the persisted lines and returns the refreshed cart.
func (r *Repository) RecomputeTotals(ctx context.Context, cartID uuid.UUID) (models.Cart, error) {
	if err := recomputeTotals(r.base.DB(ctx), cartID); err != nil {
		return models.Cart{}, err
	}
	var cart models.Cart
	err := r.base.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", cartID).
		First(&cart).Error
	return cart, err
}

// RepriceProduct rewrites every cart line referencing productID at the new price and
// recomputes the owning carts. It returns the number of lines touched.
func (r *Repository) RepriceProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, price decimal.Decimal) (int, error) {
	conn := r.base.Conn(ctx, tx)
	var items []models.CartItem
	if err := conn.Where("product_id = ?", productID).Find(&items).Error; err != nil {
		return 0, err
	}
	touched := map[uuid.UUID]struct{}{}
	cartIDs := []uuid.UUID{}
	for _, item := range items {
		err := conn.Model(&models.CartItem{}).Where("id = ?", item.ID).Updates(map[string]any{
			"price":    price,
			"subtotal": lineSubtotal(price, item.Quantity),
		}).Error
		if err != nil {
			return 0, err
		}
		if _, seen := touched[item.CartID]; !seen {
			touched[item.CartID] = struct{}{}
			cartIDs = append(cartIDs, item.CartID)
		}
	}
	for _, cartID := range cartIDs {
		if err := recomputeTotals(conn, cartID); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func recomputeTotals(conn *gorm.DB, cartID uuid.UUID) error {
	var items []models.CartItem
	if err := conn.Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return err
	}
	subtotal := Subtotal(items)
	res := conn.Model(&models.Cart{}).Where("id = ?", cartID).Updates(map[string]any{
		"subtotal": subtotal,
		"total":    subtotal,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
