package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/pkg/activity"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

const defaultLowStockThreshold = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CartRepricer rewrites cart lines that reference a product after its price changes.
type CartRepricer interface {
	RepriceProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, price decimal.Decimal) (int, error)
}

// Service exposes the supplier stock and catalog operations.
type Service interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	GetStockStatus(ctx context.Context, productID uuid.UUID) (*StockStatus, error)
	UpdateStock(ctx context.Context, actor authz.Actor, productID uuid.UUID, quantity int) (*ProductDTO, error)
	UpdatePrice(ctx context.Context, actor authz.Actor, productID uuid.UUID, price decimal.Decimal) (*PriceUpdateResult, error)
	ListActivity(ctx context.Context, actor authz.Actor, productID uuid.UUID, limit int) ([]ActivityDTO, error)
}

// ServiceParams wires the product service dependencies.
type ServiceParams struct {
	Repo              ProductStore
	TxRunner          txRunner
	Carts             CartRepricer
	Outbox            outboxPublisher
	Activity          activity.Recorder
	History           activity.Lister
	Cache             *StatusCache
	Logger            *logger.Logger
	LowStockThreshold int
}

type service struct {
	repo      ProductStore
	tx        txRunner
	carts     CartRepricer
	outbox    outboxPublisher
	activity  activity.Recorder
	history   activity.Lister
	cache     *StatusCache
	logg      *logger.Logger
	threshold int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repricer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		carts:     params.Carts,
		outbox:    params.Outbox,
		activity:  params.Activity,
		history:   params.History,
		cache:     params.Cache,
		logg:      params.Logger,
		threshold: threshold,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// GetStockStatus serves from the Redis snapshot when present and repopulates it on a miss.
func (s *service) GetStockStatus(ctx context.Context, productID uuid.UUID) (*StockStatus, error) {
	if cached, ok, err := s.cache.Get(ctx, productID); err != nil {
		s.warn(ctx, "stock status cache read failed", err)
	} else if ok {
		return &cached, nil
	}

	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	status := StockStatusFor(product, s.threshold)
	if err := s.cache.Put(ctx, productID, status); err != nil {
		s.warn(ctx, "stock status cache write failed", err)
	}
	return &status, nil
}

func (s *service) UpdateStock(ctx context.Context, actor authz.Actor, productID uuid.UUID, quantity int) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	var (
		before  models.Product
		updated models.Product
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return mapLoadError(err)
		}
		if !authz.CanManageProduct(actor, product) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another supplier")
		}

		available := NextAvailability(product.StockQuantity, quantity, product.IsAvailable)
		if err := txRepo.SetStock(ctx, productID, quantity, available); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		before = product
		updated = product
		updated.StockQuantity = quantity
		updated.IsAvailable = available

		status := StockStatusFor(updated, s.threshold)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockUpdated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Actor:         actor.Ref(),
			Data: payloads.StockUpdatedEvent{
				ProductID:   productID,
				SupplierID:  product.SupplierID,
				ProductName: product.Name,
				OldStock:    product.StockQuantity,
				NewStock:    quantity,
				IsAvailable: available,
				IsLowStock:  status.IsLowStock,
			},
		})
	})
	if err != nil {
		return nil, wrapTxError(err, "update stock")
	}

	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.warn(ctx, "stock status cache invalidation failed", err)
	}
	s.record(ctx, activity.Entry{
		ActorID:    actor.UserID,
		Action:     activity.ActionStockUpdated,
		EntityType: activity.EntityProduct,
		EntityID:   productID,
		Metadata: map[string]any{
			"oldStock": before.StockQuantity,
			"newStock": quantity,
		},
	})
	return NewProductDTO(updated), nil
}

// UpdatePrice changes the list price and reprices every open cart line in the same transaction.
func (s *service) UpdatePrice(ctx context.Context, actor authz.Actor, productID uuid.UUID, price decimal.Decimal) (*PriceUpdateResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	price = price.Round(2)
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}

	var (
		oldPrice decimal.Decimal
		updated  models.Product
		repriced int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return mapLoadError(err)
		}
		if !authz.CanManageProduct(actor, product) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another supplier")
		}
		if err := txRepo.UpdatePrice(ctx, productID, price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price")
		}
		count, err := s.carts.RepriceProduct(ctx, tx, productID, price)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reprice cart items")
		}
		oldPrice = product.Price
		updated = product
		updated.Price = price
		repriced = count
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update price")
	}

	s.record(ctx, activity.Entry{
		ActorID:    actor.UserID,
		Action:     activity.ActionPriceUpdated,
		EntityType: activity.EntityProduct,
		EntityID:   productID,
		Metadata: map[string]any{
			"oldPrice":          oldPrice.StringFixed(2),
			"newPrice":          price.StringFixed(2),
			"repricedCartItems": repriced,
		},
	})
	return &PriceUpdateResult{Product: NewProductDTO(updated), RepricedCartItems: repriced}, nil
}

// ListActivity returns the newest stock and price changes recorded for a product the caller manages.
func (s *service) ListActivity(ctx context.Context, actor authz.Actor, productID uuid.UUID, limit int) ([]ActivityDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageProduct(actor, product) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another supplier")
	}
	if s.history == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity log unavailable")
	}
	entries, err := s.history.ListForEntity(ctx, activity.EntityProduct, productID, int64(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product activity")
	}
	out := make([]ActivityDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NewActivityDTO(entry))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (models.Product, error) {
	if productID == uuid.Nil {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return models.Product{}, mapLoadError(err)
	}
	return product, nil
}

func (s *service) record(ctx context.Context, entry activity.Entry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.warn(ctx, "activity log write failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func wrapTxError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
