package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const (
	defaultDeliveryWindow = 7 * 24 * time.Hour
	defaultNumberAttempts = 5
	orderNumberSavepoint  = "order_number"
)

type txRunner interface {
	WithRetryTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockCache drops cached stock status snapshots; *products.StatusCache satisfies it.
type stockCache interface {
	Invalidate(ctx context.Context, productID uuid.UUID) error
}

// Service defines the order engine.
type Service interface {
	CreateOrders(ctx context.Context, actor authz.Actor, input CreateOrdersInput) (*CheckoutResult, error)
	GetOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, actor authz.Actor, input ListOrdersInput) (*pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, actor authz.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	AddTrackingInfo(ctx context.Context, actor authz.Actor, orderID uuid.UUID, trackingNumber, carrier string) (*OrderDTO, error)
	GetTracking(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*TrackingDTO, error)
	CancelOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo              Repository
	Carts             cart.CartStore
	Products          products.ProductStore
	TxRunner          txRunner
	Outbox            outboxPublisher
	StockCache        stockCache
	Metrics           *metrics.Commerce
	Logger            *logger.Logger
	EstimatedDelivery time.Duration
	NumberAttempts    int
}

type service struct {
	repo           Repository
	carts          cart.CartStore
	products       products.ProductStore
	tx             txRunner
	outbox         outboxPublisher
	stock          stockCache
	metrics        *metrics.Commerce
	logg           *logger.Logger
	delivery       time.Duration
	numberAttempts int
	newNumber      NumberGenerator
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	delivery := params.EstimatedDelivery
	if delivery <= 0 {
		delivery = defaultDeliveryWindow
	}
	attempts := params.NumberAttempts
	if attempts < 1 {
		attempts = defaultNumberAttempts
	}
	return &service{
		repo:           params.Repo,
		carts:          params.Carts,
		products:       params.Products,
		tx:             params.TxRunner,
		outbox:         params.Outbox,
		stock:          params.StockCache,
		metrics:        params.Metrics,
		logg:           params.Logger,
		delivery:       delivery,
		numberAttempts: attempts,
		newNumber:      NewOrderNumber,
		now:            time.Now,
	}, nil
}

type supplierGroup struct {
	supplierID uuid.UUID
	items      []models.CartItem
}

// CreateOrders turns the caller's cart into one order per supplier in a single transaction.
func (s *service) CreateOrders(ctx context.Context, actor authz.Actor, input CreateOrdersInput) (*CheckoutResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	shipping := input.ShippingAddress.Normalize()
	if err := shipping.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	billing := input.BillingAddress.Normalize()
	if err := billing.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing address")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var (
		created    []models.Order
		checkoutID uuid.UUID
		touched    []uuid.UUID
	)
	err := s.tx.WithRetryTx(ctx, func(tx *gorm.DB) error {
		created = nil
		checkoutID = uuid.New()
		now := s.now().UTC()

		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.repo.WithTx(tx)

		userCart, err := cartRepo.FindByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cart is empty")
		}

		ids := make([]uuid.UUID, 0, len(userCart.Items))
		for _, item := range userCart.Items {
			ids = append(ids, item.ProductID)
		}
		catalog, err := productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		if err := validateCart(userCart.Items, catalog); err != nil {
			return err
		}

		if err := s.decrementStock(ctx, productRepo, userCart.Items); err != nil {
			return err
		}
		touched = ids

		for _, group := range groupBySupplier(userCart.Items, catalog) {
			order := buildOrder(checkoutID, actor.UserID, group, catalog, shipping, billing, input.PaymentMethod, now.Add(s.delivery))
			saved, err := s.insertWithNumber(ctx, tx, orderRepo, order, now)
			if err != nil {
				return err
			}
			created = append(created, saved)

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   saved.ID,
				Actor:         actor.Ref(),
				Data: payloads.OrderCreatedEvent{
					OrderID:     saved.ID,
					CheckoutID:  checkoutID,
					OrderNumber: saved.OrderNumber,
					UserID:      saved.UserID,
					SupplierID:  saved.SupplierID,
					Total:       saved.Total,
					ItemCount:   len(saved.Items),
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
			}
		}

		if err := cartRepo.DeleteItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if _, err := cartRepo.RecomputeTotals(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "create orders")
	}
	s.invalidateStock(ctx, touched)

	s.metrics.ObserveCheckout(len(created))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"checkout_id": checkoutID.String(),
			"order_count": len(created),
		})
		s.logg.Info(logCtx, "checkout completed")
	}

	result := &CheckoutResult{CheckoutID: checkoutID, Orders: make([]OrderDTO, 0, len(created)), Total: decimal.Zero}
	for _, order := range created {
		result.Orders = append(result.Orders, NewOrderDTO(order))
		result.Total = result.Total.Add(order.Total)
	}
	return result, nil
}

func validateCart(items []models.CartItem, catalog map[uuid.UUID]models.Product) error {
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		if !product.IsAvailable {
			return pkgerrors.Newf(pkgerrors.CodeInvalidState, "product %s is not available", product.Name).
				WithDetails(map[string]any{"productId": product.ID})
		}
		if product.StockQuantity < item.Quantity {
			return insufficientStock(product.ID, product.StockQuantity, item.Quantity)
		}
	}
	return nil
}

// decrementStock walks products in id order so concurrent checkouts lock rows consistently.
func (s *service) decrementStock(ctx context.Context, productRepo products.ProductStore, items []models.CartItem) error {
	ordered := make([]models.CartItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID.String() < ordered[j].ProductID.String()
	})
	for _, item := range ordered {
		ok, err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			if db.IsCheckViolation(err) {
				s.metrics.IncStockConflict()
				return insufficientStock(item.ProductID, -1, item.Quantity)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			s.metrics.IncStockConflict()
			return insufficientStock(item.ProductID, -1, item.Quantity)
		}
	}
	return nil
}

// invalidateStock runs after commit so readers never re-cache the pre-transaction stock.
func (s *service) invalidateStock(ctx context.Context, productIDs []uuid.UUID) {
	if s.stock == nil {
		return
	}
	for _, id := range productIDs {
		if err := s.stock.Invalidate(ctx, id); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id": id.String(),
				"error":      err.Error(),
			}), "stock status cache invalidation failed")
		}
	}
}

func groupBySupplier(items []models.CartItem, catalog map[uuid.UUID]models.Product) []supplierGroup {
	groups := []supplierGroup{}
	index := map[uuid.UUID]int{}
	for _, item := range items {
		supplierID := catalog[item.ProductID].SupplierID
		pos, ok := index[supplierID]
		if !ok {
			pos = len(groups)
			index[supplierID] = pos
			groups = append(groups, supplierGroup{supplierID: supplierID})
		}
		groups[pos].items = append(groups[pos].items, item)
	}
	return groups
}

func buildOrder(checkoutID, userID uuid.UUID, group supplierGroup, catalog map[uuid.UUID]models.Product, shipping, billing types.Address, method enums.PaymentMethod, eta time.Time) models.Order {
	order := models.Order{
		CheckoutID:        checkoutID,
		UserID:            userID,
		SupplierID:        group.supplierID,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		PaymentMethod:     method,
		ShippingAddress:   shipping,
		BillingAddress:    billing,
		ShippingCost:      decimal.Zero,
		Tax:               decimal.Zero,
		EstimatedDelivery: eta,
		Items:             make([]models.OrderItem, 0, len(group.items)),
	}
	subtotal := decimal.Zero
	for _, item := range group.items {
		product := catalog[item.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			Price:        item.Price,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
		subtotal = subtotal.Add(item.Subtotal)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(order.ShippingCost).Add(order.Tax)
	return order
}

// insertWithNumber retries the insert with a fresh order number whenever the unique index rejects one.
// Each attempt runs under a savepoint so a collision does not abort the surrounding transaction.
func (s *service) insertWithNumber(ctx context.Context, tx *gorm.DB, repo Repository, order models.Order, now time.Time) (models.Order, error) {
	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		number, err := s.newNumber(now)
		if err != nil {
			return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		candidate := order
		candidate.OrderNumber = number
		candidate.Items = append([]models.OrderItem(nil), order.Items...)

		if tx != nil {
			if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
				return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order savepoint")
			}
		}
		saved, err := repo.Create(ctx, candidate)
		if err == nil {
			return saved, nil
		}
		if !db.IsUniqueViolation(err, OrderNumberConstraint) {
			return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		s.metrics.IncOrderNumberCollision()
		if tx != nil {
			if err := tx.RollbackTo(orderNumberSavepoint).Error; err != nil {
				return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rollback order savepoint")
			}
		}
	}
	return models.Order{}, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) GetOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewOrder(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) GetTracking(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*TrackingDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewOrder(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	return NewTrackingDTO(order), nil
}

// ListOrders shows customers their purchases and suppliers their sales; admins see everything.
func (s *service) ListOrders(ctx context.Context, actor authz.Actor, input ListOrdersInput) (*pagination.Page[OrderDTO], error) {
	filter := ListFilter{Status: input.Status, Limit: input.Pagination.Limit}
	switch actor.Role {
	case enums.RoleAdmin:
	case enums.RoleSupplier:
		if actor.SupplierID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier context missing")
		}
		supplierID := *actor.SupplierID
		filter.SupplierID = &supplierID
	default:
		if actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		userID := actor.UserID
		filter.UserID = &userID
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewOrderDTO(row))
	}
	page := pagination.BuildPage(dtos, input.Pagination.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// UpdateStatus moves an order along the lifecycle table on behalf of its supplier.
func (s *service) UpdateStatus(ctx context.Context, actor authz.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	return s.transition(ctx, actor, orderID, transitionRequest{
		target:         input.Status,
		trackingNumber: trimmed(input.TrackingNumber),
		carrier:        trimmed(input.Carrier),
		authorize: func(order models.Order) bool {
			return authz.CanTransition(actor, order, input.Status)
		},
		guard: func(order models.Order) error {
			return ValidateTransition(order.Status, input.Status)
		},
	})
}

// AddTrackingInfo ships a CONFIRMED or PREPARING order with its tracking details.
func (s *service) AddTrackingInfo(ctx context.Context, actor authz.Actor, orderID uuid.UUID, trackingNumber, carrier string) (*OrderDTO, error) {
	tracking := trimmed(&trackingNumber)
	if tracking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	carrierValue := trimmed(&carrier)
	if carrierValue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier required")
	}
	return s.transition(ctx, actor, orderID, transitionRequest{
		target:         enums.OrderStatusShipped,
		trackingNumber: tracking,
		carrier:        carrierValue,
		authorize: func(order models.Order) bool {
			return authz.CanTransition(actor, order, enums.OrderStatusShipped)
		},
		guard: func(order models.Order) error {
			if IsTrackable(order.Status) {
				return nil
			}
			return pkgerrors.Newf(pkgerrors.CodeInvalidState, "tracking cannot be added to a %s order", order.Status)
		},
	})
}

// CancelOrder lets the customer withdraw an order that has not shipped, returning its stock.
func (s *service) CancelOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	return s.transition(ctx, actor, orderID, transitionRequest{
		target: enums.OrderStatusCancelled,
		reason: trimmed(&reason),
		authorize: func(order models.Order) bool {
			return authz.CanCancel(actor, order)
		},
		guard: func(order models.Order) error {
			if IsCancellable(order.Status) {
				return nil
			}
			return pkgerrors.Newf(pkgerrors.CodeInvalidState, "a %s order cannot be cancelled", order.Status)
		},
		cancelEvent: true,
	})
}

type transitionRequest struct {
	target         enums.OrderStatus
	trackingNumber *string
	carrier        *string
	reason         *string
	authorize      func(models.Order) bool
	guard          func(models.Order) error
	cancelEvent    bool
}

func (s *service) transition(ctx context.Context, actor authz.Actor, orderID uuid.UUID, req transitionRequest) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		updated  models.Order
		from     enums.OrderStatus
		restored []uuid.UUID
	)
	err := s.tx.WithRetryTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !req.authorize(order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
		}
		if err := req.guard(order); err != nil {
			return err
		}

		now := s.now().UTC()
		next, updates := applyTransition(order, req, now)
		ok, err := orderRepo.UpdateIfStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}

		restored = nil
		if req.target == enums.OrderStatusCancelled {
			productRepo := s.products.WithTx(tx)
			for _, item := range order.Items {
				restored = append(restored, item.ProductID)
				if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, transitionEvent(actor, order, next, req)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
		}
		from = order.Status
		updated = next
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update order")
	}
	s.invalidateStock(ctx, restored)

	s.metrics.ObserveTransition(string(from), string(updated.Status))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": updated.ID.String(),
			"from":     from,
			"to":       updated.Status,
		})
		s.logg.Info(logCtx, "order status changed")
	}
	dto := NewOrderDTO(updated)
	return &dto, nil
}

// applyTransition returns the next snapshot and the column updates. Lifecycle timestamps are
// written only the first time their status is reached.
func applyTransition(order models.Order, req transitionRequest, now time.Time) (models.Order, map[string]any) {
	next := order
	next.Status = req.target
	next.UpdatedAt = now
	updates := map[string]any{"status": req.target}

	stamp := func(current **time.Time, column string) {
		if *current != nil {
			return
		}
		ts := now
		*current = &ts
		updates[column] = ts
	}

	switch req.target {
	case enums.OrderStatusConfirmed:
		stamp(&next.ConfirmedAt, "confirmed_at")
	case enums.OrderStatusShipped:
		stamp(&next.ShippedAt, "shipped_at")
		if req.trackingNumber != nil {
			next.TrackingNumber = req.trackingNumber
			updates["tracking_number"] = *req.trackingNumber
		}
		if req.carrier != nil {
			next.Carrier = req.carrier
			updates["carrier"] = *req.carrier
		}
	case enums.OrderStatusDelivered:
		stamp(&next.DeliveredAt, "delivered_at")
	case enums.OrderStatusCancelled:
		stamp(&next.CancelledAt, "cancelled_at")
		if req.reason != nil {
			next.CancellationReason = req.reason
			updates["cancellation_reason"] = *req.reason
		}
	}
	return next, updates
}

func transitionEvent(actor authz.Actor, before, after models.Order, req transitionRequest) outbox.DomainEvent {
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrder,
		AggregateID:   after.ID,
		Actor:         actor.Ref(),
	}
	if req.cancelEvent {
		reason := ""
		if after.CancellationReason != nil {
			reason = *after.CancellationReason
		}
		event.EventType = enums.EventOrderCancelled
		event.Data = payloads.OrderCancelledEvent{
			OrderID:     after.ID,
			OrderNumber: after.OrderNumber,
			UserID:      after.UserID,
			SupplierID:  after.SupplierID,
			Reason:      reason,
			CancelledAt: *after.CancelledAt,
		}
		return event
	}
	event.EventType = enums.EventOrderStatusChanged
	event.Data = payloads.OrderStatusChangedEvent{
		OrderID:        after.ID,
		OrderNumber:    after.OrderNumber,
		UserID:         after.UserID,
		SupplierID:     after.SupplierID,
		PreviousStatus: before.Status,
		Status:         after.Status,
		TrackingNumber: after.TrackingNumber,
		Carrier:        after.Carrier,
	}
	return event
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (models.Order, error) {
	if orderID == uuid.Nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, mapLoadError(err)
	}
	return order, nil
}

func insufficientStock(productID uuid.UUID, available, requested int) error {
	details := map[string]any{"productId": productID, "requested": requested}
	if available >= 0 {
		details["available"] = available
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(details)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func wrapTxError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
