package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/bazaar-backend/pkg/db/types"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 2000
	maxReplyLength   = 1000
	maxImages        = 5

	kindProduct  = "product"
	kindSupplier = "supplier"
	kindReply    = "reply"
)

type txRunner interface {
	WithRetryTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the rating engine.
type Service interface {
	CreateProductReview(ctx context.Context, actor authz.Actor, input CreateProductReviewInput) (*ProductReviewDTO, error)
	CreateSupplierReview(ctx context.Context, actor authz.Actor, input CreateSupplierReviewInput) (*SupplierReviewDTO, error)
	ReplyToReview(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, text string) (*ReplyDTO, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[ProductReviewDTO], error)
	ListSupplierReviews(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*pagination.Page[SupplierReviewDTO], error)
}

type ServiceParams struct {
	Repo      Repository
	Orders    orders.Repository
	Products  products.ProductStore
	Suppliers products.SupplierStore
	TxRunner  txRunner
	Outbox    outboxPublisher
	Metrics   *metrics.Commerce
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	orders    orders.Repository
	products  products.ProductStore
	suppliers products.SupplierStore
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.Commerce
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("reviews repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Suppliers == nil:
		return nil, fmt.Errorf("supplier repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		products:  params.Products,
		suppliers: params.Suppliers,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// CreateProductReview records a verified-purchase review and refreshes the product's rating.
func (s *service) CreateProductReview(ctx context.Context, actor authz.Actor, input CreateProductReviewInput) (*ProductReviewDTO, error) {
	if err := validateRating("rating", input.Rating); err != nil {
		return nil, err
	}
	comment, err := normalizeText(input.Comment, maxCommentLength, false)
	if err != nil {
		return nil, err
	}
	images, err := normalizeImages(input.Images)
	if err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var created models.ProductReview
	err = s.tx.WithRetryTx(ctx, func(tx *gorm.DB) error {
		order, err := s.reviewableOrder(ctx, tx, actor, input.OrderID)
		if err != nil {
			return err
		}
		if !orderContains(order, input.ProductID) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "product was not part of this order")
		}

		reviewRepo := s.repo.WithTx(tx)
		exists, err := reviewRepo.ProductReviewExists(ctx, order.ID, actor.UserID, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
		}
		if exists {
			return duplicateReview()
		}

		created, err = reviewRepo.CreateProductReview(ctx, models.ProductReview{
			OrderID:            order.ID,
			UserID:             actor.UserID,
			ProductID:          input.ProductID,
			Rating:             input.Rating,
			Comment:            comment,
			Images:             images,
			IsVerifiedPurchase: true,
		})
		if err != nil {
			if db.IsUniqueViolation(err, productReviewConstraint) {
				return duplicateReview()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		stats, err := reviewRepo.ProductRatingStats(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate product rating")
		}
		if err := s.products.WithTx(tx).UpdateRating(ctx, input.ProductID, stats.Average, stats.Count); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
		}

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductReviewed,
			AggregateType: enums.AggregateProductReview,
			AggregateID:   created.ID,
			Actor:         actor.Ref(),
			Data: payloads.ProductReviewedEvent{
				ReviewID:   created.ID,
				ProductID:  created.ProductID,
				SupplierID: order.SupplierID,
				OrderID:    order.ID,
				UserID:     actor.UserID,
				Rating:     created.Rating,
			},
		})
	})
	if err != nil {
		return nil, wrapTxError(err, "create product review")
	}

	s.metrics.IncReview(kindProduct)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"review_id":  created.ID.String(),
			"product_id": created.ProductID.String(),
			"rating":     created.Rating,
		})
		s.logg.Info(logCtx, "product review created")
	}
	dto := NewProductReviewDTO(created)
	return &dto, nil
}

// CreateSupplierReview rates the supplier of a delivered order and refreshes its rating.
func (s *service) CreateSupplierReview(ctx context.Context, actor authz.Actor, input CreateSupplierReviewInput) (*SupplierReviewDTO, error) {
	for _, field := range []struct {
		name  string
		value int
	}{
		{"qualityRating", input.QualityRating},
		{"deliveryRating", input.DeliveryRating},
		{"communicationRating", input.CommunicationRating},
	} {
		if err := validateRating(field.name, field.value); err != nil {
			return nil, err
		}
	}
	comment, err := normalizeText(input.Comment, maxCommentLength, false)
	if err != nil {
		return nil, err
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}

	var created models.SupplierReview
	err = s.tx.WithRetryTx(ctx, func(tx *gorm.DB) error {
		order, err := s.reviewableOrder(ctx, tx, actor, input.OrderID)
		if err != nil {
			return err
		}
		if order.SupplierID != input.SupplierID {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "supplier did not fulfil this order")
		}

		reviewRepo := s.repo.WithTx(tx)
		exists, err := reviewRepo.SupplierReviewExists(ctx, order.ID, actor.UserID, input.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
		}
		if exists {
			return duplicateReview()
		}

		created, err = reviewRepo.CreateSupplierReview(ctx, models.SupplierReview{
			OrderID:             order.ID,
			UserID:              actor.UserID,
			SupplierID:          input.SupplierID,
			QualityRating:       input.QualityRating,
			DeliveryRating:      input.DeliveryRating,
			CommunicationRating: input.CommunicationRating,
			OverallRating:       OverallRating(input.QualityRating, input.DeliveryRating, input.CommunicationRating),
			Comment:             comment,
		})
		if err != nil {
			if db.IsUniqueViolation(err, supplierReviewConstraint) {
				return duplicateReview()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		stats, err := reviewRepo.SupplierRatingStats(ctx, input.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate supplier rating")
		}
		if err := s.suppliers.WithTx(tx).UpdateRating(ctx, input.SupplierID, stats.Average, stats.Count); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier rating")
		}

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupplierReviewed,
			AggregateType: enums.AggregateSupplierReview,
			AggregateID:   created.ID,
			Actor:         actor.Ref(),
			Data: payloads.SupplierReviewedEvent{
				ReviewID:      created.ID,
				SupplierID:    created.SupplierID,
				OrderID:       order.ID,
				UserID:        actor.UserID,
				OverallRating: created.OverallRating,
			},
		})
	})
	if err != nil {
		return nil, wrapTxError(err, "create supplier review")
	}

	s.metrics.IncReview(kindSupplier)
	dto := NewSupplierReviewDTO(created)
	return &dto, nil
}

// ReplyToReview stores the supplier's answer to a review of one of its products.
func (s *service) ReplyToReview(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, text string) (*ReplyDTO, error) {
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}
	body, err := normalizeText(text, maxReplyLength, true)
	if err != nil {
		return nil, err
	}

	var reply models.ReviewReply
	err = s.tx.WithRetryTx(ctx, func(tx *gorm.DB) error {
		reviewRepo := s.repo.WithTx(tx)
		review, err := reviewRepo.FindProductReview(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
		}
		product, err := s.products.WithTx(tx).FindByID(ctx, review.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !authz.CanReplyToReview(actor, product) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the product's supplier may reply")
		}

		reply, err = reviewRepo.UpsertReply(ctx, models.ReviewReply{
			ReviewID:   review.ID,
			SupplierID: product.SupplierID,
			Text:       body,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reply")
		}

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewReplied,
			AggregateType: enums.AggregateProductReview,
			AggregateID:   review.ID,
			Actor:         actor.Ref(),
			Data: payloads.ReviewRepliedEvent{
				ReplyID:    reply.ID,
				ReviewID:   review.ID,
				ProductID:  review.ProductID,
				SupplierID: product.SupplierID,
				ReviewerID: review.UserID,
			},
		})
	})
	if err != nil {
		return nil, wrapTxError(err, "reply to review")
	}

	s.metrics.IncReview(kindReply)
	return NewReplyDTO(reply), nil
}

func (s *service) ListProductReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[ProductReviewDTO], error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProductReviews(ctx, productID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product reviews")
	}
	dtos := make([]ProductReviewDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewProductReviewDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(r ProductReviewDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return &page, nil
}

func (s *service) ListSupplierReviews(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*pagination.Page[SupplierReviewDTO], error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if _, err := s.suppliers.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSupplierReviews(ctx, supplierID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier reviews")
	}
	dtos := make([]SupplierReviewDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewSupplierReviewDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(r SupplierReviewDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return &page, nil
}

// OverallRating is the mean of the three axes rounded half away from zero.
func OverallRating(quality, delivery, communication int) int {
	mean := decimal.NewFromInt(int64(quality + delivery + communication)).Div(decimal.NewFromInt(3))
	return int(mean.Round(0).IntPart())
}

// reviewableOrder loads an order the actor bought and that has been delivered.
func (s *service) reviewableOrder(ctx context.Context, tx *gorm.DB, actor authz.Actor, orderID uuid.UUID) (models.Order, error) {
	if orderID == uuid.Nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actor.UserID == uuid.Nil || order.UserID != actor.UserID {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may review this order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeInvalidState, "only delivered orders can be reviewed")
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit review event")
	}
	return nil
}

func orderContains(order models.Order, productID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func validateRating(field string, value int) error {
	if value < minRating || value > maxRating {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", field, minRating, maxRating)
	}
	return nil
}

func normalizeText(value string, max int, required bool) (string, error) {
	out := strings.TrimSpace(value)
	if required && out == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "text required")
	}
	if utf8.RuneCountInString(out) > max {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "text exceeds %d characters", max)
	}
	return out, nil
}

func normalizeImages(images []string) (dbtypes.TextArray, error) {
	out := dbtypes.TextArray{}
	for _, image := range images {
		url := strings.TrimSpace(image)
		if url == "" {
			continue
		}
		out = append(out, url)
	}
	if len(out) > maxImages {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d images allowed", maxImages)
	}
	return out, nil
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func duplicateReview() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this order")
}

func wrapTxError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
