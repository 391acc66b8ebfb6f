package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
)

const notificationConsumer = "notifications"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type supplierOwners interface {
	OwnerUserID(ctx context.Context, supplierID uuid.UUID) (uuid.UUID, error)
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer drains one domain subscription and writes notifications for the counterparty of each event.
type Consumer struct {
	repo         creator
	owners       supplierOwners
	decoders     *registry.DecoderRegistry
	subscription *pubsub.Subscriber
	idempotency  idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer for a single subscription.
func NewConsumer(repo creator, owners supplierOwners, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if owners == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		owners:       owners,
		decoders:     registry.NewDomainDecoders(),
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	parsedType, err := enums.ParseOutboxEventType(eventType)
	if err != nil {
		c.logg.Warn(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := envelope.ID()
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(parsedType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notifications, err := c.notificationsFor(ctx, payload)
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	created := 0
	for i := range notifications {
		notifications[i].EventID = &eventID
		inserted, err := c.repo.Create(ctx, &notifications[i])
		if err != nil {
			c.logg.Error(logCtx, "failed to store notification", err)
			_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
			return processResult{nack: true}
		}
		if inserted {
			created++
		}
	}
	if created > 0 {
		c.logg.Info(c.logg.WithField(logCtx, "notifications", created), "notifications created")
	}
	return processResult{ack: true, created: created}
}

// notificationsFor maps a decoded event to the notifications of the party it concerns.
func (c *Consumer) notificationsFor(ctx context.Context, payload any) ([]models.Notification, error) {
	switch event := payload.(type) {
	case payloads.OrderCreatedEvent:
		owner, err := c.owner(ctx, event.SupplierID)
		if err != nil || owner == uuid.Nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  owner,
			Type:    enums.NotificationTypeOrderPlaced,
			Title:   "New order received",
			Message: fmt.Sprintf("Order %s was placed with %d item(s) totalling %s.", event.OrderNumber, event.ItemCount, event.Total.StringFixed(2)),
			Link:    stringPtr(orderLink(event.OrderID)),
		}}, nil

	case payloads.OrderStatusChangedEvent:
		message := fmt.Sprintf("Order %s is now %s.", event.OrderNumber, event.Status)
		if event.Status == enums.OrderStatusShipped && event.TrackingNumber != nil {
			carrier := "the carrier"
			if event.Carrier != nil {
				carrier = *event.Carrier
			}
			message = fmt.Sprintf("Order %s has shipped with %s, tracking number %s.", event.OrderNumber, carrier, *event.TrackingNumber)
		}
		return []models.Notification{{
			UserID:  event.UserID,
			Type:    enums.NotificationTypeOrderUpdated,
			Title:   "Order updated",
			Message: message,
			Link:    stringPtr(orderLink(event.OrderID)),
		}}, nil

	case payloads.OrderCancelledEvent:
		owner, err := c.owner(ctx, event.SupplierID)
		if err != nil || owner == uuid.Nil {
			return nil, err
		}
		message := fmt.Sprintf("Order %s was cancelled by the customer.", event.OrderNumber)
		if event.Reason != "" {
			message = fmt.Sprintf("Order %s was cancelled by the customer. Reason: %s", event.OrderNumber, event.Reason)
		}
		return []models.Notification{{
			UserID:  owner,
			Type:    enums.NotificationTypeOrderCanceled,
			Title:   "Order cancelled",
			Message: message,
			Link:    stringPtr(orderLink(event.OrderID)),
		}}, nil

	case payloads.ProductReviewedEvent:
		owner, err := c.owner(ctx, event.SupplierID)
		if err != nil || owner == uuid.Nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  owner,
			Type:    enums.NotificationTypeNewReview,
			Title:   "New product review",
			Message: fmt.Sprintf("A customer rated one of your products %d out of 5.", event.Rating),
			Link:    stringPtr(fmt.Sprintf("/products/%s/reviews", event.ProductID)),
		}}, nil

	case payloads.SupplierReviewedEvent:
		owner, err := c.owner(ctx, event.SupplierID)
		if err != nil || owner == uuid.Nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  owner,
			Type:    enums.NotificationTypeNewReview,
			Title:   "New supplier review",
			Message: fmt.Sprintf("A customer rated your store %d out of 5.", event.OverallRating),
			Link:    stringPtr(fmt.Sprintf("/suppliers/%s/reviews", event.SupplierID)),
		}}, nil

	case payloads.ReviewRepliedEvent:
		return []models.Notification{{
			UserID:  event.ReviewerID,
			Type:    enums.NotificationTypeReviewReply,
			Title:   "The supplier replied to your review",
			Message: "Your product review received a reply.",
			Link:    stringPtr(fmt.Sprintf("/products/%s/reviews", event.ProductID)),
		}}, nil

	case payloads.StockUpdatedEvent:
		if !event.IsLowStock || event.OldStock == event.NewStock {
			return nil, nil
		}
		owner, err := c.owner(ctx, event.SupplierID)
		if err != nil || owner == uuid.Nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  owner,
			Type:    enums.NotificationTypeLowStock,
			Title:   "Low stock",
			Message: fmt.Sprintf("%s is running low: %d left in stock.", event.ProductName, event.NewStock),
			Link:    stringPtr(fmt.Sprintf("/products/%s", event.ProductID)),
		}}, nil
	}
	return nil, nil
}

// owner resolves the supplier's user; a deleted supplier yields no recipient.
func (c *Consumer) owner(ctx context.Context, supplierID uuid.UUID) (uuid.UUID, error) {
	owner, err := c.owners.OwnerUserID(ctx, supplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, nil
	}
	return owner, err
}

func orderLink(orderID uuid.UUID) string {
	return fmt.Sprintf("/orders/%s", orderID)
}

func stringPtr(value string) *string {
	return &value
}
