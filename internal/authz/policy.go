// Package authz holds the ownership and role policies shared by every domain service.
package authz

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

// Actor is the authenticated caller as carried by the access token.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.Role
	SupplierID *uuid.UUID
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// Ref converts the actor into the reference stored on outbox envelopes.
func (a Actor) Ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, SupplierID: a.SupplierID, Role: a.Role}
}

// SupplierOf reports whether the actor acts for the given supplier.
func (a Actor) SupplierOf(supplierID uuid.UUID) bool {
	return a.Role == enums.RoleSupplier && a.SupplierID != nil && *a.SupplierID == supplierID && supplierID != uuid.Nil
}

// CanViewOrder allows the customer who placed the order, the supplier fulfilling it and admins.
func CanViewOrder(actor Actor, order models.Order) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.UserID != uuid.Nil && order.UserID == actor.UserID {
		return true
	}
	return actor.SupplierOf(order.SupplierID)
}

// CanTransition allows the order's supplier and admins to move an order along its lifecycle.
// Customers leave the lifecycle only through CanCancel.
func CanTransition(actor Actor, order models.Order, target enums.OrderStatus) bool {
	if !target.IsValid() {
		return false
	}
	return actor.IsAdmin() || actor.SupplierOf(order.SupplierID)
}

// CanCancel allows the customer who placed the order and admins.
func CanCancel(actor Actor, order models.Order) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != uuid.Nil && order.UserID == actor.UserID
}

func CanManageProduct(actor Actor, product models.Product) bool {
	return actor.IsAdmin() || actor.SupplierOf(product.SupplierID)
}

// CanReplyToReview requires the reviewed product to belong to the actor's supplier.
// Replies are attributed to a supplier, so admins without one are refused.
func CanReplyToReview(actor Actor, product models.Product) bool {
	return actor.SupplierOf(product.SupplierID)
}
