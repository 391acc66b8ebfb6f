package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestOrderPolicies(t *testing.T) {
	customerID := uuid.New()
	supplierID := uuid.New()
	otherSupplier := uuid.New()
	order := models.Order{UserID: customerID, SupplierID: supplierID}

	customer := Actor{UserID: customerID, Role: enums.RoleCustomer}
	supplier := Actor{UserID: uuid.New(), Role: enums.RoleSupplier, SupplierID: &supplierID}
	stranger := Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	rival := Actor{UserID: uuid.New(), Role: enums.RoleSupplier, SupplierID: &otherSupplier}
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	cases := []struct {
		name    string
		actor   Actor
		view    bool
		advance bool
		cancel  bool
	}{
		{"customer", customer, true, false, true},
		{"supplier", supplier, true, true, false},
		{"stranger", stranger, false, false, false},
		{"rival supplier", rival, false, false, false},
		{"admin", admin, true, true, true},
	}
	for _, tc := range cases {
		if got := CanViewOrder(tc.actor, order); got != tc.view {
			t.Fatalf("%s: CanViewOrder = %v", tc.name, got)
		}
		if got := CanTransition(tc.actor, order, enums.OrderStatusConfirmed); got != tc.advance {
			t.Fatalf("%s: CanTransition = %v", tc.name, got)
		}
		if got := CanCancel(tc.actor, order); got != tc.cancel {
			t.Fatalf("%s: CanCancel = %v", tc.name, got)
		}
	}
}

func TestCanTransitionRejectsUnknownTarget(t *testing.T) {
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	if CanTransition(admin, models.Order{}, enums.OrderStatus("LOST")) {
		t.Fatal("expected unknown status to be refused")
	}
}

func TestProductPolicies(t *testing.T) {
	supplierID := uuid.New()
	product := models.Product{SupplierID: supplierID}
	owner := Actor{UserID: uuid.New(), Role: enums.RoleSupplier, SupplierID: &supplierID}
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	customerWithClaim := Actor{UserID: uuid.New(), Role: enums.RoleCustomer, SupplierID: &supplierID}

	if !CanManageProduct(owner, product) || !CanManageProduct(admin, product) {
		t.Fatal("expected owner and admin to manage product")
	}
	if CanManageProduct(customerWithClaim, product) {
		t.Fatal("customer role must not manage products")
	}
	if !CanReplyToReview(owner, product) {
		t.Fatal("expected owner to reply")
	}
	if CanReplyToReview(admin, product) {
		t.Fatal("admin without supplier must not reply")
	}
}
