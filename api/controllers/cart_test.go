package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/bazaar-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type stubCartService struct {
	cartsvc.Service
	addFn    func(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.CartDTO, error)
	updateFn func(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cartsvc.CartDTO, error)
	getFn    func(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error)
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.getFn(ctx, userID)
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	return s.addFn(ctx, userID, productID, quantity)
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	return s.updateFn(ctx, userID, itemID, quantity)
}

func TestCartAddItem(t *testing.T) {
	actor := customerActor()
	productID := uuid.New()
	svc := &stubCartService{
		addFn: func(ctx context.Context, userID, pid uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
			if userID != actor.UserID || pid != productID || quantity != 3 {
				t.Fatalf("unexpected call %s %s %d", userID, pid, quantity)
			}
			return &cartsvc.CartDTO{UserID: userID, Items: []cartsvc.CartItemDTO{}}, nil
		},
	}

	req := newRequest(http.MethodPost, "/api/v1/cart/items", `{"productId": "`+productID.String()+`", "quantity": 3}`, &actor)
	resp := httptest.NewRecorder()
	CartAddItem(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCartAddItemValidation(t *testing.T) {
	actor := customerActor()
	for name, body := range map[string]string{
		"zero quantity": `{"productId": "` + uuid.NewString() + `", "quantity": 0}`,
		"bad product":   `{"productId": "abc", "quantity": 1}`,
	} {
		req := newRequest(http.MethodPost, "/api/v1/cart/items", body, &actor)
		resp := httptest.NewRecorder()
		CartAddItem(&stubCartService{}, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestCartUpdateItemSurfacesStockShortfall(t *testing.T) {
	actor := customerActor()
	itemID := uuid.New()
	svc := &stubCartService{
		updateFn: func(ctx context.Context, userID, id uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
			if id != itemID {
				t.Fatalf("unexpected item %s", id)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
		},
	}

	req := newRequest(http.MethodPut, "/", `{"quantity": 50}`, &actor, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCartFetchRequiresUser(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/cart", "", nil)
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
