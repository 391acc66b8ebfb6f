package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/internal/reviews"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type stubReviewsService struct {
	reviews.Service
	productFn  func(ctx context.Context, actor authz.Actor, input reviews.CreateProductReviewInput) (*reviews.ProductReviewDTO, error)
	supplierFn func(ctx context.Context, actor authz.Actor, input reviews.CreateSupplierReviewInput) (*reviews.SupplierReviewDTO, error)
	replyFn    func(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, text string) (*reviews.ReplyDTO, error)
	listFn     func(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[reviews.ProductReviewDTO], error)
}

func (s *stubReviewsService) CreateProductReview(ctx context.Context, actor authz.Actor, input reviews.CreateProductReviewInput) (*reviews.ProductReviewDTO, error) {
	return s.productFn(ctx, actor, input)
}

func (s *stubReviewsService) CreateSupplierReview(ctx context.Context, actor authz.Actor, input reviews.CreateSupplierReviewInput) (*reviews.SupplierReviewDTO, error) {
	return s.supplierFn(ctx, actor, input)
}

func (s *stubReviewsService) ReplyToReview(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, text string) (*reviews.ReplyDTO, error) {
	return s.replyFn(ctx, actor, reviewID, text)
}

func (s *stubReviewsService) ListProductReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[reviews.ProductReviewDTO], error) {
	return s.listFn(ctx, productID, params)
}

func TestProductReviewCreate(t *testing.T) {
	actor := customerActor()
	productID, orderID := uuid.New(), uuid.New()
	svc := &stubReviewsService{
		productFn: func(ctx context.Context, a authz.Actor, input reviews.CreateProductReviewInput) (*reviews.ProductReviewDTO, error) {
			if input.ProductID != productID || input.OrderID != orderID || input.Rating != 4 {
				t.Fatalf("unexpected input %+v", input)
			}
			return &reviews.ProductReviewDTO{ID: uuid.New(), Rating: input.Rating}, nil
		},
	}

	body := `{"orderId": "` + orderID.String() + `", "rating": 4, "comment": "solid", "images": ["https://cdn.example.com/a.jpg"]}`
	req := newRequest(http.MethodPost, "/", body, &actor, "productId", productID.String())
	resp := httptest.NewRecorder()
	ProductReviewCreate(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProductReviewCreateValidation(t *testing.T) {
	actor := customerActor()
	orderID := uuid.NewString()
	for name, body := range map[string]string{
		"rating too high": `{"orderId": "` + orderID + `", "rating": 6}`,
		"missing rating":  `{"orderId": "` + orderID + `"}`,
		"bad image url":   `{"orderId": "` + orderID + `", "rating": 3, "images": ["not a url"]}`,
		"missing order":   `{"rating": 3}`,
	} {
		req := newRequest(http.MethodPost, "/", body, &actor, "productId", uuid.NewString())
		resp := httptest.NewRecorder()
		ProductReviewCreate(&stubReviewsService{}, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestProductReviewCreateDuplicate(t *testing.T) {
	actor := customerActor()
	svc := &stubReviewsService{
		productFn: func(ctx context.Context, a authz.Actor, input reviews.CreateProductReviewInput) (*reviews.ProductReviewDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed for this order")
		},
	}
	body := `{"orderId": "` + uuid.NewString() + `", "rating": 5}`
	req := newRequest(http.MethodPost, "/", body, &actor, "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	ProductReviewCreate(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestSupplierReviewCreatePassesRatings(t *testing.T) {
	actor := customerActor()
	supplierID := uuid.New()
	svc := &stubReviewsService{
		supplierFn: func(ctx context.Context, a authz.Actor, input reviews.CreateSupplierReviewInput) (*reviews.SupplierReviewDTO, error) {
			if input.SupplierID != supplierID || input.QualityRating != 5 || input.DeliveryRating != 3 || input.CommunicationRating != 4 {
				t.Fatalf("unexpected input %+v", input)
			}
			return &reviews.SupplierReviewDTO{ID: uuid.New(), OverallRating: 4}, nil
		},
	}

	body := `{"orderId": "` + uuid.NewString() + `", "qualityRating": 5, "deliveryRating": 3, "communicationRating": 4}`
	req := newRequest(http.MethodPost, "/", body, &actor, "supplierId", supplierID.String())
	resp := httptest.NewRecorder()
	SupplierReviewCreate(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReviewReplyForbidden(t *testing.T) {
	actor := supplierActor()
	svc := &stubReviewsService{
		replyFn: func(ctx context.Context, a authz.Actor, reviewID uuid.UUID, text string) (*reviews.ReplyDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the product's supplier can reply")
		},
	}
	req := newRequest(http.MethodPost, "/", `{"text": "thanks"}`, &actor, "reviewId", uuid.NewString())
	resp := httptest.NewRecorder()
	ReviewReply(svc, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestProductReviewListIsPublic(t *testing.T) {
	productID := uuid.New()
	svc := &stubReviewsService{
		listFn: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*pagination.Page[reviews.ProductReviewDTO], error) {
			if id != productID || params.Limit != pagination.DefaultLimit {
				t.Fatalf("unexpected call %s %+v", id, params)
			}
			return &pagination.Page[reviews.ProductReviewDTO]{Items: []reviews.ProductReviewDTO{}}, nil
		},
	}
	req := newRequest(http.MethodGet, "/", "", nil, "productId", productID.String())
	resp := httptest.NewRecorder()
	ProductReviewList(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	over := newRequest(http.MethodGet, "/?limit=500", "", nil, "productId", productID.String())
	overResp := httptest.NewRecorder()
	ProductReviewList(svc, testLogger())(overResp, over)
	if overResp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit got %d", overResp.Code)
	}
}
