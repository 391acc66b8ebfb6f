package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// CreateProductReviewInput is a buyer's rating of one product from a delivered order.
type CreateProductReviewInput struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
	Images    []string
}

// CreateSupplierReviewInput rates the supplier that fulfilled an order.
type CreateSupplierReviewInput struct {
	OrderID             uuid.UUID
	SupplierID          uuid.UUID
	QualityRating       int
	DeliveryRating      int
	CommunicationRating int
	Comment             string
}

type ReplyDTO struct {
	ID         uuid.UUID `json:"id"`
	ReviewID   uuid.UUID `json:"reviewId"`
	SupplierID uuid.UUID `json:"supplierId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ProductReviewDTO struct {
	ID                 uuid.UUID `json:"id"`
	OrderID            uuid.UUID `json:"orderId"`
	UserID             uuid.UUID `json:"userId"`
	ProductID          uuid.UUID `json:"productId"`
	Rating             int       `json:"rating"`
	Comment            string    `json:"comment"`
	Images             []string  `json:"images"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	Reply              *ReplyDTO `json:"reply,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type SupplierReviewDTO struct {
	ID                  uuid.UUID `json:"id"`
	OrderID             uuid.UUID `json:"orderId"`
	UserID              uuid.UUID `json:"userId"`
	SupplierID          uuid.UUID `json:"supplierId"`
	QualityRating       int       `json:"qualityRating"`
	DeliveryRating      int       `json:"deliveryRating"`
	CommunicationRating int       `json:"communicationRating"`
	OverallRating       int       `json:"overallRating"`
	Comment             string    `json:"comment"`
	CreatedAt           time.Time `json:"createdAt"`
}

func NewReplyDTO(reply models.ReviewReply) *ReplyDTO {
	return &ReplyDTO{
		ID:         reply.ID,
		ReviewID:   reply.ReviewID,
		SupplierID: reply.SupplierID,
		Text:       reply.Text,
		CreatedAt:  reply.CreatedAt,
		UpdatedAt:  reply.UpdatedAt,
	}
}

func NewProductReviewDTO(review models.ProductReview) ProductReviewDTO {
	images := []string(review.Images)
	if images == nil {
		images = []string{}
	}
	dto := ProductReviewDTO{
		ID:                 review.ID,
		OrderID:            review.OrderID,
		UserID:             review.UserID,
		ProductID:          review.ProductID,
		Rating:             review.Rating,
		Comment:            review.Comment,
		Images:             images,
		IsVerifiedPurchase: review.IsVerifiedPurchase,
		CreatedAt:          review.CreatedAt,
	}
	if review.Reply != nil {
		dto.Reply = NewReplyDTO(*review.Reply)
	}
	return dto
}

func NewSupplierReviewDTO(review models.SupplierReview) SupplierReviewDTO {
	return SupplierReviewDTO{
		ID:                  review.ID,
		OrderID:             review.OrderID,
		UserID:              review.UserID,
		SupplierID:          review.SupplierID,
		QualityRating:       review.QualityRating,
		DeliveryRating:      review.DeliveryRating,
		CommunicationRating: review.CommunicationRating,
		OverallRating:       review.OverallRating,
		Comment:             review.Comment,
		CreatedAt:           review.CreatedAt,
	}
}
