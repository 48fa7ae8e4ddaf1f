package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

type ReviewHandler struct {
	reviews  *repository.ReviewRepository
	products *repository.ProductRepository
	audit    *repository.AuditLogger
	logger   *zap.Logger
}

func NewReviewHandler(reviews *repository.ReviewRepository, products *repository.ProductRepository, audit *repository.AuditLogger, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, products: products, audit: audit, logger: logger}
}

func (h *ReviewHandler) Register(d *graph.Dispatcher) {
	d.Register("createReview", h.createReview)
	d.Register("updateReview", h.updateReview)
	d.Register("deleteReview", h.deleteReview)
	d.Register("allReviews", h.allReviews)
	d.Register("reviewById", h.reviewByID)
	d.Register("searchReviews", h.searchReviews)
}

func validRating(rating int) bool {
	return rating >= 1 && rating <= 10
}

// ownsReview: the review's author may act on it, and so may an admin.
func ownsReview(caller *auth.Identity, review *models.Review) bool {
	return review.UserID == caller.UserID || caller.HasRole(auth.RoleAdmin)
}

func (h *ReviewHandler) createReview(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		Rating    int    `json:"rating"`
		ProductID string `json:"productId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if !validRating(args.Rating) {
		return graph.Fail("Rating must be between 1 and 10."), nil
	}

	product, err := h.products.FindByID(ctx, args.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return graph.Fail("Product not found."), nil
	}

	review := &models.Review{
		Title:     args.Title,
		Body:      args.Body,
		Rating:    args.Rating,
		ProductID: product.ID,
		UserID:    caller.UserID,
	}
	if err := h.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	h.audit.Record("create_review", review.ID, map[string]interface{}{"product_id": review.ProductID})
	return graph.OK("Review created successfully."), nil
}

func (h *ReviewHandler) updateReview(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID     string  `json:"id"`
		Title  *string `json:"title"`
		Body   *string `json:"body"`
		Rating *int    `json:"rating"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.Rating != nil && !validRating(*args.Rating) {
		return graph.Fail("Rating must be between 1 and 10."), nil
	}

	review, err := h.reviews.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return graph.Fail("Review not found."), nil
	}
	if !ownsReview(caller, review) {
		return graph.Fail("You can only update your own reviews."), nil
	}

	if args.Title != nil {
		review.Title = *args.Title
	}
	if args.Body != nil {
		review.Body = *args.Body
	}
	if args.Rating != nil {
		review.Rating = *args.Rating
	}
	if err := h.reviews.Save(ctx, review); err != nil {
		return nil, err
	}

	h.audit.Record("update_review", review.ID, map[string]interface{}{"product_id": review.ProductID})
	return graph.OK("Review updated successfully."), nil
}

func (h *ReviewHandler) deleteReview(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	review, err := h.reviews.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return graph.Fail("Review not found."), nil
	}
	if !ownsReview(caller, review) {
		return graph.Fail("You can only delete your own reviews."), nil
	}

	if err := h.reviews.Delete(ctx, review); err != nil {
		return nil, err
	}

	h.audit.Record("delete_review", review.ID, map[string]interface{}{"product_id": review.ProductID})
	return graph.OK("Review deleted successfully."), nil
}

func (h *ReviewHandler) allReviews(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	return h.reviews.All(ctx)
}

func (h *ReviewHandler) reviewByID(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	review, err := h.reviews.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, nil
	}
	return review, nil
}

func (h *ReviewHandler) searchReviews(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ProductID string `json:"productId"`
		Title     string `json:"title"`
		Body      string `json:"body"`
		MinRating *int   `json:"minRating"`
		MaxRating *int   `json:"maxRating"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	startDate, err := parseStartDate(args.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseEndDate(args.EndDate)
	if err != nil {
		return nil, err
	}

	return h.reviews.Search(ctx, repository.ReviewFilter{
		ProductID: args.ProductID,
		Title:     args.Title,
		Body:      args.Body,
		MinRating: args.MinRating,
		MaxRating: args.MaxRating,
		StartDate: startDate,
		EndDate:   endDate,
	})
}
