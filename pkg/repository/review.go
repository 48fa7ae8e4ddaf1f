package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/models"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) Save(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) All(ctx context.Context) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.WithContext(ctx).Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// ReviewFilter narrows a review search within one product.
type ReviewFilter struct {
	ProductID string
	Title     string
	Body      string
	MinRating *int
	MaxRating *int
	StartDate *time.Time
	EndDate   *time.Time
}

func (r *ReviewRepository) Search(ctx context.Context, filter ReviewFilter) ([]models.Review, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", filter.ProductID)

	if filter.Title != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Title)+"%")
	}
	if filter.Body != "" {
		q = q.Where("LOWER(body) LIKE ?", "%"+strings.ToLower(filter.Body)+"%")
	}
	if filter.MinRating != nil {
		q = q.Where("rating >= ?", *filter.MinRating)
	}
	if filter.MaxRating != nil {
		q = q.Where("rating <= ?", *filter.MaxRating)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}

	var reviews []models.Review
	if err := q.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Delete(review).Error
}
