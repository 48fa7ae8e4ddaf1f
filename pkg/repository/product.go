package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/models"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Tags").Save(product).Error
}

// FindByID returns (nil, nil) on a miss; a missed lookup is not an error.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Tags").Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs resolves the given ids in one query. Missing ids are simply
// absent from the returned map.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Tags").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ProductFilter narrows a product search. Zero-valued fields are no-ops.
type ProductFilter struct {
	Name        string
	Description string
	MinCost     *decimal.Decimal
	MaxCost     *decimal.Decimal
	MinSupply   *int
	MaxSupply   *int
	StartDate   *time.Time
	EndDate     *time.Time
	TagIDs      []string
}

func (r *ProductRepository) Search(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Tags")

	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Description != "" {
		q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(filter.Description)+"%")
	}
	if filter.MinCost != nil {
		q = q.Where("cost >= ?", filter.MinCost)
	}
	if filter.MaxCost != nil {
		q = q.Where("cost <= ?", filter.MaxCost)
	}
	if filter.MinSupply != nil {
		q = q.Where("supply >= ?", *filter.MinSupply)
	}
	if filter.MaxSupply != nil {
		q = q.Where("supply <= ?", *filter.MaxSupply)
	}
	if filter.StartDate != nil {
		q = q.Where("products.created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("products.created_at <= ?", *filter.EndDate)
	}
	if len(filter.TagIDs) > 0 {
		q = q.Joins("JOIN product_tags ON product_tags.product_id = products.id").
			Where("product_tags.tag_id IN ?", filter.TagIDs).
			Distinct("products.*")
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Delete removes the product together with its reviews and its tag
// associations. Order items keep their product reference and snapshot
// cost and are left untouched.
func (r *ProductRepository) Delete(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Model(product).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
}

// AddTag associates a tag with the product. Appending an existing
// association is a no-op.
func (r *ProductRepository) AddTag(ctx context.Context, product *models.Product, tag *models.Tag) error {
	return r.db.WithContext(ctx).Model(product).Association("Tags").Append(tag)
}

// CreatedBetween returns the creation timestamps of products created in
// [start, end), for monthly bucketing.
func (r *ProductRepository) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Select("created_at").
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
