package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JacobArthurs/ecommerce-api/pkg/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems persists the order and bulk-inserts its items in one
// transaction, so a partially created order is never observable.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.Omit(clause.Associations).Create(&items).Error
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindItem loads an order item together with its parent order, which the
// ownership check needs.
func (r *OrderRepository) FindItem(ctx context.Context, id string) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).Preload("Order").Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *OrderRepository) All(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) AllForUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderFilter narrows an order search. A non-empty UserID scopes the
// result to that owner.
type OrderFilter struct {
	UserID    string
	MinCost   *decimal.Decimal
	MaxCost   *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
}

func (r *OrderRepository) Search(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")

	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.MinCost != nil {
		q = q.Where("total_cost >= ?", filter.MinCost)
	}
	if filter.MaxCost != nil {
		q = q.Where("total_cost <= ?", filter.MaxCost)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveItem persists an item change and recomputes the parent order total
// in the same transaction.
func (r *OrderRepository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return err
		}
		return recomputeTotal(tx, item.OrderID)
	})
}

// DeleteItem removes an item and recomputes the parent order total in the
// same transaction. The parent order itself stays.
func (r *OrderRepository) DeleteItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "id = ?", item.ID).Error; err != nil {
			return err
		}
		return recomputeTotal(tx, item.OrderID)
	})
}

// Delete removes the order and cascades to its items. No total recompute:
// the order is gone.
func (r *OrderRepository) Delete(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", order.ID).Error
	})
}

// recomputeTotal reasserts total_cost = Σ(item.cost × item.quantity) over
// the order's current items as a single atomic statement, so concurrent
// item mutations on the same order serialize at the storage layer.
func recomputeTotal(tx *gorm.DB, orderID string) error {
	return tx.Exec(
		`UPDATE orders
		 SET total_cost = (SELECT COALESCE(SUM(cost * quantity), 0) FROM order_items WHERE order_id = ?),
		     updated_at = ?
		 WHERE id = ?`,
		orderID, time.Now(), orderID,
	).Error
}

// CreatedBetween returns creation timestamps and totals of orders created
// in [start, end), for monthly bucketing.
func (r *OrderRepository) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Select("created_at", "total_cost").
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
