package handlers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

func newOrderHandler(t *testing.T) (*OrderHandler, *repository.OrderRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	orders := repository.NewOrderRepository(db)
	products := repository.NewProductRepository(db)
	return NewOrderHandler(orders, products, nil, testLogger), orders, db
}

func seedOrder(t *testing.T, h *OrderHandler, orders *repository.OrderRepository, caller *auth.Identity, items ...map[string]interface{}) *models.Order {
	t.Helper()
	ctx := context.Background()

	result, err := h.createOrder(ctx, caller, rawArgs(t, map[string]interface{}{"orderItems": items}))
	require.NoError(t, err)
	requireOK(t, result, "Order created successfully.")

	owned, err := orders.AllForUser(ctx, caller.UserID)
	require.NoError(t, err)
	require.NotEmpty(t, owned)
	return &owned[len(owned)-1]
}

func TestCreateOrderTotalsAndSnapshots(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	caller := userCaller()

	keyboard := seedProduct(t, db, "Keyboard", "49.99", 10)
	mouse := seedProduct(t, db, "Mouse", "15.00", 20)

	order := seedOrder(t, h, orders, caller,
		map[string]interface{}{"productId": keyboard.ID, "quantity": 2},
		map[string]interface{}{"productId": mouse.ID, "quantity": 3},
	)

	// 2*49.99 + 3*15.00
	require.Equal(t, "144.98", order.TotalCost.StringFixed(2))
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		switch item.ProductID {
		case keyboard.ID:
			require.Equal(t, "49.99", item.Cost.StringFixed(2))
		case mouse.ID:
			require.Equal(t, "15.00", item.Cost.StringFixed(2))
		default:
			t.Fatalf("unexpected product %s", item.ProductID)
		}
	}
}

func TestCreateOrderRejectsBadQuantity(t *testing.T) {
	h, _, db := newOrderHandler(t)
	product := seedProduct(t, db, "Keyboard", "49.99", 10)

	result, err := h.createOrder(context.Background(), userCaller(), rawArgs(t, map[string]interface{}{
		"orderItems": []map[string]interface{}{
			{"productId": product.ID, "quantity": 0},
		},
	}))
	require.NoError(t, err)
	requireFail(t, result, "One or more quantities are less than 1.")
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	h, _, db := newOrderHandler(t)
	product := seedProduct(t, db, "Keyboard", "49.99", 10)

	result, err := h.createOrder(context.Background(), userCaller(), rawArgs(t, map[string]interface{}{
		"orderItems": []map[string]interface{}{
			{"productId": product.ID, "quantity": 1},
			{"productId": "missing", "quantity": 1},
		},
	}))
	require.NoError(t, err)
	requireFail(t, result, "One or more products not found.")
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	h, _, _ := newOrderHandler(t)

	_, err := h.createOrder(context.Background(), nil, rawArgs(t, map[string]interface{}{
		"orderItems": []map[string]interface{}{},
	}))
	require.ErrorIs(t, err, auth.ErrAuthenticationRequired)
}

func TestUpdateOrderItemRecomputesTotal(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	caller := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 2})
	require.Equal(t, "100.00", order.TotalCost.StringFixed(2))

	// The product got cheaper since the order was placed; updating the
	// item re-snapshots the current cost.
	product.Cost = decimal.RequireFromString("40.00")
	require.NoError(t, db.Save(product).Error)

	result, err := h.updateOrderItem(ctx, caller, rawArgs(t, map[string]interface{}{
		"id":       order.Items[0].ID,
		"quantity": 3,
	}))
	require.NoError(t, err)
	requireOK(t, result, "Order item updated successfully.")

	updated, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "120.00", updated.TotalCost.StringFixed(2))
	require.Equal(t, 3, updated.Items[0].Quantity)
	require.Equal(t, "40.00", updated.Items[0].Cost.StringFixed(2))
}

func TestUpdateOrderItemRejectsBadQuantity(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	caller := userCaller()
	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 2})

	result, err := h.updateOrderItem(context.Background(), caller, rawArgs(t, map[string]interface{}{
		"id":       order.Items[0].ID,
		"quantity": 0,
	}))
	require.NoError(t, err)
	requireFail(t, result, "One or more quantities are less than 1.")
}

func TestUpdateOrderItemOwnership(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	owner := userCaller()
	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, owner, map[string]interface{}{"productId": product.ID, "quantity": 1})

	stranger := userCaller()
	result, err := h.updateOrderItem(ctx, stranger, rawArgs(t, map[string]interface{}{
		"id":       order.Items[0].ID,
		"quantity": 5,
	}))
	require.NoError(t, err)
	requireFail(t, result, "You can only edit your own orders.")

	// An admin is exempt from the ownership check.
	result, err = h.updateOrderItem(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"id":       order.Items[0].ID,
		"quantity": 5,
	}))
	require.NoError(t, err)
	requireOK(t, result, "Order item updated successfully.")
}

func TestDeleteOrderItemRecomputesTotal(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	caller := userCaller()

	keyboard := seedProduct(t, db, "Keyboard", "50.00", 10)
	mouse := seedProduct(t, db, "Mouse", "10.00", 10)
	order := seedOrder(t, h, orders, caller,
		map[string]interface{}{"productId": keyboard.ID, "quantity": 1},
		map[string]interface{}{"productId": mouse.ID, "quantity": 2},
	)
	require.Equal(t, "70.00", order.TotalCost.StringFixed(2))

	var mouseItem models.OrderItem
	for _, item := range order.Items {
		if item.ProductID == mouse.ID {
			mouseItem = item
		}
	}

	result, err := h.deleteOrderItem(ctx, caller, rawArgs(t, map[string]interface{}{"id": mouseItem.ID}))
	require.NoError(t, err)
	requireOK(t, result, "Order item deleted successfully.")

	updated, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "50.00", updated.TotalCost.StringFixed(2))
}

func TestDeleteLastOrderItemZeroesTotal(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	caller := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 1})

	result, err := h.deleteOrderItem(ctx, caller, rawArgs(t, map[string]interface{}{"id": order.Items[0].ID}))
	require.NoError(t, err)
	requireOK(t, result, "Order item deleted successfully.")

	// The order survives its last item with a zero total.
	updated, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Empty(t, updated.Items)
	require.True(t, updated.TotalCost.IsZero())
}

func TestDeleteOrderCascades(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	caller := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 1})

	result, err := h.deleteOrder(ctx, caller, rawArgs(t, map[string]interface{}{"id": order.ID}))
	require.NoError(t, err)
	requireOK(t, result, "Order deleted successfully.")

	gone, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	var itemCount int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount).Error)
	require.Zero(t, itemCount)
}

func TestDeleteOrderOwnership(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	owner := userCaller()
	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, owner, map[string]interface{}{"productId": product.ID, "quantity": 1})

	result, err := h.deleteOrder(context.Background(), userCaller(), rawArgs(t, map[string]interface{}{"id": order.ID}))
	require.NoError(t, err)
	requireFail(t, result, "You can only delete your own orders.")
}

func TestAllOrdersIsOwnerScoped(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	alice := userCaller()
	bob := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	seedOrder(t, h, orders, alice, map[string]interface{}{"productId": product.ID, "quantity": 1})

	result, err := h.allOrders(ctx, bob, rawArgs(t, map[string]interface{}{}))
	require.NoError(t, err)
	require.Empty(t, result.([]models.Order))

	result, err = h.allOrders(ctx, alice, rawArgs(t, map[string]interface{}{}))
	require.NoError(t, err)
	require.Len(t, result.([]models.Order), 1)

	result, err = h.allOrders(ctx, adminCaller(), rawArgs(t, map[string]interface{}{}))
	require.NoError(t, err)
	require.Len(t, result.([]models.Order), 1)
}

func TestOrderByIDHidesForeignOrders(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	alice := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	order := seedOrder(t, h, orders, alice, map[string]interface{}{"productId": product.ID, "quantity": 1})

	result, err := h.orderByID(ctx, userCaller(), rawArgs(t, map[string]interface{}{"id": order.ID}))
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = h.orderByID(ctx, alice, rawArgs(t, map[string]interface{}{"id": order.ID}))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, order.ID, result.(*models.Order).ID)
}

func TestSearchOrdersScopesNonAdmins(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	alice := userCaller()
	bob := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	seedOrder(t, h, orders, alice, map[string]interface{}{"productId": product.ID, "quantity": 1})
	seedOrder(t, h, orders, bob, map[string]interface{}{"productId": product.ID, "quantity": 2})

	result, err := h.searchOrders(ctx, alice, rawArgs(t, map[string]interface{}{}))
	require.NoError(t, err)
	require.Len(t, result.([]models.Order), 1)

	result, err = h.searchOrders(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"minCost": "75.00",
	}))
	require.NoError(t, err)
	found := result.([]models.Order)
	require.Len(t, found, 1)
	require.Equal(t, bob.UserID, found[0].UserID)
}

func TestOrdersPerMonthAggregates(t *testing.T) {
	h, orders, db := newOrderHandler(t)
	ctx := context.Background()
	caller := userCaller()

	product := seedProduct(t, db, "Keyboard", "50.00", 10)
	seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 1})
	seedOrder(t, h, orders, caller, map[string]interface{}{"productId": product.ID, "quantity": 2})

	result, err := h.ordersPerMonth(ctx, adminCaller(), rawArgs(t, map[string]interface{}{"lastNMonths": 2}))
	require.NoError(t, err)

	rows := result.([]OrdersPerMonth)
	require.Len(t, rows, 2)
	require.Zero(t, rows[0].OrderCount)
	require.True(t, rows[0].OrderCost.IsZero())
	require.Equal(t, 2, rows[1].OrderCount)
	require.Equal(t, "150.00", rows[1].OrderCost.StringFixed(2))
}

func TestOrdersPerMonthRequiresAdmin(t *testing.T) {
	h, _, _ := newOrderHandler(t)

	_, err := h.ordersPerMonth(context.Background(), userCaller(), rawArgs(t, map[string]interface{}{"lastNMonths": 1}))
	require.ErrorIs(t, err, auth.ErrPermissionDenied)
}
