package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

type OrderHandler struct {
	orders   *repository.OrderRepository
	products *repository.ProductRepository
	audit    *repository.AuditLogger
	logger   *zap.Logger
}

func NewOrderHandler(orders *repository.OrderRepository, products *repository.ProductRepository, audit *repository.AuditLogger, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, products: products, audit: audit, logger: logger}
}

func (h *OrderHandler) Register(d *graph.Dispatcher) {
	d.Register("createOrder", h.createOrder)
	d.Register("updateOrderItem", h.updateOrderItem)
	d.Register("deleteOrder", h.deleteOrder)
	d.Register("deleteOrderItem", h.deleteOrderItem)
	d.Register("allOrders", h.allOrders)
	d.Register("orderById", h.orderByID)
	d.Register("searchOrders", h.searchOrders)
	d.Register("ordersPerMonth", h.ordersPerMonth)
}

// ownsOrder implements the ownership pattern: the order's owner may act
// on it, and so may an admin.
func ownsOrder(caller *auth.Identity, order *models.Order) bool {
	return order.UserID == caller.UserID || caller.HasRole(auth.RoleAdmin)
}

func (h *OrderHandler) createOrder(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		OrderItems []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"orderItems"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(args.OrderItems))
	for _, item := range args.OrderItems {
		if item.Quantity < 1 {
			return graph.Fail("One or more quantities are less than 1."), nil
		}
		ids = append(ids, item.ProductID)
	}

	products, err := h.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return graph.Fail("One or more products not found."), nil
		}
	}

	// Total and per-item cost snapshot the products' current cost.
	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(args.OrderItems))
	for _, item := range args.OrderItems {
		product := products[item.ProductID]
		total = total.Add(product.Cost.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Cost:      product.Cost,
		})
	}

	order := &models.Order{UserID: caller.UserID, TotalCost: total}
	if err := h.orders.CreateWithItems(ctx, order, items); err != nil {
		return nil, err
	}

	h.audit.Record("create_order", order.ID, map[string]interface{}{
		"user_id":    order.UserID,
		"total_cost": order.TotalCost.String(),
	})
	return graph.OK("Order created successfully."), nil
}

func (h *OrderHandler) updateOrderItem(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Quantity < 1 {
		return graph.Fail("One or more quantities are less than 1."), nil
	}

	item, err := h.orders.FindItem(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return graph.Fail("Order item not found."), nil
	}
	if !ownsOrder(caller, item.Order) {
		return graph.Fail("You can only edit your own orders."), nil
	}

	product, err := h.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return graph.Fail("Product not found."), nil
	}

	item.Quantity = args.Quantity
	item.Cost = product.Cost
	if err := h.orders.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	h.audit.Record("update_order_item", item.ID, map[string]interface{}{
		"order_id": item.OrderID,
		"quantity": item.Quantity,
	})
	return graph.OK("Order item updated successfully."), nil
}

func (h *OrderHandler) deleteOrder(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	order, err := h.orders.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return graph.Fail("Order not found."), nil
	}
	if !ownsOrder(caller, order) {
		return graph.Fail("You can only delete your own orders."), nil
	}

	if err := h.orders.Delete(ctx, order); err != nil {
		return nil, err
	}

	h.audit.Record("delete_order", order.ID, map[string]interface{}{"user_id": order.UserID})
	return graph.OK("Order deleted successfully."), nil
}

func (h *OrderHandler) deleteOrderItem(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	item, err := h.orders.FindItem(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return graph.Fail("Order item not found."), nil
	}
	if !ownsOrder(caller, item.Order) {
		return graph.Fail("You can only delete your own orders."), nil
	}

	if err := h.orders.DeleteItem(ctx, item); err != nil {
		return nil, err
	}

	h.audit.Record("delete_order_item", item.ID, map[string]interface{}{"order_id": item.OrderID})
	return graph.OK("Order item deleted successfully."), nil
}

// allOrders is owner-scoped: a non-admin sees only their own orders.
func (h *OrderHandler) allOrders(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}
	if caller.HasRole(auth.RoleAdmin) {
		return h.orders.All(ctx)
	}
	return h.orders.AllForUser(ctx, caller.UserID)
}

// orderByID returns null for a miss and for another user's order alike.
func (h *OrderHandler) orderByID(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	order, err := h.orders.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if order == nil || !ownsOrder(caller, order) {
		return nil, nil
	}
	return order, nil
}

func (h *OrderHandler) searchOrders(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireAuth(caller); err != nil {
		return nil, err
	}

	var args struct {
		MinCost   *decimal.Decimal `json:"minCost"`
		MaxCost   *decimal.Decimal `json:"maxCost"`
		StartDate string           `json:"startDate"`
		EndDate   string           `json:"endDate"`
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

	filter := repository.OrderFilter{
		MinCost:   args.MinCost,
		MaxCost:   args.MaxCost,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if !caller.HasRole(auth.RoleAdmin) {
		filter.UserID = caller.UserID
	}
	return h.orders.Search(ctx, filter)
}

type OrdersPerMonth struct {
	Month      string          `json:"month"`
	OrderCount int             `json:"orderCount"`
	OrderCost  decimal.Decimal `json:"orderCost"`
}

// ordersPerMonth returns exactly lastNMonths entries in chronological
// order, zero-filled for months with no orders.
func (h *OrderHandler) ordersPerMonth(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		LastNMonths int `json:"lastNMonths"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.LastNMonths < 1 {
		return nil, graph.Errorf("lastNMonths must be at least 1.")
	}

	start, end := monthWindow(args.LastNMonths, time.Now())
	rows, err := h.orders.CreatedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	costs := make(map[string]decimal.Decimal)
	for _, o := range rows {
		label := o.CreatedAt.Format(monthLabel)
		counts[label]++
		costs[label] = costs[label].Add(o.TotalCost)
	}

	out := make([]OrdersPerMonth, 0, args.LastNMonths)
	for i := 0; i < args.LastNMonths; i++ {
		label := start.AddDate(0, i, 0).Format(monthLabel)
		out = append(out, OrdersPerMonth{
			Month:      label,
			OrderCount: counts[label],
			OrderCost:  costs[label],
		})
	}
	return out, nil
}
