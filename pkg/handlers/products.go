package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

type ProductHandler struct {
	products *repository.ProductRepository
	audit    *repository.AuditLogger
	logger   *zap.Logger
}

func NewProductHandler(products *repository.ProductRepository, audit *repository.AuditLogger, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, audit: audit, logger: logger}
}

func (h *ProductHandler) Register(d *graph.Dispatcher) {
	d.Register("createProduct", h.createProduct)
	d.Register("updateProduct", h.updateProduct)
	d.Register("deleteProduct", h.deleteProduct)
	d.Register("allProducts", h.allProducts)
	d.Register("productById", h.productByID)
	d.Register("searchProducts", h.searchProducts)
	d.Register("productsPerMonth", h.productsPerMonth)
}

// validateProductFields checks the supplied fields in declaration order;
// the first violation wins. Nil fields were not supplied.
func validateProductFields(name, description *string, cost *decimal.Decimal, supply *int) string {
	if name != nil && strings.TrimSpace(*name) == "" {
		return "Name cannot be empty."
	}
	if description != nil && strings.TrimSpace(*description) == "" {
		return "Description cannot be empty."
	}
	if cost != nil && cost.IsNegative() {
		return "Cost must be a positive value."
	}
	if supply != nil && *supply < 0 {
		return "Supply must be a positive value."
	}
	return ""
}

func (h *ProductHandler) createProduct(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Cost        decimal.Decimal `json:"cost"`
		Supply      int             `json:"supply"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if msg := validateProductFields(&args.Name, &args.Description, &args.Cost, &args.Supply); msg != "" {
		return graph.Fail(msg), nil
	}

	product := &models.Product{
		Name:        args.Name,
		Description: args.Description,
		Cost:        args.Cost,
		Supply:      args.Supply,
	}
	if err := h.products.Create(ctx, product); err != nil {
		return nil, err
	}

	h.audit.Record("create_product", product.ID, map[string]interface{}{"name": product.Name})
	return graph.OK("Product created successfully."), nil
}

func (h *ProductHandler) updateProduct(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ID          string           `json:"id"`
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Cost        *decimal.Decimal `json:"cost"`
		Supply      *int             `json:"supply"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	// Every supplied field is validated before any is applied.
	if msg := validateProductFields(args.Name, args.Description, args.Cost, args.Supply); msg != "" {
		return graph.Fail(msg), nil
	}

	product, err := h.products.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return graph.Fail("Product not found."), nil
	}

	if args.Name != nil {
		product.Name = *args.Name
	}
	if args.Description != nil {
		product.Description = *args.Description
	}
	if args.Cost != nil {
		product.Cost = *args.Cost
	}
	if args.Supply != nil {
		product.Supply = *args.Supply
	}
	if err := h.products.Save(ctx, product); err != nil {
		return nil, err
	}

	h.audit.Record("update_product", product.ID, map[string]interface{}{"name": product.Name})
	return graph.OK("Product updated successfully."), nil
}

func (h *ProductHandler) deleteProduct(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	product, err := h.products.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return graph.Fail("Product not found."), nil
	}

	if err := h.products.Delete(ctx, product); err != nil {
		return nil, err
	}

	h.audit.Record("delete_product", product.ID, map[string]interface{}{"name": product.Name})
	return graph.OK("Product deleted successfully."), nil
}

func (h *ProductHandler) allProducts(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	return h.products.All(ctx)
}

func (h *ProductHandler) productByID(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	product, err := h.products.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return product, nil
}

func (h *ProductHandler) searchProducts(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Name               string           `json:"name"`
		ProductDescription string           `json:"productDescription"`
		MinCost            *decimal.Decimal `json:"minCost"`
		MaxCost            *decimal.Decimal `json:"maxCost"`
		MinSupply          *int             `json:"minSupply"`
		MaxSupply          *int             `json:"maxSupply"`
		StartDate          string           `json:"startDate"`
		EndDate            string           `json:"endDate"`
		Tags               []string         `json:"tags"`
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

	return h.products.Search(ctx, repository.ProductFilter{
		Name:        args.Name,
		Description: args.ProductDescription,
		MinCost:     args.MinCost,
		MaxCost:     args.MaxCost,
		MinSupply:   args.MinSupply,
		MaxSupply:   args.MaxSupply,
		StartDate:   startDate,
		EndDate:     endDate,
		TagIDs:      args.Tags,
	})
}

type ProductsPerMonth struct {
	Month        string `json:"month"`
	ProductCount int    `json:"productCount"`
}

// productsPerMonth returns exactly lastNMonths entries in chronological
// order, zero-filled for months with no products.
func (h *ProductHandler) productsPerMonth(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
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
	rows, err := h.products.CreatedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range rows {
		counts[p.CreatedAt.Format(monthLabel)]++
	}

	out := make([]ProductsPerMonth, 0, args.LastNMonths)
	for i := 0; i < args.LastNMonths; i++ {
		label := start.AddDate(0, i, 0).Format(monthLabel)
		out = append(out, ProductsPerMonth{Month: label, ProductCount: counts[label]})
	}
	return out, nil
}
