package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

func newProductHandler(t *testing.T) (*ProductHandler, *repository.ProductRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	return NewProductHandler(products, nil, testLogger), products, db
}

func TestCreateProduct(t *testing.T) {
	h, products, _ := newProductHandler(t)
	ctx := context.Background()

	result, err := h.createProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"name":        "Keyboard",
		"description": "Mechanical keyboard",
		"cost":        "49.99",
		"supply":      10,
	}))
	require.NoError(t, err)
	requireOK(t, result, "Product created successfully.")

	all, err := products.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Keyboard", all[0].Name)
	require.Equal(t, "49.99", all[0].Cost.StringFixed(2))
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	h, _, _ := newProductHandler(t)
	ctx := context.Background()
	args := rawArgs(t, map[string]interface{}{
		"name": "Keyboard", "description": "x", "cost": "1.00", "supply": 1,
	})

	_, err := h.createProduct(ctx, nil, args)
	require.ErrorIs(t, err, auth.ErrAuthenticationRequired)

	_, err = h.createProduct(ctx, userCaller(), args)
	require.ErrorIs(t, err, auth.ErrPermissionDenied)
}

func TestCreateProductValidation(t *testing.T) {
	h, _, _ := newProductHandler(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		args    map[string]interface{}
		message string
	}{
		{"empty name", map[string]interface{}{"name": "  ", "description": "d", "cost": "1.00", "supply": 1}, "Name cannot be empty."},
		{"empty description", map[string]interface{}{"name": "n", "description": "", "cost": "1.00", "supply": 1}, "Description cannot be empty."},
		{"negative cost", map[string]interface{}{"name": "n", "description": "d", "cost": "-1.00", "supply": 1}, "Cost must be a positive value."},
		{"negative supply", map[string]interface{}{"name": "n", "description": "d", "cost": "1.00", "supply": -1}, "Supply must be a positive value."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := h.createProduct(ctx, adminCaller(), rawArgs(t, tc.args))
			require.NoError(t, err)
			requireFail(t, result, tc.message)
		})
	}
}

func TestUpdateProductPartial(t *testing.T) {
	h, products, db := newProductHandler(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Mouse", "15.00", 5)

	result, err := h.updateProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"id":   product.ID,
		"cost": "17.50",
	}))
	require.NoError(t, err)
	requireOK(t, result, "Product updated successfully.")

	updated, err := products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Mouse", updated.Name)
	require.Equal(t, "17.50", updated.Cost.StringFixed(2))
	require.Equal(t, 5, updated.Supply)
}

func TestUpdateProductValidatesBeforeApplying(t *testing.T) {
	h, products, db := newProductHandler(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Mouse", "15.00", 5)

	// Valid name together with an invalid cost must leave both untouched.
	result, err := h.updateProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"id":   product.ID,
		"name": "Trackball",
		"cost": "-2.00",
	}))
	require.NoError(t, err)
	requireFail(t, result, "Cost must be a positive value.")

	unchanged, err := products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Mouse", unchanged.Name)
	require.Equal(t, "15.00", unchanged.Cost.StringFixed(2))
}

func TestUpdateProductNotFound(t *testing.T) {
	h, _, _ := newProductHandler(t)

	result, err := h.updateProduct(context.Background(), adminCaller(), rawArgs(t, map[string]interface{}{
		"id":   "missing",
		"name": "Trackball",
	}))
	require.NoError(t, err)
	requireFail(t, result, "Product not found.")
}

func TestDeleteProductCascadesReviews(t *testing.T) {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	h := NewProductHandler(products, nil, testLogger)
	ctx := context.Background()

	product := seedProduct(t, db, "Desk", "120.00", 2)
	review := &models.Review{Title: "Solid", Rating: 8, ProductID: product.ID, UserID: "someone"}
	require.NoError(t, db.Create(review).Error)

	result, err := h.deleteProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{"id": product.ID}))
	require.NoError(t, err)
	requireOK(t, result, "Product deleted successfully.")

	var reviewCount int64
	require.NoError(t, db.Model(&models.Review{}).Where("product_id = ?", product.ID).Count(&reviewCount).Error)
	require.Zero(t, reviewCount)
}

func TestProductByIDMissReturnsNil(t *testing.T) {
	h, _, _ := newProductHandler(t)

	result, err := h.productByID(context.Background(), nil, rawArgs(t, map[string]interface{}{"id": "missing"}))
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestSearchProducts(t *testing.T) {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	h := NewProductHandler(products, nil, testLogger)
	ctx := context.Background()

	seedProduct(t, db, "Standing Desk", "300.00", 4)
	seedProduct(t, db, "Desk Lamp", "25.00", 30)
	seedProduct(t, db, "Chair", "150.00", 8)

	result, err := h.searchProducts(ctx, nil, rawArgs(t, map[string]interface{}{"name": "desk"}))
	require.NoError(t, err)
	found := result.([]models.Product)
	require.Len(t, found, 2)

	result, err = h.searchProducts(ctx, nil, rawArgs(t, map[string]interface{}{
		"minCost": "100.00",
		"maxCost": "200.00",
	}))
	require.NoError(t, err)
	found = result.([]models.Product)
	require.Len(t, found, 1)
	require.Equal(t, "Chair", found[0].Name)
}

func TestSearchProductsByTag(t *testing.T) {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	h := NewProductHandler(products, nil, testLogger)
	ctx := context.Background()

	tagged := seedProduct(t, db, "Monitor", "200.00", 6)
	seedProduct(t, db, "Cable", "5.00", 100)
	tag := &models.Tag{Name: "electronics"}
	require.NoError(t, db.Create(tag).Error)
	require.NoError(t, products.AddTag(ctx, tagged, tag))

	result, err := h.searchProducts(ctx, nil, rawArgs(t, map[string]interface{}{
		"tags": []string{tag.ID},
	}))
	require.NoError(t, err)
	found := result.([]models.Product)
	require.Len(t, found, 1)
	require.Equal(t, tagged.ID, found[0].ID)
}

func TestProductsPerMonthZeroFills(t *testing.T) {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	h := NewProductHandler(products, nil, testLogger)
	ctx := context.Background()

	product := seedProduct(t, db, "Recent", "10.00", 1)
	// Pin the creation date into the current month.
	require.NoError(t, db.Model(product).Update("created_at", time.Now()).Error)

	result, err := h.productsPerMonth(ctx, adminCaller(), rawArgs(t, map[string]interface{}{"lastNMonths": 4}))
	require.NoError(t, err)

	rows := result.([]ProductsPerMonth)
	require.Len(t, rows, 4)
	for _, row := range rows[:3] {
		require.Zero(t, row.ProductCount, "month %s", row.Month)
	}
	require.Equal(t, 1, rows[3].ProductCount)
	require.Equal(t, time.Now().Format(monthLabel), rows[3].Month)
}

func TestProductsPerMonthRejectsZero(t *testing.T) {
	h, _, _ := newProductHandler(t)

	_, err := h.productsPerMonth(context.Background(), adminCaller(), rawArgs(t, map[string]interface{}{"lastNMonths": 0}))
	require.Error(t, err)
	require.Equal(t, "lastNMonths must be at least 1.", err.Error())
}

func TestProductsPerMonthRequiresAdmin(t *testing.T) {
	h, _, _ := newProductHandler(t)

	_, err := h.productsPerMonth(context.Background(), userCaller(), rawArgs(t, map[string]interface{}{"lastNMonths": 3}))
	require.ErrorIs(t, err, auth.ErrPermissionDenied)
}
