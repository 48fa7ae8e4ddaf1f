package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

func newTagHandler(t *testing.T) (*TagHandler, *repository.TagRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	tags := repository.NewTagRepository(db)
	products := repository.NewProductRepository(db)
	return NewTagHandler(tags, products, nil, testLogger), tags, db
}

func TestTagOperationsAreAdminGated(t *testing.T) {
	h, _, _ := newTagHandler(t)
	ctx := context.Background()
	empty := rawArgs(t, map[string]interface{}{})

	ops := map[string]func(context.Context, *auth.Identity, json.RawMessage) (interface{}, error){
		"createTag":       h.createTag,
		"updateTag":       h.updateTag,
		"deleteTag":       h.deleteTag,
		"addTagToProduct": h.addTagToProduct,
		"allTags":         h.allTags,
		"tagById":         h.tagByID,
		"searchTags":      h.searchTags,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op(ctx, nil, empty)
			require.ErrorIs(t, err, auth.ErrAuthenticationRequired)

			_, err = op(ctx, userCaller(), empty)
			require.ErrorIs(t, err, auth.ErrPermissionDenied)
		})
	}
}

func TestCreateAndUpdateTag(t *testing.T) {
	h, tags, _ := newTagHandler(t)
	ctx := context.Background()

	result, err := h.createTag(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"name":        "electronics",
		"description": "Gadgets",
	}))
	require.NoError(t, err)
	requireOK(t, result, "Tag created successfully.")

	all, err := tags.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	result, err = h.updateTag(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"id":   all[0].ID,
		"name": "gadgets",
	}))
	require.NoError(t, err)
	requireOK(t, result, "Tag updated successfully.")

	updated, err := tags.FindByID(ctx, all[0].ID)
	require.NoError(t, err)
	require.Equal(t, "gadgets", updated.Name)
	require.Equal(t, "Gadgets", updated.Description)
}

func TestUpdateTagNotFound(t *testing.T) {
	h, _, _ := newTagHandler(t)

	result, err := h.updateTag(context.Background(), adminCaller(), rawArgs(t, map[string]interface{}{
		"id": "missing", "name": "x",
	}))
	require.NoError(t, err)
	requireFail(t, result, "Tag not found.")
}

func TestDeleteTagClearsAssociations(t *testing.T) {
	h, _, db := newTagHandler(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Monitor", "200.00", 5)
	tag := &models.Tag{Name: "electronics"}
	require.NoError(t, db.Create(tag).Error)
	require.NoError(t, repository.NewProductRepository(db).AddTag(ctx, product, tag))

	result, err := h.deleteTag(ctx, adminCaller(), rawArgs(t, map[string]interface{}{"id": tag.ID}))
	require.NoError(t, err)
	requireOK(t, result, "Tag deleted successfully.")

	var joinCount int64
	require.NoError(t, db.Table("product_tags").Where("tag_id = ?", tag.ID).Count(&joinCount).Error)
	require.Zero(t, joinCount)
}

func TestAddTagToProductIsIdempotent(t *testing.T) {
	h, _, db := newTagHandler(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Monitor", "200.00", 5)
	tag := &models.Tag{Name: "electronics"}
	require.NoError(t, db.Create(tag).Error)

	args := rawArgs(t, map[string]interface{}{"productId": product.ID, "tagId": tag.ID})
	for i := 0; i < 2; i++ {
		result, err := h.addTagToProduct(ctx, adminCaller(), args)
		require.NoError(t, err)
		requireOK(t, result, "Tag added to product successfully.")
	}

	var joinCount int64
	require.NoError(t, db.Table("product_tags").Where("product_id = ?", product.ID).Count(&joinCount).Error)
	require.Equal(t, int64(1), joinCount)
}

func TestAddTagToProductMissingTargets(t *testing.T) {
	h, _, db := newTagHandler(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Monitor", "200.00", 5)

	result, err := h.addTagToProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"productId": "missing", "tagId": "missing",
	}))
	require.NoError(t, err)
	requireFail(t, result, "Product not found.")

	result, err = h.addTagToProduct(ctx, adminCaller(), rawArgs(t, map[string]interface{}{
		"productId": product.ID, "tagId": "missing",
	}))
	require.NoError(t, err)
	requireFail(t, result, "Tag not found.")
}

func TestSearchTags(t *testing.T) {
	h, _, db := newTagHandler(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Tag{Name: "electronics", Description: "Gadgets"}).Error)
	require.NoError(t, db.Create(&models.Tag{Name: "furniture", Description: "Desks and chairs"}).Error)

	result, err := h.searchTags(ctx, adminCaller(), rawArgs(t, map[string]interface{}{"name": "ELECT"}))
	require.NoError(t, err)
	found := result.([]models.Tag)
	require.Len(t, found, 1)
	require.Equal(t, "electronics", found[0].Name)
}
