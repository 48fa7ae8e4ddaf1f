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

// TagHandler covers the tag catalog. Tags are reference data curated by
// admins; every operation here, queries included, is admin-gated.
type TagHandler struct {
	tags     *repository.TagRepository
	products *repository.ProductRepository
	audit    *repository.AuditLogger
	logger   *zap.Logger
}

func NewTagHandler(tags *repository.TagRepository, products *repository.ProductRepository, audit *repository.AuditLogger, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, products: products, audit: audit, logger: logger}
}

func (h *TagHandler) Register(d *graph.Dispatcher) {
	d.Register("createTag", h.createTag)
	d.Register("updateTag", h.updateTag)
	d.Register("deleteTag", h.deleteTag)
	d.Register("addTagToProduct", h.addTagToProduct)
	d.Register("allTags", h.allTags)
	d.Register("tagById", h.tagByID)
	d.Register("searchTags", h.searchTags)
}

func (h *TagHandler) createTag(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	tag := &models.Tag{Name: args.Name, Description: args.Description}
	if err := h.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	h.audit.Record("create_tag", tag.ID, map[string]interface{}{"name": tag.Name})
	return graph.OK("Tag created successfully."), nil
}

func (h *TagHandler) updateTag(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ID          string  `json:"id"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	tag, err := h.tags.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return graph.Fail("Tag not found."), nil
	}

	if args.Name != nil {
		tag.Name = *args.Name
	}
	if args.Description != nil {
		tag.Description = *args.Description
	}
	if err := h.tags.Save(ctx, tag); err != nil {
		return nil, err
	}

	h.audit.Record("update_tag", tag.ID, map[string]interface{}{"name": tag.Name})
	return graph.OK("Tag updated successfully."), nil
}

func (h *TagHandler) deleteTag(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	tag, err := h.tags.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return graph.Fail("Tag not found."), nil
	}

	if err := h.tags.Delete(ctx, tag); err != nil {
		return nil, err
	}

	h.audit.Record("delete_tag", tag.ID, map[string]interface{}{"name": tag.Name})
	return graph.OK("Tag deleted successfully."), nil
}

// addTagToProduct is idempotent: associating an already-associated tag
// succeeds without effect.
func (h *TagHandler) addTagToProduct(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ProductID string `json:"productId"`
		TagID     string `json:"tagId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	product, err := h.products.FindByID(ctx, args.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return graph.Fail("Product not found."), nil
	}

	tag, err := h.tags.FindByID(ctx, args.TagID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return graph.Fail("Tag not found."), nil
	}

	if err := h.products.AddTag(ctx, product, tag); err != nil {
		return nil, err
	}

	h.audit.Record("add_tag_to_product", product.ID, map[string]interface{}{"tag_id": tag.ID})
	return graph.OK("Tag added to product successfully."), nil
}

func (h *TagHandler) allTags(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return h.tags.All(ctx)
}

func (h *TagHandler) tagByID(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	tag, err := h.tags.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, nil
	}
	return tag, nil
}

func (h *TagHandler) searchTags(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}

	var args struct {
		Name           string `json:"name"`
		TagDescription string `json:"tagDescription"`
		StartDate      string `json:"startDate"`
		EndDate        string `json:"endDate"`
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

	return h.tags.Search(ctx, repository.TagFilter{
		Name:        args.Name,
		Description: args.TagDescription,
		StartDate:   startDate,
		EndDate:     endDate,
	})
}
