package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CatalogController struct {
	catalogService service.CatalogService
}

func NewCatalogController(catalogService service.CatalogService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
	}
}

// ListSections returns sections in display order
// GET /api/v1/sections
func (ctrl *CatalogController) ListSections(c *gin.Context) {
	sections, err := ctrl.catalogService.ListSections(c.Request.Context(), boolQuery(c, "active_only"))
	if err != nil {
		apperrors.Respond(c, err, "sections", "list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sections": sections,
		"count":    len(sections),
	})
}

// CreateSection creates a section (staff only)
// POST /api/v1/sections
func (ctrl *CatalogController) CreateSection(c *gin.Context) {
	ctrl.saveSection(c, nil)
}

// UpdateSection replaces a section's fields (staff only)
// PUT /api/v1/sections/:id
func (ctrl *CatalogController) UpdateSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctrl.saveSection(c, &id)
}

func (ctrl *CatalogController) saveSection(c *gin.Context, id *uint) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.SectionInput
	if !bindJSON(c, &req) {
		return
	}
	req.ID = id

	section, err := ctrl.catalogService.UpsertSection(c.Request.Context(), actor, req)
	if err != nil {
		apperrors.Respond(c, err, "section", "save")
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"section": section})
}

// DeleteSection removes a section and detaches its categories (staff only)
// DELETE /api/v1/sections/:id
func (ctrl *CatalogController) DeleteSection(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.catalogService.DeleteSection(c.Request.Context(), actor, id); err != nil {
		apperrors.Respond(c, err, "section", "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Section deleted successfully"})
}

// ListCategories returns categories, optionally of one section
// GET /api/v1/categories
func (ctrl *CatalogController) ListCategories(c *gin.Context) {
	sectionID, ok := optionalUintQuery(c, "section_id")
	if !ok {
		return
	}
	categories, err := ctrl.catalogService.ListCategories(c.Request.Context(), service.CategoryFilter{
		SectionID:  sectionID,
		ActiveOnly: boolQuery(c, "active_only"),
	})
	if err != nil {
		apperrors.Respond(c, err, "categories", "list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// CreateCategory creates a category (staff only)
// POST /api/v1/categories
func (ctrl *CatalogController) CreateCategory(c *gin.Context) {
	ctrl.saveCategory(c, nil)
}

// UpdateCategory replaces a category's fields (staff only)
// PUT /api/v1/categories/:id
func (ctrl *CatalogController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctrl.saveCategory(c, &id)
}

func (ctrl *CatalogController) saveCategory(c *gin.Context, id *uint) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CategoryInput
	if !bindJSON(c, &req) {
		return
	}
	req.ID = id

	category, err := ctrl.catalogService.UpsertCategory(c.Request.Context(), actor, req)
	if err != nil {
		apperrors.Respond(c, err, "category", "save")
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"category": category})
}

// ReplaceCategoryOptions swaps the color and size option lists (staff only)
// PUT /api/v1/categories/:id/options
func (ctrl *CatalogController) ReplaceCategoryOptions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.CategoryOptionsInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := ctrl.catalogService.ReplaceCategoryOptions(c.Request.Context(), actor, id, req)
	if err != nil {
		apperrors.Respond(c, err, "category", "replace options of")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Category options replaced", map[string]interface{}{
		"category_id": id,
		"colors":      len(category.ColorOptions),
		"sizes":       len(category.SizeOptions),
	})
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory removes a category and detaches its products (staff only)
// DELETE /api/v1/categories/:id
func (ctrl *CatalogController) DeleteCategory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.catalogService.DeleteCategory(c.Request.Context(), actor, id); err != nil {
		apperrors.Respond(c, err, "category", "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
