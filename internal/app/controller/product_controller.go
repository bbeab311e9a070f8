package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
	variantService service.VariantService
	imageService   service.ImageService
}

func NewProductController(
	productService service.ProductService,
	variantService service.VariantService,
	imageService service.ImageService,
) *ProductController {
	return &ProductController{
		productService: productService,
		variantService: variantService,
		imageService:   imageService,
	}
}

type ReplaceVariantsRequest struct {
	Variants []service.VariantDraft `json:"variants"`
}

type ReplaceImagesRequest struct {
	Images []service.ImageInput `json:"images"`
}

type SetVariantImageRequest struct {
	ImageURL string `json:"image_url"` // empty clears the image
}

// ListProducts returns decorated products
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	categoryID, ok := optionalUintQuery(c, "category_id")
	if !ok {
		return
	}
	sectionID, ok := optionalUintQuery(c, "section_id")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}

	products, err := ctrl.productService.ListProducts(c.Request.Context(), service.ProductListOptions{
		CategoryID: categoryID,
		SectionID:  sectionID,
		ActiveOnly: boolQuery(c, "active_only"),
		Search:     strings.TrimSpace(c.Query("search")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		apperrors.Respond(c, err, "products", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// CheckSKU reports whether a SKU is free
// GET /api/v1/products/sku-availability
func (ctrl *ProductController) CheckSKU(c *gin.Context) {
	sku := strings.TrimSpace(c.Query("sku"))
	excludeID, ok := optionalUintQuery(c, "exclude_id")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sku":       sku,
		"available": ctrl.productService.IsSkuAvailable(c.Request.Context(), sku, excludeID),
	})
}

// GetProduct returns one product with its images and variants
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err, "product", "load")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetPrimaryImage returns the product's display image, null when it has none
// GET /api/v1/products/:id/primary-image
func (ctrl *ProductController) GetPrimaryImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	url, err := ctrl.imageService.PrimaryImage(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err, "product", "load primary image of")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}

// ListImages returns general images, or one variant's images
// GET /api/v1/products/:id/images
func (ctrl *ProductController) ListImages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := optionalUintQuery(c, "variant_id")
	if !ok {
		return
	}
	images, err := ctrl.imageService.ListImages(c.Request.Context(), id, variantID)
	if err != nil {
		apperrors.Respond(c, err, "product", "list images of")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"images": images,
		"count":  len(images),
	})
}

// CreateProduct creates a product with its images and variants (staff only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), actor, req)
	if err != nil {
		apperrors.Respond(c, err, "product", "create")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct saves the edit form; omitted images or variants are kept (staff only)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), actor, id, req)
	if err != nil {
		apperrors.Respond(c, err, "product", "update")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct soft-deletes a product (staff only)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.productService.DeleteProduct(c.Request.Context(), actor, id); err != nil {
		apperrors.Respond(c, err, "product", "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// ReplaceVariants replaces the whole variant set (staff only)
// PUT /api/v1/products/:id/variants
func (ctrl *ProductController) ReplaceVariants(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReplaceVariantsRequest
	if !bindJSON(c, &req) {
		return
	}

	variants, err := ctrl.variantService.ReplaceVariants(c.Request.Context(), actor, id, req.Variants)
	if err != nil {
		apperrors.Respond(c, err, "product", "replace variants of")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"variants": variants,
		"count":    len(variants),
	})
}

// ReplaceImages replaces the general images (staff only)
// PUT /api/v1/products/:id/images
func (ctrl *ProductController) ReplaceImages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReplaceImagesRequest
	if !bindJSON(c, &req) {
		return
	}

	images, err := ctrl.imageService.SetGeneralImages(c.Request.Context(), actor, id, req.Images)
	if err != nil {
		apperrors.Respond(c, err, "product", "replace images of")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"images": images,
		"count":  len(images),
	})
}

// SetVariantImage sets or clears one variant's image (staff only)
// PUT /api/v1/products/:id/variants/:variant_id/image
func (ctrl *ProductController) SetVariantImage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := parseIDParam(c, "variant_id")
	if !ok {
		return
	}
	var req SetVariantImageRequest
	if !bindJSON(c, &req) {
		return
	}

	image, err := ctrl.imageService.SetVariantImage(c.Request.Context(), actor, id, variantID, strings.TrimSpace(req.ImageURL))
	if err != nil {
		apperrors.Respond(c, err, "variant", "replace image of")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": image})
}
