package controller

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerProductRoutes(app *testApp) {
	r := app.router
	r.GET("/products", app.product.ListProducts)
	r.GET("/products/sku-availability", app.product.CheckSKU)
	r.GET("/products/:id", app.product.GetProduct)
	r.GET("/products/:id/primary-image", app.product.GetPrimaryImage)
	r.GET("/products/:id/images", app.product.ListImages)
	r.POST("/products", app.product.CreateProduct)
	r.PUT("/products/:id", app.product.UpdateProduct)
	r.DELETE("/products/:id", app.product.DeleteProduct)
	r.PUT("/products/:id/variants", app.product.ReplaceVariants)
	r.PUT("/products/:id/images", app.product.ReplaceImages)
	r.PUT("/products/:id/variants/:variant_id/image", app.product.SetVariantImage)
}

func shirtBody() map[string]interface{} {
	return map[string]interface{}{
		"name":           "T-Shirt",
		"sku":            "TS-01",
		"price":          100,
		"original_price": 125,
		"stock_quantity": 10,
		"images":         []map[string]interface{}{{"url": "https://cdn.example.com/ts-front.jpg"}},
		"variants": []map[string]interface{}{
			{"color": "Red", "size": "S", "stock_quantity": 5, "sku": "TS-01-RS"},
			{"color": "Red", "size": "M", "stock_quantity": 3, "sku": "TS-01-RM"},
		},
	}
}

func createShirt(t *testing.T, app *testApp) map[string]interface{} {
	w := app.do(t, http.MethodPost, "/products", shirtBody())
	requireStatus(t, w, http.StatusCreated)
	return decode(t, w)["product"].(map[string]interface{})
}

func TestProductController_CreateAndGet(t *testing.T) {
	app := setupControllerTest(t)
	registerProductRoutes(app)

	created := createShirt(t, app)
	id := uint(created["id"].(float64))

	assert.Equal(t, float64(20), created["discount_percentage"])
	assert.Equal(t, float64(8), created["display_stock"])
	assert.Equal(t, float64(2), created["variant_count"])
	assert.Equal(t, "https://cdn.example.com/ts-front.jpg", created["primary_image_url"])

	w := app.do(t, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	requireStatus(t, w, http.StatusOK)
	product := decode(t, w)["product"].(map[string]interface{})
	variants := product["variants"].([]interface{})
	require.Len(t, variants, 2)
	assert.Equal(t, "Red - S", variants[0].(map[string]interface{})["variant_name"])

	w = app.do(t, http.MethodGet, "/products", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = app.do(t, http.MethodGet, fmt.Sprintf("/products/%d/primary-image", id), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "https://cdn.example.com/ts-front.jpg", decode(t, w)["image_url"])
}

func TestProductController_Errors(t *testing.T) {
	app := setupControllerTest(t)
	registerProductRoutes(app)
	createShirt(t, app)

	t.Run("Validation error lists fields", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/products", map[string]interface{}{"name": "", "sku": "X-1", "price": 0})
		requireStatus(t, w, http.StatusBadRequest)
		body := decodeError(t, w)
		assert.Equal(t, apperrors.ValidationInvalidInput, body.Error)
		assert.Contains(t, body.Fields, "name")
		assert.Contains(t, body.Fields, "price")
	})

	t.Run("Duplicate sku is a conflict", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/products", shirtBody())
		requireStatus(t, w, http.StatusConflict)
		body := decodeError(t, w)
		assert.Equal(t, apperrors.CatalogSKUInUse, body.Error)
		assert.Contains(t, body.Fields, "sku")
	})

	t.Run("Malformed body", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/products", "not an object")
		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Invalid id", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/products/abc", nil)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, apperrors.ValidationInvalidID, decodeError(t, w).Error)
	})

	t.Run("Unknown product", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/products/999", nil)
		requireStatus(t, w, http.StatusNotFound)
	})

	t.Run("Employee cannot write", func(t *testing.T) {
		app.actor = &employee
		defer func() { app.actor = &staff }()

		w := app.do(t, http.MethodDelete, "/products/1", nil)
		requireStatus(t, w, http.StatusForbidden)
	})

	t.Run("Unauthenticated write", func(t *testing.T) {
		app.actor = nil
		defer func() { app.actor = &staff }()

		w := app.do(t, http.MethodPost, "/products", shirtBody())
		requireStatus(t, w, http.StatusUnauthorized)
	})
}

func TestProductController_CheckSKU(t *testing.T) {
	app := setupControllerTest(t)
	registerProductRoutes(app)
	created := createShirt(t, app)
	id := uint(created["id"].(float64))

	tests := []struct {
		query     string
		available bool
	}{
		{query: "sku=TS-01", available: false},
		{query: "sku=TS-01-RM", available: false},
		{query: "sku=NEW-1", available: true},
		{query: fmt.Sprintf("sku=TS-01&exclude_id=%d", id), available: true},
		{query: "sku=", available: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := app.do(t, http.MethodGet, "/products/sku-availability?"+tt.query, nil)
			requireStatus(t, w, http.StatusOK)
			assert.Equal(t, tt.available, decode(t, w)["available"])
		})
	}
}

func TestProductController_ReplaceSets(t *testing.T) {
	app := setupControllerTest(t)
	registerProductRoutes(app)
	created := createShirt(t, app)
	id := uint(created["id"].(float64))

	w := app.do(t, http.MethodPut, fmt.Sprintf("/products/%d/variants", id), map[string]interface{}{
		"variants": []map[string]interface{}{{"size": "XL", "stock_quantity": 1}},
	})
	requireStatus(t, w, http.StatusOK)
	variants := decode(t, w)["variants"].([]interface{})
	require.Len(t, variants, 1)
	variant := variants[0].(map[string]interface{})
	assert.Equal(t, true, variant["is_default"])
	variantID := uint(variant["id"].(float64))

	w = app.do(t, http.MethodPut, fmt.Sprintf("/products/%d/images", id), map[string]interface{}{
		"images": []map[string]interface{}{
			{"url": "https://cdn.example.com/2.jpg", "order": 2},
			{"url": "https://cdn.example.com/1.jpg", "order": 1},
		},
	})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = app.do(t, http.MethodPut, fmt.Sprintf("/products/%d/variants/%d/image", id, variantID), map[string]interface{}{
		"image_url": "https://cdn.example.com/xl.jpg",
	})
	requireStatus(t, w, http.StatusOK)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/products/%d/images?variant_id=%d", id, variantID), nil)
	requireStatus(t, w, http.StatusOK)
	images := decode(t, w)["images"].([]interface{})
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn.example.com/xl.jpg", images[0].(map[string]interface{})["image_url"])

	w = app.do(t, http.MethodGet, fmt.Sprintf("/products/%d/primary-image", id), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "https://cdn.example.com/1.jpg", decode(t, w)["image_url"])
}

func TestProductController_UpdateAndDelete(t *testing.T) {
	app := setupControllerTest(t)
	registerProductRoutes(app)
	created := createShirt(t, app)
	id := uint(created["id"].(float64))

	w := app.do(t, http.MethodPut, fmt.Sprintf("/products/%d", id), map[string]interface{}{
		"name":  "Tee",
		"sku":   "TS-01",
		"price": 90,
	})
	requireStatus(t, w, http.StatusOK)
	product := decode(t, w)["product"].(map[string]interface{})
	assert.Equal(t, "Tee", product["name"])
	// omitted sets are kept
	assert.Equal(t, float64(2), product["variant_count"])

	w = app.do(t, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil)
	requireStatus(t, w, http.StatusOK)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	requireStatus(t, w, http.StatusNotFound)
}
