package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	staff    = model.Actor{UserID: 1, Role: model.RoleAdmin}
	employee = model.Actor{UserID: 3, Role: model.RoleEmployee}
)

type testApp struct {
	db      *gorm.DB
	router  *gin.Engine
	actor   *model.Actor
	catalog *CatalogController
	product *ProductController
	order   *OrderController
}

// setupControllerTest wires real services over an in-memory database. The
// actor middleware impersonates app.actor; nil means unauthenticated.
func setupControllerTest(t *testing.T) *testApp {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	repos := service.CatalogRepositories{
		Sections:   repository.NewSectionRepository(testDB),
		Categories: repository.NewCategoryRepository(testDB),
		Products:   repository.NewProductRepository(testDB),
		Variants:   repository.NewVariantRepository(testDB),
		Images:     repository.NewImageRepository(testDB),
	}
	opts := service.Options{
		Timeouts: service.Timeouts{Read: time.Second, Write: time.Second},
		Locker:   service.NewMemoryLocker(),
	}
	guard := service.NewSKUGuard(repos.Products, repos.Variants, opts)
	orders := repository.NewOrderRepository(testDB)
	mappings := repository.NewStatusMappingRepository(testDB)

	app := &testApp{
		db:      testDB,
		actor:   &staff,
		catalog: NewCatalogController(service.NewCatalogService(repos, opts)),
		product: NewProductController(
			service.NewProductService(repos, guard, opts),
			service.NewVariantService(repos, guard, opts),
			service.NewImageService(repos, opts),
		),
		order: NewOrderController(service.NewFulfillmentService(
			orders, mappings, service.NewStatusMapper(mappings, nil, opts), opts,
		)),
	}

	gin.SetMode(gin.TestMode)
	app.router = gin.New()
	app.router.Use(func(c *gin.Context) {
		if app.actor != nil {
			c.Set(middleware.ActorKey, *app.actor)
		}
		c.Next()
	})
	return app
}

func (app *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var response apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
