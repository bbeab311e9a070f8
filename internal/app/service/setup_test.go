package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/events"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	adminActor    = model.Actor{UserID: 1, Role: model.RoleAdmin}
	managerActor  = model.Actor{UserID: 2, Role: model.RoleManager}
	employeeActor = model.Actor{UserID: 3, Role: model.RoleEmployee}
	customerActor = model.Actor{UserID: 4, Role: model.RoleCustomer}
)

type catalogFixture struct {
	db       *gorm.DB
	repos    CatalogRepositories
	opts     Options
	catalog  CatalogService
	products ProductService
	variants VariantService
	images   ImageService
}

func testOptions() Options {
	return Options{
		Timeouts: Timeouts{Read: time.Second, Write: time.Second},
		Locker:   NewMemoryLocker(),
		Now:      func() time.Time { return testNow },
	}
}

func setupCatalogServiceTest(t *testing.T) *catalogFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	repos := CatalogRepositories{
		Sections:   repository.NewSectionRepository(testDB),
		Categories: repository.NewCategoryRepository(testDB),
		Products:   repository.NewProductRepository(testDB),
		Variants:   repository.NewVariantRepository(testDB),
		Images:     repository.NewImageRepository(testDB),
	}
	opts := testOptions()
	guard := NewSKUGuard(repos.Products, repos.Variants, opts)

	return &catalogFixture{
		db:       testDB,
		repos:    repos,
		opts:     opts,
		catalog:  NewCatalogService(repos, opts),
		products: NewProductService(repos, guard, opts),
		variants: NewVariantService(repos, guard, opts),
		images:   NewImageService(repos, opts),
	}
}

func (f *catalogFixture) createProduct(t *testing.T, input ProductInput) *model.Product {
	t.Helper()
	product, err := f.products.CreateProduct(context.Background(), adminActor, input)
	require.NoError(t, err)
	return product
}

func tshirtInput() ProductInput {
	return ProductInput{
		Name:          "T-Shirt",
		SKU:           "TS-01",
		Price:         100,
		StockQuantity: 10,
		Images:        []ImageInput{{URL: "https://cdn.example.com/ts-front.jpg"}},
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func uintPtr(u uint) *uint    { return &u }
func floatPtr(f float64) *float64 {
	return &f
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderStatusChanged
	err    error
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, event events.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []events.OrderStatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderStatusChanged(nil), p.events...)
}
