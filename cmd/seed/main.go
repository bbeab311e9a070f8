package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/auth"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/importer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ctx := context.Background()

	// The import runs as a staff service account, authenticated like any other caller
	provider := auth.NewCachingProvider(auth.SignerSource{
		UserID: 1,
		Role:   model.RoleAdmin,
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.AccessTokenExpiry,
	}, cfg.Timeouts.TokenFetch)
	token, err := provider.GetToken(ctx, 0)
	if err != nil {
		log.Fatal("Failed to obtain import credential:", err)
	}
	actor, err := auth.ActorFromToken(token, cfg.JWT.Secret)
	if err != nil {
		log.Fatal("Import credential rejected:", err)
	}

	opts := service.Options{
		Timeouts: service.Timeouts{Read: cfg.Timeouts.Read, Write: cfg.Timeouts.Write},
	}
	repos := service.CatalogRepositories{
		Sections:   repository.NewSectionRepository(db.GetDB()),
		Categories: repository.NewCategoryRepository(db.GetDB()),
		Products:   repository.NewProductRepository(db.GetDB()),
		Variants:   repository.NewVariantRepository(db.GetDB()),
		Images:     repository.NewImageRepository(db.GetDB()),
	}
	guard := service.NewSKUGuard(repos.Products, repos.Variants, opts)
	catalogService := service.NewCatalogService(repos, opts)
	productService := service.NewProductService(repos, guard, opts)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	result, err := importer.ReadFile(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Reading sheet: %s\n", result.Sheet)
	for _, skipped := range result.Skipped {
		fmt.Printf("  skipped %v\n", skipped)
	}
	fmt.Printf("Total products to import: %d\n", len(result.Products))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	resolver := &catalogResolver{
		ctx:        ctx,
		actor:      actor,
		catalog:    catalogService,
		sections:   make(map[string]uint),
		categories: make(map[string]uint),
	}
	if err := resolver.load(); err != nil {
		log.Fatal("Failed to load catalog:", err)
	}

	imported, taken, failed := 0, 0, 0
	for _, p := range result.Products {
		if !productService.IsSkuAvailable(ctx, p.Input.SKU, nil) {
			taken++
			fmt.Printf("  row %d: sku %s already in use, skipped\n", p.Row, p.Input.SKU)
			continue
		}

		categoryID, err := resolver.category(p.Section, p.Category)
		if err != nil {
			failed++
			fmt.Printf("  row %d: %v\n", p.Row, err)
			continue
		}
		p.Input.CategoryID = categoryID

		if _, err := productService.CreateProduct(ctx, actor, p.Input); err != nil {
			failed++
			fmt.Printf("  row %d: %v\n", p.Row, err)
			continue
		}
		imported++
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Imported: %d\n", imported)
	fmt.Printf("  SKU already in use: %d\n", taken)
	fmt.Printf("  Failed: %d\n", failed)
	fmt.Printf("  Skipped rows: %d\n", len(result.Skipped))
}

// catalogResolver maps section and category names to IDs, creating missing
// entries on first use. Names match case-insensitively.
type catalogResolver struct {
	ctx        context.Context
	actor      model.Actor
	catalog    service.CatalogService
	sections   map[string]uint
	categories map[string]uint // keyed by section key + "/" + category key
}

func (r *catalogResolver) load() error {
	sections, err := r.catalog.ListSections(r.ctx, false)
	if err != nil {
		return err
	}
	names := make(map[uint]string, len(sections))
	for _, s := range sections {
		r.sections[nameKey(s.Name)] = s.ID
		names[s.ID] = nameKey(s.Name)
	}

	categories, err := r.catalog.ListCategories(r.ctx, service.CategoryFilter{})
	if err != nil {
		return err
	}
	for _, c := range categories {
		section := ""
		if c.SectionID != nil {
			section = names[*c.SectionID]
		}
		r.categories[section+"/"+nameKey(c.Name)] = c.ID
	}
	return nil
}

func (r *catalogResolver) section(name string) (*uint, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	key := nameKey(name)
	if id, ok := r.sections[key]; ok {
		return &id, nil
	}
	created, err := r.catalog.UpsertSection(r.ctx, r.actor, service.SectionInput{Name: name})
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", name, err)
	}
	r.sections[key] = created.ID
	return &created.ID, nil
}

func (r *catalogResolver) category(sectionName, categoryName string) (*uint, error) {
	if strings.TrimSpace(categoryName) == "" {
		return nil, nil
	}
	sectionID, err := r.section(sectionName)
	if err != nil {
		return nil, err
	}
	key := nameKey(sectionName) + "/" + nameKey(categoryName)
	if id, ok := r.categories[key]; ok {
		return &id, nil
	}
	created, err := r.catalog.UpsertCategory(r.ctx, r.actor, service.CategoryInput{Name: categoryName, SectionID: sectionID})
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", categoryName, err)
	}
	r.categories[key] = created.ID
	return &created.ID, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
