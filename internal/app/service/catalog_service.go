package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var (
	ErrSectionNotFound  = errors.New("section not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// CatalogRepositories bundles the data collaborators of the catalog.
type CatalogRepositories struct {
	Sections   repository.SectionRepository
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Variants   repository.VariantRepository
	Images     repository.ImageRepository
}

type SectionInput struct {
	ID           *uint   `json:"-"`
	Name         string  `json:"name" validate:"required,max=100"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	DisplayOrder int     `json:"display_order" validate:"gte=0"`
	IsActive     *bool   `json:"is_active"` // nil: active on create, unchanged on update
}

type CategoryInput struct {
	ID           *uint   `json:"-"`
	SectionID    *uint   `json:"section_id"`
	Name         string  `json:"name" validate:"required,max=100"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	DisplayOrder int     `json:"display_order" validate:"gte=0"`
	IsActive     *bool   `json:"is_active"`
}

type ColorOptionInput struct {
	Value    string  `json:"value" validate:"required,max=50"`
	HexCode  *string `json:"hex_code" validate:"omitempty,hexcolor"`
	IsActive *bool   `json:"is_active"`
}

type SizeOptionInput struct {
	Value    string  `json:"value" validate:"required,max=50"`
	Unit     *string `json:"unit" validate:"omitempty,max=20"`
	IsActive *bool   `json:"is_active"`
}

type CategoryOptionsInput struct {
	Colors []ColorOptionInput `json:"colors" validate:"dive"`
	Sizes  []SizeOptionInput  `json:"sizes" validate:"dive"`
}

type CategoryFilter struct {
	SectionID  *uint
	ActiveOnly bool
}

type CatalogService interface {
	ListSections(ctx context.Context, activeOnly bool) ([]model.Section, error)
	ListCategories(ctx context.Context, filter CategoryFilter) ([]model.Category, error)
	GetCategory(ctx context.Context, id uint) (*model.Category, error)
	UpsertSection(ctx context.Context, actor model.Actor, input SectionInput) (*model.Section, error)
	UpsertCategory(ctx context.Context, actor model.Actor, input CategoryInput) (*model.Category, error)
	DeleteSection(ctx context.Context, actor model.Actor, id uint) error
	DeleteCategory(ctx context.Context, actor model.Actor, id uint) error
	ReplaceCategoryOptions(ctx context.Context, actor model.Actor, categoryID uint, input CategoryOptionsInput) (*model.Category, error)
}

type catalogService struct {
	repos CatalogRepositories
	opts  Options
}

func NewCatalogService(repos CatalogRepositories, opts Options) CatalogService {
	return &catalogService{repos: repos, opts: opts.withDefaults()}
}

func (s *catalogService) ListSections(ctx context.Context, activeOnly bool) ([]model.Section, error) {
	sections, err := readWithRetry(ctx, s.opts, "list sections", func(ctx context.Context) ([]model.Section, error) {
		return s.repos.Sections.List(ctx, activeOnly)
	})
	if err != nil {
		logger.Error("Failed to list sections", err)
		return nil, apperrors.Wrap(err, "sections", "list")
	}

	sortSections(sections, s.opts.Locale)
	return sections, nil
}

func (s *catalogService) ListCategories(ctx context.Context, filter CategoryFilter) ([]model.Category, error) {
	categories, err := readWithRetry(ctx, s.opts, "list categories", func(ctx context.Context) ([]model.Category, error) {
		return s.repos.Categories.List(ctx, repository.CategoryFilter{
			SectionID:      filter.SectionID,
			ActiveOnly:     filter.ActiveOnly,
			IncludeOptions: true,
		})
	})
	if err != nil {
		logger.Error("Failed to list categories", err, map[string]interface{}{
			"section_id": filter.SectionID,
		})
		return nil, apperrors.Wrap(err, "categories", "list")
	}

	sortCategories(categories, s.opts.Locale)
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	category, err := readWithRetry(ctx, s.opts, "find category", func(ctx context.Context) (*model.Category, error) {
		return s.repos.Categories.FindByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "category", id, ErrCategoryNotFound, "load")
	}
	return category, nil
}

func (s *catalogService) UpsertSection(ctx context.Context, actor model.Actor, input SectionInput) (*model.Section, error) {
	const entity, action = "section", "save"

	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(entity, action, input); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	section := &model.Section{IsActive: true}
	if input.ID != nil {
		existing, err := readWithRetry(ctx, s.opts, "find section", func(ctx context.Context) (*model.Section, error) {
			return s.repos.Sections.FindByID(ctx, *input.ID)
		})
		if err != nil {
			return nil, notFoundOr(err, entity, *input.ID, ErrSectionNotFound, action)
		}
		section = existing
	}

	section.Name = input.Name
	section.Description = normalized(input.Description)
	section.Icon = normalized(input.Icon)
	section.DisplayOrder = input.DisplayOrder
	if input.IsActive != nil {
		section.IsActive = *input.IsActive
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	var err error
	if input.ID == nil {
		err = s.repos.Sections.Create(wctx, section)
	} else {
		err = s.repos.Sections.Update(wctx, section)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	s.invalidateProducts(wctx)
	logger.Info("Section saved", map[string]interface{}{
		"section_id": section.ID,
		"user_id":    actor.UserID,
	})
	return section, nil
}

func (s *catalogService) UpsertCategory(ctx context.Context, actor model.Actor, input CategoryInput) (*model.Category, error) {
	const entity, action = "category", "save"

	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(entity, action, input); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	var section *model.Section
	if input.SectionID != nil {
		found, err := readWithRetry(ctx, s.opts, "find section", func(ctx context.Context) (*model.Section, error) {
			return s.repos.Sections.FindByID(ctx, *input.SectionID)
		})
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidation(entity, action, map[string]string{
					"section_id": "does not reference an existing section",
				})
			}
			return nil, apperrors.Wrap(err, entity, action)
		}
		section = found
	}

	category := &model.Category{IsActive: true}
	if input.ID != nil {
		existing, err := readWithRetry(ctx, s.opts, "find category", func(ctx context.Context) (*model.Category, error) {
			return s.repos.Categories.FindByID(ctx, *input.ID)
		})
		if err != nil {
			return nil, notFoundOr(err, entity, *input.ID, ErrCategoryNotFound, action)
		}
		category = existing
	}

	// The preloaded Section belongs to the old SectionID.
	category.SectionID = input.SectionID
	category.Section = section
	category.Name = input.Name
	category.Description = normalized(input.Description)
	category.Icon = normalized(input.Icon)
	category.DisplayOrder = input.DisplayOrder
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	var err error
	if input.ID == nil {
		err = s.repos.Categories.Create(wctx, category)
	} else {
		err = s.repos.Categories.Update(wctx, category)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	s.invalidateProducts(wctx)
	logger.Info("Category saved", map[string]interface{}{
		"category_id": category.ID,
		"section_id":  category.SectionID,
		"user_id":     actor.UserID,
	})
	return category, nil
}

// DeleteSection detaches the section's categories before deleting it, so a
// failure between the two steps leaves the categories usable.
func (s *catalogService) DeleteSection(ctx context.Context, actor model.Actor, id uint) error {
	const entity, action = "section", "delete"

	if err := requireStaff(actor, entity, action); err != nil {
		return err
	}
	if _, err := readWithRetry(ctx, s.opts, "find section", func(ctx context.Context) (*model.Section, error) {
		return s.repos.Sections.FindByID(ctx, id)
	}); err != nil {
		return notFoundOr(err, entity, id, ErrSectionNotFound, action)
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	detached, err := s.repos.Categories.DetachFromSection(wctx, id)
	if err != nil {
		return apperrors.Wrap(err, entity, action)
	}
	if err := s.repos.Sections.Delete(wctx, id); err != nil {
		return notFoundOr(err, entity, id, ErrSectionNotFound, action)
	}

	s.invalidateProducts(wctx)
	logger.Info("Section deleted", map[string]interface{}{
		"section_id":          id,
		"detached_categories": detached,
		"user_id":             actor.UserID,
	})
	return nil
}

// DeleteCategory detaches the category's products, then deletes the
// category together with its owned color and size options.
func (s *catalogService) DeleteCategory(ctx context.Context, actor model.Actor, id uint) error {
	const entity, action = "category", "delete"

	if err := requireStaff(actor, entity, action); err != nil {
		return err
	}
	if _, err := readWithRetry(ctx, s.opts, "find category", func(ctx context.Context) (*model.Category, error) {
		return s.repos.Categories.FindByID(ctx, id)
	}); err != nil {
		return notFoundOr(err, entity, id, ErrCategoryNotFound, action)
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	detached, err := s.repos.Products.DetachFromCategory(wctx, id)
	if err != nil {
		return apperrors.Wrap(err, entity, action)
	}
	if err := s.repos.Categories.Delete(wctx, id); err != nil {
		return notFoundOr(err, entity, id, ErrCategoryNotFound, action)
	}

	s.invalidateProducts(wctx)
	logger.Info("Category deleted", map[string]interface{}{
		"category_id":       id,
		"detached_products": detached,
		"user_id":           actor.UserID,
	})
	return nil
}

// ReplaceCategoryOptions swaps the suggestion lists of a category. Existing
// variants are never touched.
func (s *catalogService) ReplaceCategoryOptions(ctx context.Context, actor model.Actor, categoryID uint, input CategoryOptionsInput) (*model.Category, error) {
	const entity, action = "category", "replace options of"

	for i := range input.Colors {
		input.Colors[i].Value = strings.TrimSpace(input.Colors[i].Value)
	}
	for i := range input.Sizes {
		input.Sizes[i].Value = strings.TrimSpace(input.Sizes[i].Value)
	}
	if err := validateInput(entity, action, input); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	release, err := s.opts.lock(ctx, entity, action, fmt.Sprintf("category:%d:options", categoryID))
	if err != nil {
		return nil, err
	}
	defer release()

	colors := make([]model.CategoryColorOption, 0, len(input.Colors))
	for i, c := range input.Colors {
		colors = append(colors, model.CategoryColorOption{
			CategoryID:   categoryID,
			Value:        c.Value,
			HexCode:      normalized(c.HexCode),
			DisplayOrder: i,
			IsActive:     c.IsActive == nil || *c.IsActive,
		})
	}
	sizes := make([]model.CategorySizeOption, 0, len(input.Sizes))
	for i, sz := range input.Sizes {
		sizes = append(sizes, model.CategorySizeOption{
			CategoryID:   categoryID,
			Value:        sz.Value,
			Unit:         normalized(sz.Unit),
			DisplayOrder: i,
			IsActive:     sz.IsActive == nil || *sz.IsActive,
		})
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.repos.Categories.ReplaceOptions(wctx, categoryID, colors, sizes); err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	logger.Info("Category options replaced", map[string]interface{}{
		"category_id": categoryID,
		"colors":      len(colors),
		"sizes":       len(sizes),
		"user_id":     actor.UserID,
	})
	return s.GetCategory(ctx, categoryID)
}

func (s *catalogService) invalidateProducts(ctx context.Context) {
	s.opts.Cache.InvalidatePrefix(ctx, productListCachePrefix)
}

// notFoundOr maps a missing row to a NotFound error carrying sentinel and
// classifies anything else.
func notFoundOr(err error, entity string, id interface{}, sentinel error, action string) error {
	if apperrors.IsNotFound(err) {
		e := apperrors.NewNotFound(entity, id)
		e.Action = action
		e.Err = sentinel
		return e
	}
	logger.Error("Collaborator call failed", err, map[string]interface{}{
		"entity": entity,
		"action": action,
		"id":     id,
	})
	return apperrors.Wrap(err, entity, action)
}
