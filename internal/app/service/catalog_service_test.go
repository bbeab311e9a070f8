package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_ListSections_CanonicalOrder(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	for _, in := range []SectionInput{
		{Name: "cherry", DisplayOrder: 1},
		{Name: "Banana", DisplayOrder: 1},
		{Name: "apple", DisplayOrder: 1},
		{Name: "Zebra", DisplayOrder: 0},
	} {
		_, err := f.catalog.UpsertSection(ctx, adminActor, in)
		require.NoError(t, err)
	}

	sections, err := f.catalog.ListSections(ctx, false)
	require.NoError(t, err)

	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	// display_order first, then collation rather than byte order
	assert.Equal(t, []string{"Zebra", "apple", "Banana", "cherry"}, names)
}

func TestCatalogService_UpsertSection(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	t.Run("Create defaults to active", func(t *testing.T) {
		section, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "  Clothing  "})
		require.NoError(t, err)
		assert.NotZero(t, section.ID)
		assert.Equal(t, "Clothing", section.Name)
		assert.True(t, section.IsActive)
	})

	t.Run("Update keeps unspecified active flag", func(t *testing.T) {
		section, err := f.catalog.UpsertSection(ctx, managerActor, SectionInput{Name: "Shoes"})
		require.NoError(t, err)

		updated, err := f.catalog.UpsertSection(ctx, managerActor, SectionInput{ID: &section.ID, Name: "Footwear", DisplayOrder: 3})
		require.NoError(t, err)
		assert.Equal(t, section.ID, updated.ID)
		assert.Equal(t, "Footwear", updated.Name)
		assert.Equal(t, 3, updated.DisplayOrder)
		assert.True(t, updated.IsActive)
	})

	t.Run("Blank name is a validation error", func(t *testing.T) {
		_, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "   "})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		var appErr *apperrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Fields, "name")
	})

	t.Run("Non-staff actors are rejected", func(t *testing.T) {
		for _, actor := range []model.Actor{customerActor, employeeActor} {
			_, err := f.catalog.UpsertSection(ctx, actor, SectionInput{Name: "Toys"})
			assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
		}
	})

	t.Run("Unknown section", func(t *testing.T) {
		_, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{ID: uintPtr(999), Name: "Ghost"})
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
		assert.ErrorIs(t, err, ErrSectionNotFound)
	})
}

func TestCatalogService_UpsertCategory_UnknownSection(t *testing.T) {
	f := setupCatalogServiceTest(t)

	_, err := f.catalog.UpsertCategory(context.Background(), adminActor, CategoryInput{
		Name:      "Shirts",
		SectionID: uintPtr(404),
	})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "section_id")
}

func TestCatalogService_UpsertCategory_MovesSection(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	clothing, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "Clothing"})
	require.NoError(t, err)
	footwear, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "Footwear"})
	require.NoError(t, err)
	category, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{Name: "Sneakers", SectionID: &clothing.ID})
	require.NoError(t, err)

	moved, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{ID: &category.ID, Name: "Sneakers", SectionID: &footwear.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.SectionID)
	assert.Equal(t, footwear.ID, *moved.SectionID)
	require.NotNil(t, moved.Section)
	assert.Equal(t, footwear.ID, moved.Section.ID)
	assert.Equal(t, "Footwear", moved.Section.Name)

	t.Run("Detaching clears the section", func(t *testing.T) {
		detached, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{ID: &category.ID, Name: "Sneakers"})
		require.NoError(t, err)
		assert.Nil(t, detached.SectionID)
		assert.Nil(t, detached.Section)

		loaded, err := f.catalog.GetCategory(ctx, category.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded.SectionID)
	})
}

func TestCatalogService_DeleteSection_DetachesCategories(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	section, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "Clothing"})
	require.NoError(t, err)
	category, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{Name: "Shirts", SectionID: &section.ID})
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteSection(ctx, adminActor, section.ID))

	loaded, err := f.catalog.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.SectionID)
	assert.Nil(t, loaded.Section)

	sections, err := f.catalog.ListSections(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, sections)

	err = f.catalog.DeleteSection(ctx, adminActor, section.ID)
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestCatalogService_DeleteCategory_DetachesProducts(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	category, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{Name: "Shirts"})
	require.NoError(t, err)
	_, err = f.catalog.ReplaceCategoryOptions(ctx, adminActor, category.ID, CategoryOptionsInput{
		Colors: []ColorOptionInput{{Value: "Red"}},
		Sizes:  []SizeOptionInput{{Value: "S"}},
	})
	require.NoError(t, err)

	input := tshirtInput()
	input.CategoryID = &category.ID
	product := f.createProduct(t, input)
	require.NotNil(t, product.Category)

	require.NoError(t, f.catalog.DeleteCategory(ctx, adminActor, category.ID))

	listed, err := f.products.ListProducts(ctx, ProductListOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].CategoryID)
	assert.Nil(t, listed[0].Category)
	assert.True(t, CanPurchase(&listed[0], nil, 1))

	var colors, sizes int64
	require.NoError(t, f.db.Model(&model.CategoryColorOption{}).Count(&colors).Error)
	require.NoError(t, f.db.Model(&model.CategorySizeOption{}).Count(&sizes).Error)
	assert.Zero(t, colors)
	assert.Zero(t, sizes)
}

func TestCatalogService_ListCategories(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	clothing, err := f.catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "Clothing"})
	require.NoError(t, err)

	for _, in := range []CategoryInput{
		{Name: "shirts", SectionID: &clothing.ID},
		{Name: "Jackets", SectionID: &clothing.ID},
		{Name: "Hidden", SectionID: &clothing.ID, IsActive: boolPtr(false)},
		{Name: "Loose"},
	} {
		_, err := f.catalog.UpsertCategory(ctx, adminActor, in)
		require.NoError(t, err)
	}

	categories, err := f.catalog.ListCategories(ctx, CategoryFilter{SectionID: &clothing.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Jackets", categories[0].Name)
	assert.Equal(t, "shirts", categories[1].Name)

	all, err := f.catalog.ListCategories(ctx, CategoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCatalogService_ReplaceCategoryOptions(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	category, err := f.catalog.UpsertCategory(ctx, adminActor, CategoryInput{Name: "Shoes"})
	require.NoError(t, err)

	updated, err := f.catalog.ReplaceCategoryOptions(ctx, adminActor, category.ID, CategoryOptionsInput{
		Colors: []ColorOptionInput{{Value: "Black", HexCode: strPtr("#000000")}, {Value: "White"}},
		Sizes:  []SizeOptionInput{{Value: "42", Unit: strPtr("EU")}},
	})
	require.NoError(t, err)
	require.Len(t, updated.ColorOptions, 2)
	require.Len(t, updated.SizeOptions, 1)
	assert.Equal(t, "Black", updated.ColorOptions[0].Value)
	assert.Equal(t, 1, updated.ColorOptions[1].DisplayOrder)
	assert.True(t, updated.ColorOptions[1].IsActive)

	replaced, err := f.catalog.ReplaceCategoryOptions(ctx, adminActor, category.ID, CategoryOptionsInput{
		Colors: []ColorOptionInput{{Value: "Red"}},
	})
	require.NoError(t, err)
	require.Len(t, replaced.ColorOptions, 1)
	assert.Equal(t, "Red", replaced.ColorOptions[0].Value)
	assert.Empty(t, replaced.SizeOptions)

	_, err = f.catalog.ReplaceCategoryOptions(ctx, adminActor, category.ID, CategoryOptionsInput{
		Colors: []ColorOptionInput{{Value: " "}},
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
