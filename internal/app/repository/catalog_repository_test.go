package repository

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCatalogTest(t *testing.T) (*gorm.DB, SectionRepository, CategoryRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewSectionRepository(testDB), NewCategoryRepository(testDB)
}

func TestSectionRepository_List(t *testing.T) {
	testDB, sections, _ := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	require.NoError(t, sections.Create(ctx, &model.Section{Name: "B", DisplayOrder: 2, IsActive: true}))
	require.NoError(t, sections.Create(ctx, &model.Section{Name: "A", DisplayOrder: 1, IsActive: false}))

	all, err := sections.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Name)

	active, err := sections.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Name)
}

func TestSectionRepository_Delete_NotFound(t *testing.T) {
	testDB, sections, _ := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	err := sections.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCategoryRepository_DetachFromSection(t *testing.T) {
	testDB, sections, categories := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	section := &model.Section{Name: "Fashion", IsActive: true}
	require.NoError(t, sections.Create(ctx, section))
	for _, name := range []string{"Shirts", "Shoes"} {
		require.NoError(t, categories.Create(ctx, &model.Category{Name: name, SectionID: &section.ID, IsActive: true}))
	}

	affected, err := categories.DetachFromSection(ctx, section.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	remaining, err := categories.List(ctx, CategoryFilter{SectionID: &section.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	all, err := categories.List(ctx, CategoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, c := range all {
		assert.Nil(t, c.SectionID)
	}
}

func TestCategoryRepository_ReplaceOptionsAndDelete(t *testing.T) {
	testDB, _, categories := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	category := &model.Category{Name: "Shirts", IsActive: true}
	require.NoError(t, categories.Create(ctx, category))

	hex := "#FF0000"
	err := categories.ReplaceOptions(ctx, category.ID,
		[]model.CategoryColorOption{{CategoryID: category.ID, Value: "Red", HexCode: &hex, IsActive: true}},
		[]model.CategorySizeOption{
			{CategoryID: category.ID, Value: "S", DisplayOrder: 0, IsActive: true},
			{CategoryID: category.ID, Value: "M", DisplayOrder: 1, IsActive: true},
		})
	require.NoError(t, err)

	found, err := categories.FindByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Len(t, found.ColorOptions, 1)
	require.Len(t, found.SizeOptions, 2)
	assert.Equal(t, "S", found.SizeOptions[0].Value)

	require.NoError(t, categories.Delete(ctx, category.ID))

	var count int64
	require.NoError(t, testDB.Model(&model.CategorySizeOption{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = categories.FindByID(ctx, category.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
