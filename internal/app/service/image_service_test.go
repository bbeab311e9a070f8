package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestImageService_SetGeneralImages(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, tshirtInput())

	for _, n := range []int{3, 1, 5, 0} {
		t.Run(fmt.Sprintf("%d urls", n), func(t *testing.T) {
			images := make([]ImageInput, 0, n)
			for i := 0; i < n; i++ {
				// submitted in reverse order
				images = append(images, ImageInput{URL: fmt.Sprintf("https://cdn.example.com/%d.jpg", n-i), Order: n - i})
			}

			_, err := f.images.SetGeneralImages(ctx, adminActor, product.ID, images)
			require.NoError(t, err)

			rows, err := f.repos.Images.ListScope(ctx, repository.ImageScope{ProductID: product.ID})
			require.NoError(t, err)
			require.Len(t, rows, n)

			primaries := 0
			for i, row := range rows {
				assert.Equal(t, i, row.DisplayOrder)
				assert.Equal(t, fmt.Sprintf("https://cdn.example.com/%d.jpg", i+1), row.ImageURL)
				assert.Nil(t, row.VariantID)
				assert.Equal(t, i == 0, row.IsPrimary)
				if row.IsPrimary {
					primaries++
				}
			}
			if n > 0 {
				assert.Equal(t, 1, primaries)
			}
		})
	}
}

func TestImageService_SetGeneralImages_Rejections(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, tshirtInput())

	_, err := f.images.SetGeneralImages(ctx, adminActor, product.ID, []ImageInput{{URL: "https://cdn.example.com/a.jpg"}, {URL: " "}})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "images[1].url")

	_, err = f.images.SetGeneralImages(ctx, customerActor, product.ID, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	_, err = f.images.SetGeneralImages(ctx, adminActor, 999, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// the original image is still there
	rows, err := f.images.ListImages(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestImageService_SetVariantImage_Scenario(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	input := tshirtInput()
	input.Variants = redSM()
	product := f.createProduct(t, input)
	redS := product.Variants[0]
	require.Equal(t, "Red - S", redS.VariantName)

	row, err := f.images.SetVariantImage(ctx, managerActor, product.ID, redS.ID, "https://cdn.example.com/red-s.jpg")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NotNil(t, row.VariantID)
	assert.Equal(t, redS.ID, *row.VariantID)
	assert.False(t, row.IsPrimary)

	variant, err := f.repos.Variants.FindByID(ctx, redS.ID)
	require.NoError(t, err)
	require.NotNil(t, variant.ImageURL)
	assert.Equal(t, "https://cdn.example.com/red-s.jpg", *variant.ImageURL)

	// replacing keeps exactly one row for the pair
	_, err = f.images.SetVariantImage(ctx, managerActor, product.ID, redS.ID, "https://cdn.example.com/red-s-v2.jpg")
	require.NoError(t, err)

	rows, err := f.images.ListImages(ctx, product.ID, &redS.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://cdn.example.com/red-s-v2.jpg", rows[0].ImageURL)

	// the variant image never becomes the product's primary image
	primary, err := f.images.PrimaryImage(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ts-front.jpg", *primary)

	all, err := f.images.ListImages(ctx, product.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].VariantID)

	// an empty url clears the row and the mirror
	cleared, err := f.images.SetVariantImage(ctx, managerActor, product.ID, redS.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared)

	rows, err = f.images.ListImages(ctx, product.ID, &redS.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	variant, err = f.repos.Variants.FindByID(ctx, redS.ID)
	require.NoError(t, err)
	assert.Nil(t, variant.ImageURL)
}

func TestImageService_SetVariantImage_Rejections(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	input := tshirtInput()
	input.Variants = redSM()
	product := f.createProduct(t, input)
	mug := f.createProduct(t, ProductInput{Name: "Mug", SKU: "MG-01", Price: 8})

	t.Run("Variant of another product", func(t *testing.T) {
		_, err := f.images.SetVariantImage(ctx, adminActor, mug.ID, product.Variants[0].ID, "https://cdn.example.com/x.jpg")
		var appErr *apperrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.KindValidation, appErr.Kind)
		assert.Equal(t, apperrors.CatalogVariantNotInScope, appErr.Code)
	})

	t.Run("Unknown variant", func(t *testing.T) {
		_, err := f.images.SetVariantImage(ctx, adminActor, product.ID, 9999, "https://cdn.example.com/x.jpg")
		assert.ErrorIs(t, err, ErrVariantNotFound)
	})

	t.Run("Busy scope", func(t *testing.T) {
		unlock, acquired, err := f.opts.Locker.TryLock(ctx, scopeVariantImage(product.ID, product.Variants[0].ID))
		require.NoError(t, err)
		require.True(t, acquired)
		defer unlock()

		_, err = f.images.SetVariantImage(ctx, adminActor, product.ID, product.Variants[0].ID, "https://cdn.example.com/x.jpg")
		assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

		// other scopes are independent
		_, err = f.images.SetVariantImage(ctx, adminActor, product.ID, product.Variants[1].ID, "https://cdn.example.com/y.jpg")
		assert.NoError(t, err)
	})
}

func TestImageService_PrimaryImage_Fallbacks(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	legacy := f.createProduct(t, ProductInput{
		Name: "Old poster", SKU: "OP-01", Price: 20,
		ImageURL: strPtr("https://cdn.example.com/legacy.jpg"),
	})
	bare := f.createProduct(t, ProductInput{Name: "Sticker", SKU: "ST-01", Price: 2})

	primary, err := f.images.PrimaryImage(ctx, legacy.ID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, "https://cdn.example.com/legacy.jpg", *primary)

	primary, err = f.images.PrimaryImage(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, primary)

	_, err = f.images.PrimaryImage(ctx, 999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// a general image takes precedence over the legacy field
	_, err = f.images.SetGeneralImages(ctx, adminActor, legacy.ID, []ImageInput{{URL: "https://cdn.example.com/new.jpg"}})
	require.NoError(t, err)
	primary, err = f.images.PrimaryImage(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/new.jpg", *primary)
}

func TestImageService_SetGeneralImages_PartialFailure(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, tshirtInput())

	const hook = "test:reject_image_insert"
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == "product_images" {
			_ = tx.AddError(errors.New("insert rejected"))
		}
	}))

	images := []ImageInput{{URL: "https://cdn.example.com/a.jpg"}, {URL: "https://cdn.example.com/b.jpg", Order: 1}}
	_, err := f.images.SetGeneralImages(ctx, adminActor, product.ID, images)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindPartialReplace, appErr.Kind)
	assert.Equal(t, apperrors.CatalogReplacePartial, appErr.Code)
	assert.Equal(t, scopeGeneralImages(product.ID), appErr.Scope)
	assert.True(t, appErr.Retryable())

	rows, err := f.repos.Images.ListScope(ctx, repository.ImageScope{ProductID: product.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, f.db.Callback().Create().Remove(hook))
	replaced, err := f.images.SetGeneralImages(ctx, adminActor, product.ID, images)
	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.True(t, replaced[0].IsPrimary)
}

func TestImageService_SetVariantImage_PartialFailure(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*catalogFixture, uint, uint) {
		f := setupCatalogServiceTest(t)
		input := tshirtInput()
		input.Variants = redSM()
		product := f.createProduct(t, input)
		variantID := product.Variants[0].ID
		_, err := f.images.SetVariantImage(ctx, adminActor, product.ID, variantID, "https://cdn.example.com/red-s.jpg")
		require.NoError(t, err)
		return f, product.ID, variantID
	}

	requirePartial := func(t *testing.T, err error, productID, variantID uint) {
		t.Helper()
		var appErr *apperrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.KindPartialReplace, appErr.Kind)
		assert.Equal(t, scopeVariantImage(productID, variantID), appErr.Scope)
		assert.True(t, appErr.Retryable())
	}

	converges := func(t *testing.T, f *catalogFixture, productID, variantID uint) {
		t.Helper()
		_, err := f.images.SetVariantImage(ctx, adminActor, productID, variantID, "https://cdn.example.com/red-s-v2.jpg")
		require.NoError(t, err)

		rows, err := f.images.ListImages(ctx, productID, &variantID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		variant, err := f.repos.Variants.FindByID(ctx, variantID)
		require.NoError(t, err)
		require.NotNil(t, variant.ImageURL)
		assert.Equal(t, rows[0].ImageURL, *variant.ImageURL)
	}

	t.Run("Insert fails after delete", func(t *testing.T) {
		f, productID, variantID := setup(t)

		const hook = "test:reject_variant_image_insert"
		require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
			if tx.Statement.Table == "product_images" {
				_ = tx.AddError(errors.New("insert rejected"))
			}
		}))

		_, err := f.images.SetVariantImage(ctx, adminActor, productID, variantID, "https://cdn.example.com/red-s-v2.jpg")
		requirePartial(t, err, productID, variantID)

		rows, err := f.images.ListImages(ctx, productID, &variantID)
		require.NoError(t, err)
		assert.Empty(t, rows)

		// the mirror follows the emptied scope
		variant, err := f.repos.Variants.FindByID(ctx, variantID)
		require.NoError(t, err)
		assert.Nil(t, variant.ImageURL)

		require.NoError(t, f.db.Callback().Create().Remove(hook))
		converges(t, f, productID, variantID)
	})

	t.Run("Mirror fails after insert", func(t *testing.T) {
		f, productID, variantID := setup(t)

		const hook = "test:reject_variant_update"
		require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register(hook, func(tx *gorm.DB) {
			if tx.Statement.Table == "product_variants" {
				_ = tx.AddError(errors.New("update rejected"))
			}
		}))

		_, err := f.images.SetVariantImage(ctx, adminActor, productID, variantID, "https://cdn.example.com/red-s-v2.jpg")
		requirePartial(t, err, productID, variantID)

		require.NoError(t, f.db.Callback().Update().Remove(hook))
		converges(t, f, productID, variantID)
	})
}
