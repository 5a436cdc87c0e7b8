package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type productFixture struct {
	db     *gorm.DB
	svc    ProductService
	ledger LedgerService
	user   *model.User
	dir    string
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	db := testutil.NewDB(t)
	mem := cache.NewMemory(0)
	t.Cleanup(func() { _ = mem.Close() })
	caches := NewCaches(mem, time.Minute)

	dir := t.TempDir()
	storage, err := infra.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	svc := NewProductService(repository.NewProductRepository(db), repository.NewMaterialRepository(db), storage, caches, 1024)
	svc.(*productService).now = func() time.Time { return time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC) }
	return &productFixture{
		db:     db,
		svc:    svc,
		ledger: NewLedgerService(repository.NewStockRepository(db), repository.NewUserRepository(db), caches, nil),
		user:   testutil.SeedUser(t, db, "Manager", model.RoleManager),
		dir:    dir,
	}
}

func TestProductService_CodesArePerCategoryPerDay(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	create := func(category string) string {
		p, err := f.svc.Create(ctx, dto.CreateProductRequest{Name: "Item " + category, Category: category})
		require.NoError(t, err)
		return p.Code
	}
	assert.Equal(t, "TOP-240131-001", create(model.CategoryTop))
	assert.Equal(t, "TOP-240131-002", create(model.CategoryTop))
	assert.Equal(t, "BTM-240131-001", create(model.CategoryBottom))
	assert.Equal(t, "OTH-240131-001", create(model.CategoryOther))

	_, err := f.svc.Create(ctx, dto.CreateProductRequest{Name: "Hat", Category: "HAT"})
	assert.ErrorIs(t, err, ErrValidation)

	baseID := uint(999)
	_, err = f.svc.Create(ctx, dto.CreateProductRequest{Name: "Hat", Category: model.CategoryAccessory, BaseMaterialID: &baseID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductService_CreateDefaultsAndUpdate(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, dto.CreateProductRequest{Name: " Shirt ", Category: model.CategoryTop, Price: dec(25)})
	require.NoError(t, err)
	assert.Equal(t, "Shirt", p.Name)
	assert.Equal(t, "pcs", p.Unit)
	assert.True(t, p.Active)
	assert.NotNil(t, p.Photos)

	inactive := false
	updated, err := f.svc.Update(ctx, p.ID, dto.UpdateProductRequest{Name: strPtr("Linen shirt"), Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Linen shirt", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, p.Code, updated.Code)

	list, err := f.svc.List(ctx, dto.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Products, "inactive products are hidden by default")
	list, err = f.svc.List(ctx, dto.ProductFilter{Active: "all"})
	require.NoError(t, err)
	assert.Len(t, list.Products, 1)
}

func TestProductService_GetReflectsLedgerWrites(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "TOP-240101-001", "2")

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.QtyOnHand.Equal(dec(2)))

	_, err = f.ledger.SetLevel(ctx, ProductTarget(p.ID), SetLevelInput{Quantity: dec(9), Reason: "count", UserID: f.user.ID})
	require.NoError(t, err)

	got, err = f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.QtyOnHand.Equal(dec(9)))
}

func TestProductService_Photos(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "TOP-240101-001", "0")

	_, err := f.svc.AddPhoto(ctx, p.ID, PhotoUpload{Filename: "x.gif", Size: 3, Body: strings.NewReader("gif")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.AddPhoto(ctx, p.ID, PhotoUpload{Filename: "x.png", Size: 4096, Body: strings.NewReader("big")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.AddPhoto(ctx, 999, PhotoUpload{Filename: "x.png", Size: 3, Body: strings.NewReader("png")})
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := f.svc.AddPhoto(ctx, p.ID, PhotoUpload{Filename: "front.JPG", Size: 5, Body: strings.NewReader("front")})
	require.NoError(t, err)
	second, err := f.svc.AddPhoto(ctx, p.ID, PhotoUpload{Filename: "back.webp", Size: 4, Body: strings.NewReader("back")})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.True(t, strings.HasPrefix(first.URL, "/uploads/products/"))

	photos, err := f.svc.ReorderPhotos(ctx, p.ID, dto.ReorderPhotosRequest{PhotoIDs: []uint{second.ID, first.ID}})
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, second.ID, photos[0].ID)

	_, err = f.svc.ReorderPhotos(ctx, p.ID, dto.ReorderPhotosRequest{PhotoIDs: []uint{first.ID}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.ReorderPhotos(ctx, p.ID, dto.ReorderPhotosRequest{PhotoIDs: []uint{first.ID, first.ID}})
	assert.ErrorIs(t, err, ErrValidation)

	var stored model.ProductPhoto
	require.NoError(t, f.db.First(&stored, first.ID).Error)
	require.FileExists(t, filepath.Join(f.dir, stored.Path))

	require.NoError(t, f.svc.DeletePhoto(ctx, p.ID, first.ID))
	assert.NoFileExists(t, filepath.Join(f.dir, stored.Path))
	assert.ErrorIs(t, f.svc.DeletePhoto(ctx, p.ID, first.ID), ErrNotFound)

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 1)
	assert.Equal(t, second.ID, got.Photos[0].ID)
}

func TestProductService_Availability(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "DRS-240101-001", "0")
	fabric := testutil.SeedMaterial(t, f.db, "FAB", "10", "0")
	buttons := testutil.SeedMaterial(t, f.db, "BTN", "100", "0")

	empty, err := f.svc.ListMaterials(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, empty.MaxProducible)

	resp, err := f.svc.SetMaterials(ctx, p.ID, dto.SetProductMaterialsRequest{Materials: []dto.ProductMaterialInput{
		{MaterialID: fabric.ID, QuantityPerUnit: testutil.Dec(t, "2.5")},
		{MaterialID: buttons.ID, QuantityPerUnit: dec(6)},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Materials, 2)
	require.NotNil(t, resp.MaxProducible)
	assert.Equal(t, int64(4), *resp.MaxProducible)
	assert.Equal(t, fabric.ID, *resp.LimitingID)

	// Projection reads live stock and never changes it.
	_, err = f.ledger.Adjust(ctx, MaterialTarget(buttons.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(95), Reason: "used", UserID: f.user.ID})
	require.NoError(t, err)
	resp, err = f.svc.ListMaterials(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *resp.MaxProducible)
	assert.Equal(t, buttons.ID, *resp.LimitingID)

	var fab model.Material
	require.NoError(t, f.db.First(&fab, fabric.ID).Error)
	assert.True(t, fab.QtyOnHand.Equal(dec(10)))

	_, err = f.svc.SetMaterials(ctx, p.ID, dto.SetProductMaterialsRequest{Materials: []dto.ProductMaterialInput{
		{MaterialID: fabric.ID, QuantityPerUnit: dec(1)},
		{MaterialID: fabric.ID, QuantityPerUnit: dec(2)},
	}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.SetMaterials(ctx, p.ID, dto.SetProductMaterialsRequest{Materials: []dto.ProductMaterialInput{
		{MaterialID: 999, QuantityPerUnit: dec(1)},
	}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductService_DeleteGuardsAndCascade(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	ordered := testutil.SeedProduct(t, f.db, "TOP-240101-001", "0")
	order := &model.Order{OrderNumber: "ORD-20240101-001", Status: model.OrderCreated, TargetPieces: 1, CreatedBy: f.user.ID,
		Items: []model.OrderProduct{{ProductID: ordered.ID, Quantity: 1}}}
	require.NoError(t, f.db.Create(order).Error)
	assert.ErrorIs(t, f.svc.Delete(ctx, ordered.ID), ErrConflict)

	moved := testutil.SeedProduct(t, f.db, "TOP-240101-002", "5")
	_, err := f.ledger.Adjust(ctx, ProductTarget(moved.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(1), Reason: "sold", UserID: f.user.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, moved.ID), ErrConflict)

	free := testutil.SeedProduct(t, f.db, "TOP-240101-003", "0")
	mat := testutil.SeedMaterial(t, f.db, "FAB", "1", "0")
	_, err = f.svc.SetMaterials(ctx, free.ID, dto.SetProductMaterialsRequest{Materials: []dto.ProductMaterialInput{{MaterialID: mat.ID, QuantityPerUnit: dec(1)}}})
	require.NoError(t, err)
	photo, err := f.svc.AddPhoto(ctx, free.ID, PhotoUpload{Filename: "a.png", Size: 1, Body: strings.NewReader("a")})
	require.NoError(t, err)
	var stored model.ProductPhoto
	require.NoError(t, f.db.First(&stored, photo.ID).Error)

	require.NoError(t, f.svc.Delete(ctx, free.ID))
	_, err = f.svc.Get(ctx, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var links, photos int64
	require.NoError(t, f.db.Model(&model.ProductMaterial{}).Where("product_id = ?", free.ID).Count(&links).Error)
	require.NoError(t, f.db.Model(&model.ProductPhoto{}).Where("product_id = ?", free.ID).Count(&photos).Error)
	assert.Zero(t, links)
	assert.Zero(t, photos)
	_, statErr := os.Stat(filepath.Join(f.dir, stored.Path))
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, f.svc.Delete(ctx, free.ID), ErrNotFound)
}
