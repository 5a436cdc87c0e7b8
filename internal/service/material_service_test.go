package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMaterialFixture(t *testing.T) (*gorm.DB, MaterialService, LedgerService, *model.User) {
	t.Helper()
	db := testutil.NewDB(t)
	mem := cache.NewMemory(0)
	t.Cleanup(func() { _ = mem.Close() })
	caches := NewCaches(mem, time.Minute)

	svc := NewMaterialService(repository.NewMaterialRepository(db), caches)
	svc.(*materialService).now = func() time.Time { return time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC) }
	ledger := NewLedgerService(repository.NewStockRepository(db), repository.NewUserRepository(db), caches, nil)
	return db, svc, ledger, testutil.SeedUser(t, db, "Manager", model.RoleManager)
}

func strPtr(s string) *string { return &s }

func TestMaterialService_CreateGeneratesCode(t *testing.T) {
	_, svc, _, _ := newMaterialFixture(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, dto.CreateMaterialRequest{
		Name:      "Cotton twill",
		Unit:      "m",
		QtyOnHand: testutil.Dec(t, "100"),
		MinStock:  testutil.Dec(t, "10"),
		Supplier:  strPtr("  a-c.me textiles"),
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}-100-ACM-20240131$`), m.Code)
	assert.True(t, m.QtyOnHand.Equal(dec(100)))
	assert.False(t, m.IsCritical)

	noSupplier, err := svc.Create(ctx, dto.CreateMaterialRequest{Name: "Thread", Unit: "roll"})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-F]{4}-0-GEN-20240131$`, noSupplier.Code)
}

func TestSupplierTag(t *testing.T) {
	cases := map[string]string{
		"Acme":      "ACM",
		"ab":        "AB",
		"  9x-Yarn": "9XY",
		"---":       "GEN",
		"Ñandú SA":  "AND",
	}
	for in, want := range cases {
		in := in
		assert.Equal(t, want, supplierTag(&in), in)
	}
	assert.Equal(t, "GEN", supplierTag(nil))
}

func TestMaterialService_CreateRejectsNegativeOpening(t *testing.T) {
	_, svc, _, _ := newMaterialFixture(t)
	_, err := svc.Create(context.Background(), dto.CreateMaterialRequest{Name: "Bad", Unit: "m", QtyOnHand: dec(-1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMaterialService_UpdateNeverTouchesQuantity(t *testing.T) {
	db, svc, _, _ := newMaterialFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, db, "MAT-U", "40", "5")

	updated, err := svc.Update(ctx, m.ID, dto.UpdateMaterialRequest{
		Name:     strPtr("Renamed"),
		MinStock: decPtr(dec(50)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.QtyOnHand.Equal(dec(40)))
	assert.True(t, updated.IsCritical)

	var count int64
	require.NoError(t, db.Model(&model.MaterialMovement{}).Count(&count).Error)
	assert.Zero(t, count, "field updates are not audited")

	_, err = svc.Update(ctx, 999, dto.UpdateMaterialRequest{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaterialService_GetIsInvalidatedByLedgerWrites(t *testing.T) {
	db, svc, ledger, user := newMaterialFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, db, "MAT-C", "10", "0")

	first, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, first.QtyOnHand.Equal(dec(10)))

	_, err = ledger.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementIn, Quantity: dec(5), Reason: "delivery", UserID: user.ID})
	require.NoError(t, err)

	second, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, second.QtyOnHand.Equal(dec(15)))

	list, err := svc.List(ctx, dto.MaterialFilter{Search: "mat-c"})
	require.NoError(t, err)
	require.Len(t, list.Materials, 1)
	assert.True(t, list.Materials[0].QtyOnHand.Equal(dec(15)))
}

func TestMaterialService_ListFilters(t *testing.T) {
	db, svc, _, _ := newMaterialFixture(t)
	ctx := context.Background()
	testutil.SeedMaterial(t, db, "LOW-1", "1", "5")
	testutil.SeedMaterial(t, db, "OK-1", "50", "5")
	testutil.SeedMaterial(t, db, "OK-2", "60", "5")

	low, err := svc.List(ctx, dto.MaterialFilter{LowStock: true})
	require.NoError(t, err)
	require.Len(t, low.Materials, 1)
	assert.Equal(t, "LOW-1", low.Materials[0].Code)

	paged, err := svc.List(ctx, dto.MaterialFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Materials, 1)
	assert.Equal(t, int64(3), paged.Pagination.Total)
	assert.Equal(t, 2, paged.Pagination.Pages)
}

func TestMaterialService_DeleteGuards(t *testing.T) {
	db, svc, ledger, user := newMaterialFixture(t)
	ctx := context.Background()

	withMovement := testutil.SeedMaterial(t, db, "MAT-MV", "10", "0")
	_, err := ledger.Adjust(ctx, MaterialTarget(withMovement.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(1), Reason: "cut", UserID: user.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, withMovement.ID), ErrConflict)

	withRemaining := testutil.SeedMaterial(t, db, "MAT-RM", "10", "0")
	rm, err := svc.CreateRemaining(ctx, withRemaining.ID, dto.CreateRemainingMaterialRequest{Quantity: testutil.Dec(t, "0.5")})
	require.NoError(t, err)
	assert.Equal(t, "m", rm.Unit, "unit defaults to the material's")
	assert.ErrorIs(t, svc.Delete(ctx, withRemaining.ID), ErrConflict)

	require.NoError(t, svc.DeleteRemaining(ctx, rm.ID))
	require.NoError(t, svc.Delete(ctx, withRemaining.ID))
	_, err = svc.Get(ctx, withRemaining.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 999), ErrNotFound)
	assert.ErrorIs(t, svc.DeleteRemaining(ctx, 999), ErrNotFound)
}

func TestMaterialService_DeleteBlockedByProducts(t *testing.T) {
	db, svc, _, _ := newMaterialFixture(t)
	ctx := context.Background()

	fabric := testutil.SeedMaterial(t, db, "MAT-BOM", "10", "0")
	dress := testutil.SeedProduct(t, db, "DRS-240101-001", "0")
	link := &model.ProductMaterial{ProductID: dress.ID, MaterialID: fabric.ID, QuantityPerUnit: dec(2)}
	require.NoError(t, db.Create(link).Error)

	assert.ErrorIs(t, svc.Delete(ctx, fabric.ID), ErrConflict)
	_, err := svc.Get(ctx, fabric.ID)
	require.NoError(t, err, "material survives a refused delete")

	require.NoError(t, db.Delete(link).Error)
	require.NoError(t, db.Model(dress).Update("base_material_id", fabric.ID).Error)
	assert.ErrorIs(t, svc.Delete(ctx, fabric.ID), ErrConflict)

	require.NoError(t, db.Model(dress).Update("base_material_id", nil).Error)
	require.NoError(t, svc.Delete(ctx, fabric.ID))
}

func TestMaterialService_Remaining(t *testing.T) {
	db, svc, _, _ := newMaterialFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, db, "MAT-R", "10", "0")

	_, err := svc.CreateRemaining(ctx, m.ID, dto.CreateRemainingMaterialRequest{Quantity: dec(0)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateRemaining(ctx, 999, dto.CreateRemainingMaterialRequest{Quantity: dec(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateRemaining(ctx, m.ID, dto.CreateRemainingMaterialRequest{Quantity: dec(2), Unit: "kg", Notes: strPtr("offcuts")})
	require.NoError(t, err)
	list, err := svc.ListRemaining(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kg", list[0].Unit)

	// Remaining lots are not stock: qtyOnHand is untouched.
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.QtyOnHand.Equal(dec(10)))
}
