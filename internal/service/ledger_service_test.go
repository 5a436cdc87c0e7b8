package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"
	"github.com/replika-labs/wms-01-sub000/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

type recordingAlerts struct {
	mu   sync.Mutex
	sent []worker.StockAlertPayload
	// cancellable counts enqueues whose context could still be cancelled.
	cancellable int
}

func (r *recordingAlerts) EnqueueStockAlert(ctx context.Context, p worker.StockAlertPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Done() != nil {
		r.cancellable++
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.sent = append(r.sent, p)
	return nil
}

type ledgerFixture struct {
	db     *gorm.DB
	svc    LedgerService
	user   *model.User
	alerts *recordingAlerts
	mem    *cache.Memory
	caches *Caches
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := testutil.NewDB(t)
	mem := cache.NewMemory(0)
	t.Cleanup(func() { _ = mem.Close() })
	caches := NewCaches(mem, time.Minute)
	alerts := &recordingAlerts{}
	return &ledgerFixture{
		db:     db,
		svc:    NewLedgerService(repository.NewStockRepository(db), repository.NewUserRepository(db), caches, alerts),
		user:   testutil.SeedUser(t, db, "Stock Keeper", model.RoleStaff),
		alerts: alerts,
		mem:    mem,
		caches: caches,
	}
}

func (f *ledgerFixture) movements(t *testing.T, materialID uint) []model.MaterialMovement {
	t.Helper()
	var rows []model.MaterialMovement
	require.NoError(t, f.db.Where("material_id = ?", materialID).Order("id ASC").Find(&rows).Error)
	return rows
}

func (f *ledgerFixture) qty(t *testing.T, materialID uint) decimal.Decimal {
	t.Helper()
	var m model.Material
	require.NoError(t, f.db.First(&m, materialID).Error)
	return m.QtyOnHand
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestLedger_Scenarios(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "MAT-1", "100", "10")
	target := MaterialTarget(m.ID)

	// 1. OUT 30 from 100
	change, err := f.svc.Adjust(ctx, target, AdjustInput{Type: model.MovementOut, Quantity: dec(30), Reason: "sold", UserID: f.user.ID})
	require.NoError(t, err)
	assert.True(t, change.Previous.Equal(dec(100)))
	assert.True(t, change.Current.Equal(dec(70)))
	require.NotNil(t, change.Movement)
	assert.Equal(t, model.MovementOut, change.Movement.MovementType)
	assert.True(t, change.Movement.Quantity.Equal(dec(30)))
	assert.True(t, change.Movement.QtyAfter.Equal(dec(70)))
	assert.True(t, f.qty(t, m.ID).Equal(dec(70)))

	// 2. OUT 100 from 70 is rejected without writing
	_, err = f.svc.Adjust(ctx, target, AdjustInput{Type: model.MovementOut, Quantity: dec(100), Reason: "sold", UserID: f.user.ID})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.True(t, ise.Available.Equal(dec(70)))
	assert.True(t, f.qty(t, m.ID).Equal(dec(70)))
	assert.Len(t, f.movements(t, m.ID), 1)

	// 3. SetLevel 50 from 70 writes OUT 20
	change, err = f.svc.SetLevel(ctx, target, SetLevelInput{Quantity: dec(50), Reason: "correction", UserID: f.user.ID})
	require.NoError(t, err)
	require.NotNil(t, change.Movement)
	assert.Equal(t, model.MovementOut, change.Movement.MovementType)
	assert.True(t, change.Movement.Quantity.Equal(dec(20)))
	assert.True(t, change.Movement.QtyAfter.Equal(dec(50)))
	assert.True(t, change.Delta().Equal(dec(-20)))

	// 4. SetLevel 50 at 50 is a no-op
	change, err = f.svc.SetLevel(ctx, target, SetLevelInput{Quantity: dec(50), Reason: "no change", UserID: f.user.ID})
	require.NoError(t, err)
	assert.Nil(t, change.Movement)
	assert.True(t, change.Delta().IsZero())
	assert.True(t, f.qty(t, m.ID).Equal(dec(50)))
	assert.Len(t, f.movements(t, m.ID), 2)

	// 5. History newest first
	hist, err := f.svc.History(ctx, target, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist.Movements, 2)
	assert.Equal(t, "OUT", hist.Movements[0].MovementType)
	assert.True(t, hist.Movements[0].Quantity.Equal(dec(20)))
	assert.Equal(t, "OUT", hist.Movements[1].MovementType)
	assert.True(t, hist.Movements[1].Quantity.Equal(dec(30)))
	assert.Equal(t, "Stock Keeper", hist.Movements[0].UserName)
	assert.Equal(t, int64(2), hist.Pagination.Total)
	assert.Equal(t, 1, hist.Pagination.Pages)
}

func TestLedger_SetLevelUpwardWritesIn(t *testing.T) {
	f := newLedgerFixture(t)
	m := testutil.SeedMaterial(t, f.db, "MAT-UP", "5", "0")

	change, err := f.svc.SetLevel(context.Background(), MaterialTarget(m.ID), SetLevelInput{Quantity: testutil.Dec(t, "12.5"), Reason: "count", UserID: f.user.ID})
	require.NoError(t, err)
	require.NotNil(t, change.Movement)
	assert.Equal(t, model.MovementIn, change.Movement.MovementType)
	assert.True(t, change.Movement.Quantity.Equal(testutil.Dec(t, "7.5")))
}

func TestLedger_AdjustToExactlyZeroIsAllowed(t *testing.T) {
	f := newLedgerFixture(t)
	m := testutil.SeedMaterial(t, f.db, "MAT-Z", "3", "0")

	change, err := f.svc.Adjust(context.Background(), MaterialTarget(m.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(3), Reason: "used", UserID: f.user.ID})
	require.NoError(t, err)
	assert.True(t, change.Current.IsZero())
}

// ── Invariants ────────────────────────────────────────────────────────────────

func TestLedger_QtyMatchesLastMovementAndNeverNegative(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "MAT-INV", "10", "0")
	target := MaterialTarget(m.ID)

	steps := []struct {
		adjust *AdjustInput
		set    *SetLevelInput
	}{
		{adjust: &AdjustInput{Type: model.MovementIn, Quantity: dec(5)}},
		{adjust: &AdjustInput{Type: model.MovementOut, Quantity: dec(20)}}, // rejected
		{set: &SetLevelInput{Quantity: dec(0)}},
		{adjust: &AdjustInput{Type: model.MovementOut, Quantity: dec(1)}}, // rejected
		{set: &SetLevelInput{Quantity: dec(0)}},                           // no-op
		{adjust: &AdjustInput{Type: model.MovementIn, Quantity: testutil.Dec(t, "0.25")}},
		{set: &SetLevelInput{Quantity: dec(9)}},
	}

	written := 0
	for i, st := range steps {
		before := f.qty(t, m.ID)
		var change *StockChange
		var err error
		if st.adjust != nil {
			in := *st.adjust
			in.Reason, in.UserID = "step", f.user.ID
			change, err = f.svc.Adjust(ctx, target, in)
		} else {
			in := *st.set
			in.Reason, in.UserID = "step", f.user.ID
			change, err = f.svc.SetLevel(ctx, target, in)
		}

		after := f.qty(t, m.ID)
		assert.False(t, after.IsNegative(), "step %d", i)
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientStock, "step %d", i)
			assert.True(t, after.Equal(before), "rejected step %d must not change qty", i)
		} else if change.Movement != nil {
			written++
			assert.True(t, change.Movement.Quantity.Equal(after.Sub(before).Abs()), "step %d", i)
		}

		rows := f.movements(t, m.ID)
		require.Len(t, rows, written, "step %d", i)
		if written > 0 {
			assert.True(t, rows[len(rows)-1].QtyAfter.Equal(after), "step %d: latest qtyAfter must equal qtyOnHand", i)
		}
	}

	// Net of all deltas replays the balance.
	net := dec(10)
	for _, r := range f.movements(t, m.ID) {
		if r.MovementType == model.MovementIn {
			net = net.Add(r.Quantity)
		} else {
			net = net.Sub(r.Quantity)
		}
		assert.True(t, net.Equal(r.QtyAfter))
	}
	assert.True(t, net.Equal(f.qty(t, m.ID)))
}

func TestLedger_ConcurrentAdjustsDoNotLoseUpdates(t *testing.T) {
	f := newLedgerFixture(t)
	m := testutil.SeedMaterial(t, f.db, "MAT-RACE", "100", "0")
	target := MaterialTarget(m.ID)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := model.MovementIn
			if i%2 == 0 {
				typ = model.MovementOut
			}
			_, err := f.svc.Adjust(context.Background(), target, AdjustInput{Type: typ, Quantity: dec(3), Reason: "race", UserID: f.user.ID})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, f.qty(t, m.ID).Equal(dec(100)))
	rows := f.movements(t, m.ID)
	require.Len(t, rows, n)
	running := dec(100)
	for _, r := range rows {
		if r.MovementType == model.MovementIn {
			running = running.Add(r.Quantity)
		} else {
			running = running.Sub(r.Quantity)
		}
		assert.True(t, running.Equal(r.QtyAfter), "movement %d chain broken", r.ID)
	}
}

// ── Validation happens before the database ───────────────────────────────────

type explodingStockRepo struct{ repository.StockRepository }

func (explodingStockRepo) DB() *gorm.DB { panic("database touched") }

type explodingUserRepo struct{ repository.UserRepository }

func (explodingUserRepo) Exists(context.Context, uint) (bool, error) { panic("database touched") }

func TestLedger_RejectsMalformedInputBeforeDatabase(t *testing.T) {
	svc := NewLedgerService(explodingStockRepo{}, explodingUserRepo{}, nil, nil)
	ctx := context.Background()
	target := MaterialTarget(1)

	cases := map[string]AdjustInput{
		"bad type":       {Type: "ADJUST", Quantity: dec(1), Reason: "r", UserID: 1},
		"zero quantity":  {Type: model.MovementIn, Quantity: dec(0), Reason: "r", UserID: 1},
		"negative":       {Type: model.MovementOut, Quantity: dec(-2), Reason: "r", UserID: 1},
		"blank reason":   {Type: model.MovementIn, Quantity: dec(1), Reason: "   ", UserID: 1},
		"missing actor":  {Type: model.MovementIn, Quantity: dec(1), Reason: "r"},
		"too many scale": {Type: model.MovementIn, Quantity: testutil.Dec(t, "1.0001"), Reason: "r", UserID: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Adjust(ctx, target, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := svc.SetLevel(ctx, target, SetLevelInput{Quantity: dec(-1), Reason: "r", UserID: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Adjust(ctx, StockTarget{Kind: "pallet", ID: 1}, AdjustInput{Type: model.MovementIn, Quantity: dec(1), Reason: "r", UserID: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Adjust(ctx, MaterialTarget(0), AdjustInput{Type: model.MovementIn, Quantity: dec(1), Reason: "r", UserID: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_NotFound(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "MAT-NF", "1", "0")

	_, err := f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementIn, Quantity: dec(1), Reason: "r", UserID: 9999})
	assert.ErrorIs(t, err, ErrNotFound, "unknown actor")

	_, err = f.svc.Adjust(ctx, MaterialTarget(9999), AdjustInput{Type: model.MovementIn, Quantity: dec(1), Reason: "r", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrNotFound, "unknown material")

	_, err = f.svc.SetLevel(ctx, ProductTarget(9999), SetLevelInput{Quantity: dec(1), Reason: "r", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrNotFound, "unknown product")

	_, err = f.svc.History(ctx, ProductTarget(9999), 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.movements(t, m.ID))
}

func TestLedger_CancelledContextWritesNothing(t *testing.T) {
	f := newLedgerFixture(t)
	m := testutil.SeedMaterial(t, f.db, "MAT-CTX", "10", "0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(1), Reason: "r", UserID: f.user.ID})
	require.Error(t, err)
	assert.True(t, f.qty(t, m.ID).Equal(dec(10)))
	assert.Empty(t, f.movements(t, m.ID))
}

// ── Products share the ledger ─────────────────────────────────────────────────

func TestLedger_ProductStock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "TOP-240101-001", "4")

	change, err := f.svc.Adjust(ctx, ProductTarget(p.ID), AdjustInput{Type: model.MovementIn, Quantity: dec(6), Reason: "finished batch", UserID: f.user.ID})
	require.NoError(t, err)
	require.NotNil(t, change.Product)
	assert.True(t, change.Product.QtyOnHand.Equal(dec(10)))
	require.NotNil(t, change.Movement.ProductID)
	assert.Nil(t, change.Movement.MaterialID)

	_, err = f.svc.SetLevel(ctx, ProductTarget(p.ID), SetLevelInput{Quantity: dec(-1), Reason: "x", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrValidation)

	hist, err := f.svc.History(ctx, ProductTarget(p.ID), 0, 0)
	require.NoError(t, err)
	assert.Len(t, hist.Movements, 1)
	assert.Equal(t, 20, hist.Pagination.Limit)
	assert.Empty(t, f.alerts.sent, "products never raise material alerts")
}

// ── Side effects after commit ─────────────────────────────────────────────────

func TestLedger_StockAlertOnlyWhenOutEndsAtOrBelowMinimum(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "MAT-AL", "20", "10")
	target := MaterialTarget(m.ID)

	_, err := f.svc.Adjust(ctx, target, AdjustInput{Type: model.MovementOut, Quantity: dec(5), Reason: "cut", UserID: f.user.ID})
	require.NoError(t, err)
	assert.Empty(t, f.alerts.sent)

	_, err = f.svc.Adjust(ctx, target, AdjustInput{Type: model.MovementOut, Quantity: dec(5), Reason: "cut", UserID: f.user.ID})
	require.NoError(t, err)
	require.Len(t, f.alerts.sent, 1)
	assert.Equal(t, "MAT-AL", f.alerts.sent[0].Code)
	assert.True(t, f.alerts.sent[0].QtyOnHand.Equal(dec(10)))

	_, err = f.svc.Adjust(ctx, target, AdjustInput{Type: model.MovementIn, Quantity: dec(1), Reason: "return", UserID: f.user.ID})
	require.NoError(t, err)
	assert.Len(t, f.alerts.sent, 1, "IN movements never alert")
}

func TestLedger_CriticalStockOrderingAndInvalidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	a := testutil.SeedMaterial(t, f.db, "A", "5", "10")  // -5
	b := testutil.SeedMaterial(t, f.db, "B", "0", "20")  // -20
	testutil.SeedMaterial(t, f.db, "C", "50", "10")      // fine
	d := testutil.SeedMaterial(t, f.db, "D", "10", "10") // 0

	list, err := f.svc.CriticalStock(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{b.ID, a.ID, d.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})
	assert.True(t, list[0].IsCritical)

	// Cached until the next ledger write in the namespace.
	_, err = f.svc.Adjust(ctx, MaterialTarget(a.ID), AdjustInput{Type: model.MovementIn, Quantity: dec(10), Reason: "delivery", UserID: f.user.ID})
	require.NoError(t, err)

	list, err = f.svc.CriticalStock(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2, "a write must never leave a stale cached list behind")
}

func TestLedgerService_AlertOutlivesRequestContext(t *testing.T) {
	f := newLedgerFixture(t)
	m := testutil.SeedMaterial(t, f.db, "MAT-CTX", "10", "5")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(6), Reason: "cutting", UserID: f.user.ID})
	cancel()
	require.NoError(t, err)

	f.alerts.mu.Lock()
	defer f.alerts.mu.Unlock()
	require.Len(t, f.alerts.sent, 1)
	assert.Zero(t, f.alerts.cancellable, "post-commit alert must not inherit request cancellation")
}

func TestLedgerService_RejectsQuantitiesPastColumnRange(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "MAT-BIG", "99999999990", "0")

	_, err := f.svc.SetLevel(ctx, MaterialTarget(m.ID), SetLevelInput{Quantity: testutil.Dec(t, "100000000000"), Reason: "recount", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementIn, Quantity: testutil.Dec(t, "1e12"), Reason: "delivery", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementIn, Quantity: dec(10), Reason: "delivery", UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrValidation, "the resulting level must fit too")

	change, err := f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementIn, Quantity: testutil.Dec(t, "9.999"), Reason: "delivery", UserID: f.user.ID})
	require.NoError(t, err)
	assert.Equal(t, "99999999999.999", change.Current.String())

	var movements int64
	require.NoError(t, f.db.Model(&model.MaterialMovement{}).Where("material_id = ?", m.ID).Count(&movements).Error)
	assert.EqualValues(t, 1, movements)
}
