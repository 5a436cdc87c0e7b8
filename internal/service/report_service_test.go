package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newReportFixture(t *testing.T) (*ledgerFixture, ReportService) {
	t.Helper()
	f := newLedgerFixture(t)
	svc := NewReportService(repository.NewMaterialRepository(f.db), repository.NewStockRepository(f.db), f.svc)
	return f, svc
}

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	x := excelize.NewFile()
	defer func() { _ = x.Close() }()
	sheet := x.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, x.SetSheetRow(sheet, cell, &rows[i]))
	}
	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReportService_ImportStockCount(t *testing.T) {
	f, svc := newReportFixture(t)
	ctx := context.Background()
	fabric := testutil.SeedMaterial(t, f.db, "FAB", "10", "0")
	testutil.SeedMaterial(t, f.db, "THR", "4", "0")

	in := workbook(t,
		[]interface{}{"Code", "Name", "Counted"},
		[]interface{}{"FAB", "Fabric", "7.5"},
		[]interface{}{"THR", "Thread", "4"},
		[]interface{}{"NOPE", "Ghost", "1"},
		[]interface{}{"FAB", "Fabric", "lots"},
		[]interface{}{"THR", "Thread", "-2"},
		[]interface{}{"", "", ""},
	)
	resp, err := svc.ImportStockCount(ctx, in, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Processed)
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, 1, resp.Unchanged)
	assert.Equal(t, 3, resp.Failed)
	assert.Equal(t, 2, resp.Rows[0].Row)
	assert.Equal(t, "unknown material code", resp.Rows[2].Error)
	assert.NotEmpty(t, resp.Rows[3].Error)
	assert.NotEmpty(t, resp.Rows[4].Error)

	assert.True(t, f.qty(t, fabric.ID).Equal(testutil.Dec(t, "7.5")))
	mv := f.movements(t, fabric.ID)
	require.Len(t, mv, 1)
	assert.Equal(t, model.MovementOut, mv[0].MovementType)
	assert.Equal(t, StockCountReason, mv[0].Reason)
}

func TestReportService_ImportRejectsBadWorkbooks(t *testing.T) {
	f, svc := newReportFixture(t)
	ctx := context.Background()

	_, err := svc.ImportStockCount(ctx, bytes.NewBufferString("not a workbook"), f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ImportStockCount(ctx, workbook(t, []interface{}{"sku", "amount"}, []interface{}{"A", "1"}), f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ImportStockCount(ctx, workbook(t, []interface{}{"code", "counted"}), f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportService_Exports(t *testing.T) {
	f, svc := newReportFixture(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, f.db, "FAB", "10", "8")
	_, err := f.svc.Adjust(ctx, MaterialTarget(m.ID), AdjustInput{Type: model.MovementOut, Quantity: dec(3), Reason: "cutting", UserID: f.user.ID})
	require.NoError(t, err)

	var materials bytes.Buffer
	require.NoError(t, svc.MaterialsXLSX(ctx, &materials))
	x, err := excelize.OpenReader(&materials)
	require.NoError(t, err)
	rows, err := x.GetRows(x.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "code", rows[0][0])
	assert.Equal(t, "FAB", rows[1][0])
	assert.Equal(t, "7", rows[1][3])
	assert.Equal(t, "TRUE", rows[1][8])

	var movements bytes.Buffer
	require.NoError(t, svc.MovementsXLSX(ctx, &movements, dto.MovementReportFilter{}))
	x, err = excelize.OpenReader(&movements)
	require.NoError(t, err)
	rows, err = x.GetRows(x.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "OUT", rows[1][5])
	assert.Equal(t, "Stock Keeper", rows[1][9])

	err = svc.MovementsXLSX(ctx, &movements, dto.MovementReportFilter{From: "2024-02-01", To: "2024-01-01"})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.MovementsXLSX(ctx, &movements, dto.MovementReportFilter{From: "yesterday"})
	assert.ErrorIs(t, err, ErrValidation)

	var pdf bytes.Buffer
	require.NoError(t, svc.CriticalStockPDF(ctx, &pdf))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")))
}
