package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// StockCountReason is recorded on every movement written by a stock-count import.
const StockCountReason = "stock count import"

// ReportService produces spreadsheet and PDF exports and applies physical
// stock counts uploaded as spreadsheets.
type ReportService interface {
	MaterialsXLSX(ctx context.Context, w io.Writer) error
	MovementsXLSX(ctx context.Context, w io.Writer, filter dto.MovementReportFilter) error
	CriticalStockPDF(ctx context.Context, w io.Writer) error
	ImportStockCount(ctx context.Context, r io.Reader, userID uint) (*dto.StockCountImportResponse, error)
}

type reportService struct {
	materials repository.MaterialRepository
	stock     repository.StockRepository
	ledger    LedgerService
	now       func() time.Time
}

func NewReportService(materials repository.MaterialRepository, stock repository.StockRepository, ledger LedgerService) ReportService {
	return &reportService{materials: materials, stock: stock, ledger: ledger, now: time.Now}
}

// writeSheet fills the first sheet with header and rows and streams the workbook to w.
func writeSheet(w io.Writer, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func (s *reportService) MaterialsXLSX(ctx context.Context, w io.Writer) error {
	materials, err := s.materials.ListAll(ctx)
	if err != nil {
		return err
	}
	header := []interface{}{"code", "name", "unit", "qtyOnHand", "minStock", "pricePerUnit", "supplier", "location", "critical"}
	rows := make([][]interface{}, 0, len(materials))
	for _, m := range materials {
		rows = append(rows, []interface{}{
			m.Code,
			m.Name,
			m.Unit,
			m.QtyOnHand.InexactFloat64(),
			m.MinStock.InexactFloat64(),
			m.PricePerUnit.InexactFloat64(),
			deref(m.Supplier),
			deref(m.Location),
			m.QtyOnHand.LessThanOrEqual(m.MinStock),
		})
	}
	return writeSheet(w, header, rows)
}

func (s *reportService) MovementsXLSX(ctx context.Context, w io.Writer, filter dto.MovementReportFilter) error {
	from, to, err := parseDateRange(filter.From, filter.To)
	if err != nil {
		return err
	}
	movements, _, err := s.stock.ListMovements(ctx, repository.MovementFilter{From: from, To: to})
	if err != nil {
		return err
	}

	header := []interface{}{"id", "createdAt", "entity", "code", "name", "type", "quantity", "qtyAfter", "reason", "user"}
	rows := make([][]interface{}, 0, len(movements))
	for _, mv := range movements {
		entity, code, name := "", "", ""
		switch {
		case mv.Material != nil:
			entity, code, name = string(KindMaterial), mv.Material.Code, mv.Material.Name
		case mv.Product != nil:
			entity, code, name = string(KindProduct), mv.Product.Code, mv.Product.Name
		}
		user := ""
		if mv.User != nil {
			user = mv.User.Name
		}
		rows = append(rows, []interface{}{
			mv.ID,
			mv.CreatedAt.Format(time.RFC3339),
			entity,
			code,
			name,
			string(mv.MovementType),
			mv.Quantity.InexactFloat64(),
			mv.QtyAfter.InexactFloat64(),
			mv.Reason,
			user,
		})
	}
	return writeSheet(w, header, rows)
}

// parseDateRange turns inclusive YYYY-MM-DD bounds into [from, to+1day).
func parseDateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			return nil, nil, validationf("from must be YYYY-MM-DD")
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return nil, nil, validationf("to must be YYYY-MM-DD")
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, validationf("from must not be after to")
	}
	return from, to, nil
}

func (s *reportService) CriticalStockPDF(ctx context.Context, w io.Writer) error {
	rows, err := s.ledger.CriticalStock(ctx)
	if err != nil {
		return err
	}
	return infra.WriteCriticalStockPDF(w, rows, s.now())
}

// ImportStockCount reads a workbook whose first sheet has a "code" column and
// a "counted" (or "quantity") column, and sets each material to the counted
// level through the ledger. A bad row is reported and skipped; it never
// aborts the rest of the batch.
func (s *reportService) ImportStockCount(ctx context.Context, r io.Reader, userID uint) (*dto.StockCountImportResponse, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationf("unable to read workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, validationf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, validationf("unable to read rows: %v", err)
	}
	if len(rows) < 2 {
		return nil, validationf("workbook has no data rows")
	}

	codeCol, qtyCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "code":
			codeCol = i
		case "counted", "quantity", "qty":
			if qtyCol < 0 {
				qtyCol = i
			}
		}
	}
	if codeCol < 0 || qtyCol < 0 {
		return nil, validationf(`header must contain "code" and "counted" columns`)
	}

	resp := &dto.StockCountImportResponse{Rows: []dto.StockCountRowResult{}}
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code, raw := cell(row, codeCol), cell(row, qtyCol)
		if code == "" && raw == "" {
			continue
		}
		result := dto.StockCountRowResult{Row: i + 2, Code: code}
		s.applyCount(ctx, &result, raw, userID)

		resp.Processed++
		switch {
		case result.Error != "":
			resp.Failed++
		case result.Changed:
			resp.Updated++
		default:
			resp.Unchanged++
		}
		resp.Rows = append(resp.Rows, result)
	}
	return resp, nil
}

func (s *reportService) applyCount(ctx context.Context, result *dto.StockCountRowResult, raw string, userID uint) {
	if result.Code == "" {
		result.Error = "code is empty"
		return
	}
	counted, err := decimal.NewFromString(raw)
	if err != nil {
		result.Error = fmt.Sprintf("counted %q is not a number", raw)
		return
	}
	result.Counted = &counted

	m, err := s.materials.FindByCode(ctx, result.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Error = "unknown material code"
		} else {
			result.Error = "lookup failed"
		}
		return
	}

	change, err := s.ledger.SetLevel(ctx, MaterialTarget(m.ID), SetLevelInput{
		Quantity: counted,
		Reason:   StockCountReason,
		UserID:   userID,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
			result.Error = err.Error()
		} else {
			result.Error = "update failed"
		}
		return
	}
	result.Previous = &change.Previous
	result.Changed = change.Movement != nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
