package infra

// pdf.go renders the critical stock report with go-pdf/fpdf: an A4 table of
// every material at or below its minimum, most urgent first.

import (
	"fmt"
	"io"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/dto"

	"github.com/go-pdf/fpdf"
)

// WriteCriticalStockPDF writes the report for rows (already ordered) to w.
func WriteCriticalStockPDF(w io.Writer, rows []dto.MaterialResponse, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Critical stock report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Generated "+generatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW, 8, "No material is at or below its minimum stock.", "", 1, "L", false, 0, "")
		return pdf.Output(w)
	}

	// ── Table ────────────────────────────────────────────────────────────────
	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Code", 0.22, "L"},
		{"Name", 0.30, "L"},
		{"Unit", 0.08, "C"},
		{"On hand", 0.13, "R"},
		{"Minimum", 0.13, "R"},
		{"Shortfall", 0.14, "R"},
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range cols {
			pdf.CellFormat(contentW*c.width, 6, c.title, "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageH := pdf.GetPageSize()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, m := range rows {
		if pdf.GetY()+6 > pageH-14 {
			pdf.AddPage()
			header()
		}
		shortfall := m.MinStock.Sub(m.QtyOnHand)
		values := []string{
			m.Code,
			tr(m.Name),
			m.Unit,
			m.QtyOnHand.String(),
			m.MinStock.String(),
			shortfall.String(),
		}
		for i, c := range cols {
			pdf.CellFormat(contentW*c.width, 6, values[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%d materials need restocking", len(rows)), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}
