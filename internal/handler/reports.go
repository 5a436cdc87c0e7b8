package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/apierror"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"

	maxImportBytes = 10 << 20
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// attachment renders into a buffer first so a failure halfway still yields
// a clean JSON error instead of a truncated file.
func attachment(c *gin.Context, mime, name string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, mime, buf.Bytes())
}

func stamp() string { return time.Now().Format("20060102") }

// MaterialsXLSX godoc
// @Summary      Export all materials as a spreadsheet
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file
// @Security     BearerAuth
// @Router       /api/reports/materials.xlsx [get]
func (h *ReportsHandler) MaterialsXLSX(c *gin.Context) {
	attachment(c, mimeXLSX, "materials-"+stamp()+".xlsx", func(buf *bytes.Buffer) error {
		return h.svc.MaterialsXLSX(c.Request.Context(), buf)
	})
}

func (h *ReportsHandler) MovementsXLSX(c *gin.Context) {
	var filter dto.MovementReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	attachment(c, mimeXLSX, "movements-"+stamp()+".xlsx", func(buf *bytes.Buffer) error {
		return h.svc.MovementsXLSX(c.Request.Context(), buf, filter)
	})
}

func (h *ReportsHandler) CriticalStockPDF(c *gin.Context) {
	attachment(c, mimePDF, "critical-stock-"+stamp()+".pdf", func(buf *bytes.Buffer) error {
		return h.svc.CriticalStockPDF(c.Request.Context(), buf)
	})
}

// ImportStockCount godoc
// @Summary      Apply a physical stock count from a spreadsheet
// @Description  First sheet needs "code" and "counted" columns. Each row sets the material to the counted level; bad rows are reported, not fatal.
// @Tags         reports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "XLSX workbook"
// @Success      200  {object}  dto.StockCountImportResponse
// @Failure      400  {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/reports/stock-count [post]
func (h *ReportsHandler) ImportStockCount(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("multipart field \"file\" is required"))
		return
	}
	if fh.Size > maxImportBytes {
		c.JSON(http.StatusBadRequest, apierror.New("workbook exceeds 10 MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("unable to read upload"))
		return
	}
	defer f.Close()

	resp, err := h.svc.ImportStockCount(c.Request.Context(), f, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
