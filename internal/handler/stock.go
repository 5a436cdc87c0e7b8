package handler

import (
	"net/http"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// StockHandler exposes the inventory ledger for materials and products.
type StockHandler struct{ ledger service.LedgerService }

func NewStockHandler(ledger service.LedgerService) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// AdjustMaterial godoc
// @Summary      Move material stock in or out
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        id    path  int                      true  "Material ID"
// @Param        body  body  dto.AdjustStockRequest   true  "Adjustment"
// @Success      200   {object}  dto.MaterialAdjustResponse
// @Failure      400   {object}  apierror.APIError
// @Failure      404   {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/materials-management/{id}/adjust [post]
func (h *StockHandler) AdjustMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	change, err := h.ledger.Adjust(c.Request.Context(), service.MaterialTarget(id), service.AdjustInput{
		Type:     model.MovementType(req.Type),
		Quantity: req.Quantity,
		Reason:   req.Reason,
		UserID:   actorID(c, req.UserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MaterialAdjustResponse{
		Message:          "Stock adjusted successfully",
		Material:         service.MaterialToResponse(change.Material),
		PreviousQuantity: change.Previous,
		NewQuantity:      change.Current,
		Adjustment:       service.MovementToResponse(change.Movement),
	})
}

// SetMaterialStock godoc
// @Summary      Set material stock to an absolute level
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        id    path  int                  true  "Material ID"
// @Param        body  body  dto.SetStockRequest  true  "New level"
// @Success      200   {object}  dto.MaterialSetStockResponse
// @Failure      400   {object}  apierror.APIError
// @Failure      404   {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/materials-management/{id}/stock [put]
func (h *StockHandler) SetMaterialStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	change, err := h.ledger.SetLevel(c.Request.Context(), service.MaterialTarget(id), service.SetLevelInput{
		Quantity: *req.Quantity,
		Reason:   req.Reason,
		UserID:   actorID(c, req.UserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.MaterialSetStockResponse{
		Message:            "Stock level unchanged",
		Material:           service.MaterialToResponse(change.Material),
		PreviousQuantity:   change.Previous,
		NewQuantity:        change.Current,
		QuantityDifference: change.Delta(),
	}
	if change.Movement != nil {
		mv := service.MovementToResponse(change.Movement)
		resp.Movement = &mv
		resp.Message = "Stock level updated successfully"
	}
	c.JSON(http.StatusOK, resp)
}

// MaterialMovements godoc
// @Summary      Material movement history, newest first
// @Tags         materials
// @Produce      json
// @Param        id     path   int  true   "Material ID"
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Page size"
// @Success      200    {object}  dto.MovementListResponse
// @Failure      404    {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/materials-management/{id}/movements [get]
func (h *StockHandler) MaterialMovements(c *gin.Context) {
	h.history(c, service.MaterialTarget)
}

func (h *StockHandler) ProductMovements(c *gin.Context) {
	h.history(c, service.ProductTarget)
}

func (h *StockHandler) history(c *gin.Context, target func(uint) service.StockTarget) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.ledger.History(c.Request.Context(), target(id), filter.Page, filter.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CriticalStock godoc
// @Summary      Materials at or below their minimum stock
// @Tags         materials
// @Produce      json
// @Success      200  {object}  dto.DataResponse
// @Security     BearerAuth
// @Router       /api/materials-management/critical-stock [get]
func (h *StockHandler) CriticalStock(c *gin.Context) {
	rows, err := h.ledger.CriticalStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: rows})
}

// AdjustProduct godoc
// @Summary      Move product stock in or out
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path  int                     true  "Product ID"
// @Param        body  body  dto.AdjustStockRequest  true  "Adjustment"
// @Success      200   {object}  dto.ProductStockResponse
// @Failure      400   {object}  apierror.APIError
// @Failure      404   {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/products/{id}/stock/adjust [post]
func (h *StockHandler) AdjustProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	change, err := h.ledger.Adjust(c.Request.Context(), service.ProductTarget(id), service.AdjustInput{
		Type:     model.MovementType(req.Type),
		Quantity: req.Quantity,
		Reason:   req.Reason,
		UserID:   actorID(c, req.UserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productStockResponse("Product stock adjusted successfully", change))
}

// SetProductStock godoc
// @Summary      Set product stock to an absolute level
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path  int                  true  "Product ID"
// @Param        body  body  dto.SetStockRequest  true  "New level"
// @Success      200   {object}  dto.ProductStockResponse
// @Failure      400   {object}  apierror.APIError
// @Failure      404   {object}  apierror.APIError
// @Security     BearerAuth
// @Router       /api/products/{id}/stock/set [put]
func (h *StockHandler) SetProductStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	change, err := h.ledger.SetLevel(c.Request.Context(), service.ProductTarget(id), service.SetLevelInput{
		Quantity: *req.Quantity,
		Reason:   req.Reason,
		UserID:   actorID(c, req.UserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Product stock unchanged"
	if change.Movement != nil {
		msg = "Product stock updated successfully"
	}
	c.JSON(http.StatusOK, productStockResponse(msg, change))
}

func productStockResponse(msg string, change *service.StockChange) dto.ProductStockResponse {
	p := change.Product
	out := dto.ProductStockResponse{
		Message: msg,
		Product: dto.ProductStock{
			ID:            p.ID,
			Code:          p.Code,
			Name:          p.Name,
			Unit:          p.Unit,
			PreviousStock: change.Previous,
			NewStock:      change.Current,
			Difference:    change.Delta(),
		},
	}
	if change.Movement != nil {
		mv := service.MovementToResponse(change.Movement)
		out.Product.Movement = &mv
	}
	return out
}
