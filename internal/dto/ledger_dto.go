package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AdjustStockRequest moves stock IN or OUT by a positive quantity.
// UserID is optional on the wire: the handler falls back to the caller's token.
type AdjustStockRequest struct {
	Type     string          `json:"type"     validate:"required,oneof=IN OUT"`
	Quantity decimal.Decimal `json:"quantity" validate:"required,gt=0"`
	Reason   string          `json:"reason"   validate:"required,max=500"`
	UserID   uint            `json:"userId"`
}

// SetStockRequest sets stock to an absolute, non-negative level.
type SetStockRequest struct {
	Quantity *decimal.Decimal `json:"quantity" validate:"required,min=0"`
	Reason   string           `json:"reason"   validate:"required,max=500"`
	UserID   uint             `json:"userId"`
}

type MovementFilter struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovementResponse struct {
	ID           uint            `json:"id"`
	MaterialID   *uint           `json:"materialId,omitempty"`
	ProductID    *uint           `json:"productId,omitempty"`
	MovementType string          `json:"movementType"`
	Quantity     decimal.Decimal `json:"quantity"`
	QtyAfter     decimal.Decimal `json:"qtyAfter"`
	Reason       string          `json:"reason"`
	UserID       uint            `json:"userId"`
	UserName     string          `json:"userName,omitempty"`
	EntityName   string          `json:"entityName,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type MovementListResponse struct {
	Movements  []MovementResponse `json:"movements"`
	Pagination Pagination         `json:"pagination"`
}

// MaterialAdjustResponse answers POST /materials-management/:id/adjust.
type MaterialAdjustResponse struct {
	Message          string           `json:"message"`
	Material         MaterialResponse `json:"material"`
	PreviousQuantity decimal.Decimal  `json:"previousQuantity"`
	NewQuantity      decimal.Decimal  `json:"newQuantity"`
	Adjustment       MovementResponse `json:"adjustment"`
}

// MaterialSetStockResponse answers PUT /materials-management/:id/stock.
// Movement is nil when the level did not change.
type MaterialSetStockResponse struct {
	Message            string            `json:"message"`
	Material           MaterialResponse  `json:"material"`
	PreviousQuantity   decimal.Decimal   `json:"previousQuantity"`
	NewQuantity        decimal.Decimal   `json:"newQuantity"`
	QuantityDifference decimal.Decimal   `json:"quantityDifference"`
	Movement           *MovementResponse `json:"movement"`
}

// ProductStockResponse answers both product stock endpoints.
type ProductStockResponse struct {
	Message string       `json:"message"`
	Product ProductStock `json:"product"`
}

type ProductStock struct {
	ID            uint              `json:"id"`
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	Unit          string            `json:"unit"`
	PreviousStock decimal.Decimal   `json:"previousStock"`
	NewStock      decimal.Decimal   `json:"newStock"`
	Difference    decimal.Decimal   `json:"difference"`
	Movement      *MovementResponse `json:"movement"`
}
