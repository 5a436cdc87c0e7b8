package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateMaterialRequest creates a material. QtyOnHand is the opening balance;
// every later change goes through the stock endpoints.
type CreateMaterialRequest struct {
	Name         string          `json:"name"         validate:"required,min=2,max=120"`
	Description  *string         `json:"description"  validate:"omitempty,max=1000"`
	Unit         string          `json:"unit"         validate:"required,max=20"`
	QtyOnHand    decimal.Decimal `json:"qtyOnHand"    validate:"min=0"`
	MinStock     decimal.Decimal `json:"minStock"     validate:"min=0"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit" validate:"min=0"`
	Supplier     *string         `json:"supplier"     validate:"omitempty,max=120"`
	Location     *string         `json:"location"     validate:"omitempty,max=120"`
}

// UpdateMaterialRequest never touches qtyOnHand.
type UpdateMaterialRequest struct {
	Name         *string          `json:"name"         validate:"omitempty,min=2,max=120"`
	Description  *string          `json:"description"  validate:"omitempty,max=1000"`
	Unit         *string          `json:"unit"         validate:"omitempty,max=20"`
	MinStock     *decimal.Decimal `json:"minStock"     validate:"omitempty,min=0"`
	PricePerUnit *decimal.Decimal `json:"pricePerUnit" validate:"omitempty,min=0"`
	Supplier     *string          `json:"supplier"     validate:"omitempty,max=120"`
	Location     *string          `json:"location"     validate:"omitempty,max=120"`
}

type CreateRemainingMaterialRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required,gt=0"`
	Unit     string          `json:"unit"     validate:"omitempty,max=20"`
	Notes    *string         `json:"notes"    validate:"omitempty,max=1000"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type MaterialFilter struct {
	Search   string `form:"search"`
	Supplier string `form:"supplier"`
	Location string `form:"location"`
	LowStock bool   `form:"lowStock"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=20"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MaterialResponse struct {
	ID           uint            `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Unit         string          `json:"unit"`
	QtyOnHand    decimal.Decimal `json:"qtyOnHand"`
	MinStock     decimal.Decimal `json:"minStock"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Supplier     *string         `json:"supplier"`
	Location     *string         `json:"location"`
	IsCritical   bool            `json:"isCritical"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type MaterialListResponse struct {
	Materials  []MaterialResponse `json:"materials"`
	Pagination Pagination         `json:"pagination"`
}

type RemainingMaterialResponse struct {
	ID         uint            `json:"id"`
	MaterialID uint            `json:"materialId"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	Notes      *string         `json:"notes"`
	CreatedAt  time.Time       `json:"createdAt"`
}
