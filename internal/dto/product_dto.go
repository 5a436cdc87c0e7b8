package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name           string          `json:"name"           validate:"required,min=2,max=120"`
	Description    *string         `json:"description"    validate:"omitempty,max=1000"`
	Category       string          `json:"category"       validate:"required,oneof=TOP BOTTOM DRESS OUTERWEAR ACCESSORY OTHER"`
	BaseMaterialID *uint           `json:"baseMaterialId"`
	Price          decimal.Decimal `json:"price"          validate:"min=0"`
	QtyOnHand      decimal.Decimal `json:"qtyOnHand"      validate:"min=0"`
	Unit           string          `json:"unit"           validate:"omitempty,max=20"`
	DefaultTarget  int             `json:"defaultTarget"  validate:"min=0"`
	ColorID        *uint           `json:"colorId"`
	VariationID    *uint           `json:"variationId"`
}

// UpdateProductRequest never touches qtyOnHand.
type UpdateProductRequest struct {
	Name           *string          `json:"name"           validate:"omitempty,min=2,max=120"`
	Description    *string          `json:"description"    validate:"omitempty,max=1000"`
	Category       *string          `json:"category"       validate:"omitempty,oneof=TOP BOTTOM DRESS OUTERWEAR ACCESSORY OTHER"`
	BaseMaterialID *uint            `json:"baseMaterialId"`
	Price          *decimal.Decimal `json:"price"          validate:"omitempty,min=0"`
	Unit           *string          `json:"unit"           validate:"omitempty,max=20"`
	DefaultTarget  *int             `json:"defaultTarget"  validate:"omitempty,min=0"`
	Active         *bool            `json:"active"`
	ColorID        *uint            `json:"colorId"`
	VariationID    *uint            `json:"variationId"`
}

type ReorderPhotosRequest struct {
	PhotoIDs []uint `json:"photoIds" validate:"required,min=1,dive,gt=0"`
}

type ProductMaterialInput struct {
	MaterialID      uint            `json:"materialId"      validate:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit" validate:"required,gt=0"`
}

type SetProductMaterialsRequest struct {
	Materials []ProductMaterialInput `json:"materials" validate:"dive"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Active   string `form:"active"` // "true" (default) | "false" | "all"
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=20"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductPhotoResponse struct {
	ID       uint   `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type ProductMaterialResponse struct {
	MaterialID      uint            `json:"materialId"`
	MaterialCode    string          `json:"materialCode"`
	MaterialName    string          `json:"materialName"`
	Unit            string          `json:"unit"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	QtyOnHand       decimal.Decimal `json:"qtyOnHand"`
	MaxProducible   int64           `json:"maxProducible"`
}

type ProductResponse struct {
	ID             uint                      `json:"id"`
	Code           string                    `json:"code"`
	Name           string                    `json:"name"`
	Description    *string                   `json:"description"`
	Category       string                    `json:"category"`
	BaseMaterialID *uint                     `json:"baseMaterialId"`
	Price          decimal.Decimal           `json:"price"`
	QtyOnHand      decimal.Decimal           `json:"qtyOnHand"`
	Unit           string                    `json:"unit"`
	DefaultTarget  int                       `json:"defaultTarget"`
	Active         bool                      `json:"active"`
	ColorID        *uint                     `json:"colorId"`
	ColorName      *string                   `json:"colorName,omitempty"`
	VariationID    *uint                     `json:"variationId"`
	VariationName  *string                   `json:"variationName,omitempty"`
	Photos         []ProductPhotoResponse    `json:"photos"`
	Materials      []ProductMaterialResponse `json:"materials,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

// AvailabilityResponse projects how many units the current material stock
// could produce. MaxProducible is nil when the product has no requirements.
type AvailabilityResponse struct {
	ProductID     uint                      `json:"productId"`
	Materials     []ProductMaterialResponse `json:"materials"`
	MaxProducible *int64                    `json:"maxProducible"`
	LimitingID    *uint                     `json:"limitingMaterialId"`
}
