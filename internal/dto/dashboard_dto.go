package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardSummary struct {
	TotalMaterials    int64            `json:"totalMaterials"`
	CriticalMaterials int64            `json:"criticalMaterials"`
	TotalProducts     int64            `json:"totalProducts"`
	ActiveProducts    int64            `json:"activeProducts"`
	TotalContacts     int64            `json:"totalContacts"`
	InventoryValue    decimal.Decimal  `json:"inventoryValue"`
	OrdersByStatus    map[string]int64 `json:"ordersByStatus"`
	MovementsToday    int64            `json:"movementsToday"`
}

type RecentMovement struct {
	ID           uint            `json:"id"          db:"id"`
	EntityKind   string          `json:"entityKind"  db:"entity_kind"`
	EntityID     uint            `json:"entityId"    db:"entity_id"`
	EntityName   string          `json:"entityName"  db:"entity_name"`
	MovementType string          `json:"movementType" db:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"    db:"quantity"`
	QtyAfter     decimal.Decimal `json:"qtyAfter"    db:"qty_after"`
	Reason       string          `json:"reason"      db:"reason"`
	UserName     string          `json:"userName"    db:"user_name"`
	CreatedAt    time.Time       `json:"createdAt"   db:"created_at"`
}

type ConsumedMaterial struct {
	MaterialID uint            `json:"materialId" db:"material_id"`
	Code       string          `json:"code"       db:"code"`
	Name       string          `json:"name"       db:"name"`
	Unit       string          `json:"unit"       db:"unit"`
	Consumed   decimal.Decimal `json:"consumed"   db:"consumed"`
}

type DashboardFilter struct {
	Limit int `form:"limit,default=10"`
	Days  int `form:"days,default=30"`
}
