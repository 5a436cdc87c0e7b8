package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a raw-material lot. QtyOnHand is only ever written by the
// inventory ledger; every change is justified by a MaterialMovement row.
type Material struct {
	ID           uint            `gorm:"primaryKey"`
	Code         string          `gorm:"uniqueIndex;not null"`
	Name         string          `gorm:"index;not null"`
	Description  *string
	Unit         string          `gorm:"not null;default:'pcs'"`
	QtyOnHand    decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	MinStock     decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Supplier     *string
	Location     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RemainingMaterial is a leftover lot handed back from production.
// Its existence blocks deletion of the parent Material.
type RemainingMaterial struct {
	ID         uint            `gorm:"primaryKey"`
	MaterialID uint            `gorm:"not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Unit       string          `gorm:"not null"`
	Notes      *string
	CreatedAt  time.Time

	Material *Material `gorm:"foreignKey:MaterialID"`
}
