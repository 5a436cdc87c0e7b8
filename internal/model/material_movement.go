package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger row.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
	// MovementAdjust is accepted on read for rows imported from legacy data;
	// the ledger itself only writes IN and OUT.
	MovementAdjust MovementType = "ADJUST"
)

// Valid reports whether t is one of the stored movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// MaterialMovement is an immutable audit row of the stock ledger.
// Exactly one of MaterialID / ProductID is set. QtyAfter equals the owning
// entity's QtyOnHand at the moment the row was written.
// Rows are NEVER updated or deleted.
type MaterialMovement struct {
	ID           uint            `gorm:"primaryKey"`
	MaterialID   *uint           `gorm:"index"`
	ProductID    *uint           `gorm:"index"`
	MovementType MovementType    `gorm:"type:varchar(10);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"` // always a positive magnitude
	QtyAfter     decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Reason       string          `gorm:"not null"`
	UserID       uint            `gorm:"not null;index"`
	CreatedAt    time.Time       `gorm:"index"`

	Material *Material `gorm:"foreignKey:MaterialID"`
	Product  *Product  `gorm:"foreignKey:ProductID"`
	User     *User     `gorm:"foreignKey:UserID"`
}
