package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product categories form a closed enumeration; each maps to a code prefix.
const (
	CategoryTop       = "TOP"
	CategoryBottom    = "BOTTOM"
	CategoryDress     = "DRESS"
	CategoryOuterwear = "OUTERWEAR"
	CategoryAccessory = "ACCESSORY"
	CategoryOther     = "OTHER"
)

// CategoryPrefixes maps a category to the prefix used in generated product codes.
var CategoryPrefixes = map[string]string{
	CategoryTop:       "TOP",
	CategoryBottom:    "BTM",
	CategoryDress:     "DRS",
	CategoryOuterwear: "OUT",
	CategoryAccessory: "ACC",
	CategoryOther:     "OTH",
}

// Product is a sellable item. Like Material, QtyOnHand is owned by the ledger.
type Product struct {
	ID             uint            `gorm:"primaryKey"`
	Code           string          `gorm:"uniqueIndex;not null"`
	Name           string          `gorm:"index;not null"`
	Description    *string
	Category       string          `gorm:"type:varchar(20);not null;index"`
	BaseMaterialID *uint           `gorm:"index"`
	Price          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	QtyOnHand      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	Unit           string          `gorm:"not null;default:'pcs'"`
	DefaultTarget  int             `gorm:"not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
	ColorID        *uint
	VariationID    *uint
	CreatedAt      time.Time
	UpdatedAt      time.Time

	BaseMaterial *Material         `gorm:"foreignKey:BaseMaterialID"`
	Color        *Color            `gorm:"foreignKey:ColorID"`
	Variation    *Variation        `gorm:"foreignKey:VariationID"`
	Photos       []ProductPhoto    `gorm:"foreignKey:ProductID"`
	Materials    []ProductMaterial `gorm:"foreignKey:ProductID"`
}

// ProductPhoto is one image of a product; Position orders the gallery.
type ProductPhoto struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"not null;index"`
	Path      string `gorm:"not null"`
	URL       string `gorm:"not null"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
}

// ProductMaterial records how much of a material one unit of a product consumes.
// Only used for availability projections, never to mutate stock.
type ProductMaterial struct {
	ID              uint            `gorm:"primaryKey"`
	ProductID       uint            `gorm:"not null;uniqueIndex:idx_product_material"`
	MaterialID      uint            `gorm:"not null;uniqueIndex:idx_product_material"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(14,3);not null"`

	Material *Material `gorm:"foreignKey:MaterialID"`
}
