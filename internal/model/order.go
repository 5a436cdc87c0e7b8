package model

import "time"

// Order statuses.
const (
	OrderCreated      = "CREATED"
	OrderNeedMaterial = "NEED_MATERIAL"
	OrderProcessing   = "PROCESSING"
	OrderCompleted    = "COMPLETED"
	OrderCancelled    = "CANCELLED"
)

// Order is a production order. Orders never mutate stock.
type Order struct {
	ID              uint   `gorm:"primaryKey"`
	OrderNumber     string `gorm:"uniqueIndex;not null"`
	CustomerID      *uint  `gorm:"index"`
	WorkerID        *uint  `gorm:"index"`
	Status          string `gorm:"type:varchar(20);not null;default:'CREATED';index"`
	DueDate         *time.Time
	Description     *string
	TargetPieces    int  `gorm:"not null;default:0"`
	CompletedPieces int  `gorm:"not null;default:0"`
	CreatedBy       uint `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Customer        *Contact         `gorm:"foreignKey:CustomerID"`
	Worker          *Contact         `gorm:"foreignKey:WorkerID"`
	Items           []OrderProduct   `gorm:"foreignKey:OrderID"`
	ProgressReports []ProgressReport `gorm:"foreignKey:OrderID"`
}

// OrderProduct links a product and a quantity to an order.
type OrderProduct struct {
	ID                uint `gorm:"primaryKey"`
	OrderID           uint `gorm:"not null;index"`
	ProductID         uint `gorm:"not null;index"`
	Quantity          int  `gorm:"not null"`
	CompletedQuantity int  `gorm:"not null;default:0"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

// ProgressReport records pieces completed against an order.
type ProgressReport struct {
	ID         uint  `gorm:"primaryKey"`
	OrderID    uint  `gorm:"not null;index"`
	ProductID  *uint `gorm:"index"`
	Pieces     int   `gorm:"not null"`
	Note       *string
	PhotoPath  *string
	ReportedBy uint `gorm:"not null"`
	CreatedAt  time.Time
}
