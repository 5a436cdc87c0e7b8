package model

import (
	"time"

	"gorm.io/datatypes"
)

// Contact types.
const (
	ContactSupplier = "SUPPLIER"
	ContactWorker   = "WORKER"
	ContactCustomer = "CUSTOMER"
	ContactOther    = "OTHER"
)

// Contact is a supplier, worker, customer or other party.
type Contact struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"index;not null"`
	Type      string `gorm:"type:varchar(20);not null;index"`
	Phone     *string
	Email     *string
	Company   *string
	Address   *string
	Tags      datatypes.JSON `gorm:"type:json"`
	Active    bool           `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Notes []ContactNote `gorm:"foreignKey:ContactID"`
}

// ContactNote is a free-text note attached to a Contact.
type ContactNote struct {
	ID        uint   `gorm:"primaryKey"`
	ContactID uint   `gorm:"not null;index"`
	Body      string `gorm:"not null"`
	CreatedBy uint   `gorm:"not null"`
	CreatedAt time.Time
}
