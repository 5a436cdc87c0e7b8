// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns an in-memory SQLite database private to t with every model
// migrated. A single connection is used so transactions serialize the way
// row locks make them serialize on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// Dec parses s or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, db *gorm.DB, name, role string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinv",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedMaterial inserts a material with the given opening balance and minimum.
func SeedMaterial(t *testing.T, db *gorm.DB, code, qty, minStock string) *model.Material {
	t.Helper()
	m := &model.Material{
		Code:         code,
		Name:         "Material " + code,
		Unit:         "m",
		QtyOnHand:    Dec(t, qty),
		MinStock:     Dec(t, minStock),
		PricePerUnit: decimal.NewFromInt(2),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// SeedProduct inserts an active product with the given opening balance.
func SeedProduct(t *testing.T, db *gorm.DB, code, qty string) *model.Product {
	t.Helper()
	p := &model.Product{
		Code:      code,
		Name:      "Product " + code,
		Category:  model.CategoryTop,
		Price:     decimal.NewFromInt(10),
		QtyOnHand: Dec(t, qty),
		Unit:      "pcs",
		Active:    true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
