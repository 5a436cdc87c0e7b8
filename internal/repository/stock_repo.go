package repository

import (
	"context"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementFilter selects ledger rows. Exactly one of MaterialID / ProductID
// is usually set; both nil lists every movement.
type MovementFilter struct {
	MaterialID *uint
	ProductID  *uint
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// StockRepository is the ledger's persistence contract.
//
// The *Tx methods must be given the transaction opened by the caller; the
// Lock* methods take a row lock (SELECT ... FOR UPDATE) that is held until
// that transaction ends.
type StockRepository interface {
	LockMaterialTx(tx *gorm.DB, id uint) (*model.Material, error)
	LockProductTx(tx *gorm.DB, id uint) (*model.Product, error)
	SetMaterialQtyTx(tx *gorm.DB, id uint, qty decimal.Decimal) error
	SetProductQtyTx(tx *gorm.DB, id uint, qty decimal.Decimal) error
	CreateMovementTx(tx *gorm.DB, m *model.MaterialMovement) error

	ListMovements(ctx context.Context, filter MovementFilter) ([]model.MaterialMovement, int64, error)
	CountMovements(ctx context.Context, filter MovementFilter) (int64, error)
	ListCritical(ctx context.Context) ([]model.Material, error)
	MaterialExists(ctx context.Context, id uint) (bool, error)
	ProductExists(ctx context.Context, id uint) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) LockMaterialTx(tx *gorm.DB, id uint) (*model.Material, error) {
	var m model.Material
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *stockRepo) LockProductTx(tx *gorm.DB, id uint) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *stockRepo) SetMaterialQtyTx(tx *gorm.DB, id uint, qty decimal.Decimal) error {
	return tx.Model(&model.Material{}).Where("id = ?", id).
		Updates(map[string]interface{}{"qty_on_hand": qty, "updated_at": time.Now()}).Error
}

func (r *stockRepo) SetProductQtyTx(tx *gorm.DB, id uint, qty decimal.Decimal) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"qty_on_hand": qty, "updated_at": time.Now()}).Error
}

func (r *stockRepo) CreateMovementTx(tx *gorm.DB, m *model.MaterialMovement) error {
	return tx.Create(m).Error
}

func (r *stockRepo) scoped(ctx context.Context, filter MovementFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.MaterialMovement{})
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	return q
}

func (r *stockRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]model.MaterialMovement, int64, error) {
	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []model.MaterialMovement
	err := r.scoped(ctx, filter).
		Preload("User").Preload("Material").Preload("Product").
		Order("created_at DESC").Order("id DESC").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&movements).Error
	return movements, total, err
}

func (r *stockRepo) CountMovements(ctx context.Context, filter MovementFilter) (int64, error) {
	var total int64
	err := r.scoped(ctx, filter).Count(&total).Error
	return total, err
}

func (r *stockRepo) ListCritical(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := r.db.WithContext(ctx).
		Where("qty_on_hand <= min_stock").
		Order("qty_on_hand - min_stock ASC").Order("name ASC").
		Find(&materials).Error
	return materials, err
}

func (r *stockRepo) MaterialExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *stockRepo) ProductExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
