package repository

import (
	"context"
	"errors"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type OrderRepository interface {
	// CreateTx inserts the order and its items; callers open the tx.
	CreateTx(tx *gorm.DB, o *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	LockTx(tx *gorm.DB, id uint) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	UpdateFieldsTx(tx *gorm.DB, id uint, fields map[string]interface{}) error
	ReplaceItemsTx(tx *gorm.DB, orderID uint, items []model.OrderProduct) error
	IncrementItemTx(tx *gorm.DB, orderID, productID uint, pieces int) error
	Delete(ctx context.Context, id uint) error
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)

	CreateProgressTx(tx *gorm.DB, p *model.ProgressReport) error
	ListProgress(ctx context.Context, orderID uint) ([]model.ProgressReport, error)

	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.Order) error {
	return tx.Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Customer").Preload("Worker").
		First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) LockTx(tx *gorm.DB, id uint) (*model.Order, error) {
	var o model.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("order_id = ?", id).Order("id ASC").Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(order_number) LIKE ? OR LOWER(description) LIKE ?", p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []model.Order
	err := q.Preload("Items").Preload("Customer").Preload("Worker").
		Order("created_at DESC").Order("id DESC").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) UpdateFieldsTx(tx *gorm.DB, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *orderRepo) ReplaceItemsTx(tx *gorm.DB, orderID uint, items []model.OrderProduct) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderProduct{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
	}
	return tx.Create(&items).Error
}

func (r *orderRepo) IncrementItemTx(tx *gorm.DB, orderID, productID uint, pieces int) error {
	return tx.Model(&model.OrderProduct{}).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Update("completed_quantity", gorm.Expr("completed_quantity + ?", pieces)).Error
}

func (r *orderRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&model.ProgressReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&model.OrderProduct{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Order{}, id).Error
	})
}

func (r *orderRepo) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Select("order_number").
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return o.OrderNumber, err
}

func (r *orderRepo) CreateProgressTx(tx *gorm.DB, p *model.ProgressReport) error {
	return tx.Create(p).Error
}

func (r *orderRepo) ListProgress(ctx context.Context, orderID uint) ([]model.ProgressReport, error) {
	var reports []model.ProgressReport
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("created_at DESC").Order("id DESC").Find(&reports).Error
	return reports, err
}
