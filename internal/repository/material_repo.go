package repository

import (
	"context"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"gorm.io/gorm"
)

// MaterialFilter narrows material listings.
type MaterialFilter struct {
	Search   string
	Supplier string
	Location string
	LowStock bool
	Page     int
	Limit    int
}

type MaterialRepository interface {
	Create(ctx context.Context, m *model.Material) error
	FindByID(ctx context.Context, id uint) (*model.Material, error)
	FindByCode(ctx context.Context, code string) (*model.Material, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error)
	List(ctx context.Context, filter MaterialFilter) ([]model.Material, int64, error)
	ListAll(ctx context.Context) ([]model.Material, error)
	// UpdateFields writes the given columns only; qty_on_hand is never among them.
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	CountMovements(ctx context.Context, id uint) (int64, error)
	CountRemaining(ctx context.Context, id uint) (int64, error)
	CountProductRefs(ctx context.Context, id uint) (int64, error)

	CreateRemaining(ctx context.Context, r *model.RemainingMaterial) error
	ListRemaining(ctx context.Context, materialID uint) ([]model.RemainingMaterial, error)
	FindRemaining(ctx context.Context, id uint) (*model.RemainingMaterial, error)
	DeleteRemaining(ctx context.Context, id uint) error
}

type materialRepo struct{ db *gorm.DB }

func NewMaterialRepository(db *gorm.DB) MaterialRepository { return &materialRepo{db: db} }

func (r *materialRepo) Create(ctx context.Context, m *model.Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *materialRepo) FindByID(ctx context.Context, id uint) (*model.Material, error) {
	var m model.Material
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) FindByCode(ctx context.Context, code string) (*model.Material, error) {
	var m model.Material
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error) {
	var materials []model.Material
	if len(ids) == 0 {
		return materials, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&materials).Error
	return materials, err
}

func (r *materialRepo) List(ctx context.Context, filter MaterialFilter) ([]model.Material, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Material{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", p, p)
	}
	if filter.Supplier != "" {
		q = q.Where("LOWER(supplier) LIKE ?", likePattern(filter.Supplier))
	}
	if filter.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", likePattern(filter.Location))
	}
	if filter.LowStock {
		q = q.Where("qty_on_hand <= min_stock")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var materials []model.Material
	err := q.Order("name ASC").Order("id ASC").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&materials).Error
	return materials, total, err
}

func (r *materialRepo) ListAll(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := r.db.WithContext(ctx).Order("code ASC").Find(&materials).Error
	return materials, err
}

func (r *materialRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	delete(fields, "qty_on_hand")
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).Updates(fields).Error
}

func (r *materialRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Material{}, id).Error
}

func (r *materialRepo) CountMovements(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.MaterialMovement{}).Where("material_id = ?", id).Count(&n).Error
	return n, err
}

func (r *materialRepo) CountRemaining(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.RemainingMaterial{}).Where("material_id = ?", id).Count(&n).Error
	return n, err
}

// CountProductRefs counts products that use the material in their bill of
// materials or as their base material.
func (r *materialRepo) CountProductRefs(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("base_material_id = ? OR id IN (?)", id,
			r.db.Model(&model.ProductMaterial{}).Select("product_id").Where("material_id = ?", id)).
		Count(&n).Error
	return n, err
}

func (r *materialRepo) CreateRemaining(ctx context.Context, rm *model.RemainingMaterial) error {
	return r.db.WithContext(ctx).Create(rm).Error
}

func (r *materialRepo) ListRemaining(ctx context.Context, materialID uint) ([]model.RemainingMaterial, error) {
	var rows []model.RemainingMaterial
	err := r.db.WithContext(ctx).Where("material_id = ?", materialID).
		Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *materialRepo) FindRemaining(ctx context.Context, id uint) (*model.RemainingMaterial, error) {
	var rm model.RemainingMaterial
	if err := r.db.WithContext(ctx).First(&rm, id).Error; err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *materialRepo) DeleteRemaining(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.RemainingMaterial{}, id).Error
}
