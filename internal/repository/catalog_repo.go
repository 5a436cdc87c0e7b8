package repository

import (
	"context"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"gorm.io/gorm"
)

// CatalogRepository stores the colour and variation attributes products
// may reference.
type CatalogRepository interface {
	CreateColor(ctx context.Context, c *model.Color) error
	ListColors(ctx context.Context, includeInactive bool) ([]model.Color, error)
	FindColor(ctx context.Context, id uint) (*model.Color, error)
	DeactivateColor(ctx context.Context, id uint) error

	CreateVariation(ctx context.Context, v *model.Variation) error
	ListVariations(ctx context.Context, includeInactive bool) ([]model.Variation, error)
	FindVariation(ctx context.Context, id uint) (*model.Variation, error)
	DeactivateVariation(ctx context.Context, id uint) error
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &catalogRepo{db: db} }

func (r *catalogRepo) CreateColor(ctx context.Context, c *model.Color) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *catalogRepo) ListColors(ctx context.Context, includeInactive bool) ([]model.Color, error) {
	var colors []model.Color
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name ASC").Find(&colors).Error
	return colors, err
}

func (r *catalogRepo) FindColor(ctx context.Context, id uint) (*model.Color, error) {
	var c model.Color
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *catalogRepo) DeactivateColor(ctx context.Context, id uint) error {
	return deactivate(r.db.WithContext(ctx).Model(&model.Color{}), id)
}

func (r *catalogRepo) CreateVariation(ctx context.Context, v *model.Variation) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *catalogRepo) ListVariations(ctx context.Context, includeInactive bool) ([]model.Variation, error) {
	var variations []model.Variation
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name ASC").Find(&variations).Error
	return variations, err
}

func (r *catalogRepo) FindVariation(ctx context.Context, id uint) (*model.Variation, error) {
	var v model.Variation
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *catalogRepo) DeactivateVariation(ctx context.Context, id uint) error {
	return deactivate(r.db.WithContext(ctx).Model(&model.Variation{}), id)
}

func deactivate(q *gorm.DB, id uint) error {
	res := q.Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
