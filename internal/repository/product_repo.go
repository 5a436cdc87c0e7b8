package repository

import (
	"context"
	"errors"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"gorm.io/gorm"
)

// ProductFilter narrows product listings. Active: "" or "true" = active only,
// "false" = inactive only, "all" = everything.
type ProductFilter struct {
	Search   string
	Category string
	Active   string
	Page     int
	Limit    int
}

// ProductRepository defines the data access contract for products, their
// photo gallery and their material requirements.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	// FindDetailed preloads photos (by position), colour, variation and
	// material requirements with their materials.
	FindDetailed(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	// LastCodeWithPrefix returns the highest code starting with prefix, or "".
	LastCodeWithPrefix(ctx context.Context, prefix string) (string, error)

	CountOrderRefs(ctx context.Context, id uint) (int64, error)
	CountMovements(ctx context.Context, id uint) (int64, error)
	// DeleteCascade removes the product and its progress reports, photos and
	// material links in one transaction and returns the photo paths that
	// were attached, for storage cleanup.
	DeleteCascade(ctx context.Context, id uint) ([]string, error)

	CreatePhoto(ctx context.Context, ph *model.ProductPhoto) error
	FindPhoto(ctx context.Context, productID, photoID uint) (*model.ProductPhoto, error)
	ListPhotos(ctx context.Context, productID uint) ([]model.ProductPhoto, error)
	DeletePhoto(ctx context.Context, photoID uint) error
	ReorderPhotos(ctx context.Context, productID uint, orderedIDs []uint) error
	NextPhotoPosition(ctx context.Context, productID uint) (int, error)

	ReplaceMaterials(ctx context.Context, productID uint, links []model.ProductMaterial) error
	ListMaterials(ctx context.Context, productID uint) ([]model.ProductMaterial, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindDetailed(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC").Order("id ASC") }).
		Preload("Materials.Material").
		Preload("Color").
		Preload("Variation").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{})

	switch filter.Active {
	case "false":
		q = q.Where("active = ?", false)
	case "all":
	default:
		q = q.Where("active = ?", true)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", p, p)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []model.Product
	err := q.Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC").Order("id ASC") }).
		Order("name ASC").Order("id ASC").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	delete(fields, "qty_on_hand")
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepo) LastCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Select("code").
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return p.Code, err
}

func (r *productRepo) CountOrderRefs(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.OrderProduct{}).Where("product_id = ?", id).Count(&n).Error
	return n, err
}

func (r *productRepo) CountMovements(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.MaterialMovement{}).Where("product_id = ?", id).Count(&n).Error
	return n, err
}

func (r *productRepo) DeleteCascade(ctx context.Context, id uint) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ProductPhoto{}).Where("product_id = ?", id).Pluck("path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProgressReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductMaterial{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *productRepo) CreatePhoto(ctx context.Context, ph *model.ProductPhoto) error {
	return r.db.WithContext(ctx).Create(ph).Error
}

func (r *productRepo) FindPhoto(ctx context.Context, productID, photoID uint) (*model.ProductPhoto, error) {
	var ph model.ProductPhoto
	err := r.db.WithContext(ctx).Where("id = ? AND product_id = ?", photoID, productID).First(&ph).Error
	if err != nil {
		return nil, err
	}
	return &ph, nil
}

func (r *productRepo) ListPhotos(ctx context.Context, productID uint) ([]model.ProductPhoto, error) {
	var photos []model.ProductPhoto
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("position ASC").Order("id ASC").Find(&photos).Error
	return photos, err
}

func (r *productRepo) DeletePhoto(ctx context.Context, photoID uint) error {
	return r.db.WithContext(ctx).Delete(&model.ProductPhoto{}, photoID).Error
}

func (r *productRepo) ReorderPhotos(ctx context.Context, productID uint, orderedIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for pos, id := range orderedIDs {
			res := tx.Model(&model.ProductPhoto{}).
				Where("id = ? AND product_id = ?", id, productID).
				Update("position", pos)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *productRepo) NextPhotoPosition(ctx context.Context, productID uint) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductPhoto{}).Where("product_id = ?", productID).Count(&n).Error
	return int(n), err
}

func (r *productRepo) ReplaceMaterials(ctx context.Context, productID uint, links []model.ProductMaterial) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.ProductMaterial{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		for i := range links {
			links[i].ProductID = productID
		}
		return tx.Create(&links).Error
	})
}

func (r *productRepo) ListMaterials(ctx context.Context, productID uint) ([]model.ProductMaterial, error) {
	var links []model.ProductMaterial
	err := r.db.WithContext(ctx).Preload("Material").
		Where("product_id = ?", productID).Order("id ASC").Find(&links).Error
	return links, err
}
