package repository

import (
	"context"

	"github.com/replika-labs/wms-01-sub000/internal/model"

	"gorm.io/gorm"
)

type ContactFilter struct {
	Search string
	Type   string
	Active string
	Page   int
	Limit  int
}

type ContactRepository interface {
	Create(ctx context.Context, c *model.Contact) error
	FindByID(ctx context.Context, id uint) (*model.Contact, error)
	List(ctx context.Context, filter ContactFilter) ([]model.Contact, int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	// Delete removes the contact together with its notes.
	Delete(ctx context.Context, id uint) error
	CountOrderRefs(ctx context.Context, id uint) (int64, error)

	CreateNote(ctx context.Context, n *model.ContactNote) error
	ListNotes(ctx context.Context, contactID uint) ([]model.ContactNote, error)
	DeleteNote(ctx context.Context, contactID, noteID uint) error
}

type contactRepo struct{ db *gorm.DB }

func NewContactRepository(db *gorm.DB) ContactRepository { return &contactRepo{db: db} }

func (r *contactRepo) Create(ctx context.Context, c *model.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *contactRepo) FindByID(ctx context.Context, id uint) (*model.Contact, error) {
	var c model.Contact
	err := r.db.WithContext(ctx).
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC").Order("id DESC") }).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contactRepo) List(ctx context.Context, filter ContactFilter) ([]model.Contact, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Contact{})
	switch filter.Active {
	case "false":
		q = q.Where("active = ?", false)
	case "all":
	default:
		q = q.Where("active = ?", true)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(company) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", p, p, p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var contacts []model.Contact
	err := q.Order("name ASC").Order("id ASC").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&contacts).Error
	return contacts, total, err
}

func (r *contactRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Contact{}).Where("id = ?", id).Updates(fields).Error
}

func (r *contactRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&model.ContactNote{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Contact{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *contactRepo) CountOrderRefs(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ? OR worker_id = ?", id, id).Count(&n).Error
	return n, err
}

func (r *contactRepo) CreateNote(ctx context.Context, n *model.ContactNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *contactRepo) ListNotes(ctx context.Context, contactID uint) ([]model.ContactNote, error) {
	var notes []model.ContactNote
	err := r.db.WithContext(ctx).Where("contact_id = ?", contactID).
		Order("created_at DESC").Order("id DESC").Find(&notes).Error
	return notes, err
}

func (r *contactRepo) DeleteNote(ctx context.Context, contactID, noteID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND contact_id = ?", noteID, contactID).Delete(&model.ContactNote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
