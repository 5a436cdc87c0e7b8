package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"

	"gorm.io/datatypes"
)

type ContactService interface {
	List(ctx context.Context, filter dto.ContactFilter) (*dto.ContactListResponse, error)
	Get(ctx context.Context, id uint) (*dto.ContactResponse, error)
	Create(ctx context.Context, req dto.CreateContactRequest) (*dto.ContactResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateContactRequest) (*dto.ContactResponse, error)
	Delete(ctx context.Context, id uint) error

	ListNotes(ctx context.Context, contactID uint) ([]dto.ContactNoteResponse, error)
	AddNote(ctx context.Context, contactID, authorID uint, req dto.CreateContactNoteRequest) (*dto.ContactNoteResponse, error)
	DeleteNote(ctx context.Context, contactID, noteID uint) error
}

type contactService struct {
	repo   repository.ContactRepository
	caches *Caches
}

// NewContactService wires contacts. Writes invalidate the dashboard, which
// counts contacts.
func NewContactService(repo repository.ContactRepository, caches *Caches) ContactService {
	return &contactService{repo: repo, caches: caches}
}

func (s *contactService) List(ctx context.Context, filter dto.ContactFilter) (*dto.ContactListResponse, error) {
	page, limit := dto.Normalize(filter.Page, filter.Limit, 20, 100)
	rows, total, err := s.repo.List(ctx, repository.ContactFilter{
		Search: filter.Search,
		Type:   filter.Type,
		Active: filter.Active,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.ContactListResponse{
		Contacts:   make([]dto.ContactResponse, 0, len(rows)),
		Pagination: dto.NewPagination(page, limit, total),
	}
	for i := range rows {
		resp.Contacts = append(resp.Contacts, contactToResponse(&rows[i]))
	}
	return resp, nil
}

func (s *contactService) Get(ctx context.Context, id uint) (*dto.ContactResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "contact")
	}
	r := contactToResponse(c)
	return &r, nil
}

func (s *contactService) Create(ctx context.Context, req dto.CreateContactRequest) (*dto.ContactResponse, error) {
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, err
	}
	c := &model.Contact{
		Name:    strings.TrimSpace(req.Name),
		Type:    req.Type,
		Phone:   trimPtr(req.Phone),
		Email:   trimPtr(req.Email),
		Company: trimPtr(req.Company),
		Address: trimPtr(req.Address),
		Tags:    tags,
		Active:  true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	r := contactToResponse(c)
	return &r, nil
}

func (s *contactService) Update(ctx context.Context, id uint, req dto.UpdateContactRequest) (*dto.ContactResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "contact")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		fields["type"] = *req.Type
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		fields["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Company != nil {
		fields["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Address != nil {
		fields["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Tags != nil {
		tags, err := encodeTags(req.Tags)
		if err != nil {
			return nil, err
		}
		fields["tags"] = tags
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	return s.Get(ctx, id)
}

func (s *contactService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "contact")
	}
	refs, err := s.repo.CountOrderRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return conflictf("contact is assigned to %d orders; deactivate it instead", refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "contact")
	}
	invalidate(ctx, s.caches.dashboard())
	return nil
}

func (s *contactService) ListNotes(ctx context.Context, contactID uint) ([]dto.ContactNoteResponse, error) {
	if _, err := s.repo.FindByID(ctx, contactID); err != nil {
		return nil, notFoundOr(err, "contact")
	}
	notes, err := s.repo.ListNotes(ctx, contactID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ContactNoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, noteToResponse(&notes[i]))
	}
	return out, nil
}

func (s *contactService) AddNote(ctx context.Context, contactID, authorID uint, req dto.CreateContactNoteRequest) (*dto.ContactNoteResponse, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, validationf("note body is required")
	}
	if _, err := s.repo.FindByID(ctx, contactID); err != nil {
		return nil, notFoundOr(err, "contact")
	}
	n := &model.ContactNote{ContactID: contactID, Body: body, CreatedBy: authorID}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	r := noteToResponse(n)
	return &r, nil
}

func (s *contactService) DeleteNote(ctx context.Context, contactID, noteID uint) error {
	return notFoundOr(s.repo.DeleteNote(ctx, contactID, noteID), "note")
}

// encodeTags stores tags as a JSON array, trimmed and de-duplicated.
func encodeTags(tags []string) (datatypes.JSON, error) {
	clean := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		clean = append(clean, t)
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
