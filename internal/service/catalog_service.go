package service

import (
	"context"
	"strings"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
)

// CatalogService manages the colour and variation attributes of products.
type CatalogService interface {
	ListColors(ctx context.Context, includeInactive bool) ([]dto.ColorResponse, error)
	CreateColor(ctx context.Context, req dto.CreateColorRequest) (*dto.ColorResponse, error)
	DeactivateColor(ctx context.Context, id uint) error

	ListVariations(ctx context.Context, includeInactive bool) ([]dto.VariationResponse, error)
	CreateVariation(ctx context.Context, req dto.CreateVariationRequest) (*dto.VariationResponse, error)
	DeactivateVariation(ctx context.Context, id uint) error
}

type catalogService struct {
	repo   repository.CatalogRepository
	caches *Caches
}

func NewCatalogService(repo repository.CatalogRepository, caches *Caches) CatalogService {
	return &catalogService{repo: repo, caches: caches}
}

func mapColor(c *model.Color) dto.ColorResponse {
	return dto.ColorResponse{ID: c.ID, Name: c.Name, HexCode: c.HexCode, Active: c.Active}
}

func mapVariation(v *model.Variation) dto.VariationResponse {
	return dto.VariationResponse{ID: v.ID, Name: v.Name, Description: v.Description, Active: v.Active}
}

func (s *catalogService) ListColors(ctx context.Context, includeInactive bool) ([]dto.ColorResponse, error) {
	list, err := s.repo.ListColors(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ColorResponse, 0, len(list))
	for i := range list {
		out = append(out, mapColor(&list[i]))
	}
	return out, nil
}

func (s *catalogService) CreateColor(ctx context.Context, req dto.CreateColorRequest) (*dto.ColorResponse, error) {
	c := &model.Color{Name: strings.TrimSpace(req.Name), HexCode: trimPtr(req.HexCode), Active: true}
	if err := s.repo.CreateColor(ctx, c); err != nil {
		if isDuplicate(err) {
			return nil, conflictf("color %q already exists", c.Name)
		}
		return nil, err
	}
	r := mapColor(c)
	return &r, nil
}

func (s *catalogService) DeactivateColor(ctx context.Context, id uint) error {
	if err := s.repo.DeactivateColor(ctx, id); err != nil {
		return notFoundOr(err, "color")
	}
	invalidate(ctx, s.caches.products())
	return nil
}

func (s *catalogService) ListVariations(ctx context.Context, includeInactive bool) ([]dto.VariationResponse, error) {
	list, err := s.repo.ListVariations(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VariationResponse, 0, len(list))
	for i := range list {
		out = append(out, mapVariation(&list[i]))
	}
	return out, nil
}

func (s *catalogService) CreateVariation(ctx context.Context, req dto.CreateVariationRequest) (*dto.VariationResponse, error) {
	v := &model.Variation{Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description), Active: true}
	if err := s.repo.CreateVariation(ctx, v); err != nil {
		if isDuplicate(err) {
			return nil, conflictf("variation %q already exists", v.Name)
		}
		return nil, err
	}
	r := mapVariation(v)
	return &r, nil
}

func (s *catalogService) DeactivateVariation(ctx context.Context, id uint) error {
	if err := s.repo.DeactivateVariation(ctx, id); err != nil {
		return notFoundOr(err, "variation")
	}
	invalidate(ctx, s.caches.products())
	return nil
}
