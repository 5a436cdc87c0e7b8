package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoUpload is one multipart file handed over by the products handler.
type PhotoUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type ProductService interface {
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Get(ctx context.Context, id uint) (*dto.ProductResponse, error)
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uint) error

	AddPhoto(ctx context.Context, productID uint, upload PhotoUpload) (*dto.ProductPhotoResponse, error)
	DeletePhoto(ctx context.Context, productID, photoID uint) error
	ReorderPhotos(ctx context.Context, productID uint, req dto.ReorderPhotosRequest) ([]dto.ProductPhotoResponse, error)

	ListMaterials(ctx context.Context, productID uint) (*dto.AvailabilityResponse, error)
	SetMaterials(ctx context.Context, productID uint, req dto.SetProductMaterialsRequest) (*dto.AvailabilityResponse, error)
}

type productService struct {
	repo      repository.ProductRepository
	materials repository.MaterialRepository
	storage   infra.Storage
	caches    *Caches
	maxUpload int64
	now       func() time.Time
}

// NewProductService wires the product service. storage may be nil, in which
// case photo uploads are rejected.
func NewProductService(
	repo repository.ProductRepository,
	materials repository.MaterialRepository,
	storage infra.Storage,
	caches *Caches,
	maxUploadBytes int64,
) ProductService {
	return &productService{
		repo:      repo,
		materials: materials,
		storage:   storage,
		caches:    caches,
		maxUpload: maxUploadBytes,
		now:       time.Now,
	}
}

var allowedPhotoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	page, limit := dto.Normalize(filter.Page, filter.Limit, 20, 100)
	key := fmt.Sprintf("list:%s|%s|%s|%d|%d",
		strings.ToLower(filter.Search), filter.Category, filter.Active, page, limit)

	return cache.Remember(ctx, s.caches.products(), key, func() (*dto.ProductListResponse, error) {
		rows, total, err := s.repo.List(ctx, repository.ProductFilter{
			Search:   filter.Search,
			Category: filter.Category,
			Active:   filter.Active,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		resp := &dto.ProductListResponse{
			Products:   make([]dto.ProductResponse, 0, len(rows)),
			Pagination: dto.NewPagination(page, limit, total),
		}
		for i := range rows {
			resp.Products = append(resp.Products, productToResponse(&rows[i]))
		}
		return resp, nil
	})
}

func (s *productService) Get(ctx context.Context, id uint) (*dto.ProductResponse, error) {
	return cache.Remember(ctx, s.caches.products(), fmt.Sprintf("id:%d", id), func() (*dto.ProductResponse, error) {
		p, err := s.repo.FindDetailed(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "product")
		}
		r := productToResponse(p)
		return &r, nil
	})
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	prefix, ok := model.CategoryPrefixes[req.Category]
	if !ok {
		return nil, validationf("unknown category %q", req.Category)
	}
	if req.Price.IsNegative() || req.QtyOnHand.IsNegative() {
		return nil, validationf("price and qtyOnHand must be 0 or greater")
	}
	if err := validateQuantityScale(req.QtyOnHand); err != nil {
		return nil, err
	}
	if err := s.checkBaseMaterial(ctx, req.BaseMaterialID); err != nil {
		return nil, err
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "pcs"
	}
	p := &model.Product{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Category:       req.Category,
		BaseMaterialID: req.BaseMaterialID,
		Price:          req.Price,
		QtyOnHand:      req.QtyOnHand,
		Unit:           unit,
		DefaultTarget:  req.DefaultTarget,
		Active:         true,
		ColorID:        req.ColorID,
		VariationID:    req.VariationID,
	}

	// Two creates racing for the same sequence number collide on the unique
	// code index; the loser retries with the next number.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		p.Code, err = s.nextCode(ctx, prefix)
		if err != nil {
			return nil, err
		}
		p.ID = 0
		if err = s.repo.Create(ctx, p); err == nil || !isDuplicate(err) {
			break
		}
	}
	if err != nil {
		if isDuplicate(err) {
			return nil, conflictf("could not allocate a product code for %s", req.Category)
		}
		return nil, err
	}
	invalidate(ctx, s.caches.products(), s.caches.dashboard())
	return s.Get(ctx, p.ID)
}

// nextCode returns CATPREFIX-YYMMDD-NNN with NNN one past today's highest.
func (s *productService) nextCode(ctx context.Context, prefix string) (string, error) {
	stem := fmt.Sprintf("%s-%s-", prefix, s.now().Format("060102"))
	last, err := s.repo.LastCodeWithPrefix(ctx, stem)
	if err != nil {
		return "", err
	}
	seq := 1
	if last != "" {
		if n, convErr := strconv.Atoi(strings.TrimPrefix(last, stem)); convErr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", stem, seq), nil
}

func (s *productService) checkBaseMaterial(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.materials.FindByID(ctx, *id); err != nil {
		return notFoundOr(err, "base material")
	}
	return nil
}

func (s *productService) Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "product")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Category != nil {
		if _, ok := model.CategoryPrefixes[*req.Category]; !ok {
			return nil, validationf("unknown category %q", *req.Category)
		}
		fields["category"] = *req.Category
	}
	if req.BaseMaterialID != nil {
		if err := s.checkBaseMaterial(ctx, req.BaseMaterialID); err != nil {
			return nil, err
		}
		fields["base_material_id"] = *req.BaseMaterialID
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, validationf("price must be 0 or greater")
		}
		fields["price"] = *req.Price
	}
	if req.Unit != nil {
		fields["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.DefaultTarget != nil {
		fields["default_target"] = *req.DefaultTarget
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if req.ColorID != nil {
		fields["color_id"] = *req.ColorID
	}
	if req.VariationID != nil {
		fields["variation_id"] = *req.VariationID
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.products(), s.caches.dashboard())
	return s.Get(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "product")
	}
	refs, err := s.repo.CountOrderRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return conflictf("product is referenced by %d order items", refs)
	}
	movements, err := s.repo.CountMovements(ctx, id)
	if err != nil {
		return err
	}
	if movements > 0 {
		return conflictf("product has %d stock movements and cannot be deleted", movements)
	}

	paths, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		return notFoundOr(err, "product")
	}
	invalidate(ctx, s.caches.products(), s.caches.dashboard())

	// Files go last: a failure here leaves orphans on disk, never dangling rows.
	if s.storage != nil {
		for _, p := range paths {
			if err := s.storage.Delete(ctx, p); err != nil {
				log.Warn().Err(err).Str("path", p).Uint("product_id", id).Msg("failed to remove product photo")
			}
		}
	}
	return nil
}

// ── Photos ───────────────────────────────────────────────────────────────────

func (s *productService) AddPhoto(ctx context.Context, productID uint, upload PhotoUpload) (*dto.ProductPhotoResponse, error) {
	if s.storage == nil {
		return nil, validationf("photo storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedPhotoExt[ext] {
		return nil, validationf("photo must be a jpg, png or webp image")
	}
	if s.maxUpload > 0 && upload.Size > s.maxUpload {
		return nil, validationf("photo exceeds the %d byte limit", s.maxUpload)
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product")
	}

	name := fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), ext)
	stored, url, err := s.storage.Save(ctx, name, upload.Body)
	if err != nil {
		return nil, err
	}

	pos, err := s.repo.NextPhotoPosition(ctx, productID)
	if err != nil {
		return nil, err
	}
	ph := &model.ProductPhoto{ProductID: productID, Path: stored, URL: url, Position: pos}
	if err := s.repo.CreatePhoto(ctx, ph); err != nil {
		if delErr := s.storage.Delete(ctx, stored); delErr != nil {
			log.Warn().Err(delErr).Str("path", stored).Msg("failed to remove orphaned upload")
		}
		return nil, err
	}
	invalidate(ctx, s.caches.products())
	return &dto.ProductPhotoResponse{ID: ph.ID, URL: ph.URL, Position: ph.Position}, nil
}

func (s *productService) DeletePhoto(ctx context.Context, productID, photoID uint) error {
	ph, err := s.repo.FindPhoto(ctx, productID, photoID)
	if err != nil {
		return notFoundOr(err, "photo")
	}
	if err := s.repo.DeletePhoto(ctx, ph.ID); err != nil {
		return err
	}
	invalidate(ctx, s.caches.products())
	if s.storage != nil {
		if err := s.storage.Delete(ctx, ph.Path); err != nil {
			log.Warn().Err(err).Str("path", ph.Path).Msg("failed to remove product photo")
		}
	}
	return nil
}

func (s *productService) ReorderPhotos(ctx context.Context, productID uint, req dto.ReorderPhotosRequest) ([]dto.ProductPhotoResponse, error) {
	current, err := s.repo.ListPhotos(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(req.PhotoIDs) != len(current) {
		return nil, validationf("photoIds must list all %d photos of the product", len(current))
	}
	seen := make(map[uint]bool, len(req.PhotoIDs))
	for _, id := range req.PhotoIDs {
		if seen[id] {
			return nil, validationf("photo %d listed twice", id)
		}
		seen[id] = true
	}
	if err := s.repo.ReorderPhotos(ctx, productID, req.PhotoIDs); err != nil {
		return nil, notFoundOr(err, "photo")
	}
	invalidate(ctx, s.caches.products())

	photos, err := s.repo.ListPhotos(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductPhotoResponse, 0, len(photos))
	for _, ph := range photos {
		out = append(out, dto.ProductPhotoResponse{ID: ph.ID, URL: ph.URL, Position: ph.Position})
	}
	return out, nil
}

// ── Material requirements ────────────────────────────────────────────────────

func (s *productService) ListMaterials(ctx context.Context, productID uint) (*dto.AvailabilityResponse, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product")
	}
	links, err := s.repo.ListMaterials(ctx, productID)
	if err != nil {
		return nil, err
	}
	return availability(productID, links), nil
}

func (s *productService) SetMaterials(ctx context.Context, productID uint, req dto.SetProductMaterialsRequest) (*dto.AvailabilityResponse, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product")
	}

	links := make([]model.ProductMaterial, 0, len(req.Materials))
	ids := make([]uint, 0, len(req.Materials))
	seen := map[uint]bool{}
	for _, in := range req.Materials {
		if seen[in.MaterialID] {
			return nil, validationf("material %d listed twice", in.MaterialID)
		}
		seen[in.MaterialID] = true
		if !in.QuantityPerUnit.IsPositive() {
			return nil, validationf("quantityPerUnit must be greater than 0")
		}
		if err := validateQuantityScale(in.QuantityPerUnit); err != nil {
			return nil, err
		}
		ids = append(ids, in.MaterialID)
		links = append(links, model.ProductMaterial{MaterialID: in.MaterialID, QuantityPerUnit: in.QuantityPerUnit})
	}

	found, err := s.materials.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, notFoundf("one or more materials do not exist")
	}

	if err := s.repo.ReplaceMaterials(ctx, productID, links); err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.products())
	return s.ListMaterials(ctx, productID)
}

// availability is the read-only projection of how many units current
// material stock supports. It never reserves or consumes stock.
func availability(productID uint, links []model.ProductMaterial) *dto.AvailabilityResponse {
	resp := &dto.AvailabilityResponse{
		ProductID: productID,
		Materials: make([]dto.ProductMaterialResponse, 0, len(links)),
	}
	for i := range links {
		r := productMaterialToResponse(&links[i])
		resp.Materials = append(resp.Materials, r)
		if resp.MaxProducible == nil || r.MaxProducible < *resp.MaxProducible {
			maxUnits, limiting := r.MaxProducible, r.MaterialID
			resp.MaxProducible, resp.LimitingID = &maxUnits, &limiting
		}
	}
	return resp
}
