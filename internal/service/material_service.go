package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialService covers every material field except qtyOnHand, which only
// the LedgerService writes after creation.
type MaterialService interface {
	List(ctx context.Context, filter dto.MaterialFilter) (*dto.MaterialListResponse, error)
	Get(ctx context.Context, id uint) (*dto.MaterialResponse, error)
	Create(ctx context.Context, req dto.CreateMaterialRequest) (*dto.MaterialResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateMaterialRequest) (*dto.MaterialResponse, error)
	Delete(ctx context.Context, id uint) error

	ListRemaining(ctx context.Context, materialID uint) ([]dto.RemainingMaterialResponse, error)
	CreateRemaining(ctx context.Context, materialID uint, req dto.CreateRemainingMaterialRequest) (*dto.RemainingMaterialResponse, error)
	DeleteRemaining(ctx context.Context, id uint) error
}

type materialService struct {
	repo   repository.MaterialRepository
	caches *Caches
	now    func() time.Time
}

func NewMaterialService(repo repository.MaterialRepository, caches *Caches) MaterialService {
	return &materialService{repo: repo, caches: caches, now: time.Now}
}

func (s *materialService) List(ctx context.Context, filter dto.MaterialFilter) (*dto.MaterialListResponse, error) {
	page, limit := dto.Normalize(filter.Page, filter.Limit, 20, 100)
	key := fmt.Sprintf("list:%s|%s|%s|%t|%d|%d",
		strings.ToLower(filter.Search), strings.ToLower(filter.Supplier), strings.ToLower(filter.Location),
		filter.LowStock, page, limit)

	return cache.Remember(ctx, s.caches.materials(), key, func() (*dto.MaterialListResponse, error) {
		rows, total, err := s.repo.List(ctx, repository.MaterialFilter{
			Search:   filter.Search,
			Supplier: filter.Supplier,
			Location: filter.Location,
			LowStock: filter.LowStock,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		resp := &dto.MaterialListResponse{
			Materials:  make([]dto.MaterialResponse, 0, len(rows)),
			Pagination: dto.NewPagination(page, limit, total),
		}
		for i := range rows {
			resp.Materials = append(resp.Materials, materialToResponse(&rows[i]))
		}
		return resp, nil
	})
}

func (s *materialService) Get(ctx context.Context, id uint) (*dto.MaterialResponse, error) {
	return cache.Remember(ctx, s.caches.materials(), fmt.Sprintf("id:%d", id), func() (*dto.MaterialResponse, error) {
		m, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "material")
		}
		r := materialToResponse(m)
		return &r, nil
	})
}

func (s *materialService) Create(ctx context.Context, req dto.CreateMaterialRequest) (*dto.MaterialResponse, error) {
	if req.QtyOnHand.IsNegative() || req.MinStock.IsNegative() || req.PricePerUnit.IsNegative() {
		return nil, validationf("quantities and prices must be 0 or greater")
	}
	if err := validateQuantityScale(req.QtyOnHand); err != nil {
		return nil, err
	}

	m := &model.Material{
		Code:         materialCode(req.QtyOnHand.IntPart(), req.Supplier, s.now()),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Unit:         strings.TrimSpace(req.Unit),
		QtyOnHand:    req.QtyOnHand,
		MinStock:     req.MinStock,
		PricePerUnit: req.PricePerUnit,
		Supplier:     trimPtr(req.Supplier),
		Location:     trimPtr(req.Location),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if isDuplicate(err) {
			return nil, conflictf("material code %s already exists", m.Code)
		}
		return nil, err
	}
	invalidate(ctx, s.caches.materials(), s.caches.dashboard())

	r := materialToResponse(m)
	return &r, nil
}

func (s *materialService) Update(ctx context.Context, id uint, req dto.UpdateMaterialRequest) (*dto.MaterialResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "material")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Unit != nil {
		fields["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.MinStock != nil {
		if req.MinStock.IsNegative() {
			return nil, validationf("minStock must be 0 or greater")
		}
		fields["min_stock"] = *req.MinStock
	}
	if req.PricePerUnit != nil {
		if req.PricePerUnit.IsNegative() {
			return nil, validationf("pricePerUnit must be 0 or greater")
		}
		fields["price_per_unit"] = *req.PricePerUnit
	}
	if req.Supplier != nil {
		fields["supplier"] = strings.TrimSpace(*req.Supplier)
	}
	if req.Location != nil {
		fields["location"] = strings.TrimSpace(*req.Location)
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	// minStock feeds the critical list and product availability reads.
	invalidate(ctx, s.caches.materials(), s.caches.products(), s.caches.dashboard())

	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "material")
	}
	r := materialToResponse(m)
	return &r, nil
}

func (s *materialService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "material")
	}
	movements, err := s.repo.CountMovements(ctx, id)
	if err != nil {
		return err
	}
	if movements > 0 {
		return conflictf("material has %d stock movements and cannot be deleted", movements)
	}
	remaining, err := s.repo.CountRemaining(ctx, id)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return conflictf("material has %d remaining lots and cannot be deleted", remaining)
	}
	products, err := s.repo.CountProductRefs(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 {
		return conflictf("material is used by %d products and cannot be deleted", products)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if isForeignKeyViolation(err) {
			return conflictf("material is still referenced and cannot be deleted")
		}
		return err
	}
	invalidate(ctx, s.caches.materials(), s.caches.products(), s.caches.dashboard())
	return nil
}

// ── Remaining materials ──────────────────────────────────────────────────────

func (s *materialService) ListRemaining(ctx context.Context, materialID uint) ([]dto.RemainingMaterialResponse, error) {
	if _, err := s.repo.FindByID(ctx, materialID); err != nil {
		return nil, notFoundOr(err, "material")
	}
	rows, err := s.repo.ListRemaining(ctx, materialID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RemainingMaterialResponse, 0, len(rows))
	for i := range rows {
		out = append(out, remainingToResponse(&rows[i]))
	}
	return out, nil
}

func (s *materialService) CreateRemaining(ctx context.Context, materialID uint, req dto.CreateRemainingMaterialRequest) (*dto.RemainingMaterialResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, validationf("quantity must be greater than 0")
	}
	m, err := s.repo.FindByID(ctx, materialID)
	if err != nil {
		return nil, notFoundOr(err, "material")
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = m.Unit
	}
	rm := &model.RemainingMaterial{
		MaterialID: materialID,
		Quantity:   req.Quantity,
		Unit:       unit,
		Notes:      req.Notes,
	}
	if err := s.repo.CreateRemaining(ctx, rm); err != nil {
		return nil, err
	}
	r := remainingToResponse(rm)
	return &r, nil
}

func (s *materialService) DeleteRemaining(ctx context.Context, id uint) error {
	if _, err := s.repo.FindRemaining(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("remaining material %d not found", id)
		}
		return err
	}
	return s.repo.DeleteRemaining(ctx, id)
}

// ── Codes ────────────────────────────────────────────────────────────────────

// materialCode builds PREFIX-UNITS-SUPPLIER-YYYYMMDD, e.g. 3FA9-100-ACM-20240131.
func materialCode(units int64, supplier *string, at time.Time) string {
	prefix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%d-%s-%s", prefix, units, supplierTag(supplier), at.Format("20060102"))
}

// supplierTag is the first three letters or digits of the supplier, upper-cased,
// or GEN when there are none.
func supplierTag(supplier *string) string {
	if supplier == nil {
		return "GEN"
	}
	var b strings.Builder
	for _, r := range *supplier {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return b.String()
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
