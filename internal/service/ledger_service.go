package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntityKind selects which stock-bearing table a ledger call targets.
type EntityKind string

const (
	KindMaterial EntityKind = "material"
	KindProduct  EntityKind = "product"
)

// StockTarget identifies the entity whose qtyOnHand a ledger call reads or writes.
type StockTarget struct {
	Kind EntityKind
	ID   uint
}

func MaterialTarget(id uint) StockTarget { return StockTarget{Kind: KindMaterial, ID: id} }
func ProductTarget(id uint) StockTarget  { return StockTarget{Kind: KindProduct, ID: id} }

// AdjustInput moves stock by a positive Quantity in direction Type (IN|OUT).
type AdjustInput struct {
	Type     model.MovementType
	Quantity decimal.Decimal
	Reason   string
	UserID   uint
}

// SetLevelInput sets stock to the absolute, non-negative Quantity.
type SetLevelInput struct {
	Quantity decimal.Decimal
	Reason   string
	UserID   uint
}

// StockChange is the outcome of a successful ledger write. Movement is nil
// for a SetLevel that did not change the quantity. Exactly one of Material
// and Product is set, holding the row as it is after the write.
type StockChange struct {
	Target   StockTarget
	Previous decimal.Decimal
	Current  decimal.Decimal
	Movement *model.MaterialMovement
	Material *model.Material
	Product  *model.Product
}

// Delta is Current - Previous.
func (c *StockChange) Delta() decimal.Decimal { return c.Current.Sub(c.Previous) }

// StockAlertEnqueuer receives critical-stock notifications after commit.
type StockAlertEnqueuer interface {
	EnqueueStockAlert(ctx context.Context, payload worker.StockAlertPayload) error
}

// LedgerService owns every change to Material.QtyOnHand and
// Product.QtyOnHand. Each successful change writes exactly one movement row
// whose QtyAfter equals the new quantity, in the same transaction, while
// holding a row lock on the entity.
type LedgerService interface {
	Adjust(ctx context.Context, target StockTarget, in AdjustInput) (*StockChange, error)
	SetLevel(ctx context.Context, target StockTarget, in SetLevelInput) (*StockChange, error)
	History(ctx context.Context, target StockTarget, page, limit int) (*dto.MovementListResponse, error)
	CriticalStock(ctx context.Context) ([]dto.MaterialResponse, error)
}

type ledgerService struct {
	repo   repository.StockRepository
	users  repository.UserRepository
	caches *Caches
	alerts StockAlertEnqueuer
}

// NewLedgerService wires the ledger. caches and alerts may be nil.
func NewLedgerService(repo repository.StockRepository, users repository.UserRepository, caches *Caches, alerts StockAlertEnqueuer) LedgerService {
	return &ledgerService{repo: repo, users: users, caches: caches, alerts: alerts}
}

const (
	historyDefaultLimit = 20
	historyMaxLimit     = 100
	// quantityScale matches the decimal(14,3) quantity columns.
	quantityScale = 3
)

// ── Validation ────────────────────────────────────────────────────────────────
// Everything here runs before the first query.

func validateTarget(t StockTarget) error {
	if t.Kind != KindMaterial && t.Kind != KindProduct {
		return validationf("unknown stock entity %q", t.Kind)
	}
	if t.ID == 0 {
		return validationf("%s id is required", t.Kind)
	}
	return nil
}

// maxQuantity is the first value a decimal(14,3) column cannot hold.
var maxQuantity = decimal.New(1, 14-quantityScale)

func validateQuantityScale(q decimal.Decimal) error {
	if !q.Equal(q.Round(quantityScale)) {
		return validationf("quantity supports at most %d decimal places", quantityScale)
	}
	return validateQuantityRange(q)
}

func validateQuantityRange(q decimal.Decimal) error {
	if q.Abs().GreaterThanOrEqual(maxQuantity) {
		return validationf("quantity must be less than %s", maxQuantity.String())
	}
	return nil
}

func validateCommon(reason string, userID uint) error {
	if strings.TrimSpace(reason) == "" {
		return validationf("reason is required")
	}
	if userID == 0 {
		return validationf("userId is required")
	}
	return nil
}

func (in AdjustInput) validate() error {
	if in.Type != model.MovementIn && in.Type != model.MovementOut {
		return validationf("type must be IN or OUT")
	}
	if !in.Quantity.IsPositive() {
		return validationf("quantity must be greater than 0")
	}
	if err := validateQuantityScale(in.Quantity); err != nil {
		return err
	}
	return validateCommon(in.Reason, in.UserID)
}

func (in SetLevelInput) validate() error {
	if in.Quantity.IsNegative() {
		return validationf("quantity must be 0 or greater")
	}
	if err := validateQuantityScale(in.Quantity); err != nil {
		return err
	}
	return validateCommon(in.Reason, in.UserID)
}

// ── Adjust ────────────────────────────────────────────────────────────────────

func (s *ledgerService) Adjust(ctx context.Context, target StockTarget, in AdjustInput) (*StockChange, error) {
	if err := validateTarget(target); err != nil {
		return nil, s.reject(err)
	}
	if err := in.validate(); err != nil {
		return nil, s.reject(err)
	}
	return s.apply(ctx, target, in.UserID, strings.TrimSpace(in.Reason), func(current decimal.Decimal) (decimal.Decimal, error) {
		if in.Type == model.MovementIn {
			next := current.Add(in.Quantity)
			if err := validateQuantityRange(next); err != nil {
				return current, err
			}
			return next, nil
		}
		next := current.Sub(in.Quantity)
		if next.IsNegative() {
			return current, insufficient(current, in.Quantity)
		}
		return next, nil
	})
}

// ── SetLevel ──────────────────────────────────────────────────────────────────

func (s *ledgerService) SetLevel(ctx context.Context, target StockTarget, in SetLevelInput) (*StockChange, error) {
	if err := validateTarget(target); err != nil {
		return nil, s.reject(err)
	}
	if err := in.validate(); err != nil {
		return nil, s.reject(err)
	}
	return s.apply(ctx, target, in.UserID, strings.TrimSpace(in.Reason), func(decimal.Decimal) (decimal.Decimal, error) {
		return in.Quantity, nil
	})
}

func insufficient(current, requested decimal.Decimal) error {
	return &InsufficientStockError{Available: current, Requested: requested}
}

// InsufficientStockError carries the numbers behind ErrInsufficientStock.
type InsufficientStockError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock: available " + e.Available.String() + ", requested " + e.Requested.String()
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// apply runs the locked read-compute-write cycle shared by Adjust and
// SetLevel. compute maps the locked quantity to the new one or rejects.
func (s *ledgerService) apply(
	ctx context.Context,
	target StockTarget,
	userID uint,
	reason string,
	compute func(current decimal.Decimal) (decimal.Decimal, error),
) (*StockChange, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject(notFoundf("user %d not found", userID))
	}

	change := &StockChange{Target: target}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		current, err := s.lock(tx, change)
		if err != nil {
			return err
		}

		next, err := compute(current)
		if err != nil {
			return err
		}
		change.Previous, change.Current = current, next

		delta := next.Sub(current)
		if delta.IsZero() {
			return nil
		}

		movement := &model.MaterialMovement{
			MovementType: model.MovementIn,
			Quantity:     delta.Abs(),
			QtyAfter:     next,
			Reason:       reason,
			UserID:       userID,
		}
		if delta.IsNegative() {
			movement.MovementType = model.MovementOut
		}

		switch target.Kind {
		case KindMaterial:
			movement.MaterialID = &target.ID
			if err := s.repo.SetMaterialQtyTx(tx, target.ID, next); err != nil {
				return err
			}
			change.Material.QtyOnHand = next
		case KindProduct:
			movement.ProductID = &target.ID
			if err := s.repo.SetProductQtyTx(tx, target.ID, next); err != nil {
				return err
			}
			change.Product.QtyOnHand = next
		}
		if err := s.repo.CreateMovementTx(tx, movement); err != nil {
			return err
		}
		change.Movement = movement
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrInsufficientStock) || errors.Is(txErr, ErrValidation) {
			return nil, s.reject(txErr)
		}
		return nil, txErr
	}

	if change.Movement != nil {
		// The movement is committed; a client disconnect must not drop its side effects.
		s.afterCommit(context.WithoutCancel(ctx), change)
	}
	return change, nil
}

// lock loads the target row under SELECT ... FOR UPDATE and returns its
// quantity. The row snapshot is stored on change.
func (s *ledgerService) lock(tx *gorm.DB, change *StockChange) (decimal.Decimal, error) {
	id := change.Target.ID
	switch change.Target.Kind {
	case KindMaterial:
		m, err := s.repo.LockMaterialTx(tx, id)
		if err != nil {
			return decimal.Zero, notFoundOr(err, "material")
		}
		change.Material = m
		return m.QtyOnHand, nil
	default:
		p, err := s.repo.LockProductTx(tx, id)
		if err != nil {
			return decimal.Zero, notFoundOr(err, "product")
		}
		change.Product = p
		return p.QtyOnHand, nil
	}
}

func (s *ledgerService) afterCommit(ctx context.Context, change *StockChange) {
	infra.LedgerMovements.WithLabelValues(string(change.Target.Kind), string(change.Movement.MovementType)).Inc()

	switch change.Target.Kind {
	case KindMaterial:
		invalidate(ctx, s.caches.materials(), s.caches.products(), s.caches.dashboard())
	case KindProduct:
		invalidate(ctx, s.caches.products(), s.caches.dashboard())
	}

	m := change.Material
	if m == nil || s.alerts == nil || change.Movement.MovementType != model.MovementOut {
		return
	}
	if m.QtyOnHand.GreaterThan(m.MinStock) {
		return
	}
	payload := worker.StockAlertPayload{
		MaterialID: m.ID,
		Code:       m.Code,
		Name:       m.Name,
		Unit:       m.Unit,
		QtyOnHand:  m.QtyOnHand,
		MinStock:   m.MinStock,
		Reason:     change.Movement.Reason,
		UserID:     change.Movement.UserID,
		At:         time.Now(),
	}
	if err := s.alerts.EnqueueStockAlert(ctx, payload); err != nil {
		log.Warn().Err(err).Uint("material_id", m.ID).Msg("failed to enqueue stock alert")
	}
}

// reject counts a ledger call refused without writing, then returns err.
func (s *ledgerService) reject(err error) error {
	reason := "error"
	switch {
	case errors.Is(err, ErrValidation):
		reason = "validation"
	case errors.Is(err, ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	}
	infra.LedgerRejections.WithLabelValues(reason).Inc()
	return err
}

// ── History ───────────────────────────────────────────────────────────────────

func (s *ledgerService) History(ctx context.Context, target StockTarget, page, limit int) (*dto.MovementListResponse, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	page, limit = dto.Normalize(page, limit, historyDefaultLimit, historyMaxLimit)

	filter := repository.MovementFilter{Page: page, Limit: limit}
	var exists bool
	var err error
	switch target.Kind {
	case KindMaterial:
		filter.MaterialID = &target.ID
		exists, err = s.repo.MaterialExists(ctx, target.ID)
	case KindProduct:
		filter.ProductID = &target.ID
		exists, err = s.repo.ProductExists(ctx, target.ID)
	}
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFoundf("%s not found", target.Kind)
	}

	rows, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.MovementListResponse{
		Movements:  make([]dto.MovementResponse, 0, len(rows)),
		Pagination: dto.NewPagination(page, limit, total),
	}
	for i := range rows {
		resp.Movements = append(resp.Movements, MovementToResponse(&rows[i]))
	}
	return resp, nil
}

// ── CriticalStock ─────────────────────────────────────────────────────────────

func (s *ledgerService) CriticalStock(ctx context.Context) ([]dto.MaterialResponse, error) {
	return cache.Remember(ctx, s.caches.materials(), "critical", func() ([]dto.MaterialResponse, error) {
		materials, err := s.repo.ListCritical(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]dto.MaterialResponse, 0, len(materials))
		for i := range materials {
			out = append(out, materialToResponse(&materials[i]))
		}
		return out, nil
	})
}
