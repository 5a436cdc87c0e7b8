package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"

	"gorm.io/gorm"
)

// OrderService manages production orders. Orders record intent and
// progress only; they never read or write stock.
type OrderService interface {
	List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error)
	Get(ctx context.Context, id uint) (*dto.OrderResponse, error)
	Create(ctx context.Context, req dto.CreateOrderRequest, createdBy uint) (*dto.OrderResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateOrderRequest) (*dto.OrderResponse, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*dto.OrderResponse, error)
	Delete(ctx context.Context, id uint) error

	AddProgress(ctx context.Context, orderID, reportedBy uint, req dto.CreateProgressReportRequest) (*dto.ProgressReportResponse, error)
	ListProgress(ctx context.Context, orderID uint) ([]dto.ProgressReportResponse, error)
}

// orderTransitions lists the statuses each status may move to.
var orderTransitions = map[string][]string{
	model.OrderCreated:      {model.OrderNeedMaterial, model.OrderProcessing, model.OrderCancelled},
	model.OrderNeedMaterial: {model.OrderCreated, model.OrderProcessing, model.OrderCancelled},
	model.OrderProcessing:   {model.OrderNeedMaterial, model.OrderCompleted, model.OrderCancelled},
	model.OrderCompleted:    {},
	model.OrderCancelled:    {},
}

func canTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isClosed(status string) bool {
	return status == model.OrderCompleted || status == model.OrderCancelled
}

type orderService struct {
	repo     repository.OrderRepository
	products repository.ProductRepository
	contacts repository.ContactRepository
	caches   *Caches
	now      func() time.Time
}

func NewOrderService(
	repo repository.OrderRepository,
	products repository.ProductRepository,
	contacts repository.ContactRepository,
	caches *Caches,
) OrderService {
	return &orderService{repo: repo, products: products, contacts: contacts, caches: caches, now: time.Now}
}

func (s *orderService) List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	page, limit := dto.Normalize(filter.Page, filter.Limit, 20, 100)
	rows, total, err := s.repo.List(ctx, repository.OrderFilter{
		Status: filter.Status,
		Search: filter.Search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, 0, len(rows)),
		Pagination: dto.NewPagination(page, limit, total),
	}
	for i := range rows {
		resp.Orders = append(resp.Orders, orderToResponse(&rows[i]))
	}
	return resp, nil
}

func (s *orderService) Get(ctx context.Context, id uint) (*dto.OrderResponse, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	r := orderToResponse(o)
	return &r, nil
}

// buildItems merges repeated products and checks each one exists and is active.
func (s *orderService) buildItems(ctx context.Context, in []dto.OrderItemInput) ([]model.OrderProduct, int, error) {
	if len(in) == 0 {
		return nil, 0, validationf("an order needs at least one item")
	}
	qty := map[uint]int{}
	var order []uint
	for _, it := range in {
		if it.Quantity <= 0 {
			return nil, 0, validationf("item quantity must be greater than 0")
		}
		if _, ok := qty[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	found, err := s.products.FindByIDs(ctx, order)
	if err != nil {
		return nil, 0, err
	}
	active := make(map[uint]bool, len(found))
	for _, p := range found {
		active[p.ID] = p.Active
	}

	items := make([]model.OrderProduct, 0, len(order))
	total := 0
	for _, id := range order {
		isActive, ok := active[id]
		if !ok {
			return nil, 0, notFoundf("product %d not found", id)
		}
		if !isActive {
			return nil, 0, validationf("product %d is inactive", id)
		}
		items = append(items, model.OrderProduct{ProductID: id, Quantity: qty[id]})
		total += qty[id]
	}
	return items, total, nil
}

func (s *orderService) checkContact(ctx context.Context, id *uint, role string) error {
	if id == nil {
		return nil
	}
	if _, err := s.contacts.FindByID(ctx, *id); err != nil {
		return notFoundOr(err, role)
	}
	return nil
}

func (s *orderService) Create(ctx context.Context, req dto.CreateOrderRequest, createdBy uint) (*dto.OrderResponse, error) {
	items, target, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, req.CustomerID, "customer"); err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, req.WorkerID, "worker"); err != nil {
		return nil, err
	}

	o := &model.Order{
		CustomerID:   req.CustomerID,
		WorkerID:     req.WorkerID,
		Status:       model.OrderCreated,
		DueDate:      req.DueDate,
		Description:  req.Description,
		TargetPieces: target,
		CreatedBy:    createdBy,
	}
	for attempt := 0; attempt < 3; attempt++ {
		o.OrderNumber, err = s.nextNumber(ctx)
		if err != nil {
			return nil, err
		}
		o.ID = 0
		o.Items = cloneItems(items)
		err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.CreateTx(tx, o)
		})
		if err == nil || !isDuplicate(err) {
			break
		}
	}
	if err != nil {
		if isDuplicate(err) {
			return nil, conflictf("could not allocate an order number")
		}
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	return s.Get(ctx, o.ID)
}

func cloneItems(items []model.OrderProduct) []model.OrderProduct {
	out := make([]model.OrderProduct, len(items))
	copy(out, items)
	return out
}

// nextNumber returns ORD-YYYYMMDD-NNN with NNN one past today's highest.
func (s *orderService) nextNumber(ctx context.Context) (string, error) {
	stem := "ORD-" + s.now().Format("20060102") + "-"
	last, err := s.repo.LastNumberWithPrefix(ctx, stem)
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

func (s *orderService) Update(ctx context.Context, id uint, req dto.UpdateOrderRequest) (*dto.OrderResponse, error) {
	var items []model.OrderProduct
	target := 0
	if req.Items != nil {
		var err error
		if items, target, err = s.buildItems(ctx, req.Items); err != nil {
			return nil, err
		}
	}
	if err := s.checkContact(ctx, req.CustomerID, "customer"); err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, req.WorkerID, "worker"); err != nil {
		return nil, err
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.repo.LockTx(tx, id)
		if err != nil {
			return notFoundOr(err, "order")
		}
		if isClosed(o.Status) {
			return conflictf("order %s is %s and can no longer be edited", o.OrderNumber, o.Status)
		}

		fields := map[string]interface{}{}
		if req.CustomerID != nil {
			fields["customer_id"] = *req.CustomerID
		}
		if req.WorkerID != nil {
			fields["worker_id"] = *req.WorkerID
		}
		if req.DueDate != nil {
			fields["due_date"] = *req.DueDate
		}
		if req.Description != nil {
			fields["description"] = *req.Description
		}
		if items != nil {
			if o.CompletedPieces > 0 {
				return conflictf("items cannot be replaced after progress has been reported")
			}
			if err := s.repo.ReplaceItemsTx(tx, id, items); err != nil {
				return err
			}
			fields["target_pieces"] = target
		}
		return s.repo.UpdateFieldsTx(tx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	return s.Get(ctx, id)
}

func (s *orderService) UpdateStatus(ctx context.Context, id uint, status string) (*dto.OrderResponse, error) {
	if _, ok := orderTransitions[status]; !ok {
		return nil, validationf("unknown status %q", status)
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.repo.LockTx(tx, id)
		if err != nil {
			return notFoundOr(err, "order")
		}
		if o.Status == status {
			return nil
		}
		if !canTransition(o.Status, status) {
			return validationf("cannot move order from %s to %s", o.Status, status)
		}
		return s.repo.UpdateFieldsTx(tx, id, map[string]interface{}{"status": status})
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	return s.Get(ctx, id)
}

func (s *orderService) Delete(ctx context.Context, id uint) error {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "order")
	}
	if o.Status != model.OrderCreated && o.Status != model.OrderCancelled {
		return conflictf("only CREATED or CANCELLED orders can be deleted, order is %s", o.Status)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, s.caches.dashboard())
	return nil
}

// ── Progress reports ─────────────────────────────────────────────────────────

func (s *orderService) AddProgress(ctx context.Context, orderID, reportedBy uint, req dto.CreateProgressReportRequest) (*dto.ProgressReportResponse, error) {
	if req.Pieces <= 0 {
		return nil, validationf("pieces must be greater than 0")
	}

	report := &model.ProgressReport{
		OrderID:    orderID,
		ProductID:  req.ProductID,
		Pieces:     req.Pieces,
		Note:       req.Note,
		PhotoPath:  req.PhotoPath,
		ReportedBy: reportedBy,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.repo.LockTx(tx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}
		if isClosed(o.Status) {
			return conflictf("order %s is %s", o.OrderNumber, o.Status)
		}
		if remaining := o.TargetPieces - o.CompletedPieces; req.Pieces > remaining {
			return validationf("only %d pieces remain on order %s", remaining, o.OrderNumber)
		}
		if req.ProductID != nil {
			var item *model.OrderProduct
			for i := range o.Items {
				if o.Items[i].ProductID == *req.ProductID {
					item = &o.Items[i]
				}
			}
			if item == nil {
				return validationf("product %d is not part of order %s", *req.ProductID, o.OrderNumber)
			}
			if req.Pieces > item.Quantity-item.CompletedQuantity {
				return validationf("only %d pieces of product %d remain", item.Quantity-item.CompletedQuantity, item.ProductID)
			}
			if err := s.repo.IncrementItemTx(tx, orderID, item.ProductID, req.Pieces); err != nil {
				return err
			}
		}

		if err := s.repo.CreateProgressTx(tx, report); err != nil {
			return err
		}

		completed := o.CompletedPieces + req.Pieces
		fields := map[string]interface{}{"completed_pieces": completed}
		switch {
		case completed >= o.TargetPieces:
			fields["status"] = model.OrderCompleted
		case o.Status == model.OrderCreated:
			fields["status"] = model.OrderProcessing
		}
		return s.repo.UpdateFieldsTx(tx, orderID, fields)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches.dashboard())
	r := progressToResponse(report)
	return &r, nil
}

func (s *orderService) ListProgress(ctx context.Context, orderID uint) ([]dto.ProgressReportResponse, error) {
	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		return nil, notFoundOr(err, "order")
	}
	rows, err := s.repo.ListProgress(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProgressReportResponse, 0, len(rows))
	for i := range rows {
		out = append(out, progressToResponse(&rows[i]))
	}
	return out, nil
}
