package service

import (
	"encoding/json"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"

	"github.com/shopspring/decimal"
)

func materialToResponse(m *model.Material) dto.MaterialResponse {
	return dto.MaterialResponse{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		Description:  m.Description,
		Unit:         m.Unit,
		QtyOnHand:    m.QtyOnHand,
		MinStock:     m.MinStock,
		PricePerUnit: m.PricePerUnit,
		Supplier:     m.Supplier,
		Location:     m.Location,
		IsCritical:   m.QtyOnHand.LessThanOrEqual(m.MinStock),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// MovementToResponse maps a ledger row, including the preloaded user and
// entity names when present.
func MovementToResponse(mv *model.MaterialMovement) dto.MovementResponse {
	r := dto.MovementResponse{
		ID:           mv.ID,
		MaterialID:   mv.MaterialID,
		ProductID:    mv.ProductID,
		MovementType: string(mv.MovementType),
		Quantity:     mv.Quantity,
		QtyAfter:     mv.QtyAfter,
		Reason:       mv.Reason,
		UserID:       mv.UserID,
		CreatedAt:    mv.CreatedAt,
	}
	if mv.User != nil {
		r.UserName = mv.User.Name
	}
	switch {
	case mv.Material != nil:
		r.EntityName = mv.Material.Name
	case mv.Product != nil:
		r.EntityName = mv.Product.Name
	}
	return r
}

// MaterialToResponse is exported for handlers that render ledger results.
func MaterialToResponse(m *model.Material) dto.MaterialResponse { return materialToResponse(m) }

func productToResponse(p *model.Product) dto.ProductResponse {
	r := dto.ProductResponse{
		ID:             p.ID,
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		BaseMaterialID: p.BaseMaterialID,
		Price:          p.Price,
		QtyOnHand:      p.QtyOnHand,
		Unit:           p.Unit,
		DefaultTarget:  p.DefaultTarget,
		Active:         p.Active,
		ColorID:        p.ColorID,
		VariationID:    p.VariationID,
		Photos:         make([]dto.ProductPhotoResponse, 0, len(p.Photos)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Color != nil {
		r.ColorName = &p.Color.Name
	}
	if p.Variation != nil {
		r.VariationName = &p.Variation.Name
	}
	for _, ph := range p.Photos {
		r.Photos = append(r.Photos, dto.ProductPhotoResponse{ID: ph.ID, URL: ph.URL, Position: ph.Position})
	}
	for _, link := range p.Materials {
		r.Materials = append(r.Materials, productMaterialToResponse(&link))
	}
	return r
}

func productMaterialToResponse(link *model.ProductMaterial) dto.ProductMaterialResponse {
	r := dto.ProductMaterialResponse{
		MaterialID:      link.MaterialID,
		QuantityPerUnit: link.QuantityPerUnit,
	}
	if link.Material != nil {
		r.MaterialCode = link.Material.Code
		r.MaterialName = link.Material.Name
		r.Unit = link.Material.Unit
		r.QtyOnHand = link.Material.QtyOnHand
		r.MaxProducible = maxProducible(link.Material.QtyOnHand, link.QuantityPerUnit)
	}
	return r
}

// maxProducible is floor(onHand / perUnit); zero for non-positive inputs.
func maxProducible(onHand, perUnit decimal.Decimal) int64 {
	if !perUnit.IsPositive() || !onHand.IsPositive() {
		return 0
	}
	return onHand.Div(perUnit).Floor().IntPart()
}

func remainingToResponse(r *model.RemainingMaterial) dto.RemainingMaterialResponse {
	return dto.RemainingMaterialResponse{
		ID:         r.ID,
		MaterialID: r.MaterialID,
		Quantity:   r.Quantity,
		Unit:       r.Unit,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
	}
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
	}
}

func contactToResponse(c *model.Contact) dto.ContactResponse {
	r := dto.ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		Phone:     c.Phone,
		Email:     c.Email,
		Company:   c.Company,
		Address:   c.Address,
		Tags:      []string{},
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if len(c.Tags) > 0 {
		_ = json.Unmarshal(c.Tags, &r.Tags)
	}
	for _, n := range c.Notes {
		r.Notes = append(r.Notes, noteToResponse(&n))
	}
	return r
}

func noteToResponse(n *model.ContactNote) dto.ContactNoteResponse {
	return dto.ContactNoteResponse{ID: n.ID, Body: n.Body, CreatedBy: n.CreatedBy, CreatedAt: n.CreatedAt}
}

func orderToResponse(o *model.Order) dto.OrderResponse {
	r := dto.OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		WorkerID:        o.WorkerID,
		Status:          o.Status,
		DueDate:         o.DueDate,
		Description:     o.Description,
		TargetPieces:    o.TargetPieces,
		CompletedPieces: o.CompletedPieces,
		CreatedBy:       o.CreatedBy,
		Items:           make([]dto.OrderItemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Customer != nil {
		r.CustomerName = &o.Customer.Name
	}
	if o.Worker != nil {
		r.WorkerName = &o.Worker.Name
	}
	for _, it := range o.Items {
		item := dto.OrderItemResponse{
			ID:                it.ID,
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			CompletedQuantity: it.CompletedQuantity,
		}
		if it.Product != nil {
			item.ProductCode = it.Product.Code
			item.ProductName = it.Product.Name
		}
		r.Items = append(r.Items, item)
	}
	return r
}

func progressToResponse(p *model.ProgressReport) dto.ProgressReportResponse {
	return dto.ProgressReportResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		ProductID:  p.ProductID,
		Pieces:     p.Pieces,
		Note:       p.Note,
		PhotoPath:  p.PhotoPath,
		ReportedBy: p.ReportedBy,
		CreatedAt:  p.CreatedAt,
	}
}
