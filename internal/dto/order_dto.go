package dto

import "time"

type OrderItemInput struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity"  validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerID  *uint            `json:"customerId"`
	WorkerID    *uint            `json:"workerId"`
	DueDate     *time.Time       `json:"dueDate"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Items       []OrderItemInput `json:"items"       validate:"required,min=1,dive"`
}

// UpdateOrderRequest replaces items when Items is non-nil.
type UpdateOrderRequest struct {
	CustomerID  *uint            `json:"customerId"`
	WorkerID    *uint            `json:"workerId"`
	DueDate     *time.Time       `json:"dueDate"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Items       []OrderItemInput `json:"items"       validate:"omitempty,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=CREATED NEED_MATERIAL PROCESSING COMPLETED CANCELLED"`
}

type CreateProgressReportRequest struct {
	ProductID *uint   `json:"productId"`
	Pieces    int     `json:"pieces"    validate:"required,gt=0"`
	Note      *string `json:"note"      validate:"omitempty,max=2000"`
	PhotoPath *string `json:"photoPath" validate:"omitempty,max=500"`
}

type OrderFilter struct {
	Status string `form:"status"`
	Search string `form:"search"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}

type OrderItemResponse struct {
	ID                uint   `json:"id"`
	ProductID         uint   `json:"productId"`
	ProductCode       string `json:"productCode,omitempty"`
	ProductName       string `json:"productName,omitempty"`
	Quantity          int    `json:"quantity"`
	CompletedQuantity int    `json:"completedQuantity"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	CustomerID      *uint               `json:"customerId"`
	CustomerName    *string             `json:"customerName,omitempty"`
	WorkerID        *uint               `json:"workerId"`
	WorkerName      *string             `json:"workerName,omitempty"`
	Status          string              `json:"status"`
	DueDate         *time.Time          `json:"dueDate"`
	Description     *string             `json:"description"`
	TargetPieces    int                 `json:"targetPieces"`
	CompletedPieces int                 `json:"completedPieces"`
	CreatedBy       uint                `json:"createdBy"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

type ProgressReportResponse struct {
	ID         uint      `json:"id"`
	OrderID    uint      `json:"orderId"`
	ProductID  *uint     `json:"productId"`
	Pieces     int       `json:"pieces"`
	Note       *string   `json:"note"`
	PhotoPath  *string   `json:"photoPath"`
	ReportedBy uint      `json:"reportedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
