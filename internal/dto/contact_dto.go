package dto

import "time"

type CreateContactRequest struct {
	Name    string   `json:"name"    validate:"required,min=2,max=120"`
	Type    string   `json:"type"    validate:"required,oneof=SUPPLIER WORKER CUSTOMER OTHER"`
	Phone   *string  `json:"phone"   validate:"omitempty,max=40"`
	Email   *string  `json:"email"   validate:"omitempty,email"`
	Company *string  `json:"company" validate:"omitempty,max=120"`
	Address *string  `json:"address" validate:"omitempty,max=255"`
	Tags    []string `json:"tags"    validate:"omitempty,max=20,dive,min=1,max=40"`
}

type UpdateContactRequest struct {
	Name    *string  `json:"name"    validate:"omitempty,min=2,max=120"`
	Type    *string  `json:"type"    validate:"omitempty,oneof=SUPPLIER WORKER CUSTOMER OTHER"`
	Phone   *string  `json:"phone"   validate:"omitempty,max=40"`
	Email   *string  `json:"email"   validate:"omitempty,email"`
	Company *string  `json:"company" validate:"omitempty,max=120"`
	Address *string  `json:"address" validate:"omitempty,max=255"`
	Tags    []string `json:"tags"    validate:"omitempty,max=20,dive,min=1,max=40"`
	Active  *bool    `json:"active"`
}

type CreateContactNoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type ContactFilter struct {
	Search string `form:"search"`
	Type   string `form:"type"`
	Active string `form:"active"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}

type ContactNoteResponse struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	CreatedBy uint      `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContactResponse struct {
	ID        uint                  `json:"id"`
	Name      string                `json:"name"`
	Type      string                `json:"type"`
	Phone     *string               `json:"phone"`
	Email     *string               `json:"email"`
	Company   *string               `json:"company"`
	Address   *string               `json:"address"`
	Tags      []string              `json:"tags"`
	Active    bool                  `json:"active"`
	Notes     []ContactNoteResponse `json:"notes,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type ContactListResponse struct {
	Contacts   []ContactResponse `json:"contacts"`
	Pagination Pagination        `json:"pagination"`
}
