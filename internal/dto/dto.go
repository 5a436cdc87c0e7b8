// Package dto holds the request and response shapes of the REST API.
// Request types carry validator tags and are checked before any service call.
package dto

import "github.com/shopspring/decimal"

func init() {
	// Quantities and prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ─── Pagination ──────────────────────────────────────────────────────────────

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Normalize clamps page/limit to 1..maxLimit, using def when limit is unset.
func Normalize(page, limit, def, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// MessageResponse is the body of simple acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse wraps list payloads as {success, data}.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}
