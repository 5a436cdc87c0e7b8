package dto

import "github.com/shopspring/decimal"

type MovementReportFilter struct {
	From string `form:"from"` // YYYY-MM-DD, inclusive
	To   string `form:"to"`   // YYYY-MM-DD, inclusive
}

type StockCountRowResult struct {
	Row      int              `json:"row"`
	Code     string           `json:"code"`
	Previous *decimal.Decimal `json:"previous,omitempty"`
	Counted  *decimal.Decimal `json:"counted,omitempty"`
	Changed  bool             `json:"changed"`
	Error    string           `json:"error,omitempty"`
}

type StockCountImportResponse struct {
	Processed int                   `json:"processed"`
	Updated   int                   `json:"updated"`
	Unchanged int                   `json:"unchanged"`
	Failed    int                   `json:"failed"`
	Rows      []StockCountRowResult `json:"rows"`
}
