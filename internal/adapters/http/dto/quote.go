package dto

import (
	"time"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteResponse is a quote on the wire.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FromQuote converts a domain quote.
func FromQuote(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// FromQuotes converts a slice of domain quotes.
func FromQuotes(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = FromQuote(q)
	}

	return out
}

// ListQuotesRequest is the query of GET /quotes.
type ListQuotesRequest struct {
	PaginationRequest

	Category string `form:"category"`
}

// AddQuoteRequest is the body of POST /quotes.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"notblank"`
	Category string `json:"category" validate:"notblank"`
}

// CategoriesResponse lists categories with "all" first.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// FilterRequest is the body of PUT /filter.
type FilterRequest struct {
	Category string `json:"category" validate:"notblank"`
}

// FilterResponse reports the selected category.
type FilterResponse struct {
	Category string `json:"category"`
}

// TransferQuery selects the export/import format.
type TransferQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=json xlsx"`
}

// ImportResponse summarizes an import.
type ImportResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// FromImportResult converts an import result.
func FromImportResult(r app.ImportResult) ImportResponse {
	return ImportResponse{Added: r.Added, Skipped: r.Skipped, Total: r.Total}
}

// SyncStatusResponse is the last sync status.
type SyncStatusResponse struct {
	Message string     `json:"message"`
	OK      bool       `json:"ok"`
	At      *time.Time `json:"at,omitempty"`
	Added   int        `json:"added"`
}

// FromSyncStatus converts a sync status. A zero time is omitted.
func FromSyncStatus(s app.SyncStatus) SyncStatusResponse {
	resp := SyncStatusResponse{Message: s.Message, OK: s.OK, Added: s.Added}
	if !s.At.IsZero() {
		at := s.At
		resp.At = &at
	}

	return resp
}
