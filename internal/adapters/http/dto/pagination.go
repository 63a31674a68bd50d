package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// MaxLimit is the largest page a client may request.
const MaxLimit = 500

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds optional paging parameters. Without a limit the
// whole list is returned in one page.
type PaginationRequest struct {
	// Cursor is the opaque NextCursor of a previous page.
	Cursor string `form:"cursor"`

	// Limit caps the page size (1-500).
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// Offset decodes the cursor into a list offset. An empty cursor is offset 0.
func (p *PaginationRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	return data.Offset, nil
}

// PaginatedResponse is one page of a list.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// Paginate slices items according to p. Out-of-range offsets give an empty page.
func Paginate[T any](items []T, p PaginationRequest) (*PaginatedResponse[T], error) {
	offset, err := p.Offset()
	if err != nil {
		return nil, err
	}

	total := len(items)
	if offset > total {
		offset = total
	}

	end := total
	if p.Limit > 0 && offset+p.Limit < total {
		end = offset + p.Limit
	}

	page := items[offset:end]
	if page == nil {
		page = []T{}
	}

	resp := &PaginatedResponse[T]{
		Items:   page,
		HasMore: end < total,
		Total:   total,
	}

	if resp.HasMore {
		resp.NextCursor = EncodeCursor(&CursorData{Offset: end})
	}

	return resp, nil
}

// CursorData is the content of a pagination cursor.
type CursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor encodes cursor data to a URL-safe string.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(encoded string) (*CursorData, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.Offset < 0 {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
