// Package domain contains core business entities and rules.
package domain

import "strings"

const (
	// CategoryAll is the synthetic category that matches every quote.
	CategoryAll = "all"

	// ServerCategory labels quotes merged from the remote collection.
	ServerCategory = "Server"
)

// Quote is a text/category pair shown to the user.
// Quotes carry no identifier; two quotes are the same quote when their text matches exactly.
type Quote struct {
	// Text is the quotation itself.
	Text string `json:"text"`

	// Category groups quotes for filtering.
	Category string `json:"category"`
}

// NewQuote trims both fields and validates that neither is empty.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports a ValidationError naming the first empty field.
func (q Quote) Validate() error {
	if q.Text == "" {
		return NewValidationError("text", "please enter both quote text and category")
	}

	if q.Category == "" {
		return NewValidationError("category", "please enter both quote text and category")
	}

	return nil
}

// DedupKey identifies a quote for merging. Two quotes with the same exact
// text are the same quote whatever their categories.
func (q Quote) DedupKey() string {
	return q.Text
}

// DefaultQuotes returns the quotes a brand-new store is seeded with.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The best way to get started is to quit talking and begin doing.", Category: "Motivation"},
		{Text: "Don't let yesterday take up too much of today.", Category: "Life"},
		{Text: "It's not whether you get knocked down, it's whether you get up.", Category: "Perseverance"},
	}
}
