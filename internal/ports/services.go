// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// KeyValueStore is string-keyed byte storage.
// The quote store keeps its durable state (quotes, selected category) in one
// instance and its session state (last shown quote) in another.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// RemoteQuotes is the remote collection the sync loop reconciles with.
type RemoteQuotes interface {
	// FetchQuotes retrieves the remote collection translated to domain quotes.
	// Returns domain.ErrUnavailable if the remote cannot be reached.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)

	// PostQuote transmits one quote. The response is not merged back.
	PostQuote(ctx context.Context, quote domain.Quote) error
}

// ChangeKind identifies which operation changed the store.
type ChangeKind string

const (
	// ChangeLoaded is emitted once the store has been loaded or seeded.
	ChangeLoaded ChangeKind = "loaded"

	// ChangeAdded is emitted after a manual add.
	ChangeAdded ChangeKind = "added"

	// ChangeMerged is emitted after an import or sync merge added quotes.
	ChangeMerged ChangeKind = "merged"

	// ChangeFilter is emitted when the selected category changes.
	ChangeFilter ChangeKind = "filter"

	// ChangeShown is emitted when a quote is picked for display.
	ChangeShown ChangeKind = "shown"
)

// ChangeEvent describes one store change.
type ChangeEvent struct {
	// Kind is the operation that produced the change.
	Kind ChangeKind

	// Quotes holds the quotes the operation touched (added, merged or shown).
	Quotes []domain.Quote

	// Category is the selected category after the change.
	Category string

	// Total is the store size after the change.
	Total int
}

// QuoteObserver is notified after every store change.
// Implementations must not call back into mutating store methods synchronously.
type QuoteObserver interface {
	QuoteStoreChanged(ctx context.Context, event ChangeEvent)
}

// QuoteObserverFunc adapts a function to QuoteObserver.
type QuoteObserverFunc func(ctx context.Context, event ChangeEvent)

// QuoteStoreChanged implements QuoteObserver.
func (f QuoteObserverFunc) QuoteStoreChanged(ctx context.Context, event ChangeEvent) {
	f(ctx, event)
}
