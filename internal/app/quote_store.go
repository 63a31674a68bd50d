// Package app contains the quote store and the use cases built on it.
//
// The store is the only owner of quote state. Transports (HTTP, TUI, CLI)
// and the sync loop call it concurrently; it serializes mutations and
// persists each one before it becomes visible.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Storage keys.
const (
	// KeyQuotes holds the JSON array of quotes in durable storage.
	KeyQuotes = "quotes"

	// KeySelectedCategory holds the category filter in durable storage.
	KeySelectedCategory = "selectedCategory"

	// KeyLastViewedQuote holds the last shown quote in session storage.
	KeyLastViewedQuote = "lastViewedQuote"
)

// ErrStoreNotLoaded is returned by mutations attempted before Load.
var ErrStoreNotLoaded = errors.New("quote store not loaded")

// QuoteStoreConfig configures a QuoteStore.
type QuoteStoreConfig struct {
	// Durable keeps quotes and the category filter across runs. Required.
	Durable ports.KeyValueStore

	// Session keeps the last shown quote for this process. Required.
	Session ports.KeyValueStore

	// Rand picks random quotes. Defaults to a randomly seeded PCG source.
	Rand *rand.Rand

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// QuoteStore is the ordered quote collection plus selection state.
type QuoteStore struct {
	durable ports.KeyValueStore
	session ports.KeyValueStore
	logger  *slog.Logger

	mu       sync.RWMutex
	quotes   []domain.Quote
	category string
	loaded   bool

	rngMu sync.Mutex
	rng   *rand.Rand

	obsMu     sync.RWMutex
	observers map[int]ports.QuoteObserver
	nextObs   int
}

// NewQuoteStore creates an empty, unloaded store. Panics without storage.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.Durable == nil || cfg.Session == nil {
		panic("QuoteStore: Durable and Session storage are required")
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // display randomness
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{
		durable:   cfg.Durable,
		session:   cfg.Session,
		logger:    logger.With(slog.String("component", "app.QuoteStore")),
		category:  domain.CategoryAll,
		rng:       rng,
		observers: make(map[int]ports.QuoteObserver),
	}
}

// Subscribe registers obs for change events and returns a function that removes it.
// Observers run synchronously on the goroutine that made the change, after
// the store lock is released.
func (s *QuoteStore) Subscribe(obs ports.QuoteObserver) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()

		delete(s.observers, id)
	}
}

func (s *QuoteStore) notify(ctx context.Context, event ports.ChangeEvent) {
	s.obsMu.RLock()
	observers := make([]ports.QuoteObserver, 0, len(s.observers))

	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.obsMu.RUnlock()

	for _, obs := range observers {
		obs.QuoteStoreChanged(ctx, event)
	}
}

// Load reads the persisted quotes and category filter. When no quotes have
// ever been saved the store is seeded with domain.DefaultQuotes and persisted.
// Corrupt persisted quotes are returned as a decode error.
func (s *QuoteStore) Load(ctx context.Context) error {
	quotes, seeded, err := s.readQuotes(ctx)
	if err != nil {
		return err
	}

	category, err := s.readCategory(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.quotes = quotes
	s.category = category
	s.loaded = true
	total := len(quotes)
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "quote store loaded",
		slog.Int("quotes", total),
		slog.String("category", category),
		slog.Bool("seeded", seeded),
	)

	s.notify(ctx, ports.ChangeEvent{
		Kind:     ports.ChangeLoaded,
		Quotes:   slices.Clone(quotes),
		Category: category,
		Total:    total,
	})

	return nil
}

func (s *QuoteStore) readQuotes(ctx context.Context) ([]domain.Quote, bool, error) {
	raw, err := s.durable.Get(ctx, KeyQuotes)

	switch {
	case domain.IsNotFound(err):
		quotes := domain.DefaultQuotes()
		if err := s.persistQuotes(ctx, quotes); err != nil {
			return nil, false, fmt.Errorf("seeding default quotes: %w", err)
		}

		return quotes, true, nil

	case err != nil:
		return nil, false, fmt.Errorf("reading quotes: %w", err)
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, false, fmt.Errorf("decoding persisted quotes: %w", err)
	}

	return quotes, false, nil
}

func (s *QuoteStore) readCategory(ctx context.Context) (string, error) {
	raw, err := s.durable.Get(ctx, KeySelectedCategory)

	switch {
	case domain.IsNotFound(err):
		return domain.CategoryAll, nil
	case err != nil:
		return "", fmt.Errorf("reading selected category: %w", err)
	}

	category := strings.TrimSpace(string(raw))
	if category == "" {
		return domain.CategoryAll, nil
	}

	return category, nil
}

func (s *QuoteStore) persistQuotes(ctx context.Context, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.durable.Set(ctx, KeyQuotes, raw); err != nil {
		return fmt.Errorf("persisting quotes: %w", err)
	}

	return nil
}

// Add appends a quote after trimming and validating both fields. Text
// duplicates are allowed here; only Merge deduplicates.
func (s *QuoteStore) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()

	if !s.loaded {
		s.mu.Unlock()
		return domain.Quote{}, ErrStoreNotLoaded
	}

	next := append(slices.Clone(s.quotes), q)
	if err := s.persistQuotes(ctx, next); err != nil {
		s.mu.Unlock()
		return domain.Quote{}, err
	}

	s.quotes = next
	event := ports.ChangeEvent{
		Kind:     ports.ChangeAdded,
		Quotes:   []domain.Quote{q},
		Category: s.category,
		Total:    len(next),
	}
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "quote added",
		slog.String("category", q.Category),
		slog.Int("total", event.Total),
	)

	s.notify(ctx, event)

	return q, nil
}

// Merge appends every candidate whose text is not already in the store or
// earlier in the batch, persists once, and returns how many were added.
// Invalid candidates are skipped.
func (s *QuoteStore) Merge(ctx context.Context, candidates []domain.Quote) (int, error) {
	s.mu.Lock()

	if !s.loaded {
		s.mu.Unlock()
		return 0, ErrStoreNotLoaded
	}

	seen := make(map[string]struct{}, len(s.quotes)+len(candidates))
	for _, q := range s.quotes {
		seen[q.DedupKey()] = struct{}{}
	}

	var added []domain.Quote

	for _, c := range candidates {
		if c.Validate() != nil {
			continue
		}

		key := c.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		added = append(added, c)
	}

	if len(added) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	next := append(slices.Clone(s.quotes), added...)
	if err := s.persistQuotes(ctx, next); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	s.quotes = next
	event := ports.ChangeEvent{
		Kind:     ports.ChangeMerged,
		Quotes:   added,
		Category: s.category,
		Total:    len(next),
	}
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "quotes merged",
		slog.Int("candidates", len(candidates)),
		slog.Int("added", len(added)),
		slog.Int("total", event.Total),
	)

	s.notify(ctx, event)

	return len(added), nil
}

// Quotes returns a copy of the store in insertion order.
func (s *QuoteStore) Quotes(_ context.Context) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes)
}

// Len returns the number of quotes.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

// Categories returns "all" followed by each distinct category in first-seen order.
func (s *QuoteStore) Categories(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := []string{domain.CategoryAll}
	seen := make(map[string]struct{})

	for _, q := range s.quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	return categories
}

// Filtered returns every quote for "all" (or an empty category) and otherwise
// the quotes whose category matches exactly.
func (s *QuoteStore) Filtered(_ context.Context, category string) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterQuotes(s.quotes, category)
}

func filterQuotes(quotes []domain.Quote, category string) []domain.Quote {
	if category == "" || category == domain.CategoryAll {
		return slices.Clone(quotes)
	}

	filtered := make([]domain.Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Category == category {
			filtered = append(filtered, q)
		}
	}

	return filtered
}

// LatestLocal returns the most recently added quote that did not come from
// the remote, identified by excludeCategory.
func (s *QuoteStore) LatestLocal(_ context.Context, excludeCategory string) (domain.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.quotes) - 1; i >= 0; i-- {
		if s.quotes[i].Category != excludeCategory {
			return s.quotes[i], true
		}
	}

	return domain.Quote{}, false
}

// PickRandom selects a uniformly random quote from Filtered(category) and
// remembers it as the last shown quote for this session. It returns
// domain.ErrNoQuotes when nothing matches.
func (s *QuoteStore) PickRandom(ctx context.Context, category string) (domain.Quote, error) {
	s.mu.RLock()
	candidates := filterQuotes(s.quotes, category)
	selected := s.category
	total := len(s.quotes)
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return domain.Quote{}, domain.ErrNoQuotes
	}

	s.rngMu.Lock()
	q := candidates[s.rng.IntN(len(candidates))]
	s.rngMu.Unlock()

	logger := logging.FromContext(ctx)

	if raw, err := json.Marshal(q); err == nil {
		if err := s.session.Set(ctx, KeyLastViewedQuote, raw); err != nil {
			logger.WarnContext(ctx, "remembering last shown quote failed", slog.Any("error", err))
		}
	}

	logger.Log(ctx, logging.LevelTrace, "quote picked",
		slog.String("filter", category),
		slog.Int("candidates", len(candidates)),
	)

	s.notify(ctx, ports.ChangeEvent{
		Kind:     ports.ChangeShown,
		Quotes:   []domain.Quote{q},
		Category: selected,
		Total:    total,
	})

	return q, nil
}

// LastShown returns the quote most recently picked in this session.
// ok is false when nothing has been shown yet.
func (s *QuoteStore) LastShown(ctx context.Context) (q domain.Quote, ok bool, err error) {
	raw, err := s.session.Get(ctx, KeyLastViewedQuote)
	if domain.IsNotFound(err) {
		return domain.Quote{}, false, nil
	}

	if err != nil {
		return domain.Quote{}, false, fmt.Errorf("reading last shown quote: %w", err)
	}

	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Quote{}, false, fmt.Errorf("decoding last shown quote: %w", err)
	}

	return q, true, nil
}

// SelectedCategory returns the persisted category filter.
func (s *QuoteStore) SelectedCategory(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.category
}

// SetCategory persists the category filter. Categories with no quotes are
// accepted; they simply match nothing until such quotes exist.
func (s *QuoteStore) SetCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return domain.NewValidationError("category", "must not be empty")
	}

	s.mu.Lock()

	if !s.loaded {
		s.mu.Unlock()
		return ErrStoreNotLoaded
	}

	if err := s.durable.Set(ctx, KeySelectedCategory, []byte(category)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persisting selected category: %w", err)
	}

	s.category = category
	event := ports.ChangeEvent{
		Kind:     ports.ChangeFilter,
		Category: category,
		Total:    len(s.quotes),
	}
	s.mu.Unlock()

	s.notify(ctx, event)

	return nil
}
