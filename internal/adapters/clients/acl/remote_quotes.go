package acl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// DefaultCollectionPath is the JSONPlaceholder posts collection.
const DefaultCollectionPath = "/posts"

// RemoteQuotesConfig configures a RemoteQuotes adapter.
type RemoteQuotesConfig struct {
	// Client must have its BaseURL pointing at the remote host.
	Client *clients.Client

	// Path is the collection path for both fetch and post. Defaults to DefaultCollectionPath.
	Path string

	// Category labels every fetched quote. Defaults to domain.ServerCategory.
	Category string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// RemoteQuotes implements ports.RemoteQuotes against a JSONPlaceholder-style
// posts collection. Post titles become quote text.
type RemoteQuotes struct {
	BaseAdapter

	path     string
	category string
	logger   *slog.Logger
}

// NewRemoteQuotes creates the adapter. Panics if Client is nil.
func NewRemoteQuotes(cfg RemoteQuotesConfig) *RemoteQuotes {
	if cfg.Client == nil {
		panic("RemoteQuotes: Client is required")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultCollectionPath
	}

	category := cfg.Category
	if category == "" {
		category = domain.ServerCategory
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RemoteQuotes{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        path,
		category:    category,
		logger:      logger,
	}
}

// remotePost is a JSONPlaceholder post. Only Title is used.
type remotePost struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// outgoingQuote is what PostQuote sends. JSONPlaceholder echoes any JSON object.
type outgoingQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FetchQuotes returns the remote collection as quotes in the configured
// category. Items with a blank title are dropped. A response that is not a
// JSON array is reported as unavailable.
func (r *RemoteQuotes) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	logger := logging.FromContext(ctx)
	logger.Log(ctx, logging.LevelTrace, "fetching remote quotes", slog.String("path", r.path))

	body, err := r.Get(ctx, r.path, "fetch quotes")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]remotePost](body)
	if err != nil {
		return nil, domain.NewUnavailableError(r.ServiceName(), err.Error())
	}

	quotes := TranslateSlice(*posts, r.translate)

	logger.DebugContext(ctx, "fetched remote quotes",
		slog.Int("items", len(*posts)),
		slog.Int("quotes", len(quotes)),
	)

	return quotes, nil
}

func (r *RemoteQuotes) translate(p *remotePost) (domain.Quote, bool) {
	q, err := domain.NewQuote(p.Title, r.category)
	if err != nil {
		r.logger.Log(context.Background(), logging.LevelTrace, "dropping remote post",
			slog.Int("post_id", p.ID),
			slog.Any("error", err),
		)

		return domain.Quote{}, false
	}

	return q, true
}

// PostQuote uploads q. The response body is discarded.
func (r *RemoteQuotes) PostQuote(ctx context.Context, q domain.Quote) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("posting quote: %w", err)
	}

	body, err := r.PostJSON(ctx, r.path, outgoingQuote(q), "post quote")
	if err != nil {
		return err
	}

	Discard(body)

	logging.FromContext(ctx).DebugContext(ctx, "posted quote",
		slog.String("category", q.Category),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (r *RemoteQuotes) Name() string {
	return r.ServiceName()
}

// Check reports the remote unhealthy while its circuit is open. It never
// calls the remote, so readiness checks cannot trip the breaker.
func (r *RemoteQuotes) Check(_ context.Context) error {
	if state := r.Client().CircuitState(); state == clients.StateOpen {
		return errors.New("circuit breaker " + state.String())
	}

	return nil
}

