package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/ports"
)

// LoggingObserver logs every store change at debug level.
func LoggingObserver(logger *slog.Logger) ports.QuoteObserver {
	return ports.QuoteObserverFunc(func(ctx context.Context, event ports.ChangeEvent) {
		logger.DebugContext(ctx, "quote store changed",
			slog.String("kind", string(event.Kind)),
			slog.Int("quotes", len(event.Quotes)),
			slog.String("category", event.Category),
			slog.Int("total", event.Total),
		)
	})
}
