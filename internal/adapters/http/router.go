package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// ServiceName names the server span.
	ServiceName string

	// Auth guards import and sync when enabled. Nil means no guard.
	Auth *config.AuthConfig

	Health   *handlers.HealthHandler
	Quotes   *handlers.QuoteHandler
	Transfer *handlers.TransferHandler
	Sync     *handlers.SyncHandler

	// Timeout is the request deadline on /api/v1. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. OpenTelemetry - tracing and metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Timeout - request deadline on the API group
//
// Route groups:
//   - /-/ (internal): health, build info and metrics, no auth
//   - /api/v1/ (public API): quotes, transfer and sync
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(),
		middleware.Logging(),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	setupAPIRoutes(apiV1, cfg)
}

func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	var guard []gin.HandlerFunc
	if cfg.Auth != nil {
		guard = middleware.RequireEditor(cfg.Auth)
	}

	if cfg.Quotes != nil {
		cfg.Quotes.RegisterRoutes(rg)
	}

	if cfg.Transfer != nil {
		cfg.Transfer.RegisterRoutes(rg, guard...)
	}

	if cfg.Sync != nil {
		cfg.Sync.RegisterRoutes(rg, guard...)
	}
}
