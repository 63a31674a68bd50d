package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// SyncHandler triggers and reports remote sync. A nil syncer means sync is disabled.
type SyncHandler struct {
	syncer *app.Syncer
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(syncer *app.Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

func (h *SyncHandler) disabled(c *gin.Context) bool {
	if h.syncer != nil {
		return false
	}

	dto.HandleError(c, domain.NewUnavailableError("sync", "disabled by configuration"))

	return true
}

// Sync handles POST /sync by running one cycle. A failed fetch is a 503.
func (h *SyncHandler) Sync(c *gin.Context) {
	if h.disabled(c) {
		return
	}

	if _, err := h.syncer.SyncOnce(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromSyncStatus(h.syncer.Status()))
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(c *gin.Context) {
	if h.disabled(c) {
		return
	}

	c.JSON(http.StatusOK, dto.FromSyncStatus(h.syncer.Status()))
}

// RegisterRoutes registers the sync routes. guard runs before POST /sync.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	rg.POST("/sync", slices.Concat(guard, []gin.HandlerFunc{h.Sync})...)
	rg.GET("/sync/status", h.Status)
}
