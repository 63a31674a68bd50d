// Package handlers implements the quotebook HTTP endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteHandler serves the quote store.
type QuoteHandler struct {
	store *app.QuoteStore
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(store *app.QuoteStore) *QuoteHandler {
	return &QuoteHandler{store: store}
}

// List handles GET /quotes?category=&limit=&cursor=.
func (h *QuoteHandler) List(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	quotes := h.store.Filtered(c.Request.Context(), req.Category)

	page, err := dto.Paginate(dto.FromQuotes(quotes), req.PaginationRequest)
	if err != nil {
		dto.HandleError(c, domain.NewValidationErrorWithValue("cursor", err.Error(), req.Cursor))
		return
	}

	c.JSON(http.StatusOK, page)
}

// Add handles POST /quotes.
func (h *QuoteHandler) Add(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	q, err := h.store.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromQuote(q))
}

// Random handles GET /quotes/random. Without ?category the selected filter applies.
func (h *QuoteHandler) Random(c *gin.Context) {
	ctx := c.Request.Context()

	category, ok := c.GetQuery("category")
	if !ok {
		category = h.store.SelectedCategory(ctx)
	}

	q, err := h.store.PickRandom(ctx, category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromQuote(q))
}

// Last handles GET /quotes/last.
func (h *QuoteHandler) Last(c *gin.Context) {
	q, ok, err := h.store.LastShown(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if !ok {
		dto.HandleError(c, domain.NewNotFoundError("last shown quote", ""))
		return
	}

	c.JSON(http.StatusOK, dto.FromQuote(q))
}

// Categories handles GET /categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: h.store.Categories(c.Request.Context())})
}

// GetFilter handles GET /filter.
func (h *QuoteHandler) GetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FilterResponse{Category: h.store.SelectedCategory(c.Request.Context())})
}

// SetFilter handles PUT /filter.
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.store.SetCategory(ctx, req.Category); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FilterResponse{Category: h.store.SelectedCategory(ctx)})
}

// RegisterRoutes registers the quote routes on rg.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("", h.Add)
	quotes.GET("/random", h.Random)
	quotes.GET("/last", h.Last)

	rg.GET("/categories", h.Categories)
	rg.GET("/filter", h.GetFilter)
	rg.PUT("/filter", h.SetFilter)
}
