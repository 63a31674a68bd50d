package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// importFormField is the multipart field holding an uploaded file.
const importFormField = "file"

// TransferHandler serves export and import.
type TransferHandler struct {
	transfer *app.Transfer
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(transfer *app.Transfer) *TransferHandler {
	return &TransferHandler{transfer: transfer}
}

// Export handles GET /export?format= as an attachment download.
func (h *TransferHandler) Export(c *gin.Context) {
	var q dto.TransferQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	format, err := app.ParseFormat(q.Format)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.transfer.Export(c.Request.Context(), &buf, format); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Import handles POST /import?format=. A multipart/form-data request carries
// the payload in the field "file"; any other content type is read as the raw
// body. Without ?format the uploaded file name decides, defaulting to JSON.
func (h *TransferHandler) Import(c *gin.Context) {
	var q dto.TransferQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	body, name, err := importPayload(c)
	if err != nil {
		if tooLarge(err) {
			dto.HandleError(c, errImportTooLarge)
			return
		}

		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, err.Error())

		return
	}
	defer func() { _ = body.Close() }()

	format := app.FormatFromFilename(name)
	if q.Format != "" {
		if format, err = app.ParseFormat(q.Format); err != nil {
			dto.HandleError(c, err)
			return
		}
	}

	result, err := h.transfer.Import(c.Request.Context(), body, format)
	if err != nil {
		if tooLarge(err) {
			err = errImportTooLarge
		}

		dto.HandleError(c, err)

		return
	}

	c.JSON(http.StatusOK, dto.FromImportResult(result))
}

var errImportTooLarge = domain.NewValidationError("file", "too large")

// importPayload only parses a form for multipart requests. Parsing any other
// form type would consume the raw body.
func importPayload(c *gin.Context) (io.ReadCloser, string, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return c.Request.Body, "", nil
	}

	fh, err := c.FormFile(importFormField)
	if err != nil {
		return nil, "", fmt.Errorf("reading multipart field %q: %w", importFormField, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("opening upload: %w", err)
	}

	return f, fh.Filename, nil
}

// tooLarge reports the server's request body limit being hit. The multipart
// reader does not always wrap the limit error, so its text is matched too.
func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}

	return strings.Contains(err.Error(), "http: request body too large")
}

// RegisterRoutes registers export and import. guard runs before import.
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	rg.GET("/export", h.Export)
	rg.POST("/import", slices.Concat(guard, []gin.HandlerFunc{h.Import})...)
}
