package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// Format is an export/import file format.
type Format string

const (
	// FormatJSON is an indented JSON array of {text, category} objects.
	FormatJSON Format = "json"

	// FormatXLSX is a workbook with a "Quotes" sheet and a Text/Category header row.
	FormatXLSX Format = "xlsx"
)

// Workbook layout.
const (
	xlsxSheet          = "Quotes"
	xlsxHeaderText     = "Text"
	xlsxHeaderCategory = "Category"
)

// maxImportBytes bounds an import payload. Larger payloads are rejected
// whole instead of being parsed truncated.
const maxImportBytes = 10 << 20

// ParseFormat parses a user-supplied format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", domain.NewValidationErrorWithValue("format", "must be one of: json xlsx", s)
	}
}

// FormatFromFilename infers the format from a file extension, defaulting to JSON.
func FormatFromFilename(name string) Format {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return FormatXLSX
	}

	return FormatJSON
}

// Filename is the suggested download name.
func (f Format) Filename() string {
	return "quotes." + string(f)
}

// ContentType is the MIME type of the exported document.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	return "application/json"
}

// ImportResult summarizes an import.
type ImportResult struct {
	// Added is how many quotes were new and merged.
	Added int `json:"added"`

	// Skipped counts elements that were malformed or failed validation.
	Skipped int `json:"skipped"`

	// Total is the store size after the import.
	Total int `json:"total"`
}

// Transfer exports and imports the quote store.
type Transfer struct {
	store *QuoteStore
}

// NewTransfer creates a Transfer over store.
func NewTransfer(store *QuoteStore) *Transfer {
	return &Transfer{store: store}
}

// Export writes the whole store to w.
func (t *Transfer) Export(ctx context.Context, w io.Writer, format Format) error {
	quotes := t.store.Quotes(ctx)

	var err error

	switch format {
	case FormatXLSX:
		err = writeXLSX(w, quotes)
	default:
		err = writeJSON(w, quotes)
	}

	if err != nil {
		return fmt.Errorf("exporting %s: %w", format, err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "quotes exported",
		slog.String("format", string(format)),
		slog.Int("quotes", len(quotes)),
	)

	return nil
}

func writeJSON(w io.Writer, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(quotes)
}

func writeXLSX(w io.Writer, quotes []domain.Quote) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &[]any{xlsxHeaderText, xlsxHeaderCategory}); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(xlsxSheet, "A1", "B1", bold); err != nil {
		return err
	}

	for i, q := range quotes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(xlsxSheet, cell, &[]any{q.Text, q.Category}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(xlsxSheet, "A", "A", 80); err != nil {
		return err
	}

	_, err = f.WriteTo(w)

	return err
}

// Import reads candidates from r and merges them with text deduplication.
// A JSON payload whose top-level value is not an array fails without
// mutating the store. Elements that are not valid quotes are skipped.
func (t *Transfer) Import(ctx context.Context, r io.Reader, format Format) (ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading import: %w", err)
	}

	if len(data) > maxImportBytes {
		return ImportResult{}, domain.NewValidationError("file", "too large")
	}

	var (
		candidates []domain.Quote
		skipped    int
	)

	switch format {
	case FormatXLSX:
		candidates, skipped, err = readXLSX(data)
	default:
		candidates, skipped, err = readJSON(data)
	}

	if err != nil {
		return ImportResult{}, err
	}

	added, err := t.store.Merge(ctx, candidates)
	if err != nil {
		return ImportResult{}, fmt.Errorf("merging import: %w", err)
	}

	result := ImportResult{
		Added:   added,
		Skipped: skipped,
		Total:   t.store.Len(),
	}

	logging.FromContext(ctx).InfoContext(ctx, "quotes imported",
		slog.String("format", string(format)),
		slog.Int("added", result.Added),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}

// importedQuote uses pointers so missing and non-string fields are told apart from empty ones.
type importedQuote struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

func readJSON(data []byte) ([]domain.Quote, int, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, 0, domain.NewValidationError("file", "invalid JSON: "+err.Error())
	}

	if _, ok := root.([]any); !ok {
		return nil, 0, domain.NewValidationError("file", "invalid JSON format: expected an array of quotes")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, 0, domain.NewValidationError("file", "invalid JSON: "+err.Error())
	}

	candidates := make([]domain.Quote, 0, len(elements))
	skipped := 0

	for _, raw := range elements {
		var iq importedQuote
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) || json.Unmarshal(raw, &iq) != nil {
			skipped++
			continue
		}

		if iq.Text == nil || iq.Category == nil {
			skipped++
			continue
		}

		q, err := domain.NewQuote(*iq.Text, *iq.Category)
		if err != nil {
			skipped++
			continue
		}

		candidates = append(candidates, q)
	}

	return candidates, skipped, nil
}

func readXLSX(data []byte) ([]domain.Quote, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, domain.NewValidationError("file", "invalid workbook: "+err.Error())
	}
	defer func() { _ = f.Close() }()

	sheet := xlsxSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, domain.NewValidationError("file", "reading sheet: "+err.Error())
	}

	candidates := make([]domain.Quote, 0, len(rows))
	skipped := 0

	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), xlsxHeaderText) {
			continue
		}

		if len(row) < 2 {
			skipped++
			continue
		}

		q, err := domain.NewQuote(row[0], row[1])
		if err != nil {
			skipped++
			continue
		}

		candidates = append(candidates, q)
	}

	return candidates, skipped, nil
}
