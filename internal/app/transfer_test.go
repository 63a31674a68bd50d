package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "json", want: FormatJSON},
		{in: " JSON ", want: FormatJSON},
		{in: "xlsx", want: FormatXLSX},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_FilenameAndContentType(t *testing.T) {
	assert.Equal(t, "quotes.json", FormatJSON.Filename())
	assert.Equal(t, "quotes.xlsx", FormatXLSX.Filename())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, FormatXLSX, FormatFromFilename("backup.XLSX"))
	assert.Equal(t, FormatJSON, FormatFromFilename("backup.txt"))
}

func TestTransfer_ExportJSON(t *testing.T) {
	s := seededStore(t,
		domain.Quote{Text: "1", Category: "A"},
		domain.Quote{Text: "2", Category: "B"},
	)

	var buf bytes.Buffer
	require.NoError(t, NewTransfer(s).Export(context.Background(), &buf, FormatJSON))

	assert.JSONEq(t, `[{"text":"1","category":"A"},{"text":"2","category":"B"}]`, buf.String())
	assert.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestTransfer_ExportJSON_EmptyStoreIsArray(t *testing.T) {
	s := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, NewTransfer(s).Export(context.Background(), &buf, FormatJSON))

	assert.JSONEq(t, `[]`, buf.String())
}

func TestTransfer_ImportJSON(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantAdded   int
		wantSkipped int
		wantTotal   int
	}{
		{
			name:      "duplicate text adds nothing",
			payload:   `[{"text":"existing","category":"Other"}]`,
			wantAdded: 0, wantTotal: 1,
		},
		{
			name:      "novel quote adds one",
			payload:   `[{"text":"novel","category":"New"}]`,
			wantAdded: 1, wantTotal: 2,
		},
		{
			name:        "malformed elements are skipped",
			payload:     `[42, "str", {"text":"ok","category":"C"}, {"text":""}, {"text":"x"}, {"text":1,"category":"C"}]`,
			wantAdded:   1,
			wantSkipped: 5,
			wantTotal:   2,
		},
		{
			name:      "empty array",
			payload:   `[]`,
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededStore(t, domain.Quote{Text: "existing", Category: "Life"})

			got, err := NewTransfer(s).Import(context.Background(), strings.NewReader(tt.payload), FormatJSON)
			require.NoError(t, err)

			assert.Equal(t, ImportResult{Added: tt.wantAdded, Skipped: tt.wantSkipped, Total: tt.wantTotal}, got)
			assert.Equal(t, tt.wantTotal, s.Len())
		})
	}
}

func TestTransfer_ImportJSON_RejectsNonArray(t *testing.T) {
	for _, payload := range []string{`{"text":"a","category":"b"}`, `"quotes"`, `null`, `not json`} {
		t.Run(payload, func(t *testing.T) {
			s := seededStore(t, domain.Quote{Text: "existing", Category: "Life"})

			_, err := NewTransfer(s).Import(context.Background(), strings.NewReader(payload), FormatJSON)

			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, 1, s.Len(), "store is unchanged")
		})
	}
}

func TestTransfer_ImportJSON_NonArrayMessage(t *testing.T) {
	s := seededStore(t)

	_, err := NewTransfer(s).Import(context.Background(), strings.NewReader(`{}`), FormatJSON)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON format: expected an array of quotes")
}

func TestTransfer_Import_RejectsOversizedPayload(t *testing.T) {
	s := seededStore(t, domain.Quote{Text: "existing", Category: "Life"})

	// A valid array padded with whitespace just past the limit.
	entry := `{"text":"padded","category":"Big"}`
	payload := "[" + entry + strings.Repeat(" ", maxImportBytes-len(entry)-1) + "]"
	require.Len(t, payload, maxImportBytes+1)

	_, err := NewTransfer(s).Import(context.Background(), strings.NewReader(payload), FormatJSON)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "file", verr.Field)
	assert.Equal(t, "too large", verr.Message)
	assert.Equal(t, 1, s.Len(), "store is unchanged")

	t.Run("exactly at the limit is accepted", func(t *testing.T) {
		atLimit := payload[:len(payload)-2] + "]"
		require.Len(t, atLimit, maxImportBytes)

		result, err := NewTransfer(s).Import(context.Background(), strings.NewReader(atLimit), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
	})
}

func TestTransfer_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			original := []domain.Quote{
				{Text: "one", Category: "A"},
				{Text: "two", Category: "B"},
				{Text: "three", Category: "A"},
			}
			src := seededStore(t, original...)

			var buf bytes.Buffer
			require.NoError(t, NewTransfer(src).Export(ctx, &buf, format))

			dst := seededStore(t)
			got, err := NewTransfer(dst).Import(ctx, &buf, format)
			require.NoError(t, err)

			assert.Equal(t, 3, got.Added)
			assert.ElementsMatch(t, original, dst.Quotes(ctx))
		})
	}
}

func TestTransfer_ExportXLSX_Layout(t *testing.T) {
	s := seededStore(t, domain.Quote{Text: "1", Category: "A"})

	var buf bytes.Buffer
	require.NoError(t, NewTransfer(s).Export(context.Background(), &buf, FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)

	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows("Quotes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Text", "Category"}, {"1", "A"}}, rows)
}

func TestTransfer_ImportXLSX_SkipsShortRows(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"first", "A"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"no category"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"second", "B"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	s := seededStore(t)
	got, err := NewTransfer(s).Import(context.Background(), &buf, FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, ImportResult{Added: 2, Skipped: 1, Total: 2}, got)
}

func TestTransfer_ImportXLSX_InvalidWorkbook(t *testing.T) {
	s := seededStore(t)

	_, err := NewTransfer(s).Import(context.Background(), strings.NewReader("not a zip"), FormatXLSX)

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestReadJSON_PreservesOrder(t *testing.T) {
	payload, err := json.Marshal([]domain.Quote{{Text: "b", Category: "x"}, {Text: "a", Category: "y"}})
	require.NoError(t, err)

	got, skipped, err := readJSON(payload)
	require.NoError(t, err)

	assert.Zero(t, skipped)
	assert.Equal(t, []domain.Quote{{Text: "b", Category: "x"}, {Text: "a", Category: "y"}}, got)
}
