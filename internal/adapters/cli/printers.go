package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const maxTextWidth = 72

var (
	bold    = color.New(color.Bold)
	heading = color.New(color.Bold, color.Underline)
	faint   = color.New(color.Faint)
	italic  = color.New(color.Italic)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

// printer writes human readable output for the one-shot commands.
type printer struct {
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) quote(q domain.Quote) {
	_, _ = italic.Fprintf(p.out, "%q\n", q.Text)
	_, _ = faint.Fprintf(p.out, "  Category: %s\n", q.Category)
}

func (p *printer) quotes(title string, quotes []domain.Quote) {
	_, _ = heading.Fprint(p.out, title)
	_, _ = faint.Fprintf(p.out, " - %d\n", len(quotes))

	if len(quotes) == 0 {
		_, _ = faint.Fprintln(p.out, "  none")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = maxTextWidth
	tbl.Wrap = true
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("TEXT"), bold.Sprint("CATEGORY"))

	for i, q := range quotes {
		tbl.AddRow(i+1, q.Text, q.Category)
	}

	_, _ = fmt.Fprintln(p.out, tbl)
}

func (p *printer) categories(categories []string, selected string) {
	_, _ = heading.Fprintln(p.out, "Categories")

	for _, c := range categories {
		if c == selected {
			_, _ = bold.Fprintf(p.out, "* %s\n", c)
			continue
		}

		_, _ = fmt.Fprintf(p.out, "  %s\n", c)
	}
}

// ok prints a success line.
func (p *printer) ok(format string, args ...any) {
	_, _ = success.Fprintf(p.out, format+"\n", args...)
}

// fail prints a failure line without turning it into a command error.
func (p *printer) fail(format string, args ...any) {
	_, _ = failure.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) syncStatus(st app.SyncStatus) {
	if st.OK {
		p.ok("%s", st.Message)
		return
	}

	p.fail("%s", st.Message)
}

// statusRow is one key/value line of the status table.
type statusRow struct {
	key   string
	value any
}

func (p *printer) table(title string, rows []statusRow) {
	_, _ = heading.Fprintln(p.out, title)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = maxTextWidth
	tbl.Wrap = true

	for _, r := range rows {
		tbl.AddRow(bold.Sprint(r.key), r.value)
	}

	_, _ = fmt.Fprintln(p.out, tbl)
}

func (p *printer) health(result *ports.HealthResult) {
	_, _ = heading.Fprint(p.out, "Health")

	if result.Status == ports.HealthStatusHealthy {
		_, _ = success.Fprintf(p.out, " %s\n", result.Status)
	} else {
		_, _ = failure.Fprintf(p.out, " %s\n", result.Status)
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("CHECK"), bold.Sprint("STATUS"), bold.Sprint("TOOK"), bold.Sprint("MESSAGE"))

	for _, name := range slices.Sorted(maps.Keys(result.Checks)) {
		c := result.Checks[name]
		tbl.AddRow(name, c.Status, c.Duration.Round(time.Microsecond), c.Message)
	}

	_, _ = fmt.Fprintln(p.out, tbl)
}
