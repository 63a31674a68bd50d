// Package tui is the interactive terminal front end of the quote book.
//
// Store and sync work runs in tea.Cmds so Update never blocks. Changes made
// elsewhere (the background sync loop, another goroutine adding a quote)
// reach the model as storeChangedMsg and syncStatusMsg through Run.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// DefaultExportPath is where the export key writes.
const DefaultExportPath = "quotes.json"

// Config wires the model to the application.
type Config struct {
	Store    *app.QuoteStore
	Transfer *app.Transfer

	// Syncer is optional. Without it the sync key reports sync as disabled.
	Syncer *app.Syncer

	// ExportPath defaults to DefaultExportPath. The format follows the extension.
	ExportPath string

	Logger *slog.Logger
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeImport
)

const (
	fieldText = iota
	fieldCategory
)

type (
	storeChangedMsg ports.ChangeEvent
	syncStatusMsg   app.SyncStatus
	quoteMsg        domain.Quote
	syncDoneMsg     struct{}

	// addedMsg follows a successful add. shown is nil when the filter
	// has no quote to show.
	addedMsg struct {
		shown *domain.Quote
	}

	statusMsg struct {
		text string
		err  bool
	}
)

// Model is the bubbletea model for `quotebook ui`.
type Model struct {
	ctx    context.Context
	cfg    Config
	keys   keyMap
	styles styles
	help   help.Model
	spin   spinner.Model

	mode       mode
	categories []string
	category   string
	current    *domain.Quote

	inputs []textinput.Model
	focus  int
	path   textinput.Model

	status    string
	statusErr bool
	syncing   bool
	width     int
}

// New creates the model. The store must already be loaded.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Store == nil || cfg.Transfer == nil {
		panic("tui: Store and Transfer are required")
	}

	if cfg.ExportPath == "" {
		cfg.ExportPath = DefaultExportPath
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	text := textinput.New()
	text.Placeholder = "Enter a new quote"
	text.CharLimit = 500
	text.Width = 60

	category := textinput.New()
	category.Placeholder = "Enter quote category"
	category.CharLimit = 64
	category.Width = 30

	path := textinput.New()
	path.Placeholder = "path/to/quotes.json"
	path.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		ctx:        ctx,
		cfg:        cfg,
		keys:       defaultKeyMap(),
		styles:     defaultStyles(),
		help:       help.New(),
		spin:       spin,
		categories: cfg.Store.Categories(ctx),
		category:   cfg.Store.SelectedCategory(ctx),
		inputs:     []textinput.Model{text, category},
		path:       path,
	}

	if q, ok, err := cfg.Store.LastShown(ctx); err == nil && ok {
		m.current = &q
	}

	if cfg.Syncer != nil {
		st := cfg.Syncer.Status()
		m.status, m.statusErr = st.Message, !st.OK && !st.At.IsZero()
	}

	return m
}

// Init shows a quote when the session has none yet.
func (m Model) Init() tea.Cmd {
	if m.current != nil {
		return nil
	}

	return m.pick(m.category)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeImport:
			return m.updateImport(msg)
		default:
			return m.updateBrowse(msg)
		}

	case quoteMsg:
		q := domain.Quote(msg)
		m.current = &q

		return m, nil

	case statusMsg:
		m.status, m.statusErr = msg.text, msg.err
		return m, nil

	case addedMsg:
		m.status, m.statusErr = "Quote added successfully!", false
		if msg.shown != nil {
			m.current = msg.shown
		}

		return m, nil

	case storeChangedMsg:
		m.categories = m.cfg.Store.Categories(m.ctx)
		m.category = msg.Category

		if msg.Kind == ports.ChangeShown && len(msg.Quotes) > 0 {
			q := msg.Quotes[0]
			m.current = &q
		}

		return m, nil

	case syncStatusMsg:
		m.status, m.statusErr = msg.Message, !msg.OK
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		return m, nil

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}

		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewQuote):
		return m, m.pick(m.category)

	case key.Matches(msg, m.keys.PrevCat):
		return m.selectCategory(-1)

	case key.Matches(msg, m.keys.NextCat):
		return m.selectCategory(1)

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.focus = fieldText

		return m, m.focusInputs()

	case key.Matches(msg, m.keys.Import):
		m.mode = modeImport
		m.path.SetValue("")

		return m, m.path.Focus()

	case key.Matches(msg, m.keys.Export):
		return m, m.export()

	case key.Matches(msg, m.keys.Sync):
		if m.cfg.Syncer == nil {
			m.status, m.statusErr = "Sync is disabled.", true
			return m, nil
		}

		if m.syncing {
			return m, nil
		}

		m.syncing = true

		return m, tea.Batch(m.spin.Tick, m.syncNow())

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.blurInputs()

		return m, nil

	case key.Matches(msg, m.keys.Switch):
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.focusInputs()

	case key.Matches(msg, m.keys.Submit):
		text, category := m.inputs[fieldText].Value(), m.inputs[fieldCategory].Value()

		if _, err := domain.NewQuote(text, category); err != nil {
			m.status, m.statusErr = capitalize(domain.UserMessage(err))+".", true
			return m, nil
		}

		m.mode = modeBrowse
		m.blurInputs()

		for i := range m.inputs {
			m.inputs[i].SetValue("")
		}

		return m, m.add(text, category)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	return m, cmd
}

func (m Model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.path.Blur()

		return m, nil

	case key.Matches(msg, m.keys.Submit):
		path := strings.TrimSpace(m.path.Value())
		m.mode = modeBrowse
		m.path.Blur()

		if path == "" {
			return m, nil
		}

		return m, m.importFile(path)
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)

	return m, cmd
}

func (m *Model) focusInputs() tea.Cmd {
	var cmd tea.Cmd

	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
			continue
		}

		m.inputs[i].Blur()
	}

	return cmd
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// selectCategory moves the filter by delta, wrapping around, persists it
// and shows a quote from the new category.
func (m Model) selectCategory(delta int) (tea.Model, tea.Cmd) {
	if len(m.categories) == 0 {
		return m, nil
	}

	idx := slices.Index(m.categories, m.category)
	if idx < 0 {
		idx = 0
	}

	m.category = m.categories[(idx+delta+len(m.categories))%len(m.categories)]

	store := m.cfg.Store
	ctx := m.ctx
	next := m.category

	return m, func() tea.Msg {
		if err := store.SetCategory(ctx, next); err != nil {
			return errStatus(err)
		}

		return pickMsg(ctx, store, next)
	}
}

func (m Model) pick(category string) tea.Cmd {
	store := m.cfg.Store
	ctx := m.ctx

	return func() tea.Msg { return pickMsg(ctx, store, category) }
}

func pickMsg(ctx context.Context, store *app.QuoteStore, category string) tea.Msg {
	q, err := store.PickRandom(ctx, category)
	if err != nil {
		return errStatus(err)
	}

	return quoteMsg(q)
}

// add stores the quote, then shows a random one from the active filter.
func (m Model) add(text, category string) tea.Cmd {
	store := m.cfg.Store
	ctx := m.ctx
	filter := m.category

	return func() tea.Msg {
		if _, err := store.Add(ctx, text, category); err != nil {
			return errStatus(err)
		}

		q, err := store.PickRandom(ctx, filter)
		if err != nil {
			return addedMsg{}
		}

		return addedMsg{shown: &q}
	}
}

func (m Model) export() tea.Cmd {
	transfer := m.cfg.Transfer
	path := m.cfg.ExportPath
	ctx := m.ctx

	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return errStatus(fmt.Errorf("creating %s: %w", path, err))
		}

		err = transfer.Export(ctx, f, app.FormatFromFilename(path))
		if cerr := f.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return errStatus(err)
		}

		return statusMsg{text: "Quotes exported to " + path}
	}
}

func (m Model) importFile(path string) tea.Cmd {
	transfer := m.cfg.Transfer
	ctx := m.ctx

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return errStatus(fmt.Errorf("opening %s: %w", path, err))
		}
		defer func() { _ = f.Close() }()

		result, err := transfer.Import(ctx, f, app.FormatFromFilename(path))
		if err != nil {
			return errStatus(err)
		}

		return statusMsg{text: fmt.Sprintf("Quotes imported successfully! %d added, %d skipped.", result.Added, result.Skipped)}
	}
}

// syncNow runs one cycle. The status line is updated through the syncer's
// listener, so only completion is reported here.
func (m Model) syncNow() tea.Cmd {
	syncer := m.cfg.Syncer
	ctx := m.ctx
	logger := m.cfg.Logger

	return func() tea.Msg {
		if _, err := syncer.SyncOnce(ctx); err != nil {
			logger.DebugContext(ctx, "manual sync failed", slog.Any("error", err))
		}

		return syncDoneMsg{}
	}
}

func errStatus(err error) statusMsg {
	return statusMsg{text: capitalize(domain.UserMessage(err)), err: true}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Quote Book"))
	b.WriteString("\n\n")
	b.WriteString(m.viewCategories())
	b.WriteString("\n\n")
	b.WriteString(m.viewQuote())
	b.WriteString("\n\n")

	switch m.mode {
	case modeAdd:
		b.WriteString(m.styles.Label.Render("Quote    ") + m.inputs[fieldText].View() + "\n")
		b.WriteString(m.styles.Label.Render("Category ") + m.inputs[fieldCategory].View() + "\n\n")
	case modeImport:
		b.WriteString(m.styles.Label.Render("Import from ") + m.path.View() + "\n\n")
	}

	b.WriteString(m.viewStatus())
	b.WriteString("\n")

	if m.mode == modeBrowse {
		b.WriteString(m.help.View(m.keys))
	} else {
		b.WriteString(m.help.View(formKeys{m.keys}))
	}

	return b.String()
}

func (m Model) viewCategories() string {
	parts := make([]string, 0, len(m.categories))
	for _, c := range m.categories {
		if c == m.category {
			parts = append(parts, m.styles.Selected.Render(c))
			continue
		}

		parts = append(parts, m.styles.Dim.Render(c))
	}

	if !slices.Contains(m.categories, m.category) {
		parts = append(parts, m.styles.Selected.Render(m.category))
	}

	return strings.Join(parts, "  ")
}

func (m Model) viewQuote() string {
	if m.current == nil {
		return m.styles.Quote.Render(m.styles.Dim.Render("No quote shown yet."))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%q", m.current.Text),
		m.styles.Category.Render("Category: "+m.current.Category),
	)

	return m.styles.Quote.Render(body)
}

func (m Model) viewStatus() string {
	prefix := ""
	if m.syncing {
		prefix = m.spin.View() + " "
	}

	switch {
	case m.status == "":
		return prefix
	case m.statusErr:
		return prefix + m.styles.StatusErr.Render(m.status)
	default:
		return prefix + m.styles.StatusOK.Render(m.status)
	}
}
