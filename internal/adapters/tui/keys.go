package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NewQuote key.Binding
	PrevCat  key.Binding
	NextCat  key.Binding
	Add      key.Binding
	Export   key.Binding
	Import   key.Binding
	Sync     key.Binding
	Help     key.Binding
	Quit     key.Binding

	Submit key.Binding
	Switch key.Binding
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NewQuote: key.NewBinding(key.WithKeys("n", " "), key.WithHelp("n", "new quote")),
		PrevCat:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev category")),
		NextCat:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next category")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Import:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		Sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Switch: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewQuote, k.PrevCat, k.NextCat, k.Add, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewQuote, k.PrevCat, k.NextCat},
		{k.Add, k.Export, k.Import, k.Sync},
		{k.Help, k.Quit},
	}
}

// formKeys is the help shown while a form has focus.
type formKeys struct{ keyMap }

func (k formKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Switch, k.Cancel}
}

func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
