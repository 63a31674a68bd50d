package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// forwardBuffer bounds how far store and sync events may run ahead of the UI.
const forwardBuffer = 64

// Run shows the UI until the user quits or ctx is cancelled. Store changes
// and sync statuses from other goroutines reach the program in the order
// they happened.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	model := New(ctx, cfg)

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)

	fwd := newForwarder(forwardBuffer)
	defer fwd.stop()

	go fwd.run(p.Send)

	unsubscribe := cfg.Store.Subscribe(ports.QuoteObserverFunc(func(_ context.Context, ev ports.ChangeEvent) {
		fwd.queue(storeChangedMsg(ev))
	}))
	defer unsubscribe()

	if cfg.Syncer != nil {
		cfg.Syncer.OnStatus(func(st app.SyncStatus) {
			fwd.queue(syncStatusMsg(st))
		})
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal ui: %w", err)
	}

	return nil
}

// forwarder hands messages from any goroutine to a single sender, preserving
// the order they were queued in.
type forwarder struct {
	msgs chan tea.Msg
	done chan struct{}
}

func newForwarder(buffer int) *forwarder {
	return &forwarder{
		msgs: make(chan tea.Msg, buffer),
		done: make(chan struct{}),
	}
}

// queue blocks while the buffer is full. After stop it drops msg.
func (f *forwarder) queue(msg tea.Msg) {
	select {
	case <-f.done:
		return
	default:
	}

	select {
	case f.msgs <- msg:
	case <-f.done:
	}
}

// run sends queued messages one at a time until stop.
func (f *forwarder) run(send func(tea.Msg)) {
	for {
		select {
		case msg := <-f.msgs:
			send(msg)
		case <-f.done:
			return
		}
	}
}

func (f *forwarder) stop() {
	close(f.done)
}
