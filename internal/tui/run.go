package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, store HabitStore, dark bool) error {
	p := tea.NewProgram(NewModel(ctx, store, dark), tea.WithAltScreen(), tea.WithContext(ctx))

	store.OnChange(func() { p.Send(changedMsg{}) })
	defer store.OnChange(nil)

	_, err := p.Run()
	return err
}
