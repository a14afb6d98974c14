package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	habitualerrors "github.com/julianstephens/habitual/internal/errors"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	return m.styles.Doc.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.styles.Title.Render(fmt.Sprintf("Habits for %s", m.date)),
		"",
		m.viewHabits(),
		"",
		m.viewStatus(),
		m.help.View(m.keys),
	))
}

func (m Model) viewHabits() string {
	if len(m.list.Items()) == 0 {
		if m.store.Loading() {
			return m.styles.Muted.Render("  Loading…")
		}
		return m.styles.Muted.Render("  No active habits. Add one with `habitual habit add`.")
	}
	return m.list.View()
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return m.styles.Failed.Render(habitualerrors.Describe(m.err))
	}
	if m.store.Loading() {
		return m.styles.Status.Render("Refreshing…")
	}
	return m.styles.Status.Render(fmt.Sprintf("%d active", len(m.list.Items())))
}
