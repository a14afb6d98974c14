package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, max(msg.Height-6, 1))
		return m, nil

	case changedMsg:
		cmd := m.refresh()
		return m, cmd

	case loadedMsg:
		m.err = msg.err
		cmd := m.refresh()
		return m, cmd

	case actionMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("%s habit %d: %w", msg.action, msg.id, msg.err)
		} else {
			m.err = nil
		}
		cmd := m.refresh()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.err = nil
		return m, m.load()

	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Decrement):
		h, ok := m.selected()
		if !ok {
			return m, nil
		}
		delta := 1.0
		if key.Matches(msg, m.keys.Decrement) {
			delta = -1
		}
		value, ok := h.Step(delta)
		if !ok {
			m.err = fmt.Errorf("%s needs an explicit value, use `habitual habit log %d <value>`", h.Name, h.ID)
			return m, nil
		}
		return m, m.logValue(h.ID, value)

	case key.Matches(msg, m.keys.Archive):
		if h, ok := m.selected(); ok {
			return m, m.archive(h.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Revert):
		h, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.store.Revert(h.ID); err != nil {
			m.err = err
		} else {
			m.err = nil
		}
		cmd := m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
