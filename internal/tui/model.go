// Package tui is the interactive dashboard over today's habits.
package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

// HabitStore is the part of habits.Collection the dashboard drives
type HabitStore interface {
	Load(ctx context.Context, date string) error
	LogCompletion(ctx context.Context, id int64, value float64, date string) error
	Archive(ctx context.Context, id int64) error
	Revert(id int64) error
	Active() []models.Habit
	Loading() bool
	OnChange(fn func())
}

// changedMsg is sent whenever the collection reports a local state change
type changedMsg struct{}

type loadedMsg struct {
	err error
}

type actionMsg struct {
	action string
	id     int64
	err    error
}

type item struct {
	habit models.Habit
}

func (i item) FilterValue() string { return i.habit.Name }

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// line renders one habit row without styling
func (i item) line() string {
	h := i.habit
	mark := "○"
	switch {
	case h.MaxValue != nil && h.MetricType != constants.MetricBoolean:
		if h.TempValue >= *h.MaxValue {
			mark = "✓"
		} else if h.TempValue > 0 {
			mark = "◐"
		}
	case h.TempValue > 0:
		mark = "✓"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", mark, h.Name)
	if h.MetricType != constants.MetricBoolean {
		value := formatValue(h.TempValue)
		if h.MaxValue != nil {
			value += "/" + formatValue(*h.MaxValue)
		}
		if h.Unit != "" {
			value += " " + h.Unit
		}
		fmt.Fprintf(&b, "  %s", value)
	}
	if h.Category != nil && h.Category.Name != "" {
		fmt.Fprintf(&b, "  @%s", h.Category.Name)
	}
	return b.String()
}

type delegate struct {
	styles *Styles
}

func (d delegate) Height() int                             { return 1 }
func (d delegate) Spacing() int                            { return 0 }
func (d delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d delegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(item)
	if !ok {
		return
	}

	style := d.styles.Item
	if index == m.Index() {
		style = d.styles.Selected
	}
	row := style.Render(i.line())

	switch {
	case i.habit.Status == constants.StatusFailed:
		row += " " + d.styles.Failed.Render("✗ not saved (u to revert)")
	case i.habit.IsSaving:
		row += " " + d.styles.Saving.Render("saving…")
	}
	fmt.Fprint(w, row)
}

type Model struct {
	ctx    context.Context
	store  HabitStore
	date   string
	keys   KeyMap
	help   help.Model
	list   list.Model
	styles *Styles

	err      error
	quitting bool
	width    int
	height   int
}

// NewModel builds the dashboard for today's habits.
func NewModel(ctx context.Context, store HabitStore, dark bool) Model {
	styles := NewStyles(dark)

	l := list.New(nil, delegate{styles: &styles}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		ctx:    ctx,
		store:  store,
		date:   time.Now().Format(constants.DateFormat),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		list:   l,
		styles: &styles,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	store, ctx, date := m.store, m.ctx, m.date
	return func() tea.Msg {
		return loadedMsg{err: store.Load(ctx, date)}
	}
}

func (m Model) logValue(id int64, value float64) tea.Cmd {
	store, ctx, date := m.store, m.ctx, m.date
	return func() tea.Msg {
		return actionMsg{action: "log", id: id, err: store.LogCompletion(ctx, id, value, date)}
	}
}

func (m Model) archive(id int64) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return actionMsg{action: "archive", id: id, err: store.Archive(ctx, id)}
	}
}

// refresh rebuilds the list from the current collection snapshot
func (m *Model) refresh() tea.Cmd {
	active := m.store.Active()
	items := make([]list.Item, len(active))
	for i, h := range active {
		items[i] = item{habit: h}
	}
	return m.list.SetItems(items)
}

func (m Model) selected() (models.Habit, bool) {
	i, ok := m.list.SelectedItem().(item)
	if !ok {
		return models.Habit{}, false
	}
	return i.habit, true
}
