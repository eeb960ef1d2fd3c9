package tui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

const (
	loadTimeout    = 30 * time.Second
	summaryRunes   = 72
	minDetailWidth = 20
)

// ViewState represents the current view state of the TUI
type ViewState int

const (
	// ViewLoading waits for the timeline
	ViewLoading ViewState = iota
	// ViewTimeline lists entries, newest first
	ViewTimeline
	// ViewDetail shows one entry
	ViewDetail
	// ViewError shows a failed load
	ViewError
)

// Loader fetches the timeline oldest first
type Loader func(ctx context.Context) ([]*model.Entry, error)

// EntryItem is one timeline row (implements list.Item)
type EntryItem struct {
	entry *model.Entry
}

// Title returns the entry date
func (e EntryItem) Title() string { return e.entry.Date }

// Description returns a one line summary
func (e EntryItem) Description() string {
	desc := summarize(e.entry.Text, summaryRunes)
	if n := e.entry.Media.Len(); n > 0 {
		desc = fmt.Sprintf("%s  [%d media]", desc, n)
	}
	return desc
}

// FilterValue matches on date and text
func (e EntryItem) FilterValue() string { return e.entry.Date + " " + e.entry.Text }

type entriesLoadedMsg struct {
	entries []*model.Entry
	err     error
}

// Model is the main TUI model following the Bubble Tea architecture
type Model struct {
	state    ViewState
	list     list.Model
	spinner  spinner.Model
	loader   Loader
	selected *model.Entry
	err      error

	width  int
	height int

	quitting bool
}

// keyMap defines the key bindings for the TUI
type keyMap struct {
	Enter  key.Binding
	Back   key.Binding
	Reload key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a browser over loader
func NewModel(title string, loader Loader) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(secondaryColor)

	timeline := list.New(nil, delegate, 0, 0)
	timeline.Title = title
	timeline.SetShowStatusBar(true)
	timeline.SetFilteringEnabled(true)
	timeline.Styles.Title = headerStyle
	timeline.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Reload}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressStyle

	return Model{
		state:   ViewLoading,
		list:    timeline,
		spinner: sp,
		loader:  loader,
	}
}

// Init starts the first load
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		if loader == nil {
			return entriesLoadedMsg{err: fmt.Errorf("no loader configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		entries, err := loader(ctx)
		return entriesLoadedMsg{entries: entries, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-2)
		return m, nil

	case entriesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = ViewError
			return m, nil
		}

		m.err = nil
		m.state = ViewTimeline
		return m, m.list.SetItems(newestFirst(msg.entries))

	case spinner.TickMsg:
		if m.state != ViewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.state {
		case ViewTimeline:
			return m.handleTimeline(msg)
		case ViewDetail:
			return m.handleDetail(msg)
		case ViewError:
			return m.handleError(msg)
		case ViewLoading:
			if key.Matches(msg, keys.Quit) {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.state == ViewTimeline {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.state = ViewLoading
	m.selected = nil
	return m, tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) handleTimeline(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// keys belong to the filter input while typing
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Reload):
		return m.reload()
	case key.Matches(msg, keys.Enter):
		if item, ok := m.list.SelectedItem().(EntryItem); ok {
			m.selected = item.entry
			m.state = ViewDetail
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Enter):
		m.selected = nil
		m.state = ViewTimeline
	}

	return m, nil
}

func (m Model) handleError(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Reload):
		return m.reload()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return subtitleStyle.Render("Bye\n")
	}

	switch m.state {
	case ViewLoading:
		return boxStyle.Render(m.spinner.View() + " Loading changelog...")
	case ViewTimeline:
		return m.list.View()
	case ViewDetail:
		return m.renderDetail()
	case ViewError:
		return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Failed to load changelog"),
			"",
			subtitleStyle.Render(fmt.Sprint(m.err)),
			helpStyle.Render("r: retry • q: quit"),
		))
	default:
		return "Unknown state"
	}
}

func (m Model) renderDetail() string {
	if m.selected == nil {
		return "No entry"
	}

	width := m.width - 8
	if width < minDetailWidth {
		width = minDetailWidth
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(m.selected.Date) + "\n")
	sb.WriteString(lipgloss.NewStyle().Width(width).Render(m.selected.Text) + "\n")

	if items := m.selected.Media.Items(); len(items) > 0 {
		sb.WriteString("\n")
		for _, it := range items {
			sb.WriteString(mediaStyle.Render(describeMedia(it)) + "\n")
		}
	}

	sb.WriteString(helpStyle.Render("esc: back • q: quit"))
	return boxStyle.Render(sb.String())
}

func describeMedia(item model.MediaItem) string {
	switch v := item.(type) {
	case *model.ImageItem:
		return "image  " + v.URL
	case *model.EmbedItem:
		return fmt.Sprintf("embed  %s %s", v.Platform, v.URL)
	default:
		return string(item.Type())
	}
}

func newestFirst(entries []*model.Entry) []list.Item {
	items := make([]list.Item, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i] != nil {
			items = append(items, EntryItem{entry: entries[i]})
		}
	}

	return items
}

// summarize returns the first non-empty line of text cut to n runes
func summarize(text string, n int) string {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	if utf8.RuneCountInString(line) <= n {
		return line
	}

	return string([]rune(line)[:n-1]) + "…"
}
