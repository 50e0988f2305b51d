package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/client"
	"github.com/Makepad-fr/tada/internal/feed"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/repository"
)

// Client is what the interactive view needs from the API.
type Client interface {
	List(ctx context.Context, page, limit int) (repository.Page, error)
	CreateByContent(ctx context.Context, content string) (model.Item, error)
	ToggleDone(ctx context.Context, id string) (model.Item, error)
	DeleteByID(ctx context.Context, id string) error
}

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ model.Item }

func (i listItem) FilterValue() string { return i.Content }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.Content
	if it.Done {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s  %s", prefix, box, text,
		mutedStyle.Render(it.Date.Local().Format("Jan 2 15:04")))
}

type keyMap struct {
	Toggle key.Binding
	Add    key.Binding
	Filter key.Binding
	More   key.Binding
	Delete key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		More:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeFilter
)

// Results of the API calls, delivered back to Update.
type (
	pageMsg struct {
		page   int
		result repository.Page
		err    error
	}
	createdMsg struct {
		item model.Item
		err  error
	}
	toggledMsg struct {
		id  string
		err error
	}
	deletedMsg struct {
		id  string
		err error
	}
)

// Model is the Bubble Tea model of the interactive todo list. The feed is
// only mutated from Update; API calls run as commands.
type Model struct {
	ctx  context.Context
	api  Client
	feed *feed.Feed
	keys keyMap

	list  list.Model
	input textinput.Model
	mode  mode

	filter    string
	status    string
	statusErr bool
}

func NewModel(ctx context.Context, api Client, f *feed.Feed) Model {
	keys := defaultKeyMap()

	l := list.New(nil, itemDelegate{}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.KeyMap.NextPage.SetKeys("right", "l", "pgdown", "f")
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("todo", "todos")
	extra := func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Filter, keys.More, keys.Delete, keys.Quit}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500

	m := Model{
		ctx:   ctx,
		api:   api,
		feed:  f,
		keys:  keys,
		list:  l,
		input: ti,
	}
	m.refresh()
	return m
}

// Run starts the interactive list and blocks until the user quits.
func Run(ctx context.Context, api Client, f *feed.Feed) error {
	p := tea.NewProgram(NewModel(ctx, api, f), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the initial load. The feed makes sure it happens once.
func (m Model) Init() tea.Cmd {
	page, ok := m.feed.Init()
	if !ok {
		return nil
	}
	return m.fetch(page)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(max(msg.Width-4, 10), max(msg.Height-6, 3))
		return m, nil

	case pageMsg:
		if msg.err != nil {
			m.feed.Fail(msg.page, msg.err)
			m.setError(msg.err)
			return m, nil
		}
		m.feed.Apply(msg.page, msg.result)
		m.setStatus("")
		cmd := m.refresh()
		return m, cmd

	case createdMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.feed.ApplyLocalCreate(msg.item)
		m.setStatus("added")
		cmd := m.refresh()
		m.list.Select(0)
		return m, cmd

	case toggledMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.feed.ApplyLocalToggle(msg.id)
		m.setStatus("toggled")
		cmd := m.refresh()
		return m, cmd

	case deletedMsg:
		if msg.err != nil && !client.IsNotFound(msg.err) {
			m.setError(msg.err)
			return m, nil
		}
		m.feed.ApplyLocalDelete(msg.id)
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("deleted")
		}
		cmd := m.refresh()
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeFilter:
			return m.updateFilter(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	if m.mode != modeBrowse {
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggle(it.ID)

	case key.Matches(msg, m.keys.Delete):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.remove(it.ID)

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "What needs to be done?"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.input.SetValue(m.filter)
		m.input.Placeholder = "Search todos..."
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.More):
		page, ok := m.feed.Next()
		if !ok {
			if m.feed.IsLoading() {
				m.setStatus("loading...")
			} else {
				m.setStatus("no more todos")
			}
			return m, nil
		}
		m.setStatus(fmt.Sprintf("loading page %d...", page))
		return m, m.fetch(page)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		content := strings.TrimSpace(m.input.Value())
		m.leaveInput()
		if content == "" {
			m.status, m.statusErr = "Content is required to create a new Todo", true
			return m, nil
		}
		return m, m.create(content)
	case tea.KeyEsc:
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.leaveInput()
		return m, nil
	case tea.KeyEsc:
		m.filter = ""
		m.leaveInput()
		cmd := m.refresh()
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter = m.input.Value()
	rcmd := m.refresh()
	return m, tea.Batch(cmd, rcmd)
}

func (m *Model) leaveInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(err error) { m.status, m.statusErr = err.Error(), true }

// refresh rebuilds the visible rows from the feed and the current filter.
func (m *Model) refresh() tea.Cmd {
	view := m.feed.FilterView(m.filter)
	items := make([]list.Item, 0, len(view))
	for _, it := range view {
		items = append(items, listItem{it})
	}
	d, p := Stats(m.feed.Items())
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d/%d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), d,
		pendingStyle.Render("•"), p,
		accentStyle.Render("page"), m.feed.CurrentPage(), m.feed.TotalPages(),
	)
	return m.list.SetItems(items)
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.Item, ok
}

func (m Model) fetch(page int) tea.Cmd {
	api, ctx, limit := m.api, m.ctx, m.feed.Limit()
	return func() tea.Msg {
		res, err := api.List(ctx, page, limit)
		return pageMsg{page: page, result: res, err: err}
	}
}

func (m Model) create(content string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		it, err := api.CreateByContent(ctx, content)
		return createdMsg{item: it, err: err}
	}
}

func (m Model) toggle(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		_, err := api.ToggleDone(ctx, id)
		return toggledMsg{id: id, err: err}
	}
}

func (m Model) remove(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		return deletedMsg{id: id, err: api.DeleteByID(ctx, id)}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())

	switch m.mode {
	case modeAdd, modeFilter:
		label := "Add todo"
		if m.mode == modeFilter {
			label = "Filter"
		}
		b.WriteString("\n" + frameStyle.Render(label+"\n"+m.input.View()))
	default:
		if m.filter != "" {
			b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("filter: %q (/ to edit)", m.filter)))
		}
	}

	if line := m.statusLine(); line != "" {
		b.WriteString("\n" + line)
	}
	return frameStyle.Render(b.String())
}

func (m Model) statusLine() string {
	switch {
	case m.status != "" && m.statusErr:
		return errorStyle.Render("✖ " + m.status)
	case m.status != "":
		return successStyle.Render(m.status)
	case m.feed.IsLoading():
		return mutedStyle.Render("loading...")
	case m.feed.HasLoadedOnce() && len(m.feed.Items()) == 0:
		return mutedStyle.Render("no todos yet, press a to add one")
	case m.feed.HasMore():
		return mutedStyle.Render("m: load more")
	}
	return ""
}
