// Package tui is a keyboard-driven picker over the post store.
// Picking a post and entering a title publishes it and links it from the index.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	Publisher interface {
		Publish(ctx context.Context, id, title string) error
	}

	postItem struct {
		err         error
		id          string
		ti          textinput.Model
		highlighted bool
		published   bool
	}

	Picker struct {
		ctx       context.Context
		publisher Publisher
		help      help.Model
		status    string
		items     []*postItem
		index     int
		navMode   bool
		working   bool
	}

	publishedMsg struct {
		err   error
		id    string
		title string
	}

	navModeKeyMap struct{}

	inputModeKeyMap struct{}
)

var (
	keys = struct {
		up       key.Binding
		down     key.Binding
		input    key.Binding
		publish  key.Binding
		rerender key.Binding
		cancel   key.Binding
		help     key.Binding
		quit     key.Binding
	}{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		input: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "enter title"),
		),
		publish: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "publish"),
		),
		rerender: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "re-render only"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		quit: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc/q", "quit"),
		),
	}

	palette = struct {
		magenta lipgloss.Color
		green   lipgloss.Color
		red     lipgloss.Color
	}{
		magenta: lipgloss.Color("212"),
		green:   lipgloss.Color("42"),
		red:     lipgloss.Color("196"),
	}

	highlightedStyle = lipgloss.NewStyle().Foreground(palette.magenta)
	okStyle          = lipgloss.NewStyle().Foreground(palette.green)
	failedStyle      = lipgloss.NewStyle().Foreground(palette.red)
)

func (navModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.help, keys.quit}
}

func (navModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.up, keys.down, keys.input, keys.rerender},
		{keys.help, keys.quit},
	}
}

func (inputModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.publish, keys.cancel}
}

func (inputModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.publish, keys.cancel},
	}
}

func (pi *postItem) View() string {
	var b strings.Builder

	if pi.highlighted {
		b.WriteString(highlightedStyle.Render("> " + pi.id))
	} else {
		b.WriteString("  " + pi.id)
	}

	switch {
	case pi.ti.Focused():
		b.WriteString(pi.ti.View())
	case pi.err != nil:
		b.WriteString(failedStyle.Render(" ✗ " + pi.err.Error()))
	case pi.published:
		b.WriteString(okStyle.Render(" ✓"))
	}

	return b.String()
}

func NewPicker(ctx context.Context, ids []string, publisher Publisher) Picker {
	m := Picker{
		ctx:       ctx,
		publisher: publisher,
		help:      help.New(),
		items:     make([]*postItem, len(ids)),
		navMode:   true,
	}

	for i, id := range ids {
		ti := textinput.New()
		ti.Placeholder = "title"
		ti.CharLimit = 256
		ti.Width = 40
		ti.Prompt = " title: "

		m.items[i] = &postItem{id: id, ti: ti}
	}

	if len(m.items) > 0 {
		m.items[0].highlighted = true
	}

	return m
}

func (m Picker) Init() tea.Cmd {
	return nil
}

func (m Picker) View() string {
	var b strings.Builder

	b.WriteString("Publish a post\n\n")

	if len(m.items) == 0 {
		b.WriteString("  no markdown sources found\n")
	}

	for _, item := range m.items {
		b.WriteString(item.View())
		b.WriteRune('\n')
	}

	b.WriteRune('\n')

	switch {
	case m.working:
		b.WriteString("Publishing ...\n\n")
	case m.status != "":
		b.WriteString(m.status + "\n\n")
	}

	if m.navMode {
		b.WriteString(m.help.View(navModeKeyMap{}))
	} else {
		b.WriteString(m.help.View(inputModeKeyMap{}))
	}

	b.WriteRune('\n')

	return b.String()
}

func (m *Picker) move(delta int) {
	next := m.index + delta
	if next < 0 || next >= len(m.items) {
		return
	}

	m.items[m.index].highlighted = false
	m.items[next].highlighted = true
	m.index = next
}

func (m *Picker) publishCmd(id, title string) tea.Cmd {
	m.working = true

	return func() tea.Msg {
		return publishedMsg{id: id, title: title, err: m.publisher.Publish(m.ctx, id, title)}
	}
}

func (m *Picker) navModeUpdate(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.quit):
		return tea.Quit
	case key.Matches(msg, keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.up):
		m.move(-1)
	case key.Matches(msg, keys.down):
		m.move(1)
	case len(m.items) == 0:
	case key.Matches(msg, keys.input):
		m.navMode = false
		m.help.ShowAll = false

		return m.items[m.index].ti.Focus()
	case key.Matches(msg, keys.rerender):
		return m.publishCmd(m.items[m.index].id, "")
	}

	return nil
}

func (m *Picker) inputModeUpdate(msg tea.KeyMsg) (cmd tea.Cmd) {
	item := m.items[m.index]

	switch {
	case key.Matches(msg, keys.cancel):
		item.ti.Blur()
		item.ti.Reset()
		m.navMode = true

		return nil
	case key.Matches(msg, keys.publish):
		title := strings.TrimSpace(item.ti.Value())

		item.ti.Blur()
		item.ti.Reset()
		m.navMode = true

		return m.publishCmd(item.id, title)
	}

	item.ti, cmd = item.ti.Update(msg)

	return cmd
}

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case publishedMsg:
		m.working = false

		for _, item := range m.items {
			if item.id == msg.id {
				item.err = msg.err
				item.published = msg.err == nil
			}
		}

		switch {
		case msg.err != nil:
			m.status = failedStyle.Render("failed to publish " + msg.id)
		case msg.title == "":
			m.status = okStyle.Render("re-rendered " + msg.id)
		default:
			m.status = okStyle.Render("published " + msg.id + " as " + msg.title)
		}
	case tea.KeyMsg:
		if m.working {
			return m, nil
		}

		var cmd tea.Cmd

		if m.navMode {
			cmd = m.navModeUpdate(msg)
		} else {
			cmd = m.inputModeUpdate(msg)
		}

		return m, cmd
	}

	return m, nil
}
