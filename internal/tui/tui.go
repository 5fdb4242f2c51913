// Package tui provides the Bubble Tea menu for navctl.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldstone/navctl/internal/menu"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1).
			MarginLeft(2)
)

// MenuItem wraps a menu entry for the list widget.
type MenuItem struct {
	info menu.Info
}

func (i MenuItem) Title() string       { return i.info.Name }
func (i MenuItem) Description() string { return i.info.Description }
func (i MenuItem) FilterValue() string { return i.info.Name }

// Model is the Bubble Tea model. Selecting an item quits the program and
// records the chosen action; the caller executes it after the terminal is
// restored.
type Model struct {
	list   list.Model
	status string
	width  int
	height int

	choice menu.Action
	chosen bool
}

// NewModel builds the menu model. status is shown under the list and may be
// empty.
func NewModel(status string) Model {
	var items []list.Item
	for _, info := range menu.Items() {
		items = append(items, MenuItem{info: info})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Name & Address Validator"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle

	return Model{list: l, status: status}
}

// Choice returns the selected action, and whether one was selected at all.
func (m Model) Choice() (menu.Action, bool) {
	return m.choice, m.chosen
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "enter":
			if item, ok := m.list.SelectedItem().(MenuItem); ok {
				m.choice = menu.Action(item.info.Code)
				m.chosen = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the menu
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.list.View())

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: select • q: quit"))

	return b.String()
}

// Run shows the menu and returns the action the operator picked. The second
// return is false when the menu was dismissed without a selection.
func Run(status string) (menu.Action, bool, error) {
	p := tea.NewProgram(NewModel(status), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return 0, false, err
	}
	m, ok := final.(Model)
	if !ok {
		return 0, false, nil
	}
	action, chosen := m.Choice()
	return action, chosen, nil
}
