// Package tui is an interactive search screen that re-runs the query on
// every keystroke.
//
// The model is only touched from the bubbletea event loop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bastiangx/wordfst/pkg/suggest"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5C5C5C")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5F5F5"))
	inputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	exactStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	statsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

// Model holds the search screen state.
type Model struct {
	searcher suggest.ISearcher
	input    textinput.Model
	results  []suggest.Result
	elapsed  time.Duration
	err      error
	width    int
	lastQ    string
	quitting bool
}

// New creates a focused search screen over searcher.
func New(searcher suggest.ISearcher) Model {
	ti := textinput.New()
	ti.Placeholder = "type a word"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.TextStyle = inputStyle
	ti.Focus()

	return Model{searcher: searcher, input: ti}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != m.lastQ {
		m.lastQ = q
		m.search(q)
	}
	return m, cmd
}

func (m *Model) search(q string) {
	if strings.TrimSpace(q) == "" {
		m.results, m.elapsed, m.err = nil, 0, nil
		return
	}
	m.results, m.elapsed, m.err = m.searcher.SearchLimit(context.Background(), q, 0)
}

// Results returns the matches currently on screen.
func (m Model) Results() []suggest.Result {
	return m.results
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width - 2
	if width < 20 {
		width = 60
	}
	box := boxStyle.Width(width)

	search := box.Render(titleStyle.Render("Search") + "\n" + m.input.View())

	var lines []string
	for i, r := range m.results {
		line := fmt.Sprintf("%d. %s (score: %d)", i+1, r.Key, r.Weight)
		if r.Exact {
			line = exactStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, statsStyle.Render("no results"))
	}
	results := box.Render(titleStyle.Render("Results") + "\n" + strings.Join(lines, "\n"))

	var stats string
	if m.err != nil {
		stats = errorStyle.Render("Error: " + m.err.Error())
	} else {
		stats = statsStyle.Render(fmt.Sprintf("Found %d results in %v", len(m.results), m.elapsed))
	}
	footer := box.Render(titleStyle.Render("Stats") + "\n" + stats)

	return lipgloss.JoinVertical(lipgloss.Left, search, results, footer, statsStyle.Render("esc to quit"))
}

// Run starts the screen on the alternate buffer and blocks until quit.
func Run(searcher suggest.ISearcher) error {
	_, err := tea.NewProgram(New(searcher), tea.WithAltScreen()).Run()
	return err
}
