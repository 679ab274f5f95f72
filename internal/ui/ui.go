package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/huangzesen/heliospice/internal/kernel"
)

// Model is the root Bubble Tea model.
type Model struct {
	width  int
	height int

	cache CacheModel
}

// New creates a new root UI model.
func New(km *kernel.Manager) Model {
	return Model{cache: NewCacheModel(km)}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.cache.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Swallow quit keys while a purge confirmation is pending.
			if !m.cache.confirmPurge {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	m.cache, cmd = m.cache.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	return m.cache.View()
}

// Run starts the interactive cache browser on the alternate screen.
func Run(km *kernel.Manager) error {
	p := tea.NewProgram(New(km), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
