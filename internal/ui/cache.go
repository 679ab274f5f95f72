// Package ui provides the interactive kernel cache browser.
package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/huangzesen/heliospice/internal/kernel"
)

// Styles for the cache browser
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	loadedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))
)

// cacheInfoMsg carries a refreshed cache summary.
type cacheInfoMsg struct {
	info   *kernel.CacheInfo
	loaded []string
}

// actionDoneMsg reports the outcome of a delete or purge.
type actionDoneMsg struct {
	status string
}

type errMsg struct {
	err error
}

// CacheModel is the interactive kernel cache browser.
type CacheModel struct {
	km *kernel.Manager

	width  int
	height int
	cursor int

	info    *kernel.CacheInfo
	loaded  map[string]bool
	keys    []string // mission keys in display order
	status  string
	lastErr error

	confirmPurge bool
}

// NewCacheModel creates a cache browser over a kernel manager.
func NewCacheModel(km *kernel.Manager) CacheModel {
	return CacheModel{km: km}
}

// Init implements the Bubble Tea model interface.
func (m CacheModel) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m CacheModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		info, err := m.km.CacheInfo()
		if err != nil {
			return errMsg{err}
		}
		return cacheInfoMsg{info: info, loaded: m.km.ListLoaded()}
	}
}

func (m CacheModel) deleteCmd(missionKey string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.km.DeleteMission(missionKey)
		if err != nil {
			return errMsg{err}
		}
		if result.Message != "" {
			return actionDoneMsg{status: result.Message}
		}
		return actionDoneMsg{status: fmt.Sprintf("Deleted %d files (%.1f MB freed)",
			len(result.Deleted), result.FreedMB)}
	}
}

func (m CacheModel) purgeCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.km.Purge()
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: fmt.Sprintf("Purged %d files (%.1f MB freed)",
			result.DeletedCount, result.FreedMB)}
	}
}

func (m CacheModel) unloadCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.km.UnloadAll(); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "All kernels unloaded"}
	}
}

// Update handles messages.
func (m CacheModel) Update(msg tea.Msg) (CacheModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case cacheInfoMsg:
		m.info = msg.info
		m.loaded = make(map[string]bool, len(msg.loaded))
		for _, name := range msg.loaded {
			m.loaded[name] = true
		}
		m.keys = sortedMissionKeys(msg.info)
		if m.cursor >= len(m.keys) {
			m.cursor = len(m.keys) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.lastErr = nil

	case actionDoneMsg:
		m.status = msg.status
		return m, m.refreshCmd()

	case errMsg:
		m.lastErr = msg.err

	case tea.KeyMsg:
		key := msg.String()

		if m.confirmPurge {
			m.confirmPurge = false
			if key == "y" || key == "Y" {
				m.status = "Purging..."
				return m, m.purgeCmd()
			}
			m.status = "Purge cancelled"
			return m, nil
		}

		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.keys)-1 {
				m.cursor++
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.keys) > 0 {
				m.cursor = len(m.keys) - 1
			}
		case "r":
			m.status = "Refreshing..."
			return m, m.refreshCmd()
		case "d":
			if len(m.keys) > 0 {
				key := m.keys[m.cursor]
				m.status = "Deleting " + key + "..."
				return m, m.deleteCmd(key)
			}
		case "u":
			m.status = "Unloading..."
			return m, m.unloadCmd()
		case "P":
			m.confirmPurge = true
		}
	}

	return m, nil
}

// View renders the cache browser.
func (m CacheModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("heliospice kernel cache"))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	if m.info == nil {
		b.WriteString("Reading cache...\n")
		return b.String()
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("%s — %d files, %.1f MB",
		m.info.KernelDir, m.info.FileCount, m.info.TotalSizeMB)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-16s %7s %6s  %s", "MISSION", "SIZE MB", "FILES", "KERNELS")))
	b.WriteString("\n")

	for i, key := range m.keys {
		mc := m.info.Missions[key]
		line := fmt.Sprintf("%-16s %7.1f %6d  %s", key, mc.SizeMB, mc.FileCount, m.renderFiles(mc))
		if i == m.cursor {
			b.WriteString(selectedRowStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.keys) == 0 {
		b.WriteString(dimStyle.Render("cache is empty"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.confirmPurge {
		b.WriteString(errorStyle.Render("Purge the ENTIRE cache? [y/N]"))
	} else {
		if m.status != "" {
			b.WriteString(statusStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(dimStyle.Render("↑/↓ select · d delete mission · u unload all · P purge · r refresh · q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

// renderFiles lists a mission's files, marking loaded ones.
func (m CacheModel) renderFiles(mc *kernel.MissionCache) string {
	names := make([]string, 0, len(mc.Files))
	for _, f := range mc.Files {
		if m.loaded[f.Name] {
			names = append(names, loadedStyle.Render(f.Name+"*"))
		} else {
			names = append(names, f.Name)
		}
	}
	return strings.Join(names, " ")
}

func sortedMissionKeys(info *kernel.CacheInfo) []string {
	keys := make([]string, 0, len(info.Missions))
	for key := range info.Missions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
