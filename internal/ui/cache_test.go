package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/huangzesen/heliospice/internal/config"
	"github.com/huangzesen/heliospice/internal/kernel"
	"github.com/huangzesen/heliospice/internal/logging"
	"github.com/huangzesen/heliospice/internal/spice/spicetest"
)

func newTestModel(t *testing.T, files ...string) CacheModel {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("kernel"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	km, err := kernel.New(config.Config{KernelDir: dir}, &spicetest.Fake{}, logging.Discard(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewCacheModel(km)
}

// refresh runs the model's refresh command and applies the result.
func refresh(t *testing.T, m CacheModel) CacheModel {
	t.Helper()
	msg := m.refreshCmd()()
	if e, ok := msg.(errMsg); ok {
		t.Fatalf("refresh failed: %v", e.err)
	}
	m, _ = m.Update(msg)
	return m
}

func TestViewBeforeLoad(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	if !strings.Contains(view, "Reading cache") {
		t.Errorf("initial view should show loading state, got %q", view)
	}
}

func TestViewGroupsMissions(t *testing.T) {
	m := refresh(t, newTestModel(t, "naif0012.tls", "de440s.bsp", "vgr1.x2100.bsp"))
	view := m.View()

	for _, want := range []string{"GENERIC", "VOYAGER_1", "naif0012.tls", "vgr1.x2100.bsp"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewEmptyCache(t *testing.T) {
	m := refresh(t, newTestModel(t))
	if !strings.Contains(m.View(), "cache is empty") {
		t.Error("empty cache should say so")
	}
}

func TestCursorNavigation(t *testing.T) {
	m := refresh(t, newTestModel(t, "naif0012.tls", "vgr1.x2100.bsp", "mystery.bsp"))
	if len(m.keys) != 3 {
		t.Fatalf("expected 3 mission groups, got %d", len(m.keys))
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}

	// Clamped at the end.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.cursor)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyHome})
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0 after home", m.cursor)
	}
}

func TestDeleteSelectedMission(t *testing.T) {
	m := refresh(t, newTestModel(t, "naif0012.tls", "vgr1.x2100.bsp"))
	// Keys sort GENERIC before VOYAGER_1; select VOYAGER_1.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if cmd == nil {
		t.Fatal("d should produce a delete command")
	}
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("expected actionDoneMsg, got %T", msg)
	}
	if !strings.Contains(done.status, "Deleted 1 files") {
		t.Errorf("unexpected status %q", done.status)
	}

	m = refresh(t, m)
	if len(m.keys) != 1 || m.keys[0] != "GENERIC" {
		t.Errorf("expected only GENERIC left, got %v", m.keys)
	}
}

func TestPurgeNeedsConfirmation(t *testing.T) {
	m := refresh(t, newTestModel(t, "naif0012.tls"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'P'}})
	if cmd != nil {
		t.Fatal("P alone must not purge")
	}
	if !strings.Contains(m.View(), "Purge the ENTIRE cache?") {
		t.Error("confirmation prompt missing")
	}

	// Declining leaves the cache alone.
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if cmd != nil {
		t.Fatal("declining must not purge")
	}

	// Confirming purges.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'P'}})
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd == nil {
		t.Fatal("confirming should produce a purge command")
	}
	if _, ok := cmd().(actionDoneMsg); !ok {
		t.Fatal("purge command should complete")
	}
}
