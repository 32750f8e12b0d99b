package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newTestModel(starts *int, saved *[]report.RunReport) Model {
	events := make(chan tea.Msg)
	m := New(Config{
		CSVPath: "drivers.csv",
		APIURL:  "http://api",
		Start: func() bool {
			*starts++
			return true
		},
		Events: events,
		Save: func(r report.RunReport) (string, error) {
			*saved = append(*saved, r)
			return "upload_report.json", nil
		},
	})
	m.now = func() time.Time { return time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestStartIgnoredWhileRunning(t *testing.T) {
	var starts int
	var saved []report.RunReport
	m := newTestModel(&starts, &saved)

	m, _ = update(t, m, key("s"))
	assert.True(t, m.Running())
	assert.Equal(t, 1, starts)

	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("s"))
	assert.Equal(t, 1, starts, "start is disabled until the run completes")

	m, cmd := update(t, m, key("q"))
	assert.False(t, isQuit(cmd), "q is ignored while running")
	assert.Contains(t, m.View(), "ctrl+c")

	_, cmd = update(t, m, key("ctrl+c"))
	assert.True(t, isQuit(cmd))
}

func TestProgressFlow(t *testing.T) {
	var starts int
	var saved []report.RunReport
	m := newTestModel(&starts, &saved)
	m, _ = update(t, m, key("s"))

	m, cmd := update(t, m, LoadedMsg{Rows: 7, Drivers: 2})
	assert.NotNil(t, cmd, "keeps listening for events")

	rep := report.New(7, 2, nil).Add(report.Detail{Driver: 1, NumeroCarta: "A", Status: report.StatusSuccess})
	m, _ = update(t, m, DriverMsg{Event: upload.Event{Index: 1, Total: 2, DriverID: "A", Detail: rep.Details[0], Report: rep}})
	assert.InDelta(t, 0.5, m.percent(), 0.001)

	view := m.View()
	assert.Contains(t, view, "Read 7 rows for 2 drivers")
	assert.Contains(t, view, "10:00:00 | Driver 1/2 | A | [OK]")
	assert.Contains(t, view, "1/2")

	rep = rep.Add(report.Detail{Driver: 2, NumeroCarta: "B", Status: report.StatusFailed, Error: "HTTP 401"})
	m, _ = update(t, m, DoneMsg{Report: rep})
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "Upload complete")

	m, _ = update(t, m, key("w"))
	require.Len(t, saved, 1)
	assert.Equal(t, 1, saved[0].Failed)
	assert.Contains(t, m.View(), "Saved upload_report.json")

	// a new run may start once the previous one is done
	m, _ = update(t, m, key("s"))
	assert.Equal(t, 2, starts)
	assert.Empty(t, m.lines)

	m, _ = update(t, m, DoneMsg{Report: rep})
	_, cmd = update(t, m, key("q"))
	assert.True(t, isQuit(cmd))
}

func TestDoneWithError(t *testing.T) {
	var starts int
	var saved []report.RunReport
	m := newTestModel(&starts, &saved)
	m, _ = update(t, m, key("s"))

	m, _ = update(t, m, DoneMsg{Err: errors.New("unrecognized CSV schema")})
	assert.Contains(t, m.View(), "Run stopped: unrecognized CSV schema")

	m, _ = update(t, m, key("w"))
	assert.Empty(t, saved)
	assert.Contains(t, m.View(), "Nothing to save yet")
}

func TestSaveBeforeRun(t *testing.T) {
	var starts int
	var saved []report.RunReport
	m := newTestModel(&starts, &saved)

	m, _ = update(t, m, key("w"))
	assert.Empty(t, saved)

	m.cfg.Start = func() bool { return false }
	m, _ = update(t, m, key("s"))
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "Could not start upload")
}

func TestLogIsBounded(t *testing.T) {
	var starts int
	var saved []report.RunReport
	m := newTestModel(&starts, &saved)
	for i := 0; i < maxLogLines+5; i++ {
		m.appendLine("line")
	}
	assert.Len(t, m.lines, maxLogLines)
}
