package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryabkov82/biometric-sender/internal/console"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

// maxLogLines bounds the scrolling status log
const maxLogLines = 12

// LoadedMsg is sent once the CSV has been read
type LoadedMsg struct {
	Rows    int
	Drivers int
}

// DriverMsg is sent after each driver completes
type DriverMsg struct {
	Event upload.Event
}

// DoneMsg is sent when a run ends. Err is set for setup errors and interruptions.
type DoneMsg struct {
	Report report.RunReport
	Err    error
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateDone
)

// Config wires the panel to the upload worker
type Config struct {
	CSVPath string
	APIURL  string
	// Start asks the worker to begin a run; false means it was refused
	Start  func() bool
	Events <-chan tea.Msg
	// Save writes the reports and returns a description of what was written
	Save func(report.RunReport) (string, error)
}

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	help    lipgloss.Style
	errText lipgloss.Style
	line    console.Styles
}

// Model is the bubbletea model for the upload panel
type Model struct {
	cfg    Config
	styles styles

	state    state
	progress progress.Model
	spinner  spinner.Model

	rows    int
	drivers int
	done    int
	report  report.RunReport
	lines   []string
	status  string
	err     error
	now     func() time.Time
}

// New creates the panel model
func New(cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg: cfg,
		styles: styles{
			title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#2d3e50")).Padding(0, 1),
			label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
			help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
			errText: lipgloss.NewStyle().Foreground(lipgloss.Color("#c62828")),
			line:    console.NewStyles(lipgloss.DefaultRenderer()),
		},
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		spinner:  sp,
		now:      time.Now,
	}
}

// waitForEvent blocks on the worker channel for the next message
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Init starts listening for worker events
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.cfg.Events), m.spinner.Tick)
}

// Running reports whether a run is in progress
func (m Model) Running() bool {
	return m.state == stateRunning
}

// Update handles key presses and worker messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 80 {
			width = 80
		}
		if width > 10 {
			m.progress.Width = width
		}
		return m, nil

	case LoadedMsg:
		m.rows = msg.Rows
		m.drivers = msg.Drivers
		m.appendLine(fmt.Sprintf("Read %d rows for %d drivers", msg.Rows, msg.Drivers))
		return m, waitForEvent(m.cfg.Events)

	case DriverMsg:
		e := msg.Event
		m.done = e.Index
		m.report = e.Report
		m.appendLine(console.FormatLine(m.styles.line, m.now(), e.Index, e.Total, e.Detail))
		return m, waitForEvent(m.cfg.Events)

	case DoneMsg:
		m.state = stateDone
		m.report = msg.Report
		m.err = msg.Err
		if msg.Err != nil {
			m.status = "Run stopped: " + msg.Err.Error()
		} else {
			m.status = "Upload complete. Press w to save the report."
		}
		return m, waitForEvent(m.cfg.Events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "q", "esc":
		if m.Running() {
			m.status = "Upload in progress; press ctrl+c to abort"
			return m, nil
		}
		return m, tea.Quit

	case "s", "enter":
		if m.Running() {
			return m, nil
		}
		if m.cfg.Start == nil || !m.cfg.Start() {
			m.status = "Could not start upload"
			return m, nil
		}
		m.state = stateRunning
		m.rows, m.drivers, m.done = 0, 0, 0
		m.report = report.RunReport{}
		m.lines = nil
		m.err = nil
		m.status = "Uploading..."
		return m, nil

	case "w":
		if m.state != stateDone || (m.report.TotalDrivers == 0 && m.report.TotalCSVRows == 0) {
			m.status = "Nothing to save yet"
			return m, nil
		}
		if m.cfg.Save == nil {
			return m, nil
		}
		where, err := m.cfg.Save(m.report)
		if err != nil {
			m.status = "Save failed: " + err.Error()
			return m, nil
		}
		m.status = "Saved " + where
		return m, nil
	}
	return m, nil
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func (m Model) percent() float64 {
	if m.drivers == 0 {
		if m.state == stateDone {
			return 1
		}
		return 0
	}
	return float64(m.done) / float64(m.drivers)
}

// View renders the panel
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Biometric Data Sender"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", m.styles.label.Render("CSV file:"), m.cfg.CSVPath)
	fmt.Fprintf(&b, "%s %s\n\n", m.styles.label.Render("API URL: "), m.cfg.APIURL)

	prefix := "  "
	if m.Running() {
		prefix = m.spinner.View() + " "
	}
	b.WriteString(prefix + m.progress.ViewAs(m.percent()))
	fmt.Fprintf(&b, " %d/%d\n\n", m.done, m.drivers)

	fmt.Fprintf(&b, "Rows: %d  Drivers: %d  %s %d  %s %d  %s %d\n\n",
		m.rows, m.drivers,
		m.styles.line.OK.Render("Success:"), m.report.Success,
		m.styles.line.Failed.Render("Failed:"), m.report.Failed,
		m.styles.line.Skipped.Render("Skipped:"), m.report.Skipped)

	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.lines) > 0 {
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.err != nil {
			b.WriteString(m.styles.errText.Render(m.status))
		} else {
			b.WriteString(m.status)
		}
		b.WriteString("\n")
	}

	help := "s start • w save report • q quit"
	if m.Running() {
		help = "uploading… ctrl+c abort"
	}
	b.WriteString(m.styles.help.Render(help))
	b.WriteString("\n")
	return b.String()
}
