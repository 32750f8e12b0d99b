package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ryabkov82/biometric-sender/internal/report"
)

// Styles holds the colours used for console output
type Styles struct {
	OK      lipgloss.Style
	Skipped lipgloss.Style
	Failed  lipgloss.Style
	Muted   lipgloss.Style
	Title   lipgloss.Style
}

// NewStyles builds styles bound to r
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		OK:      r.NewStyle().Foreground(lipgloss.Color("#2e7d32")).Bold(true),
		Skipped: r.NewStyle().Foreground(lipgloss.Color("#ef6c00")).Bold(true),
		Failed:  r.NewStyle().Foreground(lipgloss.Color("#c62828")).Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#808080")),
		Title:   r.NewStyle().Bold(true),
	}
}

// Badge renders the bracketed status marker
func (s Styles) Badge(status report.Status) string {
	switch status {
	case report.StatusSuccess:
		return s.OK.Render("[OK]")
	case report.StatusSkipped:
		return s.Skipped.Render("[SKIPPED]")
	default:
		return s.Failed.Render("[FAILED]")
	}
}

// Printer writes per-driver progress lines and the run summary
type Printer struct {
	w      io.Writer
	styles Styles
	now    func() time.Time
}

// NewPrinter creates a Printer. Colour is used only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:      w,
		styles: NewStyles(lipgloss.NewRenderer(w)),
		now:    time.Now,
	}
}

// Header prints the run banner once the CSV has been loaded
func (p *Printer) Header(csvPath, apiURL string, rows, drivers int) {
	fmt.Fprintln(p.w, p.styles.Title.Render("Biometric upload"))
	fmt.Fprintf(p.w, "CSV: %s\nAPI: %s\n", csvPath, apiURL)
	fmt.Fprintf(p.w, "Read %d rows for %d drivers\n\n", rows, drivers)
}

// Driver prints one status line
func (p *Printer) Driver(index, total int, d report.Detail) {
	fmt.Fprintln(p.w, FormatLine(p.styles, p.now(), index, total, d))
}

// FormatLine renders "HH:MM:SS | Driver i/n | id | [STATUS] | details"
func FormatLine(s Styles, at time.Time, index, total int, d report.Detail) string {
	parts := []string{
		s.Muted.Render(at.Format("15:04:05")),
		fmt.Sprintf("Driver %d/%d", index, total),
		d.NumeroCarta,
		s.Badge(d.Status),
	}
	if details := Details(d); details != "" {
		parts = append(parts, details)
	}
	return strings.Join(parts, " | ")
}

// Details summarizes the file lists and error of a detail
func Details(d report.Detail) string {
	var parts []string
	if len(d.FilesCreated) > 0 {
		parts = append(parts, "Created: "+strings.Join(d.FilesCreated, ", "))
	}
	if len(d.FilesUpdated) > 0 {
		parts = append(parts, "Replaced: "+strings.Join(d.FilesUpdated, ", "))
	}
	if len(d.FilesMissing) > 0 {
		parts = append(parts, "Missing: "+strings.Join(d.FilesMissing, ", "))
	}
	if d.Status == report.StatusSuccess && d.DriverCreated {
		parts = append(parts, "new driver")
	}
	if d.Error != "" {
		parts = append(parts, d.Error)
	}
	return strings.Join(parts, "; ")
}

// Summary prints the totals block
func (p *Printer) Summary(r report.RunReport) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.styles.Title.Render("Summary"))
	fmt.Fprintf(p.w, "  CSV rows:        %d\n", r.TotalCSVRows)
	fmt.Fprintf(p.w, "  Drivers:         %d\n", r.TotalDrivers)
	fmt.Fprintf(p.w, "  %s %d\n", p.styles.OK.Render("Success:        "), r.Success)
	fmt.Fprintf(p.w, "  %s %d\n", p.styles.Failed.Render("Failed:         "), r.Failed)
	fmt.Fprintf(p.w, "  %s %d\n", p.styles.Skipped.Render("Skipped:        "), r.Skipped)
	fmt.Fprintf(p.w, "  Files not found: %d\n", r.FilesNotFound())
	if len(r.Warnings) > 0 {
		fmt.Fprintf(p.w, "  Dropped rows:    %d\n", len(r.Warnings))
	}
	if r.Processed() < r.TotalDrivers {
		fmt.Fprintf(p.w, "  %s\n", p.styles.Failed.Render(fmt.Sprintf("Interrupted after %d of %d drivers", r.Processed(), r.TotalDrivers)))
	}
}

// Saved reports where a report file was written
func (p *Printer) Saved(kind, path string) {
	fmt.Fprintf(p.w, "%s report saved to %s\n", kind, path)
}
