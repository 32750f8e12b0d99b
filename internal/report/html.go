package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed report.html.tmpl
var htmlTemplate string

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"label": func(s Status) string {
		switch s {
		case StatusSuccess:
			return "Success"
		case StatusFailed:
			return "Failed"
		case StatusSkipped:
			return "Skipped"
		}
		return string(s)
	},
}).Parse(htmlTemplate))

type htmlPage struct {
	Title       string
	GeneratedAt string
	Report      RunReport
}

// RenderHTML writes a self-contained HTML page for r
func RenderHTML(w io.Writer, r RunReport, generatedAt time.Time) error {
	page := htmlPage{
		Title:       "Biometric Upload Report",
		GeneratedAt: generatedAt.Format("2006-01-02 15:04:05"),
		Report:      r,
	}
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// SaveHTML renders r to path
func SaveHTML(path string, r RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create html report: %w", err)
	}
	if err := RenderHTML(f, r, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HTMLPathFor returns the default HTML path next to a JSON report:
// drivers.json -> drivers_report.html, upload_report.json -> upload_report.html
func HTMLPathFor(jsonPath string) string {
	stem := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath))
	if strings.HasSuffix(stem, "_report") {
		return stem + ".html"
	}
	return stem + "_report.html"
}
