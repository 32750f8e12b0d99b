package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/report"
)

func fixedPrinter(buf *bytes.Buffer) *Printer {
	p := NewPrinter(buf)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC) }
	return p
}

func TestDriverLine(t *testing.T) {
	var buf bytes.Buffer
	p := fixedPrinter(&buf)

	p.Driver(2, 5, report.Detail{
		NumeroCarta:   "10028588",
		Status:        report.StatusSuccess,
		FilesCreated:  []string{"fileFace", "fileSign"},
		FilesUpdated:  []string{"filesFinger1"},
		DriverCreated: true,
	})
	assert.Equal(t,
		"14:05:09 | Driver 2/5 | 10028588 | [OK] | Created: fileFace, fileSign; Replaced: filesFinger1; new driver\n",
		buf.String())
}

func TestDriverLineStatuses(t *testing.T) {
	styles := NewPrinter(&bytes.Buffer{}).styles
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	skipped := FormatLine(styles, at, 1, 1, report.Detail{
		NumeroCarta: "1", Status: report.StatusSkipped,
		FilesMissing: []string{"filesFinger1"}, Error: "No biometric data available",
	})
	assert.Equal(t, "08:00:00 | Driver 1/1 | 1 | [SKIPPED] | Missing: filesFinger1; No biometric data available", skipped)

	failed := FormatLine(styles, at, 1, 1, report.Detail{NumeroCarta: "2", Status: report.StatusFailed, Error: "server error (HTTP 500)"})
	assert.Equal(t, "08:00:00 | Driver 1/1 | 2 | [FAILED] | server error (HTTP 500)", failed)

	bare := FormatLine(styles, at, 1, 1, report.Detail{NumeroCarta: "3", Status: report.StatusSuccess})
	assert.Equal(t, "08:00:00 | Driver 1/1 | 3 | [OK]", bare)
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	p := fixedPrinter(&buf)

	r := report.New(7, 3, []ingest.RowWarning{{RowNo: 2, Message: "inactive record"}})
	r = r.Add(report.Detail{NumeroCarta: "A", Status: report.StatusSuccess})
	r = r.Add(report.Detail{NumeroCarta: "B", Status: report.StatusSkipped, FilesMissing: []string{"fileFace", "fileSign"}})
	p.Summary(r)

	out := buf.String()
	assert.Contains(t, out, "CSV rows:        7")
	assert.Contains(t, out, "Drivers:         3")
	assert.Contains(t, out, "Success:         1")
	assert.Contains(t, out, "Skipped:         1")
	assert.Contains(t, out, "Files not found: 2")
	assert.Contains(t, out, "Dropped rows:    1")
	assert.Contains(t, out, "Interrupted after 2 of 3 drivers")
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	fixedPrinter(&buf).Header("in.csv", "http://api", 4, 1)
	assert.Contains(t, buf.String(), "Read 4 rows for 1 drivers")
	assert.Contains(t, buf.String(), "API: http://api")
}
