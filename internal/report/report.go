package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
)

// Status is the outcome of one driver upload
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Detail is the result record for one driver
type Detail struct {
	Driver        int      `json:"driver"`
	NumeroCarta   string   `json:"numero_carta"`
	Status        Status   `json:"status"`
	FilesCreated  []string `json:"files_created"`
	FilesUpdated  []string `json:"files_updated"`
	FilesMissing  []string `json:"files_missing"`
	DriverCreated bool     `json:"driver_created"`
	CSVRows       int      `json:"csv_rows"`
	Error         string   `json:"error,omitempty"`
}

// RunReport holds totals and per-driver details for one run.
// It is a value: Add returns an updated copy and never mutates the receiver.
type RunReport struct {
	TotalCSVRows int                 `json:"total_csv_rows"`
	TotalDrivers int                 `json:"total_drivers"`
	Success      int                 `json:"success"`
	Failed       int                 `json:"failed"`
	Skipped      int                 `json:"skipped"`
	Details      []Detail            `json:"details"`
	Warnings     []ingest.RowWarning `json:"warnings,omitempty"`
}

// New starts an empty report for a run
func New(totalCSVRows, totalDrivers int, warnings []ingest.RowWarning) RunReport {
	return RunReport{
		TotalCSVRows: totalCSVRows,
		TotalDrivers: totalDrivers,
		Details:      []Detail{},
		Warnings:     slices.Clone(warnings),
	}
}

// Add appends d and updates the status counters
func (r RunReport) Add(d Detail) RunReport {
	d.FilesCreated = nonNil(d.FilesCreated)
	d.FilesUpdated = nonNil(d.FilesUpdated)
	d.FilesMissing = nonNil(d.FilesMissing)

	r.Details = append(slices.Clip(r.Details), d)
	switch d.Status {
	case StatusSuccess:
		r.Success++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
	return r
}

// Processed returns the number of drivers recorded so far
func (r RunReport) Processed() int {
	return len(r.Details)
}

// FilesNotFound counts missing slots across all details
func (r RunReport) FilesNotFound() int {
	n := 0
	for _, d := range r.Details {
		n += len(d.FilesMissing)
	}
	return n
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, r RunReport) error {
	if r.Details == nil {
		r.Details = []Detail{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to path
func SaveJSON(path string, r RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteJSON(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a JSON report
func Decode(r io.Reader) (RunReport, error) {
	var rep RunReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return RunReport{}, fmt.Errorf("invalid report JSON: %w", err)
	}
	if rep.Details == nil {
		rep.Details = []Detail{}
	}
	return rep, nil
}

// LoadJSON reads a JSON report from path
func LoadJSON(path string) (RunReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunReport{}, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
