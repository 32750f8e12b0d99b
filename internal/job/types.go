package job

import (
	"time"

	"github.com/ryabkov82/biometric-sender/internal/report"
)

// RunStatus represents the status of an upload run
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded" // every driver was processed
	StatusFailed    RunStatus = "failed"    // setup error or interrupted run
)

// Finished reports whether the status is terminal
func (s RunStatus) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Run is one upload of a CSV file requested through the control API
type Run struct {
	ID        string
	CSVPath   string
	APIURL    string
	Headers   map[string]string
	AuthToken string

	Status     RunStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	TotalCSVRows int
	DriversTotal int
	DriversDone  int
	LastDriver   string
	Success      int
	Failed       int
	Skipped      int
	LastError    string

	Report *report.RunReport
}

// Progress is a snapshot of per-driver progress
type Progress struct {
	TotalCSVRows int
	DriversTotal int
	DriversDone  int
	LastDriver   string
	Success      int
	Failed       int
	Skipped      int
}

// ProgressFrom builds a snapshot from a partial report
func ProgressFrom(r report.RunReport, lastDriver string) Progress {
	return Progress{
		TotalCSVRows: r.TotalCSVRows,
		DriversTotal: r.TotalDrivers,
		DriversDone:  r.Processed(),
		LastDriver:   lastDriver,
		Success:      r.Success,
		Failed:       r.Failed,
		Skipped:      r.Skipped,
	}
}
