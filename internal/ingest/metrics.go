package ingest

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timings tracks durations for the stages of an upload run
type Timings struct {
	mu sync.Mutex

	CSVReadTotal time.Duration
	CSVReadCount int64

	NormalizeTotal time.Duration
	NormalizeCount int64

	EncodeTotal time.Duration
	EncodeCount int64
	EncodeBytes int64

	HTTPTotal time.Duration
	HTTPCount int64
}

// NewTimings creates a new Timings instance
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveCSVRead records one CSV record read
func (t *Timings) ObserveCSVRead(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CSVReadTotal += d
	t.CSVReadCount++
}

// ObserveNormalize records one row normalization
func (t *Timings) ObserveNormalize(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.NormalizeTotal += d
	t.NormalizeCount++
}

// ObserveEncode records reading and base64-encoding one biometric file
func (t *Timings) ObserveEncode(d time.Duration, size int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.EncodeTotal += d
	t.EncodeCount++
	t.EncodeBytes += int64(size)
}

// ObserveHTTP records one upload round trip
func (t *Timings) ObserveHTTP(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.HTTPTotal += d
	t.HTTPCount++
}

// String returns a one-line summary of all recorded stages
func (t *Timings) String() string {
	if t == nil {
		return "No timings recorded"
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var parts []string
	stage := func(name string, total time.Duration, count int64) {
		if count == 0 {
			return
		}
		parts = append(parts, fmt.Sprintf("%s: total=%v count=%d avg=%v", name, total, count, total/time.Duration(count)))
	}
	stage("CSV read", t.CSVReadTotal, t.CSVReadCount)
	stage("Normalize", t.NormalizeTotal, t.NormalizeCount)
	stage("File encode", t.EncodeTotal, t.EncodeCount)
	if t.EncodeBytes > 0 {
		parts = append(parts, fmt.Sprintf("Encoded bytes: %d", t.EncodeBytes))
	}
	stage("HTTP", t.HTTPTotal, t.HTTPCount)

	if len(parts) == 0 {
		return "No timings recorded"
	}
	return strings.Join(parts, "; ")
}
