package job

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryabkov82/biometric-sender/internal/report"
)

var (
	// ErrRunActive is returned when a run is already queued or running
	ErrRunActive = errors.New("another run is already queued or running")
	// ErrNotFound is returned for unknown run ids
	ErrNotFound = errors.New("run not found")
)

// Store manages runs in memory. At most one run is queued or running at a time.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]*Run
	active string // id of the queued or running run, if any
	queue  chan *Run
	now    func() time.Time
}

// NewStore creates a new run store
func NewStore() *Store {
	return &Store{
		runs:  make(map[string]*Run),
		queue: make(chan *Run, 1),
		now:   time.Now,
	}
}

// Create registers a run and queues it for the worker.
// Returns ErrRunActive if another run has not finished yet.
func (s *Store) Create(r *Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		return "", ErrRunActive
	}

	r.ID = uuid.New().String()
	r.Status = StatusQueued
	r.CreatedAt = s.now()
	r.Headers = maps.Clone(r.Headers)

	// Registered before queuing so the worker always finds it
	s.runs[r.ID] = r
	s.active = r.ID

	select {
	case s.queue <- r:
	default:
		// previous run was never picked up by a worker
		delete(s.runs, r.ID)
		s.active = ""
		return "", ErrRunActive
	}
	return r.ID, nil
}

// Get returns a copy of the run
func (s *Store) Get(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *r
	cp.Headers = maps.Clone(r.Headers)
	return cp, nil
}

// Active returns the id of the queued or running run, or ""
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// MarkRunning moves a queued run to running
func (s *Store) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.Status = StatusRunning
	if r.StartedAt == nil {
		now := s.now()
		r.StartedAt = &now
	}
	return nil
}

// UpdateProgress records progress after a driver completes
func (s *Store) UpdateProgress(id string, p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return
	}
	r.TotalCSVRows = p.TotalCSVRows
	r.DriversTotal = p.DriversTotal
	r.DriversDone = p.DriversDone
	r.LastDriver = p.LastDriver
	r.Success = p.Success
	r.Failed = p.Failed
	r.Skipped = p.Skipped
}

// Finish stores the final report and releases the active slot.
// A nil err marks the run succeeded; otherwise it is failed with LastError set.
// rep may be nil when the run never got past setup.
func (s *Store) Finish(id string, rep *report.RunReport, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := s.now()
	r.FinishedAt = &now
	if rep != nil {
		cp := *rep
		r.Report = &cp
		r.TotalCSVRows = rep.TotalCSVRows
		r.DriversTotal = rep.TotalDrivers
		r.DriversDone = rep.Processed()
		r.Success = rep.Success
		r.Failed = rep.Failed
		r.Skipped = rep.Skipped
	}
	if err != nil {
		r.Status = StatusFailed
		r.LastError = err.Error()
	} else {
		r.Status = StatusSucceeded
	}
	if s.active == id {
		s.active = ""
	}
	return nil
}

// NextRun returns the next queued run (blocking)
func (s *Store) NextRun(ctx context.Context) (*Run, error) {
	select {
	case r := <-s.queue:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
