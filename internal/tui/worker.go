package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

// RunFunc performs one upload run, reporting progress through hooks
type RunFunc func(ctx context.Context, hooks upload.Hooks) (report.RunReport, error)

// Worker executes runs on a single goroutine, separate from the UI event
// loop, and forwards ordered progress messages to it.
type Worker struct {
	run    RunFunc
	starts chan struct{}
	events chan tea.Msg
}

// NewWorker creates a worker for run
func NewWorker(run RunFunc) *Worker {
	return &Worker{
		run:    run,
		starts: make(chan struct{}, 1),
		events: make(chan tea.Msg),
	}
}

// Start requests a run. It returns false when a request is already pending.
func (w *Worker) Start() bool {
	select {
	case w.starts <- struct{}{}:
		return true
	default:
		return false
	}
}

// Events returns the channel the UI listens on
func (w *Worker) Events() <-chan tea.Msg {
	return w.events
}

// Loop serves start requests until ctx is done
func (w *Worker) Loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.starts:
			w.execute(ctx)
		}
	}
}

func (w *Worker) execute(ctx context.Context) {
	hooks := upload.Hooks{
		OnLoaded: func(l *ingest.LoadResult) {
			w.send(ctx, LoadedMsg{Rows: l.TotalRows, Drivers: len(l.Groups)})
		},
		OnDriver: func(e upload.Event) {
			w.send(ctx, DriverMsg{Event: e})
		},
	}
	rep, err := w.run(ctx, hooks)
	w.send(ctx, DoneMsg{Report: rep, Err: err})
}

func (w *Worker) send(ctx context.Context, msg tea.Msg) {
	select {
	case w.events <- msg:
	case <-ctx.Done():
	}
}
