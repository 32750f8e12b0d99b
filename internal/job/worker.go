package job

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

// ExecuteFunc performs one upload run for r
type ExecuteFunc func(ctx context.Context, r Run, hooks upload.Hooks) (report.RunReport, error)

// Worker processes queued runs one at a time
type Worker struct {
	store   *Store
	execute ExecuteFunc
	logger  *zap.Logger
}

// NewWorker creates a worker. logger may be nil.
func NewWorker(store *Store, execute ExecuteFunc, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{store: store, execute: execute, logger: logger}
}

// Loop takes runs from the queue until ctx is done
func (w *Worker) Loop(ctx context.Context) error {
	for {
		r, err := w.store.NextRun(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.logger.Error("Error getting next run", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// Processed synchronously: uploads never overlap
		w.process(ctx, r.ID)
	}
}

func (w *Worker) process(ctx context.Context, id string) {
	logger := w.logger.With(zap.String("run", id))

	if err := w.store.MarkRunning(id); err != nil {
		logger.Error("Failed to mark run as running", zap.Error(err))
		return
	}
	r, err := w.store.Get(id)
	if err != nil {
		logger.Error("Failed to load run", zap.Error(err))
		return
	}

	hooks := upload.Hooks{
		OnLoaded: func(l *ingest.LoadResult) {
			w.store.UpdateProgress(r.ID, Progress{
				TotalCSVRows: l.TotalRows,
				DriversTotal: len(l.Groups),
			})
		},
		OnDriver: func(e upload.Event) {
			w.store.UpdateProgress(r.ID, ProgressFrom(e.Report, e.DriverID))
		},
	}

	rep, err := w.execute(ctx, r, hooks)

	var final *report.RunReport
	if rep.Details != nil {
		final = &rep
	}
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
	} else {
		logger.Info("Run finished",
			zap.Int("success", rep.Success),
			zap.Int("failed", rep.Failed),
			zap.Int("skipped", rep.Skipped))
	}
	if ferr := w.store.Finish(r.ID, final, err); ferr != nil {
		logger.Error("Failed to finish run", zap.Error(ferr))
	}
}
