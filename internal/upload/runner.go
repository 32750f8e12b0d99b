package upload

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/client"
	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/payload"
	"github.com/ryabkov82/biometric-sender/internal/report"
)

// NoDataMessage is the detail error for drivers with nothing to upload
const NoDataMessage = "No biometric data available"

// Uploader sends one driver payload
type Uploader interface {
	Upload(ctx context.Context, driverID string, p payload.Payload) client.Outcome
}

// Event is emitted after each driver completes
type Event struct {
	Index    int // 1-based
	Total    int
	DriverID string
	Detail   report.Detail
	Report   report.RunReport // state after this driver
}

// Hooks receive progress notifications. Both fields are optional and are
// called on the goroutine running Run.
type Hooks struct {
	OnLoaded func(*ingest.LoadResult)
	OnDriver func(Event)
}

// Config holds the runner dependencies
type Config struct {
	Load     ingest.LoadOptions
	Payload  payload.Options
	Uploader Uploader
	Timings  *ingest.Timings
	Logger   *zap.Logger
}

// Runner drives one CSV file through load, build and upload
type Runner struct {
	cfg     Config
	builder *payload.Builder
	logger  *zap.Logger
}

// NewRunner creates a Runner
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Load.Timings == nil {
		cfg.Load.Timings = cfg.Timings
	}
	if cfg.Load.Logger == nil {
		cfg.Load.Logger = logger
	}
	return &Runner{
		cfg:     cfg,
		builder: payload.NewBuilder(cfg.Payload, logger, cfg.Timings),
		logger:  logger,
	}
}

// Run processes csvPath. Drivers are uploaded one at a time in first-seen
// order. A load failure is returned before any upload. If ctx is cancelled
// between drivers, the partial report is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, csvPath string, hooks Hooks) (report.RunReport, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run", runID))
	logger.Info("Run started", zap.String("csv", csvPath))

	loaded, err := ingest.Load(ctx, csvPath, r.cfg.Load)
	if err != nil {
		return report.RunReport{}, err
	}
	if hooks.OnLoaded != nil {
		hooks.OnLoaded(loaded)
	}

	total := len(loaded.Groups)
	rep := report.New(loaded.TotalRows, total, loaded.Warnings)

	for i, group := range loaded.Groups {
		if err := ctx.Err(); err != nil {
			logger.Warn("Run interrupted",
				zap.Int("processed", rep.Processed()),
				zap.Int("drivers", total))
			return rep, err
		}

		detail := r.processDriver(ctx, i+1, group)
		rep = rep.Add(detail)

		logger.Debug("Driver processed",
			zap.String("driver", group.DriverID),
			zap.String("status", string(detail.Status)),
			zap.String("error", detail.Error))

		if hooks.OnDriver != nil {
			hooks.OnDriver(Event{
				Index:    i + 1,
				Total:    total,
				DriverID: group.DriverID,
				Detail:   detail,
				Report:   rep,
			})
		}
	}

	logger.Info("Run finished",
		zap.Int("rows", rep.TotalCSVRows),
		zap.Int("drivers", rep.TotalDrivers),
		zap.Int("success", rep.Success),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped))
	if r.cfg.Timings != nil {
		logger.Info("Timings", zap.String("summary", r.cfg.Timings.String()))
	}
	return rep, nil
}

func (r *Runner) processDriver(ctx context.Context, index int, group ingest.DriverGroup) report.Detail {
	detail := report.Detail{
		Driver:      index,
		NumeroCarta: group.DriverID,
		CSVRows:     group.Rows,
	}

	built := r.builder.Build(group)
	localMissing := built.MissingFields()

	if built.Payload.Len() == 0 {
		detail.Status = report.StatusSkipped
		detail.FilesMissing = localMissing
		detail.Error = NoDataMessage
		return detail
	}

	out := r.cfg.Uploader.Upload(ctx, group.DriverID, built.Payload)
	if httpErr, ok := client.GetHTTPError(out.Err); ok {
		r.logger.Debug("Upload rejected",
			zap.String("driver", group.DriverID),
			zap.Int("http_status", httpErr.StatusCode),
			zap.String("body", httpErr.Body))
	} else if out.Err != nil {
		r.logger.Debug("Upload error",
			zap.String("driver", group.DriverID),
			zap.Error(out.Err))
	}
	detail.Status = out.Status
	detail.FilesCreated = out.FilesCreated
	detail.FilesUpdated = out.FilesUpdated
	detail.FilesMissing = mergeMissing(localMissing, out.FilesMissing)
	detail.DriverCreated = out.DriverCreated
	detail.Error = out.Error
	return detail
}

// mergeMissing unions local and server-reported missing fields in slot order.
// Unknown field names from the server are kept after the known ones.
func mergeMissing(local, remote []string) []string {
	known := make(map[ingest.Slot]bool, len(ingest.AllSlots))
	unknown := make(map[string]bool)
	for _, list := range [][]string{local, remote} {
		for _, f := range list {
			if slot, ok := ingest.SlotFromField(f); ok {
				known[slot] = true
			} else {
				unknown[f] = true
			}
		}
	}

	out := make([]string, 0, len(known)+len(unknown))
	for _, slot := range ingest.AllSlots {
		if known[slot] {
			out = append(out, slot.Field())
		}
	}
	unknownKeys := make([]string, 0, len(unknown))
	for f := range unknown {
		unknownKeys = append(unknownKeys, f)
	}
	slices.Sort(unknownKeys)
	return append(out, unknownKeys...)
}
