package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/client"
	"github.com/ryabkov82/biometric-sender/internal/config"
	"github.com/ryabkov82/biometric-sender/internal/console"
	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/payload"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

// target identifies where one run uploads to
type target struct {
	APIURL    string
	Headers   map[string]string
	AuthToken string
}

func targetFromConfig(cfg *config.Config) target {
	return target{APIURL: cfg.APIURL, Headers: cfg.Headers, AuthToken: cfg.AuthToken}
}

// newRunner wires a sender and a runner from cfg for t. warnings may be nil.
func newRunner(cfg *config.Config, t target, warnings *ingest.WarningLog, logger *zap.Logger) (*upload.Runner, error) {
	timings := ingest.NewTimings()

	sender, err := client.NewSender(client.Options{
		BaseURL:   t.APIURL,
		Headers:   t.Headers,
		AuthToken: t.AuthToken,
		Timeout:   cfg.TimeoutDuration(),
		Gzip:      cfg.Gzip,
	}, timings, logger)
	if err != nil {
		return nil, err
	}

	return upload.NewRunner(upload.Config{
		Load: ingest.LoadOptions{
			CSV:      cfg.CSVOptions(),
			Warnings: warnings,
		},
		Payload: payload.Options{
			BaseDir:    cfg.Files.BaseDir,
			Restrict:   cfg.Files.Restrict,
			AcceptMIME: cfg.Files.AcceptMIME,
		},
		Uploader: sender,
		Timings:  timings,
		Logger:   logger,
	}), nil
}

// probe checks the API host when probing is enabled
func probe(ctx context.Context, cfg *config.Config, apiURL string) error {
	if !cfg.Probe {
		return nil
	}
	return client.Probe(ctx, apiURL, client.DefaultProbeTimeout)
}

// runUpload is the root command: one run with console output and saved reports
func (a *app) runUpload(ctx context.Context, out io.Writer, csvPath string) error {
	cfg := a.cfg
	if cfg.APIURL == "" {
		return errors.New("api url is required: pass it as the second argument or set api_url")
	}
	if err := ingest.ValidatePathExists(csvPath); err != nil {
		return err
	}

	if err := probe(ctx, cfg, cfg.APIURL); err != nil {
		return err
	}

	var warnings *ingest.WarningLog
	if cfg.WarningsJSONL != "" {
		var err error
		warnings, err = ingest.OpenWarningLog(cfg.WarningsJSONL)
		if err != nil {
			return err
		}
		defer warnings.Close()
	}

	runner, err := newRunner(cfg, targetFromConfig(cfg), warnings, a.logger)
	if err != nil {
		return err
	}

	printer := console.NewPrinter(out)
	rep, runErr := runner.Run(ctx, csvPath, upload.Hooks{
		OnLoaded: func(l *ingest.LoadResult) {
			printer.Header(csvPath, cfg.APIURL, l.TotalRows, len(l.Groups))
		},
		OnDriver: func(e upload.Event) {
			printer.Driver(e.Index, e.Total, e.Detail)
		},
	})
	if runErr != nil && rep.Details == nil {
		// nothing was uploaded
		return runErr
	}

	printer.Summary(rep)
	if err := saveReports(printer, cfg, rep); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// saveReports writes the JSON report and, when configured, the HTML one
func saveReports(printer *console.Printer, cfg *config.Config, rep report.RunReport) error {
	if err := report.SaveJSON(cfg.Output, rep); err != nil {
		return err
	}
	printer.Saved("JSON", cfg.Output)

	if cfg.HTMLOutput != "" {
		if err := report.SaveHTML(cfg.HTMLOutput, rep); err != nil {
			return err
		}
		printer.Saved("HTML", cfg.HTMLOutput)
	}
	return nil
}
