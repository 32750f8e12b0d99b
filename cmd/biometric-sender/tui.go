package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/tui"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui <csv_path> [api_url]",
		Short: "Run an upload from an interactive terminal panel",
		Long: `Opens a panel showing the CSV file, the API URL, a progress bar, live
counts and a status log. Press s or enter to start, w to save the JSON and
HTML reports once the run has finished, and q to quit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				a.cfg.APIURL = args[1]
			}
			return a.runTUI(cmd.Context(), args[0])
		},
	}
}

func (a *app) runTUI(ctx context.Context, csvPath string) error {
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
	runner, err := newRunner(cfg, targetFromConfig(cfg), nil, a.logger)
	if err != nil {
		return err
	}

	worker := tui.NewWorker(func(ctx context.Context, hooks upload.Hooks) (report.RunReport, error) {
		return runner.Run(ctx, csvPath, hooks)
	})

	model := tui.New(tui.Config{
		CSVPath: csvPath,
		APIURL:  cfg.APIURL,
		Start:   worker.Start,
		Events:  worker.Events(),
		Save: func(rep report.RunReport) (string, error) {
			if err := report.SaveJSON(cfg.Output, rep); err != nil {
				return "", err
			}
			htmlPath := cfg.HTMLOutput
			if htmlPath == "" {
				htmlPath = report.HTMLPathFor(cfg.Output)
			}
			if err := report.SaveHTML(htmlPath, rep); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s and %s", cfg.Output, htmlPath), nil
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	workerCtx, stopWorker := context.WithCancel(gctx)

	g.Go(func() error {
		return worker.Loop(workerCtx)
	})
	g.Go(func() error {
		defer stopWorker()
		_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}
