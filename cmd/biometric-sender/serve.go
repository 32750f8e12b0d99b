package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ryabkov82/biometric-sender/internal/httpapi"
	"github.com/ryabkov82/biometric-sender/internal/job"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr, allowedBaseDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP API that starts uploads and exposes their reports",
		Long: `Starts an HTTP server. POST /runs queues an upload of a CSV file under the
allowed base directory; runs execute one at a time. GET /runs/{id} reports
progress and GET /runs/{id}/report(.html) returns the finished report.

When BIOMETRIC_SERVE_API_KEY is set every route except /version requires a
matching X-API-Key header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("allowed-base-dir") {
				a.cfg.Serve.AllowedBaseDir = allowedBaseDir
			}
			if a.cfg.Serve.AllowedBaseDir == "" {
				a.cfg.Serve.AllowedBaseDir = "/data/incoming"
				a.logger.Info("Using default allowed base dir", zap.String("dir", a.cfg.Serve.AllowedBaseDir))
			}

			ln, err := net.Listen("tcp", a.cfg.Serve.Addr)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&allowedBaseDir, "allowed-base-dir", "", "directory csvPath values must be inside")
	return cmd
}

// serve runs the HTTP API on ln and the run worker until ctx is done
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	cfg := a.cfg
	logger := a.logger
	store := job.NewStore()

	handler, err := httpapi.NewHandler(store, cfg.Serve.AllowedBaseDir, cfg.APIURL, logger)
	if err != nil {
		ln.Close()
		return err
	}
	server := &http.Server{
		Handler:           httpapi.SetupRouter(handler, cfg.Serve.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	worker := job.NewWorker(store, a.executeRun, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Loop(gctx)
	})
	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

// executeRun performs one queued run with the settings it was created with
func (a *app) executeRun(ctx context.Context, r job.Run, hooks upload.Hooks) (report.RunReport, error) {
	t := target{APIURL: r.APIURL, Headers: r.Headers, AuthToken: r.AuthToken}
	if err := probe(ctx, a.cfg, t.APIURL); err != nil {
		return report.RunReport{}, err
	}
	runner, err := newRunner(a.cfg, t, nil, a.logger)
	if err != nil {
		return report.RunReport{}, err
	}
	return runner.Run(ctx, r.CSVPath, hooks)
}
