package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/upload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker event")
		return nil
	}
}

func TestWorkerEmitsOrderedEvents(t *testing.T) {
	run := func(ctx context.Context, hooks upload.Hooks) (report.RunReport, error) {
		hooks.OnLoaded(&ingest.LoadResult{TotalRows: 3, Groups: make([]ingest.DriverGroup, 2)})
		rep := report.New(3, 2, nil)
		for i, id := range []string{"A", "B"} {
			d := report.Detail{Driver: i + 1, NumeroCarta: id, Status: report.StatusSuccess}
			rep = rep.Add(d)
			hooks.OnDriver(upload.Event{Index: i + 1, Total: 2, DriverID: id, Detail: d, Report: rep})
		}
		return rep, nil
	}

	w := NewWorker(run)
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Loop(gctx) })

	require.True(t, w.Start())

	assert.Equal(t, LoadedMsg{Rows: 3, Drivers: 2}, receive(t, w.Events()))
	first := receive(t, w.Events()).(DriverMsg)
	second := receive(t, w.Events()).(DriverMsg)
	assert.Equal(t, "A", first.Event.DriverID)
	assert.Equal(t, "B", second.Event.DriverID)

	done := receive(t, w.Events()).(DoneMsg)
	assert.NoError(t, done.Err)
	assert.Equal(t, 2, done.Report.Success)

	cancel()
	require.NoError(t, g.Wait())
}

func TestWorkerStartPendingOnce(t *testing.T) {
	w := NewWorker(func(context.Context, upload.Hooks) (report.RunReport, error) {
		return report.RunReport{}, nil
	})
	assert.True(t, w.Start())
	assert.False(t, w.Start(), "only one start request can be pending")
}

func TestWorkerStopsWhenUIGoesAway(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, hooks upload.Hooks) (report.RunReport, error) {
		close(started)
		// nobody reads events; the send must give up on cancellation
		hooks.OnDriver(upload.Event{Index: 1})
		return report.RunReport{}, ctx.Err()
	}

	w := NewWorker(run)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Loop(ctx) }()

	require.True(t, w.Start())
	<-started
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
