package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	RunOptions

	// Ready, when set, is called with the listen address once the server accepts connections.
	Ready func(addr string)
}

// Serve runs a scenario in the background and exposes its agents over HTTP on
// Config.MetricsAddr until ctx is done. The server keeps running after the agents
// finish, so the final trees stay inspectable.
func Serve(ctx context.Context, opts ServeOptions) error {
	logger := createLogger(opts.Config, opts.Logs)
	board := observability.NewBoard()
	metrics := observability.NewMetrics()
	streams := httpAdapter.NewStreamManager(logger)

	run := opts.RunOptions
	run.Board = board
	run.Metrics = metrics
	run.Hooks = run.Hooks.Merge(streams.Hooks())
	if run.Out == nil {
		run.Out = io.Discard
	}

	s, err := newSession(ctx, run)
	if err != nil {
		return err
	}
	defer s.cleanup()

	ln, err := net.Listen("tcp", opts.Config.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Config.MetricsAddr, err)
	}
	srv := &http.Server{
		Handler: httpAdapter.NewHandler(board,
			httpAdapter.WithMetrics(metrics),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()
	printSystemMessage(run.Out, "Serving %d agent(s) of %q on %s", opts.Config.Agents, s.spec.Name, ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		rep, err := s.run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scenario run failed", "err", err)
		}
		if rep != nil {
			if err := WriteReport(run.Out, rep, run.JSON); err != nil {
				logger.Warn("failed to write report", "err", err)
			}
		}
	}()

	select {
	case err := <-serverErrors:
		<-runDone
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	<-runDone
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
		return srv.Close()
	}
	return nil
}
