package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the control plane and block until shutdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configDir(cmd))
		},
	}
}

// runServer starts every background task under one errgroup so a
// failure in any of them (the admin listener, most plausibly) tears
// the rest down together, and blocks until the whole group has
// drained — not just until the signal arrives.
func runServer(dir string) error {
	a, s, err := loadApp(dir)
	if err != nil {
		return failConfig(err)
	}
	defer func() { _ = a.log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Run(gctx, a.queue)
		return nil
	})
	g.Go(func() error {
		a.scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.log.Info("admin listener starting", zap.String("addr", a.admin.Addr))
		if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return drain(a)
	})

	if err := g.Wait(); err != nil {
		a.log.Error("run command exiting after error", zap.Error(err))
		return failInternal(err)
	}
	return nil
}

// drain is invoked once gctx is cancelled, either by a shutdown
// signal or by one of the other group members failing. It stops the
// out-of-band health probes and gives the admin listener up to the
// configured drain timeout to finish in-flight requests. The timeout
// is read once at boot rather than via a fresh command-queue call,
// since by the time drain runs the control loop may already have
// exited on the same ctx cancellation and would never reply.
func drain(a *app) error {
	drainCtx := context.Background()
	var cancel context.CancelFunc
	if a.drainTimeout > 0 {
		drainCtx, cancel = context.WithTimeout(drainCtx, a.drainTimeout)
		defer cancel()
	}

	a.checker.Stop()

	if err := a.admin.Shutdown(drainCtx); err != nil {
		a.log.Warn("admin listener did not drain cleanly", zap.Error(err))
	}
	return nil
}
