package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewd/reviewd/internal/engine"
	"github.com/reviewd/reviewd/internal/log"
	"github.com/reviewd/reviewd/internal/review"
	"github.com/reviewd/reviewd/internal/server"
	"github.com/reviewd/reviewd/internal/store"
)

const shutdownTimeout = 10 * time.Second

func doServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.ContextAttrs(ctx, slog.Group("reviewd",
		slog.String("cmd", "serve"),
		slog.Int("pid", os.Getpid()),
	))

	retention, err := config.Retention()
	if err != nil {
		return err
	}
	stepDelay, err := config.StepDelay()
	if err != nil {
		return err
	}

	sessions := store.NewSessions()
	results := store.NewResults()

	janitor, err := store.NewJanitor(ctx, sessions, results, retention, retention/4)
	if err != nil {
		return err
	}
	janitor.Start()
	defer func() {
		if err := janitor.Shutdown(); err != nil {
			slog.WarnContext(ctx, "janitor shutdown failed", "err", err)
		}
	}()

	analyzer := engine.NewHeuristic(engine.WithStepDelay(stepDelay))
	svc := review.New(analyzer, sessions, results, review.WithWorkers(config.Workers()))
	svc.Start(ctx)
	defer svc.Close()

	static := ""
	if config.Server != nil && config.Server.Static != nil {
		static = *config.Server.Static
	}

	httpServer := &http.Server{
		Addr:        config.Listen(),
		Handler:     server.New(svc, static).Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "listening", "addr", config.Listen())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
