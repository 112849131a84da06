package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/impostor/internal/config"
	"github.com/Faultbox/impostor/internal/logger"
	"github.com/Faultbox/impostor/internal/watch"
)

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: impostor watch [options] <model>...")
		os.Exit(1)
	}

	cfg := setup(flags)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, closeRenderer, err := newRenderer(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeRenderer()

	rebuild := func(ctx context.Context) error {
		out, res, err := bakeFiles(ctx, cfg, r, fs.Args())
		if err != nil {
			return err
		}
		printSummary(out, res)
		return nil
	}

	// A broken first bake is not fatal; the user is about to fix the input.
	if err := rebuild(ctx); err != nil {
		logger.Error("initial bake failed", zap.Error(err))
	}

	w, err := watch.New(fs.Args(), cfg.Watch.Debounce.Duration(), rebuild, logger.Named("watch"))
	if err != nil {
		fatal(err)
	}
	logger.Info("watching for changes", zap.Strings("files", fs.Args()))
	if err := w.Run(ctx); err != nil {
		fatal(err)
	}
}
