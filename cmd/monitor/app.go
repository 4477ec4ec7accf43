package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"investment-monitor/config"
	"investment-monitor/internal/app"
	"investment-monitor/models"
	"investment-monitor/observability"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var plain = flag.Bool("plain", false, "print raw Markdown instead of rendering it for the terminal")
var verbose = flag.Bool("v", false, "log at info level instead of warnings only")

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// openApp loads the configuration and wires the application. Tests replace it.
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if *verbose {
		level = observability.ParseLevel(cfg.Log.Level)
	}
	observability.InitLoggerTo(stderr, cfg.Production(), level)

	return app.Build(ctx, cfg)
}

// withApp opens the application, runs fn and shuts it down again.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Shutdown(context.Background())

	if err := fn(ctx, a); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// fail reports err. Input errors are usage errors.
func fail(err error) subcommands.ExitStatus {
	switch {
	case errors.Is(err, models.ErrPersistence):
		fmt.Fprintf(stderr, "Warning: change applied but not saved: %v\n", err)
		return subcommands.ExitFailure
	case errors.Is(err, models.ErrInvalidInput):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
}

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(md string) {
	if *plain {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
