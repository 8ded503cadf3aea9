// Package run dispatches a parsed invocation to the check, headless apply or
// interactive mode and maps the outcome to an exit code.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chojs23/threeway/internal/cli"
	"github.com/chojs23/threeway/internal/config"
	"github.com/chojs23/threeway/internal/tui"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitUnresolved = 1
	ExitError      = 2
)

func Run(ctx context.Context, opts cli.Options) int {
	if opts.Check {
		resolved, err := checkResolvedFile(opts.MergedPath)
		if err != nil {
			return exitError(err)
		}
		if resolved {
			return ExitOK
		}
		return ExitUnresolved
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return exitError(err)
	}

	if opts.Apply != "" {
		res, err := applyAndWrite(ctx, opts, cfg)
		if err != nil {
			return exitError(err)
		}
		if res.Remaining > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d hunks remain unresolved in %s\n", res.Remaining, res.Changes, opts.MergedPath)
			return ExitUnresolved
		}
		return ExitOK
	}

	// Interactive TUI
	if opts.BasePath == "" && opts.LocalPath == "" && opts.RemotePath == "" && opts.MergedPath == "" {
		baseOpts := opts
		for {
			opts = baseOpts
			cleanup, err := prepareInteractiveFromRepo(ctx, &opts, cfg)
			if err != nil {
				if errors.Is(err, errNoConflicts) {
					fmt.Fprintln(os.Stdout, "No conflicted files found in the current directory.")
					return ExitOK
				}
				if errors.Is(err, tui.ErrSelectorQuit) {
					return ExitOK
				}
				return exitError(err)
			}

			err = runInteractive(ctx, opts, cfg)
			cleanup()
			if err != nil {
				if errors.Is(err, tui.ErrBackToSelector) {
					continue
				}
				return exitError(err)
			}
			return ExitOK
		}
	}

	if err := runInteractive(ctx, opts, cfg); err != nil {
		if errors.Is(err, tui.ErrBackToSelector) {
			return ExitOK
		}
		return exitError(err)
	}
	return ExitOK
}

// runInteractive is replaced in tests.
var runInteractive = func(ctx context.Context, opts cli.Options, cfg config.Config) error {
	return tui.Run(ctx, opts, cfg)
}

func exitError(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return ExitError
}
