package run

import (
	"context"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/chojs23/threeway/internal/cli"
	"github.com/chojs23/threeway/internal/config"
	"github.com/chojs23/threeway/internal/engine"
	"github.com/chojs23/threeway/internal/markers"
	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
)

// checkResolvedFile reports whether the file at path is free of conflict
// markers.
func checkResolvedFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read merged: %w", err)
	}
	return markers.IsResolved(data), nil
}

// applyResult is what a headless run wrote.
type applyResult struct {
	Changes   int
	Remaining int
	Written   bool
}

// applyAndWrite merges the inputs of opts, resolves hunks according to
// opts.Apply and writes MERGED. Hunks the mode leaves unresolved are written
// as diff3 conflict blocks.
func applyAndWrite(ctx context.Context, opts cli.Options, cfg config.Config) (applyResult, error) {
	mergedBytes, err := os.ReadFile(opts.MergedPath)
	if err != nil {
		return applyResult{}, fmt.Errorf("read merged: %w", err)
	}
	if len(mergedBytes) > 0 && markers.IsResolved(mergedBytes) {
		glog.Infof("%s has no conflict markers; leaving it untouched", opts.MergedPath)
		return applyResult{}, nil
	}

	in, content, err := engine.ReadInput(engine.Files{Base: opts.BasePath, Left: opts.LocalPath, Right: opts.RemotePath})
	if err != nil {
		return applyResult{}, err
	}

	log, err := undo.NewLog(cfg.UndoLimit)
	if err != nil {
		return applyResult{}, err
	}
	s := engine.NewSession(textdoc.New(nil, log), log, engine.Options{
		Policy:   cfg.Policy(),
		MaxLines: cfg.MaxLines,
	})
	defer s.Close()

	if err := s.Rediff(ctx, in); err != nil {
		return applyResult{}, err
	}
	if err := applyMode(s, opts.Apply); err != nil {
		return applyResult{}, fmt.Errorf("apply %s: %w", opts.Apply, err)
	}

	lines, remaining := s.Result(labelsFromConfig(cfg))
	out := content.Join(lines)
	if remaining == 0 && !markers.IsResolved(out) {
		glog.Warningf("%s: output contains marker-like lines from the inputs", opts.MergedPath)
	}
	if err := engine.WriteResult(opts.MergedPath, out, opts.Backup || cfg.Backup); err != nil {
		return applyResult{}, err
	}
	glog.Infof("wrote %s: %d hunks, %d unresolved", opts.MergedPath, s.ChangeCount(), remaining)
	return applyResult{Changes: s.ChangeCount(), Remaining: remaining, Written: true}, nil
}

func applyMode(s *engine.Session, mode string) error {
	if _, err := s.ApplyNonConflicting(engine.Base); err != nil {
		return err
	}
	switch mode {
	case cli.ApplyNonConflicting:
		return nil
	case cli.ApplyResolvable:
		_, err := s.ApplyResolvableConflicts()
		return err
	case cli.ApplyOurs:
		return forEachUnresolved(s, func(i int) error {
			return s.AcceptSide(i, engine.Left, true)
		})
	case cli.ApplyTheirs:
		return forEachUnresolved(s, func(i int) error {
			return s.AcceptSide(i, engine.Right, true)
		})
	case cli.ApplyBoth:
		for _, side := range []engine.Side{engine.Left, engine.Right} {
			if err := forEachUnresolved(s, func(i int) error {
				return s.AcceptSide(i, side, false)
			}); err != nil {
				return err
			}
		}
		return nil
	case cli.ApplyNone:
		return forEachUnresolved(s, func(i int) error {
			return s.IgnoreSide(i, engine.Left, true)
		})
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func forEachUnresolved(s *engine.Session, fn func(int) error) error {
	for _, ch := range s.Changes() {
		if ch.IsResolved() {
			continue
		}
		if err := fn(ch.Index()); err != nil {
			return err
		}
	}
	return nil
}

func labelsFromConfig(cfg config.Config) markers.Labels {
	return markers.Labels{Ours: cfg.Labels.Ours, Base: cfg.Labels.Base, Theirs: cfg.Labels.Theirs}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(opts cli.Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Ignore != "" {
		cfg.IgnorePolicy = opts.Ignore
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	if opts.Backup {
		cfg.Backup = true
	}
	return cfg, nil
}
