package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/chojs23/threeway/internal/cli"
	"github.com/chojs23/threeway/internal/config"
	"github.com/chojs23/threeway/internal/engine"
	"github.com/chojs23/threeway/internal/gitutil"
	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/tui"
)

var errNoConflicts = errors.New("no conflicted files found")

func prepareInteractiveFromRepo(ctx context.Context, opts *cli.Options, cfg config.Config) (func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	repoRoot, err := gitutil.RepoRoot(ctx, cwd)
	if err != nil {
		return nil, err
	}

	scope, err := filepath.Rel(repoRoot, cwd)
	if err != nil {
		scope = "."
	}
	scope = filepath.ToSlash(scope)

	paths, err := gitutil.ListUnmergedFiles(ctx, repoRoot, scope)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errNoConflicts
	}

	selected, err := selectPathInteractive(ctx, repoRoot, paths, cfg)
	if err != nil {
		return nil, err
	}

	mergedPath := selected
	if !filepath.IsAbs(mergedPath) {
		mergedPath = filepath.Join(repoRoot, selected)
	}
	if _, err := os.Stat(mergedPath); err != nil {
		return nil, fmt.Errorf("cannot access merged file %s: %w", selected, err)
	}

	stages, err := gitutil.ReadStages(ctx, repoRoot, selected)
	if err != nil {
		return nil, err
	}
	if !stages.HasBase {
		fmt.Fprintf(os.Stderr, "Warning: base stage missing for %s; merging against an empty base.\n", selected)
	}

	stagePaths, cleanup, err := writeTempStages(filepath.Base(selected), [3][]byte{stages.Base, stages.Ours, stages.Theirs})
	if err != nil {
		return nil, err
	}

	opts.BasePath = stagePaths[0]
	opts.LocalPath = stagePaths[1]
	opts.RemotePath = stagePaths[2]
	opts.MergedPath = mergedPath

	return cleanup, nil
}

func selectPath(paths []string) (string, error) {
	if len(paths) == 1 {
		return paths[0], nil
	}

	fmt.Fprintln(os.Stdout, "Conflicted files:")
	for i, p := range paths {
		fmt.Fprintf(os.Stdout, "  %d) %s\n", i+1, p)
	}

	reader := bufio.NewReader(os.Stdin)
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprintf(os.Stdout, "Select a file to resolve [1-%d]: ", len(paths))
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read selection: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(paths) {
			fmt.Fprintln(os.Stdout, "Invalid selection.")
			continue
		}
		return paths[idx-1], nil
	}

	return "", fmt.Errorf("invalid selection")
}

func selectPathInteractive(ctx context.Context, repoRoot string, paths []string, cfg config.Config) (string, error) {
	if isInteractiveTTY() {
		candidates, err := buildFileCandidates(ctx, repoRoot, paths, cfg)
		if err != nil {
			return "", err
		}
		return tui.SelectFile(ctx, candidates, cfg)
	}
	return selectPath(paths)
}

func isInteractiveTTY() bool {
	return isTTY(os.Stdin) && isTTY(os.Stdout)
}

func isTTY(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// readStages is replaced in tests.
var readStages = gitutil.ReadStages

// buildFileCandidates reports, for every path, whether MERGED still holds
// conflict markers and how the index stages diff. Stages are read and diffed
// in parallel; a file that cannot be summarised is still listed.
func buildFileCandidates(ctx context.Context, repoRoot string, paths []string, cfg config.Config) ([]tui.FileCandidate, error) {
	candidates := make([]tui.FileCandidate, len(paths))
	for i, path := range paths {
		mergedPath := path
		if !filepath.IsAbs(mergedPath) {
			mergedPath = filepath.Join(repoRoot, path)
		}
		resolved, err := checkResolvedFile(mergedPath)
		if err != nil {
			return nil, fmt.Errorf("check resolved %s: %w", path, err)
		}
		candidates[i] = tui.FileCandidate{Path: path, Resolved: resolved}
	}

	d := linediff.Differ{Policy: cfg.Policy(), MaxLines: cfg.MaxLines}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			stages, err := readStages(gctx, repoRoot, c.Path)
			if err != nil {
				glog.Warningf("summarise %s: %v", c.Path, err)
				c.Err = err
				return nil
			}
			plan, err := engine.Compute(gctx, engine.SplitInput(stages.Base, stages.Ours, stages.Theirs), d)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				glog.Warningf("summarise %s: %v", c.Path, err)
				c.Err = err
				return nil
			}
			c.Hunks, c.Conflicts, c.Resolvable = plan.Summary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

var stageNames = [3]string{"base", "local", "remote"}

// writeTempStages writes base, local and remote contents to temp files named
// after the conflicted file.
func writeTempStages(name string, contents [3][]byte) ([3]string, func(), error) {
	var paths [3]string
	cleanup := func() {
		for _, p := range paths {
			if p != "" {
				os.Remove(p)
			}
		}
	}

	for i, data := range contents {
		f, err := os.CreateTemp("", fmt.Sprintf("threeway-%s-*-%s", stageNames[i], name))
		if err != nil {
			cleanup()
			return [3]string{}, nil, fmt.Errorf("create %s temp file: %w", stageNames[i], err)
		}
		paths[i] = f.Name()
		if _, err := f.Write(data); err != nil {
			f.Close()
			cleanup()
			return [3]string{}, nil, fmt.Errorf("write %s temp file: %w", stageNames[i], err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return [3]string{}, nil, fmt.Errorf("close %s temp file: %w", stageNames[i], err)
		}
	}
	return paths, cleanup, nil
}
