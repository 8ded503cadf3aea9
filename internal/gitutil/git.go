// Package gitutil reads conflicted files and their index stages from git.
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/golang/glog"
)

// Index stages of a conflicted path.
const (
	StageBase   = 1
	StageOurs   = 2
	StageTheirs = 3
)

// Stages holds the three inputs of a conflicted path. HasBase is false when
// both sides added the path and git has no common ancestor for it.
type Stages struct {
	Base    []byte
	Ours    []byte
	Theirs  []byte
	HasBase bool
}

func git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return output, nil
}

// RepoRoot returns the repository root directory for the given working directory.
func RepoRoot(ctx context.Context, cwd string) (string, error) {
	output, err := git(ctx, cwd, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	root := strings.TrimSpace(string(output))
	if root == "" {
		return "", errors.New("git rev-parse returned empty repo root")
	}
	return root, nil
}

// ListUnmergedFiles returns repo-relative paths of conflicted files under scopePathspec.
func ListUnmergedFiles(ctx context.Context, repoRoot string, scopePathspec string) ([]string, error) {
	pathspec := scopePathspec
	if pathspec == "" {
		pathspec = "."
	}

	output, err := git(ctx, repoRoot, "diff", "--name-only", "--diff-filter=U", "--", pathspec)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(string(output), "\n") {
		if p := strings.TrimSpace(line); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ShowStage reads a conflicted file content from the git index stage.
func ShowStage(ctx context.Context, repoRoot string, stage int, path string) ([]byte, error) {
	return git(ctx, repoRoot, "show", fmt.Sprintf(":%d:%s", stage, path))
}

// ReadStages reads every stage of path. Ours and theirs are required; a
// missing base leaves Stages.Base empty.
func ReadStages(ctx context.Context, repoRoot, path string) (Stages, error) {
	var st Stages
	var err error
	if st.Ours, err = ShowStage(ctx, repoRoot, StageOurs, path); err != nil {
		return Stages{}, fmt.Errorf("missing ours stage for %s: %w", path, err)
	}
	if st.Theirs, err = ShowStage(ctx, repoRoot, StageTheirs, path); err != nil {
		return Stages{}, fmt.Errorf("missing theirs stage for %s: %w", path, err)
	}
	base, err := ShowStage(ctx, repoRoot, StageBase, path)
	if err != nil {
		glog.V(1).Infof("gitutil: no base stage for %s: %v", path, err)
		return st, nil
	}
	st.Base, st.HasBase = base, true
	return st, nil
}
