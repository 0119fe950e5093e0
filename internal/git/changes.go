// Package git finds configuration files changed in a git working tree.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ChangeDetector lists files that differ from a base ref
type ChangeDetector struct {
	baseRef string // ref to compare against (e.g. "main", "origin/develop")
	dir     string // any directory inside the working tree
}

// NewChangeDetector creates a detector for the working tree containing dir.
// An empty baseRef compares against main.
func NewChangeDetector(dir, baseRef string) *ChangeDetector {
	if baseRef == "" {
		baseRef = "main"
	}
	return &ChangeDetector{baseRef: baseRef, dir: dir}
}

// ChangedFiles returns the absolute paths of files that are modified, staged,
// untracked or committed since the base ref. Deleted files are left out.
func (cd *ChangeDetector) ChangedFiles(ctx context.Context) ([]string, error) {
	top, err := cd.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git working tree: %w", err)
	}
	root := strings.TrimSpace(top)

	files := make(map[string]bool)
	collect := func(output string) {
		for _, f := range strings.Split(output, "\n") {
			if f = strings.TrimSpace(f); f != "" {
				files[filepath.Join(root, filepath.FromSlash(f))] = true
			}
		}
	}

	// Working tree and index
	for _, args := range [][]string{
		{"diff", "--name-only", "--diff-filter=d"},
		{"diff", "--cached", "--name-only", "--diff-filter=d"},
		{"ls-files", "--others", "--exclude-standard", "--full-name"},
	} {
		out, err := cd.git(ctx, args...)
		if err != nil {
			return nil, err
		}
		collect(out)
	}

	// Commits not in the base ref. In CI the base often only exists as a
	// remote branch, and in a detached HEAD only the merge base resolves.
	out, err := cd.diffAgainstBase(ctx)
	if err != nil {
		return nil, err
	}
	collect(out)

	result := make([]string, 0, len(files))
	for f := range files {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// ChangedFilesUnder returns the changed files below path
func (cd *ChangeDetector) ChangedFilesUnder(ctx context.Context, path string) ([]string, error) {
	files, err := cd.ChangedFiles(ctx)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	var result []string
	for _, file := range files {
		if file == abs || strings.HasPrefix(file, abs+string(filepath.Separator)) {
			result = append(result, file)
		}
	}
	return result, nil
}

func (cd *ChangeDetector) diffAgainstBase(ctx context.Context) (string, error) {
	for _, ref := range []string{cd.baseRef, "origin/" + cd.baseRef} {
		if out, err := cd.git(ctx, "diff", "--name-only", "--diff-filter=d", ref); err == nil {
			return out, nil
		}
	}

	for _, args := range [][]string{
		{"merge-base", "--fork-point", cd.baseRef},
		{"merge-base", "HEAD", cd.baseRef},
		{"merge-base", "HEAD", "origin/" + cd.baseRef},
	} {
		base, err := cd.git(ctx, args...)
		if err != nil {
			continue
		}
		return cd.git(ctx, "diff", "--name-only", "--diff-filter=d", strings.TrimSpace(base))
	}
	return "", fmt.Errorf("base ref %s not found", cd.baseRef)
}

func (cd *ChangeDetector) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = cd.dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
