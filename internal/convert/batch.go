package convert

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sourceplane/jobwrecker/internal/render"
)

// configFile is the name Jenkins gives every job's configuration on disk
const configFile = "config.xml"

// ConvertDir converts every XML file below dir, running up to the configured
// number of workers at once. A failing file does not stop the others; the
// outcomes come back sorted by name.
func (c *Converter) ConvertDir(ctx context.Context, dir string) ([]render.Outcome, error) {
	files, err := xmlFiles(dir)
	if err != nil {
		return nil, err
	}
	return c.convertFiles(ctx, dir, files)
}

// ConvertChanged converts the XML files below dir that appear in changed,
// a list of absolute paths. Files outside dir or in skipped directories are
// ignored.
func (c *Converter) ConvertChanged(ctx context.Context, dir string, changed []string) ([]render.Outcome, error) {
	files, err := xmlFiles(dir)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(changed))
	for _, path := range changed {
		wanted[filepath.Clean(path)] = true
	}

	var selected []string
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		if wanted[abs] {
			selected = append(selected, path)
		}
	}
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"dir":     dir,
		"changed": len(selected),
		"total":   len(files),
	}).Info("Selected changed configurations")

	return c.convertFiles(ctx, dir, selected)
}

func (c *Converter) convertFiles(ctx context.Context, dir string, files []string) ([]render.Outcome, error) {
	outcomes := make([]render.Outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, path := range files {
		name := NameFor(dir, path)
		if c.Ignored(name) {
			outcomes[i] = render.Outcome{Name: name}
			c.logger.WithContext(ctx).WithField("name", name).Info("Ignoring configuration as requested")
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = c.ConvertFile(gctx, path, name, Detect)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := outcomes[:0]
	for _, o := range outcomes {
		if o.Path != "" || o.Err != nil {
			kept = append(kept, o)
		}
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].Name < kept[b].Name })
	return kept, nil
}

// NameFor derives a configuration name from its path below dir. Files laid
// out like a Jenkins home (jobs/<name>/config.xml, with folders nesting
// further jobs/ directories) are named after their job; any other XML file is
// named after its path without the extension.
func NameFor(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)

	if filepath.Base(rel) != configFile {
		return strings.TrimSuffix(rel, filepath.Ext(rel))
	}

	if rel == configFile {
		return filepath.Base(filepath.Clean(dir))
	}
	parts := strings.Split(strings.TrimSuffix(rel, "/"+configFile), "/")
	var name []string
	for i, part := range parts {
		if part == "jobs" && i < len(parts)-1 {
			continue
		}
		name = append(name, part)
	}
	return strings.Join(name, "/")
}

func xmlFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Build records, workspaces and maven module data are not configuration
			switch d.Name() {
			case "builds", "workspace", "modules":
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no XML files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}
