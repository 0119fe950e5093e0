package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sourceplane/jobwrecker/internal/render"
)

// Watch converts XML files below dir again whenever they are written, until
// ctx is cancelled. Events arriving for a file that is already being
// converted share that conversion. Every outcome is passed to report, which
// may be called from several goroutines at once.
func (c *Converter) Watch(ctx context.Context, dir string, report func(render.Outcome)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, dir); err != nil {
		return err
	}

	logger := c.logger.WithContext(ctx).WithField("dir", dir)
	logger.Info("Watching for configuration changes")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := watchTree(watcher, event.Name); err != nil {
					logger.WithError(err).Warn("Failed to watch new directory")
				}
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".xml") {
				continue
			}

			path := event.Name
			name := NameFor(dir, path)
			if c.Ignored(name) {
				continue
			}
			logger.WithFields(map[string]any{
				"event": event.Op.String(),
				"file":  path,
			}).Debug("Configuration changed")

			wg.Add(1)
			go func() {
				defer wg.Done()
				v, _, _ := c.flight.Do(path, func() (any, error) {
					return c.ConvertFile(ctx, path, name, Detect), nil
				})
				report(v.(render.Outcome))
			}()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("Watcher error")
		}
	}
}

func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
