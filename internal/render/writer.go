package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Renderer writes rendered documents below an output directory
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer writing into dir
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Dir returns the output directory
func (r *Renderer) Dir() string {
	return r.dir
}

// Path returns where the document for name is written. Folder-qualified
// names ("team/app") become nested directories.
func (r *Renderer) Path(name string) string {
	name = strings.Trim(filepath.ToSlash(name), "/")
	return filepath.Join(r.dir, filepath.FromSlash(name)+".yml")
}

// Write renders doc and writes it for name, returning the file path
func (r *Renderer) Write(name string, doc any) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return r.WriteRaw(name, data)
}

// WriteRaw writes already rendered YAML for name
func (r *Renderer) WriteRaw(name string, data []byte) (string, error) {
	path := r.Path(name)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := AtomicWrite(path, data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// AtomicWrite writes content through a temporary file in the target
// directory, checks it reads back as YAML and renames it into place.
func AtomicWrite(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jobwrecker-tmp-*.yml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		// Clean up temp file on any failure
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	var v any
	if err := yaml.Unmarshal(written, &v); err != nil {
		return fmt.Errorf("yaml validation failed: %w", err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
