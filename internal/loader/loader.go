package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/schema"
)

// DefaultConfigFile is read when no --config is given and it exists
const DefaultConfigFile = ".jobwrecker.yaml"

// Environment variables holding server credentials
const (
	EnvUsername = "JJW_USERNAME"
	EnvPassword = "JJW_PASSWORD"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads a run configuration on top of the defaults. An empty path
// falls back to DefaultConfigFile, and to the bare defaults when that file
// does not exist either. Credentials from the environment override the file.
func LoadConfig(path string) (*model.Config, error) {
	cfg := model.DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ApplyEnv(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv copies server credentials from the environment when set
func ApplyEnv(cfg *model.Config) {
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Server.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Server.Password = v
	}
}

// ValidateConfig checks the struct rules of a configuration
func ValidateConfig(cfg *model.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", validationError(cfg, err))
	}
	return nil
}

// validationError lists every failed field rule on its own line
func validationError(input any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msg := ""
	for _, fe := range verrs {
		msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.",
			input, fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
	return errors.New(msg)
}

// LoadExtension loads one handler extension file. The raw YAML is checked
// against the extension schema before it is decoded.
func LoadExtension(path string, v *schema.Validator) (*model.Extension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read extension file: %w", err)
	}

	if v != nil {
		if err := v.ValidateExtension(data); err != nil {
			return nil, fmt.Errorf("extension %s failed schema validation: %w", path, err)
		}
	}

	var ext model.Extension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("failed to parse extension YAML: %w", err)
	}
	if err := validate.Struct(&ext); err != nil {
		return nil, fmt.Errorf("invalid extension %s: %w", path, validationError(&ext, err))
	}

	return &ext, nil
}

// LoadExtensions loads every extension found under the given paths.
// Supports glob patterns for recursive search:
//   - Exact file: loaded as is
//   - Exact directory: *.yaml and *.yml files directly inside it
//   - Path with *: every match is walked recursively
//
// Files are loaded in lexical order so registration order is stable.
func LoadExtensions(paths []string, v *schema.Validator) ([]*model.Extension, error) {
	files := make(map[string]bool)

	for _, p := range paths {
		found, err := extensionFiles(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			files[f] = true
		}
	}

	ordered := make([]string, 0, len(files))
	for f := range files {
		ordered = append(ordered, f)
	}
	sort.Strings(ordered)

	exts := make([]*model.Extension, 0, len(ordered))
	names := make(map[string]string)
	for _, f := range ordered {
		ext, err := LoadExtension(f, v)
		if err != nil {
			return nil, err
		}
		if other, ok := names[ext.Name]; ok {
			return nil, fmt.Errorf("extension %q defined in both %s and %s", ext.Name, other, f)
		}
		names[ext.Name] = f
		exts = append(exts, ext)
	}
	return exts, nil
}

func extensionFiles(path string) ([]string, error) {
	// Check if path contains glob patterns
	if strings.Contains(path, "*") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate glob pattern %s: %w", path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob pattern %s matched no extensions", path)
		}

		var files []string
		for _, match := range matches {
			// For recursive search, walk the directory tree
			err := filepath.Walk(match, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isYAML(p) {
					files = append(files, p)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to walk directory %s: %w", match, err)
			}
		}
		return files, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access extension path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	// Non-recursive: only files directly in the directory
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isYAML(entry.Name()) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, nil
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
