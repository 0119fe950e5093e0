// Package convert drives whole conversions: it parses configurations,
// translates them, renders the YAML and writes it to the output directories.
package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/render"
	"github.com/sourceplane/jobwrecker/internal/schema"
	"github.com/sourceplane/jobwrecker/internal/translate"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Converter turns configurations into job builder files. It is safe for
// concurrent use.
type Converter struct {
	translator *translate.Translator
	validator  *schema.Validator
	jobs       *render.Renderer
	views      *render.Renderer
	logger     ectologger.Logger
	workers    int
	ignore     map[string]bool
	flight     singleflight.Group
}

// NewConverter creates a converter writing below the directories of cfg.
// Output is checked against the document schema when cfg.Validate is set,
// in which case v must not be nil.
func NewConverter(t *translate.Translator, v *schema.Validator, logger ectologger.Logger, cfg *model.Config) *Converter {
	ignore := make(map[string]bool, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignore[name] = true
	}
	if !cfg.Validate {
		v = nil
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Converter{
		translator: t,
		validator:  v,
		jobs:       render.NewRenderer(cfg.OutputDir),
		views:      render.NewRenderer(cfg.ViewsOutputDir()),
		logger:     logger,
		workers:    workers,
		ignore:     ignore,
	}
}

// Origin says where a configuration came from. It decides the output
// directory, so a view and a job sharing a name never write the same file.
type Origin int

const (
	// Detect routes by the translated project kind. Used for files whose
	// origin is unknown.
	Detect Origin = iota
	// FromJob always writes to the jobs directory.
	FromJob
	// FromView always writes to the views directory, whatever the view type.
	FromView
)

func (o Origin) String() string {
	switch o {
	case FromJob:
		return "job"
	case FromView:
		return "view"
	}
	return "detect"
}

// Ignored reports whether name was excluded by configuration
func (c *Converter) Ignored(name string) bool {
	return c.ignore[name]
}

// ConvertFile converts the XML file at path under the given name
func (c *Converter) ConvertFile(ctx context.Context, path, name string, origin Origin) render.Outcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return render.Outcome{Name: name, Err: fmt.Errorf("failed to read %s: %w", path, err)}
	}
	return c.Convert(ctx, data, name, origin)
}

// Convert translates one configuration and writes the result. Views go to
// the views directory, everything else to the output directory; see Origin.
func (c *Converter) Convert(ctx context.Context, data []byte, name string, origin Origin) render.Outcome {
	outcome := render.Outcome{Name: name}

	root, err := xmltree.Parse(data)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	result, err := c.translator.Translate(ctx, root, name)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Kind = result.Kind
	outcome.Escapes = result.Escapes
	outcome.Skipped = result.Skipped

	out, err := render.Marshal(result.Document)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to render %s: %w", name, err)
		return outcome
	}
	if c.validator != nil {
		if err := c.validator.ValidateDocument(out); err != nil {
			outcome.Err = fmt.Errorf("rendered document for %s failed validation: %w", name, err)
			return outcome
		}
	}

	renderer := c.jobs
	if origin == FromView || (origin == Detect && result.Kind.IsView()) {
		renderer = c.views
	}
	outcome.Path, err = renderer.WriteRaw(name, out)
	if err != nil {
		outcome.Err = err
		outcome.Path = ""
		return outcome
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"name":    name,
		"kind":    string(result.Kind),
		"origin":  origin.String(),
		"path":    outcome.Path,
		"escapes": len(result.Escapes),
	}).Info("Converted configuration")
	return outcome
}

// Failures collects the errors of every failed outcome, or nil
func Failures(outcomes []render.Outcome) error {
	var result *multierror.Error
	for _, o := range outcomes {
		if o.Err != nil {
			result = multierror.Append(result, o.Err)
		}
	}
	return result.ErrorOrNil()
}
