// Package translate turns the root element of a job or view configuration
// into a job builder document.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/modules"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Result is the outcome of translating one configuration
type Result struct {
	Name     string
	Kind     model.ProjectKind
	Document []any
	Escapes  []registry.Escape
	Skipped  []registry.Skip
}

// Entry returns the job or view mapping of the document
func (r *Result) Entry() *model.Mapping {
	if len(r.Document) == 0 {
		return nil
	}
	wrapper, ok := r.Document[0].(*model.Mapping)
	if !ok {
		return nil
	}
	for _, key := range wrapper.Keys() {
		v, _ := wrapper.Get(key)
		if m, ok := v.(*model.Mapping); ok {
			return m
		}
	}
	return nil
}

// Options controls a Translator
type Options struct {
	// SkipTags lists top-level tags that are dropped with a warning instead
	// of failing the job.
	SkipTags []string
	// IgnoreActions is shorthand for skipping a non-empty <actions>.
	IgnoreActions bool
}

// Translator converts configurations against an immutable registry. It is
// safe for concurrent use; each call gets its own dispatcher.
type Translator struct {
	registry *registry.Registry
	logger   ectologger.Logger
	options  Options
}

// NewTranslator creates a translator
func NewTranslator(reg *registry.Registry, logger ectologger.Logger, opts Options) *Translator {
	return &Translator{registry: reg, logger: logger, options: opts}
}

// Translate converts root under the given name. The caller's tree is never
// modified. On error no document is returned.
func (t *Translator) Translate(ctx context.Context, root *etree.Element, name string) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("failed to translate %s: no root element", name)
	}
	logger := t.logger.WithContext(ctx).WithFields(map[string]any{
		"name": name,
		"root": root.Tag,
	})

	kind, ok := t.registry.KindOf(root)
	if !ok {
		return t.rawFallback(ctx, root, name)
	}

	if kind == model.KindPipeline && !concurrencyDeclared(root) {
		root = root.Copy()
		xmltree.AppendText(root, "concurrentBuild", "true")
	}

	d := registry.NewDispatcher(ctx, t.registry, t.logger, t.dispatchOptions()...)
	entry := model.NewMapping().Set("name", name)
	wrapper := "job"

	switch {
	case kind.IsView():
		wrapper = "view"
		items := &model.Seq{}
		if err := d.DispatchKey(modules.Views, string(kind), root, items); err != nil {
			return nil, fmt.Errorf("failed to translate view %s: %w", name, err)
		}
		if err := entry.Absorb(items.Items()); err != nil {
			return nil, fmt.Errorf("failed to translate view %s: %w", name, err)
		}
	case kind == model.KindFolder:
		entry.Set("project-type", string(kind))
	default:
		entry.Set("project-type", string(kind))
		items := &model.Seq{}
		for _, child := range xmltree.Children(root) {
			if err := d.Dispatch(modules.Handlers, child, items); err != nil {
				return nil, fmt.Errorf("failed to translate job %s: %w", name, err)
			}
		}
		if err := entry.Absorb(items.Items()); err != nil {
			return nil, fmt.Errorf("failed to translate job %s: %w", name, err)
		}
	}

	result := &Result{
		Name:     name,
		Kind:     kind,
		Document: []any{model.NewMapping().Set(wrapper, entry)},
		Escapes:  d.Escapes(),
		Skipped:  d.Skipped(),
	}
	logger.WithFields(map[string]any{
		"kind":    string(kind),
		"escapes": len(result.Escapes),
	}).Debug("Translated configuration")
	return result, nil
}

func (t *Translator) dispatchOptions() []registry.Option {
	skip := append([]string(nil), t.options.SkipTags...)
	if t.options.IgnoreActions {
		skip = append(skip, "actions")
	}
	if len(skip) == 0 {
		return nil
	}
	return []registry.Option{registry.WithSkipTags(skip...)}
}

// rawFallback wraps a configuration of an unknown kind verbatim so nothing
// is lost. Roots whose tag mentions maven are annotated as such.
func (t *Translator) rawFallback(ctx context.Context, root *etree.Element, name string) (*Result, error) {
	raw, err := xmltree.Serialize(root)
	if err != nil {
		return nil, fmt.Errorf("failed to translate %s: %w", name, err)
	}

	kind := model.KindUnsupported
	entry := model.NewMapping().Set("name", name)
	if strings.Contains(root.Tag, "maven") {
		kind = model.KindMaven
		entry.Set("project-type", string(kind))
	}
	entry.Set("xml", model.NewMapping().Set(model.RawKey, model.NewMapping().Set("xml", raw)))

	t.logger.WithContext(ctx).WithFields(map[string]any{
		"name": name,
		"root": root.Tag,
	}).Warn("Project type not supported, keeping configuration as raw XML")

	return &Result{
		Name:     name,
		Kind:     kind,
		Document: []any{model.NewMapping().Set("job", entry)},
		Escapes:  []registry.Escape{{Tag: root.Tag, Reason: "project type not supported"}},
	}, nil
}

// concurrencyDeclared reports whether a pipeline states its concurrency,
// either through DisableConcurrentBuildsJobProperty or an explicit
// <concurrentBuild>.
func concurrencyDeclared(root *etree.Element) bool {
	if xmltree.Child(root, "concurrentBuild") != nil {
		return true
	}
	for _, props := range root.SelectElements("properties") {
		for _, prop := range xmltree.Children(props) {
			if xmltree.NormalizeLoose(prop.Tag) == "disableconcurrentbuildsjobproperty" {
				return true
			}
		}
	}
	return false
}
