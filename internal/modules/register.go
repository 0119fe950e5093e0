// Package modules holds the built-in conversion handlers, one file per
// component, and the translators that walk nested configuration.
package modules

import (
	"fmt"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Component names
const (
	Handlers          = "handlers"
	Builders          = "builders"
	Publishers        = "publishers"
	Wrappers          = "buildwrappers"
	Triggers          = "triggers"
	Properties        = "properties"
	SCM               = "scm"
	Axes              = "axes"
	ExecutionStrategy = "executionstrategy"
	Definition        = "definition"
	Views             = "views"
	ListView          = "listview"
)

var components = []registry.ComponentSpec{
	{Name: Handlers, Lookup: registry.TagOnly, Escalation: registry.Fatal},
	{Name: Views, Lookup: registry.TagOnly, Escalation: registry.Fatal},
	{Name: Builders, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: Publishers, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: Wrappers, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: Triggers, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: Properties, Lookup: registry.TagFirst, Escalation: registry.Degrade, Normalize: xmltree.NormalizeLoose},
	{Name: SCM, Lookup: registry.ClassFirst, Escalation: registry.Degrade},
	{Name: Axes, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: ExecutionStrategy, Lookup: registry.TagFirst, Escalation: registry.Degrade},
	{Name: Definition, Lookup: registry.TagOnly, Escalation: registry.Degrade},
	{Name: ListView, Lookup: registry.TagOnly, Escalation: registry.Degrade},
}

var projectKinds = map[string]model.ProjectKind{
	"project":                                    model.KindFreestyle,
	"matrix-project":                             model.KindMatrix,
	"flow-definition":                            model.KindPipeline,
	"com.cloudbees.hudson.plugins.folder.Folder": model.KindFolder,
	"hudson.model.ListView":                      model.KindListView,
	"com.cloudbees.plugins.flow.BuildFlow":       model.KindFlow,
}

// Declare adds every built-in component to b. Plugins contributing handlers
// rely on the components being declared first.
func Declare(b *registry.Builder) error {
	for _, spec := range components {
		if err := b.Component(spec); err != nil {
			return fmt.Errorf("failed to declare component %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Builtin registers the built-in handlers and project kinds.
func Builtin(b *registry.Builder) error {
	for _, register := range []func(*registry.Builder) error{
		registerHandlers,
		registerBuilders,
		registerPublishers,
		registerWrappers,
		registerTriggers,
		registerProperties,
		registerSCM,
		registerAxes,
		registerExecutionStrategy,
		registerDefinition,
		registerViews,
		registerListView,
	} {
		if err := register(b); err != nil {
			return err
		}
	}

	for tag, kind := range projectKinds {
		if err := b.ProjectKind(tag, kind); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry builds the immutable catalogue from the built-in handlers, the
// process-wide plugins and any extra contributions. A colliding registration
// fails the build.
func NewRegistry(extra ...registry.Plugin) (*registry.Registry, error) {
	b := registry.NewBuilder()
	if err := Declare(b); err != nil {
		return nil, err
	}
	if err := Builtin(b); err != nil {
		return nil, fmt.Errorf("failed to register built-in handlers: %w", err)
	}

	plugins := append(registry.Plugins(), extra...)
	if err := b.Use(plugins...); err != nil {
		return nil, err
	}

	reg, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build handler registry: %w", err)
	}
	return reg, nil
}
