package registry

import (
	"errors"
	"fmt"

	"github.com/sourceplane/jobwrecker/internal/model"
)

// BuiltinSource names contributions made outside any plugin.
const BuiltinSource = "builtin"

// Builder collects components, handlers and project kinds. Any registration
// error is also remembered so Build refuses to produce a partial registry.
type Builder struct {
	components map[string]*component
	kinds      map[string]model.ProjectKind
	kindSource map[string]string
	source     string
	nextID     int
	errs       []error
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{
		components: make(map[string]*component),
		kinds:      make(map[string]model.ProjectKind),
		kindSource: make(map[string]string),
		source:     BuiltinSource,
	}
}

func (b *Builder) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// Component declares a conversion domain. Declaring the same name twice with
// different policies is an error.
func (b *Builder) Component(spec ComponentSpec) error {
	if spec.Name == "" {
		return b.fail(fmt.Errorf("component name cannot be empty"))
	}
	if existing, ok := b.components[spec.Name]; ok {
		if existing.spec.Lookup != spec.Lookup || existing.spec.Escalation != spec.Escalation {
			return b.fail(fmt.Errorf("component %q redeclared with a different policy", spec.Name))
		}
		return nil
	}
	b.components[spec.Name] = &component{spec: spec, entries: make(map[string]entry)}
	return nil
}

// Register binds a handler to a tag within a component. The tag is normalized
// with the component's rule, so both "hudson.tasks.Shell" and "shell" land on
// the same key.
func (b *Builder) Register(componentName, tag string, h Handler) error {
	b.nextID++
	return b.register(componentName, tag, h, b.nextID)
}

// RegisterKeys binds one handler to several tags, typically a tag and the
// class attribute value it appears with. An element matching more than one of
// these keys resolves to the handler instead of being ambiguous.
func (b *Builder) RegisterKeys(componentName string, h Handler, tags ...string) error {
	b.nextID++
	for _, tag := range tags {
		if err := b.register(componentName, tag, h, b.nextID); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) register(componentName, tag string, h Handler, id int) error {
	c, ok := b.components[componentName]
	if !ok {
		return b.fail(fmt.Errorf("cannot register %q: component %q is not declared", tag, componentName))
	}
	if h == nil {
		return b.fail(fmt.Errorf("cannot register %q in component %q: nil handler", tag, componentName))
	}

	key := c.spec.key(tag)
	if key == "" {
		return b.fail(fmt.Errorf("cannot register empty key in component %q", componentName))
	}
	if existing, ok := c.entries[key]; ok {
		return b.fail(&CollisionError{
			Component: componentName,
			Key:       key,
			Existing:  existing.source,
			Incoming:  b.source,
		})
	}

	c.entries[key] = entry{handler: h, source: b.source, id: id}
	return nil
}

// RegisterFunc registers a stateless conversion routine
func (b *Builder) RegisterFunc(componentName, tag string, f HandlerFunc) error {
	return b.Register(componentName, tag, f)
}

// ProjectKind maps a root tag, or a root class attribute value, to a kind.
func (b *Builder) ProjectKind(tag string, kind model.ProjectKind) error {
	if !kind.Valid() {
		return b.fail(fmt.Errorf("cannot register root %q: unknown project kind %q", tag, kind))
	}
	if source, ok := b.kindSource[tag]; ok {
		return b.fail(&CollisionError{Key: tag, Existing: source, Incoming: b.source})
	}
	b.kinds[tag] = kind
	b.kindSource[tag] = b.source
	return nil
}

// Use lets each plugin contribute, attributing its registrations to it.
func (b *Builder) Use(plugins ...Plugin) error {
	for _, p := range plugins {
		previous := b.source
		b.source = p.Name()
		err := p.Contribute(b)
		b.source = previous
		if err != nil {
			return fmt.Errorf("plugin %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Build freezes the collected tables into a Registry.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("failed to build registry: %w", errors.Join(b.errs...))
	}

	r := &Registry{
		components: make(map[string]*component, len(b.components)),
		kinds:      make(map[string]model.ProjectKind, len(b.kinds)),
		kindSource: make(map[string]string, len(b.kindSource)),
	}
	for name, c := range b.components {
		entries := make(map[string]entry, len(c.entries))
		for k, e := range c.entries {
			entries[k] = e
		}
		r.components[name] = &component{spec: c.spec, entries: entries}
	}
	for tag, kind := range b.kinds {
		r.kinds[tag] = kind
		r.kindSource[tag] = b.kindSource[tag]
	}
	return r, nil
}
