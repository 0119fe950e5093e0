// Package registry holds the handler tables and the dispatcher that routes
// XML elements to them.
package registry

import (
	"reflect"
	"sort"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Lookup is the order in which an element's keys are tried.
type Lookup int

const (
	// TagFirst tries the tag key, then the class key.
	TagFirst Lookup = iota
	// ClassFirst tries the class key, then the tag key.
	ClassFirst
	// TagOnly never consults the class attribute.
	TagOnly
)

func (l Lookup) String() string {
	switch l {
	case TagFirst:
		return "tag-first"
	case ClassFirst:
		return "class-first"
	case TagOnly:
		return "tag-only"
	}
	return "unknown"
}

// Escalation decides what happens when a component cannot convert an element.
type Escalation int

const (
	// Degrade keeps the subtree verbatim as a raw entry and carries on.
	Degrade Escalation = iota
	// Fatal aborts the translation of the whole job.
	Fatal
)

func (e Escalation) String() string {
	if e == Fatal {
		return "fatal"
	}
	return "degrade"
}

// ComponentSpec declares a conversion domain.
type ComponentSpec struct {
	Name       string
	Lookup     Lookup
	Escalation Escalation
	// Normalize derives lookup keys; xmltree.Normalize when nil.
	Normalize func(string) string
}

func (s ComponentSpec) key(name string) string {
	if s.Normalize != nil {
		return s.Normalize(name)
	}
	return xmltree.Normalize(name)
}

type entry struct {
	handler Handler
	source  string
	id      int // shared by keys registered together
}

// same reports whether two entries resolve to one handler: registered
// together, or the same comparable handler value registered twice.
func (e entry) same(other entry) bool {
	if e.id == other.id {
		return true
	}
	t := reflect.TypeOf(e.handler)
	return t == reflect.TypeOf(other.handler) && t.Comparable() && e.handler == other.handler
}

type component struct {
	spec    ComponentSpec
	entries map[string]entry
}

// Registry is the immutable handler catalogue produced by Builder.Build.
type Registry struct {
	components map[string]*component
	kinds      map[string]model.ProjectKind
	kindSource map[string]string
}

// Component returns the declaration of a component
func (r *Registry) Component(name string) (ComponentSpec, bool) {
	c, ok := r.components[name]
	if !ok {
		return ComponentSpec{}, false
	}
	return c.spec, true
}

// Components returns the component names, sorted
func (r *Registry) Components() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the registered keys of a component, sorted
func (r *Registry) Keys(component string) []string {
	c, ok := r.components[component]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the handler registered under an already-normalized key
func (r *Registry) Lookup(component, key string) (Handler, bool) {
	c, ok := r.components[component]
	if !ok {
		return nil, false
	}
	e, ok := c.entries[key]
	return e.handler, ok
}

// Source returns the name of the contribution that registered a key
func (r *Registry) Source(component, key string) string {
	if c, ok := r.components[component]; ok {
		return c.entries[key].source
	}
	return ""
}

// Resolve finds the handler for el in a component following the component's
// lookup order. The returned key is the one that matched. A nil handler with
// a nil error means nothing is registered for the element.
func (r *Registry) Resolve(componentName string, el *etree.Element) (Handler, string, error) {
	c, ok := r.components[componentName]
	if !ok {
		return nil, "", nil
	}

	tagKey := c.spec.key(el.Tag)
	classKey := ""
	if c.spec.Lookup != TagOnly {
		if class := xmltree.Class(el); class != "" {
			classKey = c.spec.key(class)
		}
	}

	tagEntry, tagOK := c.entries[tagKey]
	classEntry, classOK := c.entries[classKey]
	if classKey == "" {
		classOK = false
	}

	if tagOK && classOK && tagKey != classKey && !tagEntry.same(classEntry) {
		return nil, "", &AmbiguousHandlerError{
			Component: componentName,
			Tag:       el.Tag,
			TagKey:    tagKey,
			ClassKey:  classKey,
		}
	}

	switch {
	case c.spec.Lookup == ClassFirst && classOK:
		return classEntry.handler, classKey, nil
	case tagOK:
		return tagEntry.handler, tagKey, nil
	case classOK:
		return classEntry.handler, classKey, nil
	}
	return nil, tagKey, nil
}

// ProjectKinds returns a copy of the root tag to project kind table
func (r *Registry) ProjectKinds() map[string]model.ProjectKind {
	kinds := make(map[string]model.ProjectKind, len(r.kinds))
	for tag, kind := range r.kinds {
		kinds[tag] = kind
	}
	return kinds
}

// KindSource returns the name of the contribution that registered a root tag
func (r *Registry) KindSource(tag string) string {
	return r.kindSource[tag]
}

// KindOf classifies a root element by its tag, then by its class attribute.
func (r *Registry) KindOf(root *etree.Element) (model.ProjectKind, bool) {
	if kind, ok := r.kinds[root.Tag]; ok {
		return kind, true
	}
	if class := xmltree.Class(root); class != "" {
		if kind, ok := r.kinds[class]; ok {
			return kind, true
		}
	}
	return model.KindUnsupported, false
}
