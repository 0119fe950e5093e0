package registry

import (
	"sort"
	"sync"
)

// Plugin contributes handlers and project kinds to a Builder.
type Plugin interface {
	Name() string
	Contribute(b *Builder) error
}

type pluginFunc struct {
	name string
	fn   func(*Builder) error
}

func (p pluginFunc) Name() string                { return p.name }
func (p pluginFunc) Contribute(b *Builder) error { return p.fn(b) }

// NewPlugin wraps a contribution function as a Plugin
func NewPlugin(name string, fn func(*Builder) error) Plugin {
	return pluginFunc{name: name, fn: fn}
}

var (
	pluginsMu sync.RWMutex
	plugins   = make(map[string]Plugin)
)

// RegisterPlugin makes a plugin available to every registry built with
// Plugins. It is meant to be called from init and panics when called twice
// with the same name or with a nil plugin.
func RegisterPlugin(p Plugin) {
	pluginsMu.Lock()
	defer pluginsMu.Unlock()
	if p == nil {
		panic("registry: RegisterPlugin plugin is nil")
	}
	if _, dup := plugins[p.Name()]; dup {
		panic("registry: RegisterPlugin called twice for plugin " + p.Name())
	}
	plugins[p.Name()] = p
}

// Plugins returns the registered plugins sorted by name
func Plugins() []Plugin {
	pluginsMu.RLock()
	defer pluginsMu.RUnlock()
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]Plugin, 0, len(names))
	for _, name := range names {
		list = append(list, plugins[name])
	}
	return list
}
