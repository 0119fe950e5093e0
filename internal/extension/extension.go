// Package extension turns declarative YAML extensions into registry plugins,
// so simple plugin elements can be supported without writing Go.
package extension

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/modules"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Handler shapes
const (
	ShapeItem   = "item"
	ShapePair   = "pair"
	ShapeMarker = "marker"
)

// Plugin wraps an extension so its handlers and project kinds can be
// contributed to a registry.Builder.
func Plugin(ext *model.Extension) registry.Plugin {
	return registry.NewPlugin(ext.Name, func(b *registry.Builder) error {
		for _, h := range ext.Handlers {
			handler, err := newHandler(h)
			if err != nil {
				return err
			}
			if err := b.RegisterFunc(h.Component, h.Tag, handler); err != nil {
				return err
			}
		}
		for _, k := range ext.ProjectKinds {
			if err := b.ProjectKind(k.Tag, k.Kind); err != nil {
				return err
			}
		}
		return nil
	})
}

// Plugins wraps every extension
func Plugins(exts []*model.Extension) []registry.Plugin {
	plugins := make([]registry.Plugin, 0, len(exts))
	for _, ext := range exts {
		plugins = append(plugins, Plugin(ext))
	}
	return plugins
}

func newHandler(h model.ExtensionHandler) (registry.HandlerFunc, error) {
	mapper := modules.Mapper{}
	for tag, f := range h.Fields {
		mapper[tag] = modules.Field{Name: f.Name, Type: modules.FieldType(f.Type)}
	}
	ignored := make(map[string]bool, len(h.Ignore))
	for _, tag := range h.Ignore {
		ignored[tag] = true
	}

	shape := h.Shape
	if shape == "" {
		shape = ShapeItem
	}
	switch shape {
	case ShapeItem, ShapePair, ShapeMarker:
	default:
		return nil, fmt.Errorf("handler %s/%s: unknown shape %q", h.Component, h.Tag, h.Shape)
	}

	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		if shape == ShapeMarker {
			out.Append(h.Key)
			return registry.Converted()
		}

		value, outcome := convert(el, mapper, ignored)
		if !outcome.OK() {
			return outcome
		}
		if shape == ShapePair {
			out.Append(model.Pair{Key: h.Key, Value: value})
		} else {
			out.Append(model.NewMapping().Set(h.Key, value))
		}
		return registry.Converted()
	}, nil
}

// convert maps the children of el field by field. A leaf element with no
// declared fields yields its text instead.
func convert(el *etree.Element, mapper modules.Mapper, ignored map[string]bool) (any, registry.Outcome) {
	children := xmltree.Children(el)
	if len(children) == 0 && len(mapper) == 0 {
		return xmltree.Value(el), registry.Converted()
	}

	fields := model.NewMapping()
	for _, child := range children {
		if ignored[child.Tag] {
			continue
		}
		mapped, err := mapper.Map(child, fields)
		if err != nil {
			return nil, registry.Malformed("%v", err)
		}
		if !mapped {
			return nil, registry.Unsupported("cannot handle XML %s", child.Tag)
		}
	}
	return fields, registry.Converted()
}
