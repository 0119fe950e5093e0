package modules

import (
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// ListTranslator dispatches every child of an element within Component and
// attaches the results to the caller as the list Field.
type ListTranslator struct {
	Component string
	Field     string
}

// Convert implements registry.Handler
func (t ListTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	items := &model.Seq{}
	for _, child := range xmltree.Children(el) {
		if err := d.Dispatch(t.Component, child, items); err != nil {
			return registry.Propagate(err)
		}
	}
	out.Append(model.Pair{Key: t.Field, Value: items.Items()})
	return registry.Converted()
}

// InlineTranslator dispatches every child within Component and passes the
// results straight through, so pairs land on the caller's mapping.
type InlineTranslator struct {
	Component string
}

// Convert implements registry.Handler
func (t InlineTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	for _, child := range xmltree.Children(el) {
		if err := d.Dispatch(t.Component, child, out); err != nil {
			return registry.Propagate(err)
		}
	}
	return registry.Converted()
}

// field emits a [key, value] pair
func field(key string, value any) registry.HandlerFunc {
	return func(_ *etree.Element, out *model.Seq) registry.Outcome {
		out.Append(model.Pair{Key: key, Value: value})
		return registry.Converted()
	}
}

// textField emits the element text under key; absent text becomes null.
func textField(key string) registry.HandlerFunc {
	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		out.Append(model.Pair{Key: key, Value: xmltree.Value(el)})
		return registry.Converted()
	}
}

// strictBoolField emits true only for the exact text "true".
func strictBoolField(key string) registry.HandlerFunc {
	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		out.Append(model.Pair{Key: key, Value: xmltree.IsTrue(el)})
		return registry.Converted()
	}
}

// boolField emits the element text coerced with the loose boolean rule.
func boolField(key string) registry.HandlerFunc {
	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		out.Append(model.Pair{Key: key, Value: xmltree.BoolOf(el)})
		return registry.Converted()
	}
}

// ignore accepts the element and contributes nothing
func ignore(_ *etree.Element, _ *model.Seq) registry.Outcome {
	return registry.Converted()
}

// marker emits a bare string entry, e.g. `- timestamps`.
func marker(name string) registry.HandlerFunc {
	return func(_ *etree.Element, out *model.Seq) registry.Outcome {
		out.Append(name)
		return registry.Converted()
	}
}

// item wraps a mapping as a one-key list entry, e.g. `- shell: ...`.
func item(key string, value any) *model.Mapping {
	return model.NewMapping().Set(key, value)
}

func cannotHandle(el *etree.Element) registry.Outcome {
	return registry.Unsupported("cannot handle XML %s", el.Tag)
}
