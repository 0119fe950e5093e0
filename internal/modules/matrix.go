package modules

import (
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

var touchstoneResults = map[string]string{
	"SUCCESS":  "stable",
	"UNSTABLE": "unstable",
}

func registerAxes(b *registry.Builder) error {
	for tag, kind := range map[string]string{
		"labelaxis":    "slave",
		"labelexpaxis": "label-expression",
		"textaxis":     "user-defined",
		"jdkaxis":      "jdk",
		"pythonaxis":   "python",
	} {
		if err := b.RegisterFunc(Axes, tag, axis(kind)); err != nil {
			return err
		}
	}
	return nil
}

// axis converts a matrix axis with a <name> and a <values> list.
func axis(kind string) registry.HandlerFunc {
	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		a := model.NewMapping().Set("type", kind)
		for _, child := range xmltree.Children(el) {
			switch child.Tag {
			case "name":
				a.Set("name", xmltree.Value(child))
			case "values":
				values := []any{}
				for _, v := range xmltree.Children(child) {
					values = append(values, xmltree.Value(v))
				}
				a.Set("values", values)
			default:
				return cannotHandle(child)
			}
		}
		out.Append(item("axis", a))
		return registry.Converted()
	}
}

// executionStrategyTranslator builds the execution-strategy mapping. The two
// touchstone settings arrive separately and are folded into one mapping.
type executionStrategyTranslator struct{}

func (executionStrategyTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	items := &model.Seq{}
	for _, child := range xmltree.Children(el) {
		if err := d.Dispatch(ExecutionStrategy, child, items); err != nil {
			return registry.Propagate(err)
		}
	}

	strategy := model.NewMapping()
	touchstone := model.NewMapping()
	var rest []any
	for _, it := range items.Items() {
		if pair, ok := it.(model.Pair); ok && pair.Key == "touchstone" {
			if m, ok := pair.Value.(*model.Mapping); ok {
				for _, k := range m.Keys() {
					v, _ := m.Get(k)
					touchstone.Set(k, v)
				}
				continue
			}
		}
		rest = append(rest, it)
	}
	if err := strategy.Absorb(rest); err != nil {
		return registry.Malformed("%v", err)
	}
	if touchstone.Len() > 0 {
		strategy.Set("touchstone", touchstone)
	}

	out.Append(model.Pair{Key: "execution-strategy", Value: strategy})
	return registry.Converted()
}

func registerExecutionStrategy(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"runsequentially":             strictBoolField("run-sequentially"),
		"sorter":                      ignore,
		"touchstonecombinationfilter": touchstoneFilter,
		"touchstoneresultcondition":   touchstoneResult,
	} {
		if err := b.RegisterFunc(ExecutionStrategy, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func touchstoneFilter(el *etree.Element, out *model.Seq) registry.Outcome {
	out.Append(model.Pair{Key: "touchstone", Value: item("expr", xmltree.Value(el))})
	return registry.Converted()
}

func touchstoneResult(el *etree.Element, out *model.Seq) registry.Outcome {
	name := xmltree.Child(el, "name")
	if name == nil {
		return registry.Malformed("touchstone result condition has no <name>")
	}
	result, ok := touchstoneResults[xmltree.String(name)]
	if !ok {
		return registry.Unsupported("touchstone result %q", xmltree.String(name))
	}
	out.Append(model.Pair{Key: "touchstone", Value: item("result", result)})
	return registry.Converted()
}
