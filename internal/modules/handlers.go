package modules

import (
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// registerHandlers fills the top-level per-job routing table.
func registerHandlers(b *registry.Builder) error {
	leaves := map[string]registry.HandlerFunc{
		"actions":                          actions,
		"authtoken":                        textField("auth-token"),
		"description":                      textField("description"),
		"keepdependencies":                 ignore,
		"canroam":                          ignore,
		"disabled":                         strictBoolField("disabled"),
		"blockbuildwhendownstreambuilding": strictBoolField("block-downstream"),
		"blockbuildwhenupstreambuilding":   strictBoolField("block-upstream"),
		"concurrentbuild":                  strictBoolField("concurrent"),
		"combinationfilter":                textField("combination-filter"),
		"assignednode":                     textField("node"),
		"displayname":                      textField("display-name"),
		"quietperiod":                      textField("quiet-period"),
		"scmcheckoutretrycount":            textField("retry-count"),
		"customworkspace":                  textField("workspace"),
		"childcustomworkspace":             textField("child-workspace"),
		"jdk":                              textField("jdk"),
		"logrotator":                       logRotator,
		"dsl":                              textField("dsl"),
		"buildneedsworkspace":              strictBoolField("needs-workspace"),
	}
	for tag, fn := range leaves {
		if err := b.RegisterFunc(Handlers, tag, fn); err != nil {
			return err
		}
	}

	translators := map[string]registry.Handler{
		"builders":          ListTranslator{Component: Builders, Field: "builders"},
		"publishers":        ListTranslator{Component: Publishers, Field: "publishers"},
		"buildwrappers":     ListTranslator{Component: Wrappers, Field: "wrappers"},
		"triggers":          ListTranslator{Component: Triggers, Field: "triggers"},
		"axes":              ListTranslator{Component: Axes, Field: "axes"},
		"executionstrategy": executionStrategyTranslator{},
		"properties":        propertiesTranslator{},
		"scm":               scmTranslator{},
		"definition":        definitionTranslator{},
	}
	for tag, h := range translators {
		if err := b.Register(Handlers, tag, h); err != nil {
			return err
		}
	}
	return nil
}

// actions accepts only an empty <actions/> element.
func actions(el *etree.Element, _ *model.Seq) registry.Outcome {
	if len(xmltree.Children(el)) > 0 {
		return registry.Unsupported("don't know how to handle a non-empty <actions> element")
	}
	return registry.Converted()
}

func logRotator(el *etree.Element, out *model.Seq) registry.Outcome {
	logrotate := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "daysToKeep", "numToKeep", "artifactDaysToKeep", "artifactNumToKeep":
			logrotate.Set(child.Tag, xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(model.Pair{Key: "logrotate", Value: logrotate})
	return registry.Converted()
}
