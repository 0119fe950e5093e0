package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

const parametersProperty = "parametersdefinitionproperty"

var (
	parameterTypes = map[string]string{
		"hudson.model.StringParameterDefinition":   "string",
		"hudson.model.BooleanParameterDefinition":  "bool",
		"hudson.model.ChoiceParameterDefinition":   "choice",
		"hudson.model.TextParameterDefinition":     "text",
		"hudson.model.PasswordParameterDefinition": "password",
	}
	slackProperty = map[string]string{
		"includeTestSummary":    "include-test-summary",
		"showCommitList":        "show-commit-list",
		"includeCustomMessage":  "include-custom-message",
		"startNotification":     "start-notification",
		"notifySuccess":         "notify-success",
		"notifyAborted":         "notify-aborted",
		"notifyNotBuilt":        "notify-not-built",
		"notifyUnstable":        "notify-unstable",
		"notifyFailure":         "notify-failure",
		"notifyBackToNormal":    "notify-back-to-normal",
		"notifyRepeatedFailure": "notify-repeated-failure",
	}
	discarderFields = Mapper{
		"daysToKeep":         {Name: "days-to-keep", Type: TypeInt},
		"numToKeep":          {Name: "num-to-keep", Type: TypeInt},
		"artifactDaysToKeep": {Name: "artifact-days-to-keep", Type: TypeInt},
		"artifactNumToKeep":  {Name: "artifact-num-to-keep", Type: TypeInt},
	}
	jobPermissions = map[string]string{
		"com.cloudbees.plugins.credentials.CredentialsProvider.Create":        "credentials-create",
		"com.cloudbees.plugins.credentials.CredentialsProvider.Delete":        "credentials-delete",
		"com.cloudbees.plugins.credentials.CredentialsProvider.ManageDomains": "credentials-manage-domains",
		"com.cloudbees.plugins.credentials.CredentialsProvider.Update":        "credentials-update",
		"com.cloudbees.plugins.credentials.CredentialsProvider.View":          "credentials-view",
		"hudson.model.Item.Build":                                             "job-build",
		"hudson.model.Item.Cancel":                                            "job-cancel",
		"hudson.model.Item.Configure":                                         "job-configure",
		"hudson.model.Item.Delete":                                            "job-delete",
		"hudson.model.Item.Discover":                                          "job-discover",
		"hudson.model.Item.ExtendedRead":                                      "job-extended-read",
		"hudson.model.Item.Move":                                              "job-move",
		"hudson.model.Item.Read":                                              "job-read",
		"hudson.model.Item.Workspace":                                         "job-workspace",
		"hudson.model.Run.Delete":                                             "run-delete",
		"hudson.model.Run.Replay":                                             "run-replay",
		"hudson.model.Run.Update":                                             "run-update",
		"hudson.scm.SCM.Tag":                                                  "scm-tag",
	}
)

// propertiesTranslator splits <properties> into the job's properties and
// parameters lists. Pairs contributed by property handlers are job-level
// settings and are passed through to the caller.
type propertiesTranslator struct{}

func (propertiesTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	properties, parameters := &model.Seq{}, &model.Seq{}
	for _, child := range xmltree.Children(el) {
		target := properties
		if xmltree.NormalizeLoose(child.Tag) == parametersProperty {
			target = parameters
		}
		if err := d.Dispatch(Properties, child, target); err != nil {
			return registry.Propagate(err)
		}
	}

	var props []any
	for _, p := range properties.Items() {
		if pair, ok := p.(model.Pair); ok {
			out.Append(pair)
			continue
		}
		props = append(props, p)
	}
	if props == nil {
		props = []any{}
	}

	out.Append(
		model.Pair{Key: "properties", Value: props},
		model.Pair{Key: "parameters", Value: parameters.Items()},
	)
	return registry.Converted()
}

func registerProperties(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"githubprojectproperty":              githubProject,
		parametersProperty:                   parameterDefinitions,
		"throttlejobproperty":                throttle,
		"slacknotifierslackjobproperty":      slackJobProperty,
		"builddiscarderproperty":             buildDiscarder,
		"authorizationmatrixproperty":        authorizationMatrix,
		"disableconcurrentbuildsjobproperty": field("concurrent", false),
		"rebuildsettings":                    rebuildSettings,
	} {
		if err := b.RegisterFunc(Properties, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func githubProject(el *etree.Element, out *model.Seq) registry.Outcome {
	github := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "projectUrl":
			github.Set("url", xmltree.Value(child))
		case "displayName":
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("github", github))
	return registry.Converted()
}

func parameterDefinitions(el *etree.Element, out *model.Seq) registry.Outcome {
	for _, defs := range xmltree.Children(el) {
		if defs.Tag != "parameterDefinitions" {
			return cannotHandle(defs)
		}
		for _, def := range xmltree.Children(defs) {
			kind, ok := parameterTypes[def.Tag]
			if !ok {
				return registry.Unsupported("unknown parameter definition %s", def.Tag)
			}

			settings := model.NewMapping()
			for _, setting := range xmltree.Children(def) {
				key := setting.Tag
				if key == "defaultValue" {
					key = "default"
				}

				text, present := xmltree.Text(setting)
				switch {
				case kind == "choice" && len(xmltree.Children(setting)) > 0:
					choices, outcome := parameterChoices(setting)
					if !outcome.OK() {
						return outcome
					}
					settings.Set(key, choices)
				case !present:
					settings.Set(key, "")
				case booleanSetting(kind, key):
					settings.Set(key, xmltree.Bool(text))
				default:
					settings.Set(key, text)
				}
			}
			out.Append(item(kind, settings))
		}
	}
	return registry.Converted()
}

// booleanSetting reports whether a parameter setting is boolean-typed. Every
// other setting keeps its text, even when it reads "true".
func booleanSetting(kind, key string) bool {
	return key == "trim" || (kind == "bool" && key == "default")
}

func parameterChoices(el *etree.Element) ([]any, registry.Outcome) {
	choices := []any{}
	for _, sub := range xmltree.Children(el) {
		if xmltree.Class(sub) != "string-array" {
			return nil, registry.Unsupported("unknown choice list %q", xmltree.Class(sub))
		}
		for _, choice := range xmltree.Children(sub) {
			choices = append(choices, xmltree.Value(choice))
		}
	}
	return choices, registry.Converted()
}

func throttle(el *etree.Element, out *model.Seq) registry.Outcome {
	t := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "maxConcurrentPerNode":
			t.Set("max-per-node", xmltree.Value(child))
		case "maxConcurrentTotal":
			t.Set("max-total", xmltree.Value(child))
		case "throttleOption":
			t.Set("option", xmltree.Value(child))
		case "throttleEnabled":
			t.Set("enabled", xmltree.BoolOf(child))
		case "categories":
			t.Set("categories", []any{})
		case "configVersion":
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("throttle", t))
	return registry.Converted()
}

func slackJobProperty(el *etree.Element, out *model.Seq) registry.Outcome {
	slack := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		if key, ok := slackProperty[child.Tag]; ok {
			slack.Set(key, xmltree.IsTrue(child))
			continue
		}
		switch child.Tag {
		case "teamDomain":
			slack.Set("team-domain", xmltree.Value(child))
		case "token":
			slack.Set("token", xmltree.Value(child))
		case "room":
			slack.Set("room", xmltree.Value(child))
		case "customMessage":
			slack.Set("custom-message", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("slack", slack))
	return registry.Converted()
}

func buildDiscarder(el *etree.Element, out *model.Seq) registry.Outcome {
	strategy := xmltree.FirstChild(el)
	if strategy == nil {
		return registry.Malformed("build discarder has no strategy")
	}

	discarder := model.NewMapping()
	for _, child := range xmltree.Children(strategy) {
		mapped, err := discarderFields.Map(child, discarder)
		if err != nil {
			return registry.Malformed("%v", err)
		}
		if !mapped {
			return cannotHandle(child)
		}
	}
	out.Append(item("build-discarder", discarder))
	return registry.Converted()
}

func authorizationMatrix(el *etree.Element, out *model.Seq) registry.Outcome {
	auth := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "permission":
			grant := strings.TrimSpace(xmltree.String(child))
			grant = strings.TrimPrefix(strings.TrimPrefix(grant, "USER:"), "GROUP:")
			id, user, ok := strings.Cut(grant, ":")
			if !ok {
				return registry.Malformed("permission %q has no user", grant)
			}
			perm, ok := jobPermissions[id]
			if !ok {
				return registry.Unsupported("unknown permission %s", id)
			}
			auth.MergePair(user, []any{perm})
		case "inheritanceStrategy", "blocksInheritance":
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("authorization", auth))
	return registry.Converted()
}

func rebuildSettings(el *etree.Element, out *model.Seq) registry.Outcome {
	rebuild := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "autoRebuild":
			rebuild.Set("auto-rebuild", xmltree.IsTrue(child))
		case "rebuildDisabled":
			rebuild.Set("rebuild-disabled", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("rebuild", rebuild))
	return registry.Converted()
}
