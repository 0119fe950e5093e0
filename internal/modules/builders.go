package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

var copyArtifactSelectors = map[string]string{
	"StatusBuildSelector":        "last-successful",
	"LastCompletedBuildSelector": "last-completed",
	"SpecificBuildSelector":      "specific-build",
	"SavedBuildSelector":         "last-saved",
	"TriggeredBuildSelector":     "upstream-build",
	"PermalinkBuildSelector":     "permalink",
	"WorkspaceSelector":          "workspace-latest",
	"ParameterizedBuildSelector": "build-param",
	"DownstreamBuildSelector":    "downstream-build",
}

func registerBuilders(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"shell":            commandStep("shell"),
		"batchfile":        commandStep("batch"),
		"maven":            maven,
		"copyartifact":     copyArtifact,
		"buildnameupdater": buildNameUpdater,
		"systemgroovy":     systemGroovy,
		"groovy":           groovyScript,
		"triggerbuilder":   triggerBuilder,
	} {
		if err := b.RegisterFunc(Builders, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// commandStep handles Shell and BatchFile, which carry a single <command>.
func commandStep(key string) registry.HandlerFunc {
	return func(el *etree.Element, out *model.Seq) registry.Outcome {
		command := ""
		for _, child := range xmltree.Children(el) {
			switch child.Tag {
			case "command":
				command = xmltree.String(child)
			case "configuredLocalRules", "unstableReturn":
				// No JJB equivalent when empty.
				if len(xmltree.Children(child)) > 0 || strings.TrimSpace(xmltree.String(child)) != "" {
					return cannotHandle(child)
				}
			default:
				return cannotHandle(child)
			}
		}
		out.Append(item(key, command))
		return registry.Converted()
	}
}

func maven(el *etree.Element, out *model.Seq) registry.Outcome {
	target := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "targets":
			target.Set("goals", xmltree.Value(child))
		case "mavenName":
			target.Set("name", xmltree.Value(child))
		case "pom":
			target.Set("pom", xmltree.Value(child))
		case "properties":
			target.Set("properties", xmltree.Value(child))
		case "jvmOptions":
			target.Set("java-opts", xmltree.Value(child))
		case "usePrivateRepository":
			target.Set("private-repository", xmltree.IsTrue(child))
		case "settings":
			target.Set("settings", xmltree.Class(child))
		case "globalSettings":
			target.Set("global-settings", xmltree.Class(child))
		}
	}
	out.Append(item("maven-target", target))
	return registry.Converted()
}

func copyArtifact(el *etree.Element, out *model.Seq) registry.Outcome {
	copyartifact := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "project", "filter", "target":
			copyartifact.Set(child.Tag, xmltree.Value(child))
		case "excludes":
			copyartifact.Set("exclude-pattern", xmltree.Value(child))
		case "selector":
			selector := strings.TrimPrefix(xmltree.Class(child), "hudson.plugins.copyartifact.")
			which, ok := copyArtifactSelectors[selector]
			if !ok {
				return registry.Unsupported("unknown copyartifact selector %q", xmltree.Class(child))
			}
			copyartifact.Set("which-build", which)
		case "flatten", "optional":
			copyartifact.Set(child.Tag, xmltree.IsTrue(child))
		case "doNotFingerprintArtifacts":
			copyartifact.Set("do-not-fingerprint", xmltree.IsTrue(child))
		case "parameters":
			copyartifact.Set("parameter-filters", xmltree.Value(child))
		case "resultVariableSuffix":
			copyartifact.Set("result-var-suffix", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("copyartifact", copyartifact))
	return registry.Converted()
}

func buildNameUpdater(el *etree.Element, out *model.Seq) registry.Outcome {
	setter := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "buildName":
			setter.Set("name", xmltree.Value(child))
		case "macroTemplate":
			setter.Set("template", xmltree.Value(child))
		case "fromFile":
			setter.Set("file", xmltree.IsTrue(child))
		case "fromMacro":
			setter.Set("macro", xmltree.IsTrue(child))
		case "macroFirst":
			setter.Set("macro-first", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("build-name-setter", setter))
	return registry.Converted()
}

func systemGroovy(el *etree.Element, out *model.Seq) registry.Outcome {
	groovy := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "scriptSource", "source":
			switch xmltree.Normalize(xmltree.Class(child)) {
			case "stringscriptsource", "stringsystemscriptsource":
				if script := xmltree.Child(child, "command"); script != nil {
					groovy.Set("command", xmltree.String(script))
				}
				if script := xmltree.Child(child, "script"); script != nil {
					if inner := xmltree.Child(script, "script"); inner != nil {
						groovy.Set("command", xmltree.String(inner))
					}
					if sandbox := xmltree.Child(script, "sandbox"); sandbox != nil {
						groovy.Set("sandbox", xmltree.IsTrue(sandbox))
					}
				}
			case "filescriptsource":
				if file := xmltree.Child(child, "scriptFile"); file != nil {
					groovy.Set("file", xmltree.String(file))
				}
			default:
				return registry.Unsupported("unknown groovy script source %q", xmltree.Class(child))
			}
		case "bindings":
			groovy.Set("bindings", xmltree.Value(child))
		case "classpath":
			groovy.Set("class-path", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("system-groovy", groovy))
	return registry.Converted()
}

func groovyScript(el *etree.Element, out *model.Seq) registry.Outcome {
	groovy := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "scriptSource":
			switch xmltree.Normalize(xmltree.Class(child)) {
			case "stringscriptsource":
				if command := xmltree.Child(child, "command"); command != nil {
					groovy.Set("command", xmltree.String(command))
				}
			case "filescriptsource":
				if file := xmltree.Child(child, "scriptFile"); file != nil {
					groovy.Set("file", xmltree.String(file))
				}
			default:
				return registry.Unsupported("unknown groovy script source %q", xmltree.Class(child))
			}
		case "groovyName":
			groovy.Set("version", xmltree.Value(child))
		case "parameters":
			groovy.Set("parameters", xmltree.Value(child))
		case "scriptParameters":
			groovy.Set("script-parameters", xmltree.Value(child))
		case "properties":
			groovy.Set("properties", xmltree.Value(child))
		case "javaOpts":
			groovy.Set("java-opts", xmltree.Value(child))
		case "classPath", "classpath":
			groovy.Set("class-path", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("groovy", groovy))
	return registry.Converted()
}

// triggerBuilder converts blocking parameterized triggers into trigger-builds.
func triggerBuilder(el *etree.Element, out *model.Seq) registry.Outcome {
	configs := xmltree.FirstChild(el)
	if configs == nil || configs.Tag != "configs" {
		return registry.Malformed("expected a <configs> element")
	}

	builds := []any{}
	for _, cfg := range xmltree.Children(configs) {
		build := model.NewMapping()
		for _, setting := range xmltree.Children(cfg) {
			switch setting.Tag {
			case "projects":
				build.Set("project", xmltree.Value(setting))
			case "condition":
				build.Set("condition", xmltree.Value(setting))
			case "triggerWithNoParameters":
				build.Set("trigger-with-no-params", xmltree.IsTrue(setting))
			case "buildAllNodesWithLabel":
				build.Set("parameter-factories-all-nodes", xmltree.IsTrue(setting))
			case "block":
				build.Set("block", true)
				thresholds := model.NewMapping()
				for _, threshold := range xmltree.Children(setting) {
					name := xmltree.Child(threshold, "name")
					if name == nil {
						continue
					}
					switch threshold.Tag {
					case "buildStepFailureThreshold":
						thresholds.Set("build-step-failure", xmltree.String(name))
					case "unstableThreshold":
						thresholds.Set("unstable", xmltree.String(name))
					case "failureThreshold":
						thresholds.Set("failure", xmltree.String(name))
					}
				}
				if thresholds.Len() > 0 {
					build.Set("block-thresholds", thresholds)
				}
			case "configs":
				for _, sub := range xmltree.Children(setting) {
					switch xmltree.Normalize(sub.Tag) {
					case "predefinedbuildparameters":
						if props := xmltree.Child(sub, "properties"); props != nil {
							build.Set("predefined-parameters", xmltree.Value(props))
						}
					case "currentbuildparameters":
						build.Set("current-parameters", true)
					default:
						return cannotHandle(sub)
					}
				}
			default:
				return cannotHandle(setting)
			}
		}
		builds = append(builds, build)
	}
	out.Append(item("trigger-builds", builds))
	return registry.Converted()
}
