package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

var (
	timeoutStrategies = map[string]string{
		"AbsoluteTimeOutStrategy":    "absolute",
		"DeadlineTimeOutStrategy":    "deadline",
		"ElasticTimeOutStrategy":     "elastic",
		"LikelyStuckTimeOutStrategy": "likely-stuck",
		"NoActivityTimeOutStrategy":  "no-activity",
	}
	timeoutStrategyFields = Mapper{
		"timeoutMinutes":               {Name: "timeout", Type: TypeInt},
		"timeoutSecondsString":         {Name: "timeout", Type: TypeInt},
		"timeoutMinutesElasticDefault": {Name: "elastic-default-timeout", Type: TypeInt},
		"timeoutPercentage":            {Name: "elastic-percentage", Type: TypeInt},
		"numberOfBuilds":               {Name: "elastic-number-builds", Type: TypeInt},
		"deadlineTime":                 {Name: "deadline-time"},
		"deadlineToleranceInMinutes":   {Name: "deadline-tolerance", Type: TypeInt},
		"failSafeTimeoutDuration":      {Name: "fail-safe-timeout"},
	}
	timeoutOperations = map[string]string{
		"BuildTimeOutOperation$Fail":  "fail",
		"BuildTimeOutOperation$Abort": "abort",
		"FailOperation":               "fail",
		"AbortOperation":              "abort",
		"WriteDescriptionOperation":   "write-description",
	}

	xvfbFields = Mapper{
		"installationName":  {Name: "installation-name"},
		"autoDisplayName":   {Name: "auto-display-name", Type: TypeBool},
		"displayName":       {Name: "display-name", Type: TypeInt},
		"assignedLabels":    {Name: "assigned-labels"},
		"parallelBuild":     {Name: "parallel-build", Type: TypeBool},
		"timeout":           {Name: "timeout", Type: TypeInt},
		"screen":            {Name: "screen"},
		"displayNameOffset": {Name: "display-name-offset", Type: TypeInt},
		"additionalOptions": {Name: "additional-options"},
		"debug":             {Name: "debug", Type: TypeBool},
		"shutdownWithBuild": {Name: "shutdown-with-build", Type: TypeBool},
	}

	credentialBindings = map[string]string{
		"ZipFileBinding":                      "zip-file",
		"FileBinding":                         "file",
		"UsernamePasswordBinding":             "username-password",
		"UsernamePasswordMultiBinding":        "username-password-separated",
		"StringBinding":                       "text",
		"AmazonWebServicesCredentialsBinding": "amazon-web-services",
		"SSHUserPrivateKeyBinding":            "ssh-user-private-key",
		"CertificateMultiBinding":             "cert-multi",
	}
	credentialBindingFields = map[string]string{
		"credentialsId":      "credential-id",
		"variable":           "variable",
		"usernameVariable":   "username",
		"passwordVariable":   "password",
		"accessKeyVariable":  "access-key",
		"secretKeyVariable":  "secret-key",
		"keyFileVariable":    "key-file-variable",
		"passphraseVariable": "passphrase-variable",
		"aliasVariable":      "alias-variable",
	}
)

func registerWrappers(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"envinjectpasswordwrapper":  envInjectPasswords,
		"envinjectbuildwrapper":     envInject,
		"buildtimeoutwrapper":       buildTimeout,
		"ansicolorbuildwrapper":     ansiColor,
		"sshagentbuildwrapper":      sshAgent,
		"buildnamesetter":           buildNameSetter,
		"timestamperbuildwrapper":   marker("timestamps"),
		"prebuildcleanup":           preBuildCleanup,
		"xvfbbuildwrapper":          xvfb,
		"maskpasswordsbuildwrapper": marker("mask-passwords"),
		"secretbuildwrapper":        credentialsBinding,
	} {
		if err := b.RegisterFunc(Wrappers, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func envInjectPasswords(el *etree.Element, out *model.Seq) registry.Outcome {
	inject := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "injectGlobalPasswords":
			inject.Set("global", xmltree.IsTrue(child))
		case "maskPasswordParameters":
			inject.Set("mask-password-params", xmltree.IsTrue(child))
		case "passwordEntries":
			if len(xmltree.Children(child)) > 0 {
				return registry.Unsupported("password entries cannot be expressed in YAML")
			}
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("inject", inject))
	return registry.Converted()
}

func envInject(el *etree.Element, out *model.Seq) registry.Outcome {
	inject := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		if child.Tag != "info" {
			return cannotHandle(child)
		}
		for _, setting := range xmltree.Children(child) {
			switch setting.Tag {
			case "propertiesFilePath":
				inject.Set("properties-file", xmltree.Value(setting))
			case "propertiesContent":
				inject.Set("properties-content", xmltree.Value(setting))
			case "scriptFilePath":
				inject.Set("script-file", xmltree.Value(setting))
			case "scriptContent":
				inject.Set("script-content", xmltree.Value(setting))
			case "loadFilesFromMaster":
				inject.Set("load-from-master", xmltree.IsTrue(setting))
			case "secureGroovyScript":
				if script := xmltree.Child(setting, "script"); script != nil && xmltree.String(script) != "" {
					inject.Set("groovy-content", xmltree.String(script))
				}
				if sandbox := xmltree.Child(setting, "sandbox"); sandbox != nil {
					inject.Set("groovy-sandbox", xmltree.IsTrue(sandbox))
				}
			default:
				return cannotHandle(setting)
			}
		}
	}
	out.Append(item("inject", inject))
	return registry.Converted()
}

func buildTimeout(el *etree.Element, out *model.Seq) registry.Outcome {
	timeout := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "strategy":
			class := xmltree.Class(child)
			kind, ok := timeoutStrategies[class[strings.LastIndex(class, ".")+1:]]
			if !ok {
				return registry.Unsupported("unknown build-timeout strategy %q", class)
			}
			timeout.Set("type", kind)
			for _, setting := range xmltree.Children(child) {
				mapped, err := timeoutStrategyFields.Map(setting, timeout)
				if err != nil {
					return registry.Malformed("%v", err)
				}
				if !mapped {
					return registry.Unsupported("cannot handle build-timeout strategy setting %s", setting.Tag)
				}
			}
		case "operationList":
			for _, op := range xmltree.Children(child) {
				tag := op.Tag[strings.LastIndex(op.Tag, ".")+1:]
				action, ok := timeoutOperations[tag]
				if !ok {
					return registry.Unsupported("unknown build-timeout operation %s", op.Tag)
				}
				switch action {
				case "write-description":
					if desc := xmltree.Child(op, "description"); desc != nil {
						timeout.Set("write-description", xmltree.String(desc))
					}
				default:
					timeout.Set(action, true)
				}
			}
		case "timeoutEnvVar":
			timeout.Set("timeout-var", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("timeout", timeout))
	return registry.Converted()
}

func ansiColor(el *etree.Element, out *model.Seq) registry.Outcome {
	colormap := "xterm"
	if name := xmltree.Child(el, "colorMapName"); name != nil && xmltree.String(name) != "" {
		colormap = xmltree.String(name)
	}
	out.Append(item("ansicolor", model.NewMapping().Set("colormap", colormap)))
	return registry.Converted()
}

func sshAgent(el *etree.Element, out *model.Seq) registry.Outcome {
	users := []any{}
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "credentialIds":
			for _, id := range xmltree.Children(child) {
				users = append(users, xmltree.String(id))
			}
		case "user":
			users = append(users, xmltree.String(child))
		case "ignoreMissing":
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("ssh-agent-credentials", model.NewMapping().Set("users", users)))
	return registry.Converted()
}

func buildNameSetter(el *etree.Element, out *model.Seq) registry.Outcome {
	first := xmltree.FirstChild(el)
	if first == nil {
		return registry.Malformed("build name setter has no template")
	}
	out.Append(item("build-name", model.NewMapping().Set("name", xmltree.String(first))))
	return registry.Converted()
}

func preBuildCleanup(el *etree.Element, out *model.Seq) registry.Outcome {
	cleanup := model.NewMapping()
	include, exclude := []any{}, []any{}
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "deleteDirs":
			cleanup.Set("dirmatch", xmltree.BoolOf(child))
		case "patterns":
			for _, pattern := range xmltree.Children(child) {
				glob, kind := "", ""
				if p := xmltree.Child(pattern, "pattern"); p != nil {
					glob = xmltree.String(p)
				}
				if t := xmltree.Child(pattern, "type"); t != nil {
					kind = strings.ToLower(xmltree.String(t))
				}
				switch kind {
				case "include":
					include = append(include, glob)
				case "exclude":
					exclude = append(exclude, glob)
				default:
					return registry.Malformed("unknown workspace cleanup pattern type %q", kind)
				}
			}
		case "cleanupParameter":
			if text := xmltree.String(child); text != "" {
				cleanup.Set("check-parameter", text)
			}
		case "externalDelete":
			if text := xmltree.String(child); text != "" {
				cleanup.Set("external-deletion-command", text)
			}
		case "disableDeferredWipeout":
			cleanup.Set("disable-deferred-wipeout", xmltree.BoolOf(child))
		default:
			return cannotHandle(child)
		}
	}
	if len(include) > 0 {
		cleanup.Set("include", include)
	}
	if len(exclude) > 0 {
		cleanup.Set("exclude", exclude)
	}

	if cleanup.Len() == 0 {
		out.Append("workspace-cleanup")
	} else {
		out.Append(item("workspace-cleanup", cleanup))
	}
	return registry.Converted()
}

func xvfb(el *etree.Element, out *model.Seq) registry.Outcome {
	settings := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		mapped, err := xvfbFields.Map(child, settings)
		if err != nil {
			return registry.Malformed("%v", err)
		}
		if !mapped {
			return cannotHandle(child)
		}
	}
	out.Append(item("xvfb", settings))
	return registry.Converted()
}

func credentialsBinding(el *etree.Element, out *model.Seq) registry.Outcome {
	bindings := []any{}
	for _, child := range xmltree.Children(el) {
		if child.Tag != "bindings" {
			return cannotHandle(child)
		}
		for _, binding := range xmltree.Children(child) {
			kind, ok := credentialBindings[binding.Tag[strings.LastIndex(binding.Tag, ".")+1:]]
			if !ok {
				return registry.Unsupported("unknown credentials binding %s", binding.Tag)
			}
			params := model.NewMapping()
			for _, setting := range xmltree.Children(binding) {
				key, ok := credentialBindingFields[setting.Tag]
				if !ok {
					return registry.Unsupported("cannot handle credentials binding setting %s", setting.Tag)
				}
				params.Set(key, xmltree.String(setting))
			}
			bindings = append(bindings, item(kind, params))
		}
	}
	out.Append(item("credentials-binding", bindings))
	return registry.Converted()
}
