package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

var (
	triggerConditions = map[string]bool{
		"SUCCESS": true, "UNSTABLE": true, "FAILED_OR_BETTER": true,
		"UNSTABLE_OR_BETTER": true, "UNSTABLE_OR_WORSE": true, "FAILED": true, "ALWAYS": true,
	}
	groovyBehaviors = map[string]string{"0": "nothing", "1": "unstable", "2": "failed"}
	slackPublisher  = map[string]string{
		"startNotification":     "notify-start",
		"notifySuccess":         "notify-success",
		"notifyAborted":         "notify-aborted",
		"notifyNotBuilt":        "notify-not-built",
		"notifyUnstable":        "notify-unstable",
		"notifyFailure":         "notify-failure",
		"notifyBackToNormal":    "notify-back-to-normal",
		"notifyRegression":      "notify-regression",
		"notifyRepeatedFailure": "notify-repeated-failure",
		"includeTestSummary":    "include-test-summary",
		"includeFailedTests":    "include-failed-tests",
		"includeCustomMessage":  "include-custom-message",
		"botUser":               "bot-user",
	}
)

func registerPublishers(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"artifactarchiver":           artifactArchiver,
		"descriptionsetterpublisher": descriptionSetter,
		"fingerprinter":              fingerprinter,
		"extendedemailpublisher":     extendedEmail,
		"junitresultarchiver":        junit,
		"buildtrigger":               buildTrigger,
		"mailer":                     mailer,
		"htmlpublisher":              htmlPublisher,
		"groovypostbuildrecorder":    groovyPostbuild,
		"slacknotifier":              slackNotifier,
		"postbuildtask":              postBuildTask,
		"wscleanup":                  wsCleanup,
	} {
		if err := b.RegisterFunc(Publishers, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func artifactArchiver(el *etree.Element, out *model.Seq) registry.Outcome {
	archive := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "artifacts", "excludes":
			archive.Set(child.Tag, xmltree.Value(child))
		case "allowEmptyArchive":
			archive.Set("allow-empty", xmltree.BoolOf(child))
		case "fingerprint":
			archive.Set("fingerprint", xmltree.BoolOf(child))
		case "onlyIfSuccessful":
			archive.Set("only-if-success", xmltree.BoolOf(child))
		case "defaultExcludes":
			archive.Set("default-excludes", xmltree.BoolOf(child))
		case "latestOnly":
			archive.Set("latest-only", xmltree.BoolOf(child))
		case "caseSensitive":
			archive.Set("case-sensitive", xmltree.BoolOf(child))
		case "followSymlinks":
			archive.Set("follow-symlinks", xmltree.BoolOf(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("archive", archive))
	return registry.Converted()
}

func descriptionSetter(el *etree.Element, out *model.Seq) registry.Outcome {
	setter := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "regexp", "description":
			setter.Set(child.Tag, xmltree.Value(child))
		case "regexpForFailed":
			setter.Set("regexp-for-failed", xmltree.Value(child))
		case "descriptionForFailed":
			setter.Set("description-for-failed", xmltree.Value(child))
		case "setForMatrix":
			setter.Set("set-for-matrix", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("description-setter", setter))
	return registry.Converted()
}

func fingerprinter(el *etree.Element, out *model.Seq) registry.Outcome {
	fingerprint := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "targets":
			fingerprint.Set("files", xmltree.Value(child))
		case "recordBuildArtifacts":
			fingerprint.Set("record-artifacts", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("fingerprint", fingerprint))
	return registry.Converted()
}

func extendedEmail(el *etree.Element, out *model.Seq) registry.Outcome {
	email := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "recipientList":
			email.Set("recipients", xmltree.Value(child))
		case "replyTo":
			email.Set("reply-to", xmltree.Value(child))
		case "contentType":
			email.Set("content-type", xmltree.Value(child))
		case "defaultSubject":
			email.Set("subject", xmltree.Value(child))
		case "defaultContent":
			email.Set("body", xmltree.Value(child))
		case "attachBuildLog", "compressBuildLog":
			email.Set("attach-build-log", xmltree.IsTrue(child))
		case "attachmentsPattern":
			email.Set("attachment", xmltree.Value(child))
		case "preBuild":
			email.Set("pre-build", xmltree.IsTrue(child))
		case "presendScript":
			email.Set("presend-script", xmltree.Value(child))
		case "postsendScript":
			email.Set("postsend-script", xmltree.Value(child))
		case "sendTo":
			email.Set("send-to", xmltree.Value(child))
		case "saveOutput", "disabled", "configuredTriggers", "from":
			// Triggers default on the JJB side; the rest has no equivalent.
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("email-ext", email))
	return registry.Converted()
}

func junit(el *etree.Element, out *model.Seq) registry.Outcome {
	publisher := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "testResults":
			publisher.Set("results", xmltree.Value(child))
		case "keepLongStdio":
			publisher.Set("keep-long-stdio", xmltree.IsTrue(child))
		case "healthScaleFactor":
			publisher.Set("health-scale-factor", xmltree.Value(child))
		case "allowEmptyResults":
			publisher.Set("allow-empty-results", xmltree.IsTrue(child))
		case "testDataPublishers":
			if len(xmltree.Children(child)) > 0 {
				return cannotHandle(child)
			}
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("junit", publisher))
	return registry.Converted()
}

func buildTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	trigger := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "configs":
			return parameterizedTrigger(child, out)
		case "childProjects":
			trigger.Set("project", xmltree.Value(child))
		case "threshold":
			if name := xmltree.Child(child, "name"); name != nil {
				switch threshold := xmltree.String(name); threshold {
				case "SUCCESS", "UNSTABLE", "FAILURE":
					trigger.Set("threshold", threshold)
				}
			}
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("trigger", trigger))
	return registry.Converted()
}

func parameterizedTrigger(configs *etree.Element, out *model.Seq) registry.Outcome {
	triggers := []any{}
	for _, cfg := range xmltree.Children(configs) {
		project := model.NewMapping()
		for _, setting := range xmltree.Children(cfg) {
			switch {
			case setting.Tag == "projects":
				project.Set("project", xmltree.Value(setting))
			case setting.Tag == "condition" && triggerConditions[xmltree.String(setting)]:
				project.Set("condition", xmltree.String(setting))
			case setting.Tag == "triggerWithNoParameters":
				project.Set("trigger-with-no-params", xmltree.IsTrue(setting))
			case setting.Tag == "configs":
				for _, sub := range xmltree.Children(setting) {
					switch xmltree.Normalize(sub.Tag) {
					case "predefinedbuildparameters":
						if props := xmltree.Child(sub, "properties"); props != nil {
							project.Set("predefined-parameters", xmltree.Value(props))
						}
					case "currentbuildparameters":
						project.Set("current-parameters", true)
					default:
						return cannotHandle(sub)
					}
				}
			default:
				return cannotHandle(setting)
			}
		}
		triggers = append(triggers, project)
	}
	out.Append(item("trigger-parameterized-builds", triggers))
	return registry.Converted()
}

func mailer(el *etree.Element, out *model.Seq) registry.Outcome {
	email := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "recipients":
			email.Set("recipients", xmltree.Value(child))
		case "dontNotifyEveryUnstableBuild":
			email.Set("notify-every-unstable-build", xmltree.String(child) == "false")
		case "sendToIndividuals":
			email.Set("send-to-individuals", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("email", email))
	return registry.Converted()
}

func htmlPublisher(el *etree.Element, out *model.Seq) registry.Outcome {
	targets := xmltree.FirstChild(el)
	if targets == nil || targets.Tag != "reportTargets" {
		return registry.Malformed("expected a single <reportTargets> element")
	}

	reports := []any{}
	for _, target := range xmltree.Children(targets) {
		if target.Tag != "htmlpublisher.HtmlPublisherTarget" {
			return cannotHandle(target)
		}
		report := model.NewMapping()
		for _, cfg := range xmltree.Children(target) {
			switch cfg.Tag {
			case "reportName":
				report.Set("name", xmltree.Value(cfg))
			case "reportDir":
				report.Set("dir", xmltree.Value(cfg))
			case "reportFiles":
				report.Set("files", xmltree.Value(cfg))
			case "keepAll":
				report.Set("keep-all", xmltree.IsTrue(cfg))
			case "allowMissing":
				report.Set("allow-missing", xmltree.IsTrue(cfg))
			case "alwaysLinkToLastBuild":
				report.Set("link-to-last-build", xmltree.IsTrue(cfg))
			case "reportTitles":
				report.Set("titles", xmltree.Value(cfg))
			}
		}
		if report.Len() > 0 {
			reports = append(reports, item("html-publisher", report))
		}
	}
	out.Append(reports...)
	return registry.Converted()
}

func groovyPostbuild(el *etree.Element, out *model.Seq) registry.Outcome {
	groovy := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "groovyScript":
			groovy.Set("script", xmltree.Value(child))
		case "classpath":
			paths := []any{}
			for _, entry := range xmltree.Children(child) {
				for _, p := range xmltree.Children(entry) {
					if p.Tag == "path" {
						paths = append(paths, xmltree.String(p))
					}
				}
			}
			groovy.Set("classpath", paths)
		case "script":
			for _, sub := range xmltree.Children(child) {
				switch sub.Tag {
				case "script":
					groovy.Set("script", xmltree.Value(sub))
				case "sandbox":
					groovy.Set("sandbox", xmltree.IsTrue(sub))
				case "classpath":
				default:
					return registry.Unsupported("cannot handle groovy-postbuild script element %s", sub.Tag)
				}
			}
		case "behavior":
			behavior, ok := groovyBehaviors[xmltree.String(child)]
			if !ok {
				return registry.Malformed("unknown groovy-postbuild behavior %q", xmltree.String(child))
			}
			groovy.Set("on-failure", behavior)
		case "runForMatrixParent":
			groovy.Set("matrix-parent", xmltree.IsTrue(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("groovy-postbuild", groovy))
	return registry.Converted()
}

func slackNotifier(el *etree.Element, out *model.Seq) registry.Outcome {
	slack := model.NewMapping()
	optional := map[string]string{
		"teamDomain":            "team-domain",
		"authToken":             "auth-token",
		"authTokenCredentialId": "auth-token-credential-id",
		"customMessage":         "custom-message",
		"baseUrl":               "base-url",
		"tokenCredentialId":     "auth-token-credential-id",
	}
	for _, child := range xmltree.Children(el) {
		if key, ok := slackPublisher[child.Tag]; ok {
			slack.Set(key, xmltree.BoolOf(child))
			continue
		}
		if key, ok := optional[child.Tag]; ok {
			if text := xmltree.String(child); text != "" {
				slack.Set(key, text)
			}
			continue
		}
		switch child.Tag {
		case "buildServerUrl":
			slack.Set("build-server-url", xmltree.Value(child))
		case "room":
			slack.Set("room", xmltree.Value(child))
		case "commitInfoChoice":
			slack.Set("commit-info-choice", xmltree.Value(child))
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("slack", slack))
	return registry.Converted()
}

func postBuildTask(el *etree.Element, out *model.Seq) registry.Outcome {
	tasks := xmltree.FirstChild(el)
	if tasks == nil {
		return registry.Malformed("expected a <tasks> element")
	}

	postTasks := []any{}
	for _, task := range xmltree.Children(tasks) {
		postTask := model.NewMapping()
		for _, setting := range xmltree.Children(task) {
			switch setting.Tag {
			case "logTexts":
				matches := []any{}
				for _, logText := range xmltree.Children(setting) {
					match := model.NewMapping()
					for _, field := range xmltree.Children(logText) {
						switch field.Tag {
						case "logText":
							match.Set("log-text", xmltree.Value(field))
						case "operator":
							match.Set("operator", xmltree.Value(field))
						}
					}
					matches = append(matches, match)
				}
				postTask.Set("matches", matches)
			case "EscalateStatus":
				postTask.Set("escalate-status", xmltree.BoolOf(setting))
			case "RunIfJobSuccessful":
				postTask.Set("run-if-job-successful", xmltree.BoolOf(setting))
			case "script":
				postTask.Set("script", xmltree.Value(setting))
			}
		}
		postTasks = append(postTasks, postTask)
	}
	out.Append(item("post-tasks", postTasks))
	return registry.Converted()
}

func wsCleanup(el *etree.Element, out *model.Seq) registry.Outcome {
	include, exclude, cleanIf := []any{}, []any{}, []any{}
	extra := model.NewMapping()
	conditions := map[string]string{
		"cleanWhenSuccess":  "success",
		"cleanWhenUnstable": "unstable",
		"cleanWhenFailure":  "failure",
		"cleanWhenNotBuilt": "not-built",
		"cleanWhenAborted":  "aborted",
	}

	for _, child := range xmltree.Children(el) {
		if cond, ok := conditions[child.Tag]; ok {
			cleanIf = append(cleanIf, item(cond, xmltree.BoolOf(child)))
			continue
		}
		switch child.Tag {
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
		case "deleteDirs":
			extra.Set("dirmatch", xmltree.BoolOf(child))
		case "notFailBuild":
			extra.Set("fail-build", !xmltree.BoolOf(child))
		case "cleanupMatrixParent":
			extra.Set("clean-parent", xmltree.BoolOf(child))
		case "externalDelete":
			if text := xmltree.String(child); text != "" {
				extra.Set("external-deletion-command", text)
			}
		case "disableDeferredWipeout":
			extra.Set("disable-deferred-wipeout", xmltree.BoolOf(child))
		}
	}

	cleanup := model.NewMapping().
		Set("include", include).
		Set("exclude", exclude).
		Set("clean-if", cleanIf)
	for _, key := range extra.Keys() {
		v, _ := extra.Get(key)
		cleanup.Set(key, v)
	}
	out.Append(item("workspace-cleanup", cleanup))
	return registry.Converted()
}
