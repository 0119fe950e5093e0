package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

const gerritData = "com.sonyericsson.hudson.plugins.gerrit.trigger.hudsontrigger.data."

var gerritFields = Mapper{
	"gerritBuildStartedVerifiedValue":      {Name: "gerrit-build-started-verified-value", Type: TypeInt},
	"gerritBuildStartedCodeReviewValue":    {Name: "gerrit-build-started-codereview-value", Type: TypeInt},
	"gerritBuildSuccessfulVerifiedValue":   {Name: "gerrit-build-successful-verified-value", Type: TypeInt},
	"gerritBuildSuccessfulCodeReviewValue": {Name: "gerrit-build-successful-codereview-value", Type: TypeInt},
	"gerritBuildFailedVerifiedValue":       {Name: "gerrit-build-failed-verified-value", Type: TypeInt},
	"gerritBuildFailedCodeReviewValue":     {Name: "gerrit-build-failed-codereview-value", Type: TypeInt},
	"gerritBuildUnstableVerifiedValue":     {Name: "gerrit-build-unstable-verified-value", Type: TypeInt},
	"gerritBuildUnstableCodeReviewValue":   {Name: "gerrit-build-unstable-codereview-value", Type: TypeInt},
	"gerritBuildNotBuiltVerifiedValue":     {Name: "gerrit-build-notbuilt-verified-value", Type: TypeInt},
	"gerritBuildNotBuiltCodeReviewValue":   {Name: "gerrit-build-notbuilt-codereview-value", Type: TypeInt},
	"silentMode":                           {Name: "silent", Type: TypeBool},
	"silentStartMode":                      {Name: "silent-start", Type: TypeBool},
	"escapeQuotes":                         {Name: "escape-quotes", Type: TypeBool},
	"dependencyJobsNames":                  {Name: "dependency-jobs"},
	"nameAndEmailParameterMode":            {Name: "name-and-email-parameter-mode"},
	"commitMessageParameterMode":           {Name: "commit-message-parameter-mode"},
	"changeSubjectParameterMode":           {Name: "change-subject-parameter-mode"},
	"commentTextParameterMode":             {Name: "comment-text-parameter-mode"},
	"buildStartMessage":                    {Name: "start-message"},
	"buildFailureMessage":                  {Name: "failure-message"},
	"buildSuccessfulMessage":               {Name: "successful-message"},
	"buildUnstableMessage":                 {Name: "unstable-message"},
	"buildNotBuiltMessage":                 {Name: "notbuilt-message"},
	"buildUnsuccessfulFilepath":            {Name: "failure-message-file"},
	"customUrl":                            {Name: "custom-url"},
	"serverName":                           {Name: "server-name"},
	"dynamicTriggerConfiguration":          {Name: "dynamic-trigger-enabled", Type: TypeBool},
	"triggerConfigURL":                     {Name: "dynamic-trigger-url"},
}

var gerritSimpleEvents = map[string]string{
	"PluginChangeAbandonedEvent":     "change-abandoned-event",
	"PluginChangeMergedEvent":        "change-merged-event",
	"PluginChangeRestoredEvent":      "change-restored-event",
	"PluginDraftPublishedEvent":      "draft-published-event",
	"PluginPrivateStateChangedEvent": "private-state-changed-event",
	"PluginRefUpdatedEvent":          "ref-updated-event",
	"PluginTopicChangedEvent":        "topic-changed-event",
	"PluginWipStateChangedEvent":     "wip-state-changed-event",
}

var gerritPatchsetFlags = map[string]string{
	"excludeDrafts":        "exclude-drafts",
	"excludeTrivialRebase": "exclude-trivial-rebase",
	"excludeNoCodeChange":  "exclude-no-code-change",
	"excludePrivateState":  "exclude-private",
	"excludeWipState":      "exclude-wip",
}

func gerritTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	gerrit := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		mapped, err := gerritFields.Map(child, gerrit)
		if err != nil {
			return registry.Malformed("%v", err)
		}
		if mapped {
			continue
		}

		switch child.Tag {
		case "gerritProjects":
			projects, outcome := gerritProjects(child)
			if !outcome.OK() {
				return outcome
			}
			gerrit.Set("projects", projects)
		case "skipVote":
			skip := model.NewMapping()
			for _, vote := range xmltree.Children(child) {
				switch vote.Tag {
				case "onSuccessful":
					skip.Set("successful", xmltree.BoolOf(vote))
				case "onFailed":
					skip.Set("failed", xmltree.BoolOf(vote))
				case "onUnstable":
					skip.Set("unstable", xmltree.BoolOf(vote))
				case "onNotBuilt":
					skip.Set("notbuilt", xmltree.BoolOf(vote))
				}
			}
			gerrit.Set("skip-vote", skip)
		case "notificationLevel":
			level, ok := xmltree.Text(child)
			if !ok {
				level = "NONE"
			}
			gerrit.Set("notification-level", level)
		case "triggerOnEvents":
			gerrit.Set("trigger-on", gerritEvents(child))
		case "dynamicGerritProjects", "spec", "gerritTriggerTimerTask", "triggerInformationAction":
			// Runtime state, not configuration.
		default:
			return registry.Unsupported("not implemented Gerrit trigger attribute %s", child.Tag)
		}
	}
	out.Append(item("gerrit", gerrit))
	return registry.Converted()
}

func gerritProjects(el *etree.Element) ([]any, registry.Outcome) {
	projects := []any{}
	for _, gp := range xmltree.Children(el) {
		project := model.NewMapping()
		for _, attr := range xmltree.Children(gp) {
			switch attr.Tag {
			case "compareType":
				project.Set("project-compare-type", xmltree.Value(attr))
			case "pattern":
				project.Set("project-pattern", xmltree.Value(attr))
			case "branches":
				branches := []any{}
				for _, b := range xmltree.Children(attr) {
					if b.Tag != gerritData+"Branch" {
						return nil, registry.Unsupported("not implemented branch type %s", b.Tag)
					}
					branch := model.NewMapping()
					for _, setting := range xmltree.Children(b) {
						switch setting.Tag {
						case "compareType":
							branch.Set("branch-compare-type", xmltree.Value(setting))
						case "pattern":
							branch.Set("branch-pattern", xmltree.Value(setting))
						default:
							return nil, registry.Unsupported("not implemented branch attribute %s", setting.Tag)
						}
					}
					branches = append(branches, branch)
				}
				project.Set("branches", branches)
			case "disableStrictForbiddenFileVerification":
				project.Set("disable-strict-forbidden-file-verification", xmltree.BoolOf(attr))
			case "filePaths", "forbiddenFilePaths", "topics":
				paths, outcome := gerritFilePaths(attr)
				if !outcome.OK() {
					return nil, outcome
				}
				key := map[string]string{
					"filePaths":          "file-paths",
					"forbiddenFilePaths": "forbidden-file-paths",
					"topics":             "topics",
				}[attr.Tag]
				project.Set(key, paths)
			default:
				return nil, registry.Unsupported("not implemented project attribute %s", attr.Tag)
			}
		}
		projects = append(projects, project)
	}
	return projects, registry.Converted()
}

// gerritFilePaths reads file paths, forbidden file paths and topics, which
// share the compareType/pattern shape.
func gerritFilePaths(el *etree.Element) ([]any, registry.Outcome) {
	paths := []any{}
	for _, fp := range xmltree.Children(el) {
		if !strings.HasPrefix(fp.Tag, gerritData) {
			return nil, registry.Unsupported("not implemented file path type %s", fp.Tag)
		}
		path := model.NewMapping()
		for _, attr := range xmltree.Children(fp) {
			switch attr.Tag {
			case "compareType":
				path.Set("compare-type", xmltree.Value(attr))
			case "pattern":
				path.Set("pattern", xmltree.Value(attr))
			}
		}
		paths = append(paths, path)
	}
	return paths, registry.Converted()
}

func gerritEvents(el *etree.Element) []any {
	events := []any{}
	for _, event := range xmltree.Children(el) {
		name := event.Tag[strings.LastIndex(event.Tag, ".")+1:]
		if simple, ok := gerritSimpleEvents[name]; ok {
			events = append(events, simple)
			continue
		}

		switch name {
		case "PluginCommentAddedEvent":
			comment := model.NewMapping()
			for _, attr := range xmltree.Children(event) {
				switch attr.Tag {
				case "verdictCategory":
					comment.Set("approval-category", xmltree.Value(attr))
				case "commentAddedTriggerApprovalValue":
					comment.Set("approval-value", xmltree.Value(attr))
				}
			}
			events = append(events, item("comment-added-event", comment))
		case "PluginCommentAddedContainsEvent":
			var value any
			if first := xmltree.FirstChild(event); first != nil {
				value = xmltree.Value(first)
			}
			events = append(events, item("comment-added-contains-event",
				model.NewMapping().Set("comment-contains-value", value)))
		case "PluginPatchsetCreatedEvent":
			patchset := model.NewMapping()
			for _, attr := range xmltree.Children(event) {
				if key, ok := gerritPatchsetFlags[attr.Tag]; ok {
					patchset.Set(key, xmltree.BoolOf(attr))
				}
			}
			events = append(events, item("patchset-created-event", patchset))
		}
	}
	return events
}
