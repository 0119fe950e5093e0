package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

func registerTriggers(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"scmtrigger":          scmTrigger,
		"timertrigger":        timerTrigger,
		"reversebuildtrigger": reverseTrigger,
		"gerrittrigger":       gerritTrigger,
		"githubpushtrigger":   marker("github"),
		"ghprbtrigger":        pullRequestTrigger,
	} {
		if err := b.RegisterFunc(Triggers, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func scmTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	pollscm := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "spec":
			pollscm.Set("cron", xmltree.Value(child))
		case "ignorePostCommitHooks":
			pollscm.Set("ignore-post-commit-hooks", xmltree.IsTrue(child))
		default:
			return registry.Unsupported("cannot handle scm trigger setting %s", child.Tag)
		}
	}
	out.Append(item("pollscm", pollscm))
	return registry.Converted()
}

func timerTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	spec := xmltree.FirstChild(el)
	if spec == nil {
		return registry.Malformed("timer trigger has no schedule")
	}
	out.Append(item("timed", xmltree.Value(spec)))
	return registry.Converted()
}

func reverseTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	reverse := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "upstreamProjects":
			reverse.Set("jobs", xmltree.Value(child))
		case "threshold":
			if name := xmltree.Child(child, "name"); name != nil {
				reverse.Set("result", strings.ToLower(xmltree.String(name)))
			}
		case "spec":
		default:
			return registry.Unsupported("cannot handle reverse trigger setting %s", child.Tag)
		}
	}
	out.Append(item("reverse", reverse))
	return registry.Converted()
}

func pullRequestTrigger(el *etree.Element, out *model.Seq) registry.Outcome {
	ghpr := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		text, present := xmltree.Text(child)
		switch child.Tag {
		case "spec", "cron":
			ghpr.Set("cron", xmltree.Value(child))
		case "adminlist":
			if text != "" {
				ghpr.Set("admin-list", lines(text))
			}
		case "allowMembersOfWhitelistedOrgsAsAdmin":
			ghpr.Set("allow-whitelist-orgs-as-admins", xmltree.Bool(text))
		case "whitelist":
			if present {
				ghpr.Set("white-list", lines(text))
			}
		case "orgslist":
			if present {
				ghpr.Set("org-list", lines(text))
			}
		case "buildDescTemplate":
			ghpr.Set("build-desc-template", xmltree.Value(child))
		case "triggerPhrase":
			ghpr.Set("trigger-phrase", xmltree.Value(child))
		case "onlyTriggerPhrase":
			ghpr.Set("only-trigger-phrase", xmltree.Bool(text))
		case "useGitHubHooks":
			ghpr.Set("github-hooks", xmltree.Bool(text))
		case "permitAll":
			ghpr.Set("permit-all", xmltree.Bool(text))
		case "autoCloseFailedPullRequests":
			ghpr.Set("auto-close-on-fail", xmltree.Bool(text))
		case "whiteListTargetBranches":
			branches := []any{}
			for _, branch := range xmltree.Children(child) {
				if first := xmltree.FirstChild(branch); first != nil {
					if name, ok := xmltree.Text(first); ok {
						branches = append(branches, strings.TrimSpace(name))
					}
				}
			}
			ghpr.Set("white-list-target-branches", branches)
		case "gitHubAuthId":
			ghpr.Set("auth-id", xmltree.Value(child))
		}
	}
	out.Append(item("github-pull-request", ghpr))
	return registry.Converted()
}

// lines splits a newline separated list field
func lines(text string) []any {
	var out []any
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		out = append(out, line)
	}
	return out
}
