package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

const (
	nullSCM  = "hudson.scm.NullSCM"
	multiSCM = "org.jenkinsci.plugins.multiplescms.MultiSCM"
	gitImpl  = "hudson.plugins.git.extensions.impl."
)

var (
	hgBrowsers = map[string]string{
		"BitBucket":       "bitbucketweb",
		"FishEye":         "fisheye",
		"GoogleCode":      "googlecode",
		"HgWeb":           "hgweb",
		"KilnHG":          "kilnhg",
		"RhodeCode":       "rhodecode",
		"RhodeCodeLegacy": "rhodecode-pre-1.2",
	}
	svnUpdaters = map[string]string{
		"hudson.scm.subversion.CheckoutUpdater":         "wipeworkspace",
		"hudson.scm.subversion.UpdateWithRevertUpdater": "revertupdate",
		"hudson.scm.subversion.UpdateWithCleanUpdater":  "emulateclean",
		"hudson.scm.subversion.UpdateUpdater":           "update",
	}
	// git settings whose "false" default needs no YAML
	gitFlags = map[string]string{
		"authorOrCommitter":  "use-author",
		"useShallowClone":    "shallow-clone",
		"ignoreNotifyCommit": "ignore-notify",
		"skipTag":            "skip-tag",
		"pruneBranches":      "prune",
		"remotePoll":         "fastpoll",
	}
)

// scmTranslator resolves <scm> by its class attribute. NullSCM contributes
// nothing and MultiSCM is flattened into a single scm list.
type scmTranslator struct{}

func (scmTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	scms := &model.Seq{}
	if outcome := collectSCM(d, el, scms); !outcome.OK() {
		return outcome
	}
	if scms.Len() == 0 {
		return registry.Converted()
	}
	out.Append(model.Pair{Key: "scm", Value: scms.Items()})
	return registry.Converted()
}

func collectSCM(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	switch xmltree.Class(el) {
	case nullSCM:
		return registry.Converted()
	case multiSCM:
		scms := xmltree.FirstChild(el)
		if scms == nil {
			return registry.Converted()
		}
		for _, child := range xmltree.Children(scms) {
			if outcome := collectSCM(d, child, out); !outcome.OK() {
				return outcome
			}
		}
		return registry.Converted()
	}
	if xmltree.TagKey(el) == "nullscm" {
		return registry.Converted()
	}

	if err := d.Dispatch(SCM, el, out); err != nil {
		return registry.Propagate(err)
	}
	return registry.Converted()
}

func registerSCM(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"gitscm":        gitSCM,
		"mercurialscm":  mercurialSCM,
		"subversionscm": subversionSCM,
	} {
		if err := b.RegisterFunc(SCM, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// nonEmpty reports whether el carries text or children
func nonEmpty(el *etree.Element) bool {
	return xmltree.String(el) != "" || len(xmltree.Children(el)) > 0
}

func gitSCM(el *etree.Element, out *model.Seq) registry.Outcome {
	git := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		if key, ok := gitFlags[child.Tag]; ok {
			if xmltree.IsTrue(child) {
				git.Set(key, true)
			}
			continue
		}

		switch child.Tag {
		case "configVersion":
		case "userRemoteConfigs":
			remotes := xmltree.Children(child)
			if len(remotes) != 1 {
				return registry.Unsupported("%s not supported with %d children", child.Tag, len(remotes))
			}
			for _, setting := range xmltree.Children(remotes[0]) {
				if setting.Tag == "credentialsId" {
					git.Set("credentials-id", xmltree.Value(setting))
				} else {
					git.Set(setting.Tag, xmltree.Value(setting))
				}
			}
		case "gitTool":
			git.Set("git-tool", xmltree.Value(child))
		case "excludedUsers":
			if users := strings.Fields(xmltree.String(child)); len(users) > 0 {
				excluded := make([]any, 0, len(users))
				for _, u := range users {
					excluded = append(excluded, u)
				}
				git.Set("excluded-users", excluded)
			}
		case "buildChooser":
			if class := xmltree.Class(child); class != "hudson.plugins.git.util.DefaultBuildChooser" {
				return registry.Unsupported("%s build chooser", class)
			}
		case "disableSubmodules", "recursiveSubmodules":
			if xmltree.IsTrue(child) {
				return registry.Unsupported("git %s is not supported", child.Tag)
			}
		case "wipeOutWorkspace":
			git.Set("wipe-workspace", xmltree.IsTrue(child))
		case "relativeTargetDir":
			if dir := xmltree.String(child); dir != "" {
				git.Set("basedir", dir)
			}
		case "reference", "gitConfigName", "gitConfigEmail", "scmName":
			if nonEmpty(child) {
				return registry.Unsupported("git %s is not supported", child.Tag)
			}
		case "branches":
			branches := []any{}
			for _, spec := range xmltree.Children(child) {
				for _, branch := range xmltree.Children(spec) {
					if branch.Tag != "name" {
						return registry.Unsupported("%s XML not supported", branch.Tag)
					}
					branches = append(branches, xmltree.Value(branch))
				}
			}
			git.Set("branches", branches)
		case "doGenerateSubmoduleConfigurations", "submoduleCfg":
			if n := len(xmltree.Children(child)); n > 0 {
				return registry.Unsupported("%s not supported with %d children", child.Tag, n)
			}
		case "browser":
			git.Set("browser", "auto")
		case "extensions":
			if outcome := gitExtensions(child, git); !outcome.OK() {
				return outcome
			}
		default:
			return cannotHandle(child)
		}
	}
	out.Append(item("git", git))
	return registry.Converted()
}

func gitExtensions(el *etree.Element, git *model.Mapping) registry.Outcome {
	for _, ext := range xmltree.Children(el) {
		settings := xmltree.Children(ext)
		switch strings.TrimPrefix(ext.Tag, gitImpl) {
		case "RelativeTargetDirectory":
			if len(settings) != 1 || settings[0].Tag != "relativeTargetDir" {
				return registry.Unsupported("%s expects a single <relativeTargetDir>", ext.Tag)
			}
			git.Set("basedir", xmltree.Value(settings[0]))
		case "CheckoutOption":
			if len(settings) != 1 || settings[0].Tag != "timeout" {
				return registry.Unsupported("%s expects a single <timeout>", ext.Tag)
			}
			git.Set("timeout", xmltree.Value(settings[0]))
		case "WipeWorkspace":
			if len(settings) != 0 {
				return registry.Unsupported("%s not supported with %d children", ext.Tag, len(settings))
			}
			git.Set("wipe-workspace", true)
		case "LocalBranch":
			if len(settings) == 0 {
				return registry.Malformed("%s has no branch", ext.Tag)
			}
			git.Set("local-branch", xmltree.Value(settings[0]))
		case "CleanBeforeCheckout":
			git.Set("clean", model.NewMapping().Set("before", true))
		case "CleanCheckout":
			git.Set("clean", model.NewMapping().Set("after", true))
		case "PerBuildTag":
		default:
			return registry.Unsupported("%s not supported", ext.Tag)
		}
	}
	return registry.Converted()
}

func mercurialSCM(el *etree.Element, out *model.Seq) registry.Outcome {
	hg := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "source":
			hg.Set("url", xmltree.Value(child))
		case "credentialsId":
			hg.Set("credentials-id", xmltree.Value(child))
		case "revisionType":
			hg.Set("revision-type", strings.ToLower(xmltree.String(child)))
		case "revision", "subdir":
			hg.Set(child.Tag, xmltree.Value(child))
		case "modules":
		case "clean":
			hg.Set("clean", xmltree.IsTrue(child))
		case "disableChangeLog":
			hg.Set("disable-changelog", xmltree.IsTrue(child))
		case "browser":
			class := xmltree.Class(child)
			if class == "" {
				continue
			}
			name := strings.TrimPrefix(class, "hudson.plugins.mercurial.browser.")
			browser, ok := hgBrowsers[name]
			if !ok {
				return registry.Unsupported("%s is not supported by jenkins-job-builder", class)
			}
			hg.Set("browser", browser)
			if url := xmltree.Child(child, "url"); url != nil {
				hg.Set("browser-url", xmltree.Value(url))
			}
		}
	}
	out.Append(item("hg", hg))
	return registry.Converted()
}

func subversionSCM(el *etree.Element, out *model.Seq) registry.Outcome {
	svn := model.NewMapping()
	for _, child := range xmltree.Children(el) {
		switch child.Tag {
		case "remote", "local", "credentialsId", "depthOption",
			"includedRegions", "excludedRegions", "excludedUsers",
			"excludedCommitMessages", "excludedRevprop":
			svn.Set(svnKeys[child.Tag], xmltree.String(child))
		case "ignoreExternalsOption":
			svn.Set("ignore-externals", xmltree.IsTrue(child))
		case "workspaceUpdater":
			if updater, ok := svnUpdaters[xmltree.Class(child)]; ok {
				svn.Set("workspaceupdater", updater)
			}
		case "ignoreDirPropChanges":
			svn.Set("ignore-property-changes-on-directories", xmltree.IsTrue(child))
		case "filterChangelog":
			svn.Set("filter-changelog", xmltree.IsTrue(child))
		case "locations":
			repos := []any{}
			for _, location := range xmltree.Children(child) {
				repo := model.NewMapping()
				for _, r := range xmltree.Children(location) {
					switch r.Tag {
					case "remote", "local", "credentialsId", "depthOption":
						repo.Set(svnKeys[r.Tag], xmltree.String(r))
					case "ignoreExternalsOption":
						repo.Set("ignore-externals", xmltree.IsTrue(r))
					}
				}
				repos = append(repos, repo)
			}
			svn.Set("repos", repos)
		default:
			return registry.Unsupported("%s not supported tag in svn scm", child.Tag)
		}
	}
	out.Append(item("svn", svn))
	return registry.Converted()
}

var svnKeys = map[string]string{
	"remote":                 "url",
	"local":                  "basedir",
	"credentialsId":          "credentials-id",
	"depthOption":            "repo-depth",
	"includedRegions":        "included-regions",
	"excludedRegions":        "excluded-regions",
	"excludedUsers":          "excluded-users",
	"excludedCommitMessages": "excluded-commit-messages",
	"excludedRevprop":        "exclusion-revprop-name",
}
