package modules

import (
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

var viewColumns = map[string]string{
	"hudson.views.StatusColumn":                                     "status",
	"hudson.views.WeatherColumn":                                    "weather",
	"hudson.views.JobColumn":                                        "job",
	"hudson.views.LastSuccessColumn":                                "last-success",
	"hudson.views.LastFailureColumn":                                "last-failure",
	"hudson.views.LastDurationColumn":                               "last-duration",
	"hudson.views.BuildButtonColumn":                                "build-button",
	"hudson.views.LastStableColumn":                                 "last-stable",
	"hudson.plugins.robot.view.RobotListViewColum":                  "robot-list",
	"hudson.plugins.findbugs.FindBugsColumn":                        "find-bugs",
	"hudson.plugins.jacococoveragecolumn.JaCoCoColumn":              "jacoco",
	"hudson.plugins.git.GitBranchSpecifierColumn":                   "git-branch",
	"org.jenkinsci.plugins.schedulebuild.ScheduleBuildButtonColumn": "schedule-build",
	"jenkins.advancedqueue.PrioritySorterJobColumn":                 "priority-sorter",
	"hudson.views.BuildFilterColumn":                                "build-filter",
	"jenkins.branch.DescriptionColumn":                              "desc",
}

func registerViews(b *registry.Builder) error {
	return b.Register(Views, string(model.KindListView), registry.TranslatorFunc(listView))
}

// listView converts the body of a list view; the caller supplies the name.
func listView(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	out.Append(model.Pair{Key: "view-type", Value: "list"})
	for _, child := range xmltree.Children(el) {
		if err := d.Dispatch(ListView, child, out); err != nil {
			return registry.Propagate(err)
		}
	}
	return registry.Converted()
}

func registerListView(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"name":            ignore,
		"owner":           ignore,
		"description":     textField("description"),
		"filterexecutors": boolField("filter-executors"),
		"filterqueue":     boolField("filter-queue"),
		"recurse":         boolField("recurse"),
		"includeregex":    textField("regex"),
		"jobnames":        jobNames,
		"columns":         columns,
		"properties":      emptyOnly,
		"jobfilters":      emptyOnly,
	} {
		if err := b.RegisterFunc(ListView, tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func jobNames(el *etree.Element, out *model.Seq) registry.Outcome {
	jobs := []any{}
	for _, child := range xmltree.Children(el) {
		if child.Tag == "string" {
			jobs = append(jobs, xmltree.Value(child))
		}
	}
	out.Append(model.Pair{Key: "job-name", Value: jobs})
	return registry.Converted()
}

func columns(el *etree.Element, out *model.Seq) registry.Outcome {
	cols := []any{}
	for _, child := range xmltree.Children(el) {
		if col, ok := viewColumns[child.Tag]; ok {
			cols = append(cols, col)
		}
	}
	out.Append(model.Pair{Key: "columns", Value: cols})
	return registry.Converted()
}

// emptyOnly accepts an element only when it has no children.
func emptyOnly(el *etree.Element, _ *model.Seq) registry.Outcome {
	if len(xmltree.Children(el)) > 0 {
		return registry.Unsupported("cannot handle a non-empty <%s>", el.Tag)
	}
	return registry.Converted()
}
