package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
)

// Outcome is what happened to one configuration during a run
type Outcome struct {
	Name    string
	Kind    model.ProjectKind
	Path    string
	Escapes []registry.Escape
	Skipped []registry.Skip
	Err     error
}

// ReportViewer provides human-readable summaries of a conversion run
type ReportViewer struct {
	outcomes []Outcome
}

// NewReportViewer creates a new report viewer
func NewReportViewer(outcomes []Outcome) *ReportViewer {
	return &ReportViewer{outcomes: outcomes}
}

// ViewTree returns the run grouped by project kind, with every subtree that
// was kept as raw XML listed under its job.
func (rv *ReportViewer) ViewTree() string {
	if len(rv.outcomes) == 0 {
		return "Nothing converted"
	}

	kindMap := make(map[string][]*Outcome)
	for i := range rv.outcomes {
		o := &rv.outcomes[i]
		kind := string(o.Kind)
		if o.Err != nil {
			kind = "failed"
		}
		kindMap[kind] = append(kindMap[kind], o)
	}

	// Sort kinds for consistent output
	kinds := make([]string, 0, len(kindMap))
	for kind := range kindMap {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var sb strings.Builder
	escapes, failed := 0, 0

	for i, kind := range kinds {
		isLastKind := i == len(kinds)-1
		outcomes := kindMap[kind]
		sort.Slice(outcomes, func(a, b int) bool {
			return outcomes[a].Name < outcomes[b].Name
		})

		kindPrefix := "├─ "
		kindConnector := "│  "
		if isLastKind {
			kindPrefix = "└─ "
			kindConnector = "   "
		}
		sb.WriteString(fmt.Sprintf("%s%s (%d)\n", kindPrefix, kind, len(outcomes)))

		for j, o := range outcomes {
			isLastJob := j == len(outcomes)-1
			jobPrefix := kindConnector + "├─ "
			jobConnector := kindConnector + "│  "
			if isLastJob {
				jobPrefix = kindConnector + "└─ "
				jobConnector = kindConnector + "   "
			}

			line := jobPrefix + o.Name
			if o.Path != "" {
				line += fmt.Sprintf(" → %s", o.Path)
			}
			sb.WriteString(line + "\n")

			if o.Err != nil {
				failed++
				sb.WriteString(fmt.Sprintf("%s└─ error: %v\n", jobConnector, o.Err))
				continue
			}

			notes := len(o.Escapes) + len(o.Skipped)
			n := 0
			for _, e := range o.Escapes {
				n++
				prefix := "├─ "
				if n == notes {
					prefix = "└─ "
				}
				where := e.Tag
				if e.Component != "" {
					where = e.Component + "/" + e.Tag
				}
				sb.WriteString(fmt.Sprintf("%s%s(raw) %s: %s\n", jobConnector, prefix, where, e.Reason))
			}
			for _, s := range o.Skipped {
				n++
				prefix := "├─ "
				if n == notes {
					prefix = "└─ "
				}
				sb.WriteString(fmt.Sprintf("%s%s(skipped) %s/%s\n", jobConnector, prefix, s.Component, s.Tag))
			}
			escapes += len(o.Escapes)
		}
	}

	sb.WriteString("═══════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("Summary: %d configurations, %d failed, %d kept as raw XML\n",
		len(rv.outcomes), failed, escapes))

	return sb.String()
}

// ViewByComponent counts raw escapes per component across the run, which
// points at the handlers worth writing next.
func (rv *ReportViewer) ViewByComponent() string {
	counts := make(map[string]map[string]int)
	for _, o := range rv.outcomes {
		for _, e := range o.Escapes {
			component := e.Component
			if component == "" {
				component = "(root)"
			}
			if counts[component] == nil {
				counts[component] = make(map[string]int)
			}
			counts[component][e.Tag]++
		}
	}

	if len(counts) == 0 {
		return "No raw XML escapes"
	}

	components := make([]string, 0, len(counts))
	for c := range counts {
		components = append(components, c)
	}
	sort.Strings(components)

	var sb strings.Builder
	sb.WriteString("Raw XML escapes by component\n")
	sb.WriteString("═══════════════════════════════════════════════════════════\n\n")

	for _, component := range components {
		tags := make([]string, 0, len(counts[component]))
		for tag := range counts[component] {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		sb.WriteString(component + "\n")
		for i, tag := range tags {
			prefix := "├─ "
			if i == len(tags)-1 {
				prefix = "└─ "
			}
			sb.WriteString(fmt.Sprintf("%s%s (%d)\n", prefix, tag, counts[component][tag]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
