package model

// ProjectKind is the coarse classification of a job or view, taken from its root tag.
type ProjectKind string

const (
	KindFreestyle   ProjectKind = "freestyle"
	KindMatrix      ProjectKind = "matrix"
	KindPipeline    ProjectKind = "pipeline"
	KindFolder      ProjectKind = "folder"
	KindListView    ProjectKind = "listview"
	KindFlow        ProjectKind = "flow"
	KindMaven       ProjectKind = "maven"
	KindUnsupported ProjectKind = "unsupported"
)

// IsView reports whether the kind produces a `view` document instead of a `job`.
func (k ProjectKind) IsView() bool {
	return k == KindListView
}

// Valid reports whether k names a kind the translator knows how to emit
func (k ProjectKind) Valid() bool {
	switch k {
	case KindFreestyle, KindMatrix, KindPipeline, KindFolder, KindListView, KindFlow:
		return true
	}
	return false
}
