package model

// Extension is a declarative bundle of extra handlers and project kinds,
// loaded from YAML.
type Extension struct {
	Name         string             `yaml:"name" json:"name" validate:"required"`
	Description  string             `yaml:"description,omitempty" json:"description,omitempty"`
	Handlers     []ExtensionHandler `yaml:"handlers,omitempty" json:"handlers,omitempty" validate:"dive"`
	ProjectKinds []ExtensionKind    `yaml:"project-kinds,omitempty" json:"project-kinds,omitempty" validate:"dive"`
}

// ExtensionHandler maps one XML tag onto a YAML entry field by field
type ExtensionHandler struct {
	Component string                    `yaml:"component" json:"component" validate:"required"`
	Tag       string                    `yaml:"tag" json:"tag" validate:"required"`
	Key       string                    `yaml:"key" json:"key" validate:"required"`
	Shape     string                    `yaml:"shape,omitempty" json:"shape,omitempty" validate:"omitempty,oneof=item pair marker"`
	Fields    map[string]ExtensionField `yaml:"fields,omitempty" json:"fields,omitempty"`
	Ignore    []string                  `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// ExtensionField names the YAML key and value type for one child tag
type ExtensionField struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Type string `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=string bool int"`
}

// ExtensionKind adds a root tag to the project kind table
type ExtensionKind struct {
	Tag  string      `yaml:"tag" json:"tag" validate:"required"`
	Kind ProjectKind `yaml:"kind" json:"kind" validate:"required"`
}
