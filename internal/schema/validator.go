package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.yaml
var schemaFS embed.FS

// Validator handles JSON schema validation
type Validator struct {
	documentSchema  *jsonschema.Schema
	extensionSchema *jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	v := &Validator{}

	documentSchema, err := loadSchema("document.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load document schema: %w", err)
	}
	v.documentSchema = documentSchema

	extensionSchema, err := loadSchema("extension.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load extension schema: %w", err)
	}
	v.extensionSchema = extensionSchema

	return v, nil
}

// ValidateDocument validates rendered job builder YAML
func (v *Validator) ValidateDocument(data []byte) error {
	if v.documentSchema == nil {
		return fmt.Errorf("document schema not loaded")
	}
	doc, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	return v.documentSchema.Validate(doc)
}

// ValidateExtension validates a handler extension file
func (v *Validator) ValidateExtension(data []byte) error {
	if v.extensionSchema == nil {
		return fmt.Errorf("extension schema not loaded")
	}
	doc, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to parse extension: %w", err)
	}
	return v.extensionSchema.Validate(doc)
}

// decode parses YAML and round-trips it through JSON so the schema sees
// plain JSON values.
func decode(data []byte) (interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadSchema compiles an embedded schema file (JSON or YAML)
func loadSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	url := "jobwrecker://schemas/" + strings.TrimSuffix(name, ".yaml") + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(jsonData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
