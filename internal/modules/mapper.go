package modules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// FieldType is the coercion applied to a mapped element's text
type FieldType string

const (
	TypeString FieldType = "string"
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
)

// Field is the YAML key and type an XML child tag maps to
type Field struct {
	Name string
	Type FieldType
}

// Mapper translates simple child elements onto mapping keys by tag.
type Mapper map[string]Field

// Map stores el under its mapped key. It returns false when the tag is not
// part of the mapper.
func (m Mapper) Map(el *etree.Element, into *model.Mapping) (bool, error) {
	f, ok := m[el.Tag]
	if !ok {
		return false, nil
	}

	value, err := f.convert(xmltree.String(el))
	if err != nil {
		return true, fmt.Errorf("<%s>: %w", el.Tag, err)
	}
	into.Set(f.Name, value)
	return true, nil
}

func (f Field) convert(text string) (any, error) {
	switch f.Type {
	case TypeBool:
		return xmltree.Bool(text), nil
	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", text)
		}
		return n, nil
	case TypeString, "":
		return text, nil
	}
	return nil, fmt.Errorf("unknown field type %q", f.Type)
}
