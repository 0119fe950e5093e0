// Package xmltree wraps the etree element tree with the lookup-key and text
// helpers the handlers share.
package xmltree

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// ClassAttr names the attribute generic wrapper elements use to carry the plugin type.
const ClassAttr = "class"

// Jenkins writes XML 1.1 declarations, which encoding/xml refuses to read.
var declVersion = regexp.MustCompile(`^(\s*<\?xml[^>]*?version\s*=\s*["'])1\.1(["'])`)

// Parse reads an XML document and returns its root element
func Parse(data []byte) (*etree.Element, error) {
	data = declVersion.ReplaceAll(data, []byte("${1}1.0${2}"))

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("failed to parse XML: document has no root element")
	}
	return root, nil
}

// ParseString reads an XML document from a string
func ParseString(s string) (*etree.Element, error) {
	return Parse([]byte(s))
}

// ParseFile reads an XML document from disk
func ParseFile(path string) (*etree.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read XML file: %w", err)
	}
	return Parse(data)
}

// Normalize returns the lowercase of the text after the final dot.
func Normalize(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// NormalizeLoose is Normalize with dashes and underscores removed.
func NormalizeLoose(name string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(Normalize(name))
}

// TagKey returns the normalized tag of el
func TagKey(el *etree.Element) string {
	return Normalize(el.Tag)
}

// Class returns the raw class attribute, or "" when absent
func Class(el *etree.Element) string {
	return el.SelectAttrValue(ClassAttr, "")
}

// ClassKey returns the normalized class attribute, or "" when absent
func ClassKey(el *etree.Element) string {
	class := Class(el)
	if class == "" {
		return ""
	}
	return Normalize(class)
}

// Text returns the character data that precedes el's first child element.
// ok is false when there is none, which differs from an empty string only
// for elements written as <tag/> or <tag></tag>.
func Text(el *etree.Element) (string, bool) {
	var (
		buf   strings.Builder
		found bool
	)
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			buf.WriteString(t.Data)
			found = true
		case *etree.Element:
			return buf.String(), found
		}
	}
	return buf.String(), found
}

// String returns the text of el, or "" when it has none
func String(el *etree.Element) string {
	s, _ := Text(el)
	return s
}

// Value returns the text of el, or nil when the element has no text at all.
func Value(el *etree.Element) any {
	if s, ok := Text(el); ok {
		return s
	}
	return nil
}

// Bool applies the loose boolean rule: true, True, yes, Yes and 1 are true.
func Bool(s string) bool {
	switch s {
	case "true", "True", "Yes", "yes", "1":
		return true
	}
	return false
}

// IsTrue reports whether the text of el is exactly "true"
func IsTrue(el *etree.Element) bool {
	return String(el) == "true"
}

// BoolOf applies Bool to the text of el
func BoolOf(el *etree.Element) bool {
	return Bool(String(el))
}

// Children returns the child elements of el
func Children(el *etree.Element) []*etree.Element {
	return el.ChildElements()
}

// Child returns the first child element with the given tag
func Child(el *etree.Element, tag string) *etree.Element {
	return el.SelectElement(tag)
}

// FirstChild returns the first child element, or nil
func FirstChild(el *etree.Element) *etree.Element {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// Serialize writes el and its subtree exactly as a standalone fragment.
func Serialize(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize <%s>: %w", el.Tag, err)
	}
	return buf.String(), nil
}

// AppendText adds a child element carrying text, used for synthesized defaults.
func AppendText(parent *etree.Element, tag, text string) *etree.Element {
	child := parent.CreateElement(tag)
	child.SetText(text)
	return child
}
