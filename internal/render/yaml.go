package render

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sourceplane/jobwrecker/internal/model"
)

// Marshal renders a document as YAML. Mapping order is preserved, strings
// are written so they read back unchanged and strings that would read back as
// another type are quoted.
func Marshal(doc any) ([]byte, error) {
	node, err := Node(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Node builds the yaml.v3 node tree for a document value
func Node(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case string:
		return text(val), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(val)), nil
	case int:
		return scalar("!!int", strconv.Itoa(val)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(val, 10)), nil
	case float64:
		return scalar("!!float", strconv.FormatFloat(val, 'g', -1, 64)), nil
	case *model.Mapping:
		if val == nil {
			return scalar("!!null", "null"), nil
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range val.Keys() {
			value, _ := val.Get(key)
			child, err := Node(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			node.Content = append(node.Content, text(key), child)
		}
		return node, nil
	case model.Raw:
		return Node(val.Entry())
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := model.NewMapping()
		for _, k := range keys {
			m.Set(k, val[k])
		}
		return Node(m)
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range val {
			child, err := Node(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return Node(items)
	}
	return nil, fmt.Errorf("cannot render value of type %T", v)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// text builds a string scalar. Multi-line values use the literal block style
// when it reads back byte for byte and are double-quoted otherwise.
func text(s string) *yaml.Node {
	node := scalar("!!str", s)
	if strings.ContainsAny(s, "\n\r") {
		node.Style = yaml.DoubleQuotedStyle
		if LiteralSafe(s) {
			node.Style = yaml.LiteralStyle
		}
	}
	return node
}

// LiteralSafe reports whether s survives a literal block unchanged. Carriage
// returns are folded into line feeds by YAML readers and trailing blanks on a
// line cannot be expressed in block scalars.
func LiteralSafe(s string) bool {
	if strings.ContainsRune(s, '\r') {
		return false
	}
	for _, line := range strings.Split(s, "\n") {
		if strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
			return false
		}
		if strings.HasPrefix(line, "\t") {
			return false
		}
	}
	return true
}
