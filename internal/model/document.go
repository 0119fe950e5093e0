package model

import "fmt"

// RawKey is the reserved field holding subtrees that could not be converted.
const RawKey = "raw"

// Mapping is a string-keyed map that remembers insertion order.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping creates an empty mapping
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// Set stores value under key, keeping the key's original position when it already exists.
func (m *Mapping) Set(key string, value any) *Mapping {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *Mapping) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order
func (m *Mapping) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of keys
func (m *Mapping) Len() int {
	return len(m.keys)
}

// MergePair folds a [key, value] contribution into the mapping. When both the
// existing and the new value are sequences they are concatenated in order;
// any other repeated key takes the later value.
func (m *Mapping) MergePair(key string, value any) {
	existing, ok := m.values[key]
	if !ok {
		m.Set(key, value)
		return
	}

	prev, prevIsList := existing.([]any)
	next, nextIsList := value.([]any)
	if prevIsList && nextIsList {
		merged := make([]any, 0, len(prev)+len(next))
		merged = append(merged, prev...)
		merged = append(merged, next...)
		m.values[key] = merged
		return
	}

	m.values[key] = value
}

// Absorb merges accumulated handler output into the mapping. Pairs are merged
// with MergePair and raw escapes are collected under RawKey.
func (m *Mapping) Absorb(items []any) error {
	for _, item := range items {
		switch v := item.(type) {
		case Pair:
			m.MergePair(v.Key, v.Value)
		case Raw:
			m.MergePair(RawKey, []any{NewMapping().Set("xml", v.XML)})
		default:
			return fmt.Errorf("cannot merge %T into a mapping", item)
		}
	}
	return nil
}

// Seq accumulates handler output in document order.
type Seq struct {
	items []any
}

// Append adds values to the end of the sequence
func (s *Seq) Append(values ...any) {
	s.items = append(s.items, values...)
}

// Items returns the accumulated values. The result is never nil.
func (s *Seq) Items() []any {
	if s.items == nil {
		return []any{}
	}
	return s.items
}

// Len returns the number of accumulated values
func (s *Seq) Len() int {
	return len(s.items)
}

// Pair attaches a named field to the caller in one step.
type Pair struct {
	Key   string
	Value any
}

// Raw is the escape entry for a subtree kept verbatim. It renders as
// `raw: {xml: ...}`.
type Raw struct {
	XML string
}

// Entry returns the mapping form of the escape entry
func (r Raw) Entry() *Mapping {
	return NewMapping().Set(RawKey, NewMapping().Set("xml", r.XML))
}

// Plain converts a document value into plain Go maps and slices, dropping key
// order. It is handy for comparisons and schema validation.
func Plain(v any) any {
	switch t := v.(type) {
	case *Mapping:
		out := make(map[string]any, t.Len())
		for _, k := range t.keys {
			out[k] = Plain(t.values[k])
		}
		return out
	case Raw:
		return Plain(t.Entry())
	case Pair:
		return []any{t.Key, Plain(t.Value)}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Plain(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	default:
		return v
	}
}
