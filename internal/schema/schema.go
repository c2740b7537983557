// Package schema holds the per-document-type field schemas that drive
// extraction, and the rules for conforming model output to them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is the shape of a field's absence value.
type Kind int

const (
	KindNull     Kind = iota // scalar field, absent = null
	KindFalse                // flag field, absent = false
	KindSequence             // list field, absent = []
	KindObject               // nested FieldSchema
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindFalse:
		return "false"
	case KindSequence:
		return "sequence"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is one named entry of a FieldSchema.
type Field struct {
	Name   string
	Kind   Kind
	Nested *FieldSchema // set only for KindObject
}

// Default returns a fresh absence value for the field.
func (f Field) Default() any {
	switch f.Kind {
	case KindFalse:
		return false
	case KindSequence:
		return []any{}
	case KindObject:
		return f.Nested.Defaults()
	default:
		return nil
	}
}

// FieldSchema is an ordered set of fields with their defaults. It is built
// once at load time and never mutated afterwards.
type FieldSchema struct {
	fields []Field
	index  map[string]int
}

// New builds a FieldSchema from fields in order. Duplicate names are rejected.
func New(fields ...Field) (*FieldSchema, error) {
	s := &FieldSchema{fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema: empty field name")
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		if f.Kind == KindObject && f.Nested == nil {
			return nil, fmt.Errorf("schema: field %q is an object without nested schema", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// Fields returns a copy of the fields in declaration order.
func (s *FieldSchema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Keys returns field names in declaration order.
func (s *FieldSchema) Keys() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

func (s *FieldSchema) Len() int { return len(s.fields) }

func (s *FieldSchema) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *FieldSchema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Defaults returns a fresh map holding every field's absence value.
func (s *FieldSchema) Defaults() map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = f.Default()
	}
	return out
}

// Record is a value map bound to its schema. It marshals with keys in schema
// order; nested objects keep their nested schema order.
type Record struct {
	schema *FieldSchema
	values map[string]any
}

// Schema returns the schema the record conforms to.
func (r Record) Schema() *FieldSchema { return r.schema }

// Get returns the value of key. Nested objects are returned as Record.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String returns the trimmed string value of key, or "" for non-strings.
func (r Record) String(key string) string {
	s, _ := r.values[key].(string)
	return s
}

// Bool returns the flag value of key.
func (r Record) Bool(key string) bool {
	b, _ := r.values[key].(bool)
	return b
}

// Strings returns the string elements of a sequence field.
func (r Record) Strings(key string) []string {
	items, _ := r.values[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Object returns the nested record at key.
func (r Record) Object(key string) (Record, bool) {
	n, ok := r.values[key].(Record)
	return n, ok
}

// Map returns a plain nested map copy, useful for persistence and templates.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		if n, ok := v.(Record); ok {
			out[k] = n.Map()
			continue
		}
		out[k] = v
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.schema == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", f.Name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DefaultRecord returns a record holding only defaults.
func DefaultRecord(s *FieldSchema) Record {
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if f.Kind == KindObject {
			values[f.Name] = DefaultRecord(f.Nested)
			continue
		}
		values[f.Name] = f.Default()
	}
	return Record{schema: s, values: values}
}
