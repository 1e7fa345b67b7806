package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// SpecValue is a single spec or data entry: either a scalar (strings and
// numbers, kept as text) or an ordered list of strings such as several span
// sizes.
type SpecValue struct {
	scalar string
	list   []string
	isList bool
}

// Scalar returns a scalar SpecValue.
func Scalar(s string) SpecValue {
	return SpecValue{scalar: s}
}

// List returns a list SpecValue.
func List(items ...string) SpecValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return SpecValue{list: cp, isList: true}
}

// IsList reports whether the value is an ordered sequence.
func (v SpecValue) IsList() bool { return v.isList }

// String returns the scalar text, or the list items joined by ", ".
func (v SpecValue) String() string {
	if v.isList {
		return strings.Join(v.list, ", ")
	}
	return v.scalar
}

// Items returns the list items, or the scalar as a one-element slice.
func (v SpecValue) Items() []string {
	if v.isList {
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	}
	if v.scalar == "" {
		return nil
	}
	return []string{v.scalar}
}

// IsEmpty reports whether the value carries no displayable content.
func (v SpecValue) IsEmpty() bool {
	if v.isList {
		return len(v.list) == 0
	}
	return strings.TrimSpace(v.scalar) == ""
}

func (v *SpecValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("spec value: %w", err)
	}

	if arr, ok := raw.([]any); ok {
		items := make([]string, 0, len(arr))
		for _, el := range arr {
			s, err := scalarText(el)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*v = SpecValue{list: items, isList: true}
		return nil
	}

	s, err := scalarText(raw)
	if err != nil {
		return err
	}
	*v = SpecValue{scalar: s}
	return nil
}

func (v SpecValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.scalar)
}

// scalarText renders a decoded JSON value as spec text. Nested objects and
// arrays keep their compact JSON form.
func scalarText(raw any) (string, error) {
	switch t := raw.(type) {
	case nil:
		return "", nil
	case json.Number:
		return t.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("spec value: %w", err)
		}
		return string(b), nil
	default:
		s, err := cast.ToStringE(t)
		if err != nil {
			return "", fmt.Errorf("spec value: %w", err)
		}
		return s, nil
	}
}

// Field is one key/value pair of a Fields mapping.
type Field struct {
	Key   string
	Value SpecValue
}

// Fields is a spec-key to SpecValue mapping that remembers the order in which
// keys appeared in the source document.
type Fields struct {
	keys   []string
	values map[string]SpecValue
}

// NewFields builds a Fields mapping from pairs in order. A repeated key keeps
// its first position and its last value.
func NewFields(pairs ...Field) Fields {
	var f Fields
	for _, p := range pairs {
		f.set(p.Key, p.Value)
	}
	return f
}

func (f *Fields) set(key string, v SpecValue) {
	if f.values == nil {
		f.values = make(map[string]SpecValue)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// With returns a copy of f with key set to v.
func (f Fields) With(key string, v SpecValue) Fields {
	out := Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]SpecValue, len(f.values)+1),
	}
	copy(out.keys, f.keys)
	for k, val := range f.values {
		out.values[k] = val
	}
	out.set(key, v)
	return out
}

// Get returns the value for key.
func (f Fields) Get(key string) (SpecValue, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in document order.
func (f Fields) Keys() []string {
	cp := make([]string, len(f.keys))
	copy(cp, f.keys)
	return cp
}

// Len returns the number of keys.
func (f Fields) Len() int { return len(f.keys) }

// UnmarshalJSON decodes an object in key order. Anything other than an
// object decodes as an empty mapping.
func (f *Fields) UnmarshalJSON(data []byte) error {
	*f = Fields{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("fields: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("fields %q: %w", key, err)
		}
		var v SpecValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("fields %q: %w", key, err)
		}
		f.set(key, v)
	}
	_, err = dec.Token()
	return err
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := f.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
