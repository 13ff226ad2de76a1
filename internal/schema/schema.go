// Package schema holds the composable property schemas that describe a
// configuration document and validates documents against them.
package schema

import (
	"fmt"

	"github.com/me/goramble/pkg/model"
)

// Type is a JSON-schema primitive type name.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// typeNull is added to the rendered type of a property that has a default,
// so an empty key ("workloads:") is accepted and takes the default.
const typeNull = "null"

// Schema describes the allowed shape of one value.
type Schema struct {
	Types       []Type
	Description string
	Default     any

	// Object constraints. Properties are the declared keys; Additional, when
	// set, validates every undeclared key (open name maps). Closed rejects
	// undeclared keys and corresponds to additionalProperties: false.
	Properties *Fragment
	Additional *Schema
	Closed     bool
	Required   []string

	Items *Schema
	AnyOf []*Schema
	Enum  []string
}

// Fragment is a named, ordered set of property schemas.
type Fragment struct {
	Name  string
	names []string
	props map[string]*Schema
}

// NewFragment creates an empty fragment.
func NewFragment(name string) *Fragment {
	return &Fragment{Name: name, props: make(map[string]*Schema)}
}

// Add declares a property and returns the fragment for chaining. Fragments
// are built from static definitions, so declaring a property twice is a
// programming error and panics.
func (f *Fragment) Add(prop string, s *Schema) *Fragment {
	if _, ok := f.props[prop]; ok {
		panic(fmt.Sprintf("schema: fragment %q declares %q twice", f.Name, prop))
	}
	f.names = append(f.names, prop)
	f.props[prop] = s
	return f
}

// Names returns the property names in declaration order.
func (f *Fragment) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Get returns the schema of a property.
func (f *Fragment) Get(prop string) (*Schema, bool) {
	if f == nil {
		return nil, false
	}
	s, ok := f.props[prop]
	return s, ok
}

// Len returns the number of declared properties.
func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Compose merges fragments into a new fragment named name. The union must be
// disjoint: a property declared by more than one input fails with
// *model.SchemaConflictError.
func Compose(name string, fragments ...*Fragment) (*Fragment, error) {
	out := NewFragment(name)
	owner := make(map[string]string)
	for _, f := range fragments {
		for _, prop := range f.names {
			if first, ok := owner[prop]; ok {
				return nil, &model.SchemaConflictError{Property: prop, First: first, Second: f.Name}
			}
			owner[prop] = f.Name
			out.Add(prop, f.props[prop])
		}
	}
	return out, nil
}

// Override merges top over base: properties of top replace same-named
// properties of base in place, new ones are appended.
func Override(name string, base, top *Fragment) *Fragment {
	out := NewFragment(name)
	for _, prop := range base.Names() {
		s := base.props[prop]
		if t, ok := top.Get(prop); ok {
			s = t
		}
		out.Add(prop, s)
	}
	for _, prop := range top.Names() {
		if _, ok := out.props[prop]; !ok {
			out.Add(prop, top.props[prop])
		}
	}
	return out
}

// String returns a string schema.
func String() *Schema { return &Schema{Types: []Type{TypeString}} }

// Number returns a number schema.
func Number() *Schema { return &Schema{Types: []Type{TypeNumber}} }

// Boolean returns a boolean schema.
func Boolean() *Schema { return &Schema{Types: []Type{TypeBoolean}} }

// StringOrNum accepts a string or a number.
func StringOrNum() *Schema { return &Schema{Types: []Type{TypeString, TypeNumber}} }

// Enum returns a string schema restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Types: []Type{TypeString}, Enum: values}
}

// ArrayOf returns an array schema whose items match items.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Types: []Type{TypeArray}, Items: items, Default: []any{}}
}

// AnyOf accepts a value matching at least one alternative.
func AnyOf(alternatives ...*Schema) *Schema {
	return &Schema{AnyOf: alternatives}
}

// Object returns a closed object schema with the fragment's properties.
func Object(f *Fragment, required ...string) *Schema {
	return &Schema{Types: []Type{TypeObject}, Properties: f, Closed: true, Required: required, Default: map[string]any{}}
}

// MapOf returns an object schema with arbitrary keys whose values match item.
func MapOf(item *Schema) *Schema {
	return &Schema{Types: []Type{TypeObject}, Additional: item, Default: map[string]any{}}
}

// WithDefault sets the default and returns s.
func (s *Schema) WithDefault(v any) *Schema {
	s.Default = v
	return s
}

// WithDescription sets the description and returns s.
func (s *Schema) WithDescription(d string) *Schema {
	s.Description = d
	return s
}

// MarshalJSON renders the schema as a JSON Schema document fragment.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return s.render(false).MarshalJSON()
}

// render builds the JSON Schema form. A property value with a default also
// accepts null; list items and anyOf alternatives never do.
func (s *Schema) render(property bool) *model.Map {
	out := model.NewMap()
	nullable := property && s.Default != nil && len(s.Types) > 0
	types := make([]any, 0, len(s.Types)+1)
	for _, t := range s.Types {
		types = append(types, string(t))
	}
	if nullable {
		types = append(types, typeNull)
	}
	switch len(types) {
	case 0:
	case 1:
		out.Set("type", types[0])
	default:
		out.Set("type", types)
	}
	if s.Description != "" {
		out.Set("description", s.Description)
	}
	if s.Default != nil {
		out.Set("default", s.Default)
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		if nullable {
			enum = append(enum, nil)
		}
		out.Set("enum", enum)
	}
	if s.Properties != nil || s.Closed || s.Additional != nil {
		props := model.NewMap()
		for _, name := range s.Properties.Names() {
			p, _ := s.Properties.Get(name)
			props.Set(name, p.render(true))
		}
		out.Set("properties", props)
	}
	switch {
	case s.Additional != nil:
		out.Set("additionalProperties", s.Additional.render(true))
	case s.Closed:
		out.Set("additionalProperties", false)
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		out.Set("required", req)
	}
	if s.Items != nil {
		out.Set("items", s.Items.render(false))
	}
	if len(s.AnyOf) > 0 {
		alts := make([]any, len(s.AnyOf))
		for i, a := range s.AnyOf {
			alts[i] = a.render(false)
		}
		out.Set("anyOf", alts)
	}
	return out
}
