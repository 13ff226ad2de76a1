package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/me/goramble/pkg/model"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Validator checks a decoded document against a schema and reports every
// violation it finds.
type Validator interface {
	Validate(s *Schema, doc any) []model.FieldError
}

const schemaResource = "goramble-schema.json"

// JSONSchemaValidator validates documents with a JSON Schema engine against
// the rendered form of a Schema. Compiled schemas are cached per *Schema.
type JSONSchemaValidator struct {
	mu       sync.Mutex
	compiled map[*Schema]*jsonschema.Schema
	printer  *message.Printer
}

// NewJSONSchemaValidator creates a validator with an empty compile cache.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[*Schema]*jsonschema.Schema),
		printer:  message.NewPrinter(language.English),
	}
}

// Validate implements Validator. Violations are ordered by key path.
func (v *JSONSchemaValidator) Validate(s *Schema, doc any) []model.FieldError {
	sch, err := v.compile(s)
	if err != nil {
		return []model.FieldError{{Path: displayPath(""), Message: err.Error()}}
	}

	inst := model.Plain(doc)
	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []model.FieldError{{Path: displayPath(""), Message: err.Error()}}
	}

	var errs []model.FieldError
	v.collect(inst, verr, &errs)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
	return errs
}

func (v *JSONSchemaValidator) compile(s *Schema) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.compiled[s]; ok {
		return sch, nil
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode rendered schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.compiled[s] = sch
	return sch, nil
}

// collect flattens the engine's error tree into one FieldError per
// violated constraint.
func (v *JSONSchemaValidator) collect(doc any, e *jsonschema.ValidationError, errs *[]model.FieldError) {
	path := locationPath(doc, e.InstanceLocation)
	switch k := e.ErrorKind.(type) {
	case *kind.AnyOf:
		v.collectAnyOf(doc, e, errs)
	case *kind.Required:
		for _, name := range k.Missing {
			*errs = append(*errs, model.FieldError{Path: join(path, name), Message: "required property is missing"})
		}
	case *kind.AdditionalProperties:
		for _, name := range k.Properties {
			*errs = append(*errs, model.FieldError{Path: join(path, name), Message: "unexpected property"})
		}
	case *kind.Type:
		got := typeOf(valueAt(doc, e.InstanceLocation))
		*errs = append(*errs, model.FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("expected %s, got %s", typeList(k.Want), got),
		})
	case *kind.Enum:
		var want []string
		for _, w := range k.Want {
			if w != nil {
				want = append(want, fmt.Sprint(w))
			}
		}
		*errs = append(*errs, model.FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("%q is not one of %s", fmt.Sprint(k.Got), strings.Join(want, ", ")),
		})
	default:
		if len(e.Causes) == 0 {
			*errs = append(*errs, model.FieldError{
				Path:    displayPath(path),
				Message: e.ErrorKind.LocalizedString(v.printer),
			})
			return
		}
		for _, cause := range e.Causes {
			v.collect(doc, cause, errs)
		}
	}
}

// collectAnyOf reports the violations of the only alternative that accepts
// the value's type. When no single alternative does, one type mismatch
// naming every accepted type is reported.
func (v *JSONSchemaValidator) collectAnyOf(doc any, e *jsonschema.ValidationError, errs *[]model.FieldError) {
	var (
		typed    []*jsonschema.ValidationError
		accepted []string
	)
	for _, alt := range e.Causes {
		if k, ok := alt.ErrorKind.(*kind.Type); ok && sameLocation(alt.InstanceLocation, e.InstanceLocation) {
			accepted = append(accepted, k.Want...)
			continue
		}
		typed = append(typed, alt)
	}
	if len(typed) == 1 {
		v.collect(doc, typed[0], errs)
		return
	}
	path := displayPath(locationPath(doc, e.InstanceLocation))
	got := typeOf(valueAt(doc, e.InstanceLocation))
	if len(typed) == 0 {
		*errs = append(*errs, model.FieldError{Path: path, Message: fmt.Sprintf("expected %s, got %s", typeList(accepted), got)})
		return
	}
	*errs = append(*errs, model.FieldError{Path: path, Message: fmt.Sprintf("%s value matches none of the allowed shapes", got)})
}

func sameLocation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// locationPath turns a JSON pointer token list into a dotted key path with
// bracketed list indices, e.g. applications.App.matrices[0].
func locationPath(doc any, loc []string) string {
	var b strings.Builder
	cur := doc
	for _, tok := range loc {
		if list, ok := cur.([]any); ok {
			b.WriteString("[" + tok + "]")
			cur = nil
			if i, err := strconv.Atoi(tok); err == nil && i >= 0 && i < len(list) {
				cur = list[i]
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
		m, _ := cur.(map[string]any)
		cur = m[tok]
	}
	return b.String()
}

func valueAt(doc any, loc []string) any {
	cur := doc
	for _, tok := range loc {
		switch c := cur.(type) {
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(c) {
				return nil
			}
			cur = c[i]
		case map[string]any:
			cur = c[tok]
		default:
			return nil
		}
	}
	return cur
}

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return string(TypeString)
	case bool:
		return string(TypeBoolean)
	case int, int64, int32, uint, uint64, float64, float32, json.Number:
		return string(TypeNumber)
	case map[string]any:
		return string(TypeObject)
	case []any:
		return string(TypeArray)
	default:
		return fmt.Sprintf("%T", v)
	}
}

// typeList joins type names for messages. Null is left out: it only marks
// a property that may be left empty.
func typeList(types []string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, t := range types {
		if t == typeNull || seen[t] {
			continue
		}
		seen[t] = true
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " or ")
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
