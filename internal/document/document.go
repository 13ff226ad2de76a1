// Package document decodes experiment configuration documents into ordered
// maps so that declaration order is available to the resolver and expander.
package document

import (
	"fmt"
	"os"

	"github.com/me/goramble/pkg/model"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a configuration document.
func LoadFile(path string) (*model.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes YAML (or JSON, which is a YAML subset) into a *model.Map.
// Mappings become *model.Map, sequences []any, and scalars string, int,
// float64, bool or nil. An empty document yields an empty Map.
func Parse(data []byte) (*model.Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return model.NewMap(), nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 {
		return model.NewMap(), nil
	}

	v, err := convert(node)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return model.NewMap(), nil
	}
	m, ok := v.(*model.Map)
	if !ok {
		return nil, fmt.Errorf("line %d: document root must be a mapping, got %s", node.Line, kindName(node))
	}
	return m, nil
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return convert(n.Alias)

	case yaml.MappingNode:
		out := model.NewMap()
		explicit := make(map[string]bool)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			if k.Tag == "!!merge" {
				if err := mergeInto(out, v); err != nil {
					return nil, err
				}
				continue
			}
			if explicit[k.Value] {
				return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
			}
			explicit[k.Value] = true
			val, err := convert(v)
			if err != nil {
				return nil, err
			}
			out.Set(k.Value, val)
		}
		return out, nil

	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// mergeInto applies a "<<" merge key. Explicit keys of the mapping win, so
// merged keys are only set when absent.
func mergeInto(dst *model.Map, v *yaml.Node) error {
	sources := []*yaml.Node{v}
	if v.Kind == yaml.SequenceNode {
		sources = v.Content
	}
	for _, src := range sources {
		val, err := convert(src)
		if err != nil {
			return err
		}
		m, ok := val.(*model.Map)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		m.Each(func(key string, value any) {
			if !dst.Has(key) {
				dst.Set(key, value)
			}
		})
	}
	return nil
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "mapping"
	}
}
