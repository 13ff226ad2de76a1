// Package plugin loads modifier declarations from Go source files
// interpreted at runtime.
//
// Each .go file in a plugin directory is a main package defining
//
//	func ModifierDefinition() map[string]any
//
// (optionally returning a second error value). The returned map carries
// name, tags, maintainers and modes; it is replayed into a modkit.Builder.
package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/pkg/modkit"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const definitionFuncName = "ModifierDefinition"

type modeDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type definition struct {
	Name        string           `yaml:"name"`
	Tags        []string         `yaml:"tags"`
	Maintainers []string         `yaml:"maintainers"`
	Modes       []modeDefinition `yaml:"modes"`
}

// LoadDir interprets every .go file in dir in name order. A missing
// directory yields no modifiers.
func LoadDir(dir string) ([]*modkit.Modifier, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var mods []*modkit.Modifier
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		m, err := LoadFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// LoadFile interprets one plugin source file.
func LoadFile(path string) (*modkit.Modifier, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fn, err := i.Eval(definitionFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s() map[string]any: %w", path, definitionFuncName, err)
	}
	raw, err := invoke(fn)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	def, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	m, err := modkit.Define(def.apply)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return m, nil
}

// LoadInto loads every directory and registers the modifiers found.
// Registration stops at the first failure.
func LoadInto(r *modifier.Registry, logger *slog.Logger, dirs ...string) error {
	logger = logging.OrDiscard(logger).With("component", "modifier-plugins")
	for _, dir := range dirs {
		mods, err := LoadDir(dir)
		if err != nil {
			return err
		}
		for _, m := range mods {
			if err := r.Register(m); err != nil {
				return fmt.Errorf("plugin: %s: %w", dir, err)
			}
		}
		logger.Debug("plugin directory loaded", "dir", dir, "modifiers", len(mods))
	}
	return nil
}

func (d definition) apply(b *modkit.Builder) {
	b.Name(d.Name)
	b.Tags(d.Tags...)
	b.Maintainers(d.Maintainers...)
	for _, md := range d.Modes {
		b.Mode(md.Name, modkit.WithDescription(md.Description))
	}
}

// decode round-trips the interpreted map through YAML so loosely typed
// plugin values land in the definition struct.
func decode(raw map[string]any) (definition, error) {
	var def definition
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return def, fmt.Errorf("encode definition: %w", err)
	}
	if err := yaml.Unmarshal(payload, &def); err != nil {
		return def, fmt.Errorf("decode definition: %w", err)
	}
	return def, nil
}

func invoke(value reflect.Value) (map[string]any, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", definitionFuncName)
	}
	results := value.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return (map[string]any[, error])", definitionFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned non-error second value", definitionFuncName)
	}
	def, ok := results[0].Interface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must return map[string]any, got %s", definitionFuncName, results[0].Type())
	}
	return def, nil
}
