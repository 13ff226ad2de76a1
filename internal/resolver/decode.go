package resolver

import (
	"fmt"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/pkg/model"
)

// declared is one level's node plus the properties whose absence must be
// distinguished from their zero value while merging.
type declared struct {
	node           model.ConfigNode
	hasTemplate    bool
	hasExecutables bool
}

// decodeNode converts a validated level mapping into a ConfigNode. List
// entries that are not mappings are skipped; validation reports them.
func decodeNode(level model.Level, name string, m *model.Map, path string, d config.Defaults) declared {
	out := declared{node: model.ConfigNode{
		Level:     level,
		Name:      name,
		Variables: model.NewMap(),
	}}
	n := &out.node

	if vars := mapAt(m, "variables"); vars != nil {
		n.Variables = vars.Clone()
	}
	if ev := mapAt(m, "env_vars"); ev != nil {
		n.EnvVars = decodeEnvVars(ev)
	}
	for _, item := range listAt(m, "success_criteria") {
		c, ok := item.(*model.Map)
		if !ok {
			continue
		}
		n.SuccessCriteria = append(n.SuccessCriteria, model.SuccessCriterion{
			Name:  stringAt(c, "name"),
			Mode:  stringAt(c, "mode"),
			Match: stringAt(c, "match"),
			File:  stringAt(c, "file"),
		})
	}
	if in := mapAt(m, "internals"); in != nil {
		ces := mapAt(in, "custom_executables")
		ces.Each(func(ceName string, v any) {
			n.Internals.CustomExecutables = append(n.Internals.CustomExecutables, decodeExecutable(ceName, v, d))
		})
		if execs, ok := in.Get("executables"); ok && execs != nil {
			out.hasExecutables = true
			n.Internals.Executables = stringList(execs)
		}
	}
	for _, item := range listAt(m, "chained_experiments") {
		c, ok := item.(*model.Map)
		if !ok {
			continue
		}
		ce := model.ChainedExperiment{
			Name:      stringAt(c, "name"),
			Command:   stringAt(c, "command"),
			Order:     model.ChainOrder(stringAt(c, "order")),
			Variables: model.NewMap(),
		}
		if vars := mapAt(c, "variables"); vars != nil {
			ce.Variables = vars.Clone()
		}
		n.Chained = append(n.Chained, ce)
	}
	for _, item := range listAt(m, "modifiers") {
		c, ok := item.(*model.Map)
		if !ok {
			continue
		}
		n.Modifiers = append(n.Modifiers, model.ModifierRef{
			Name:          stringAt(c, "name"),
			Mode:          stringAt(c, "mode"),
			OnExecutables: stringList(valueAt(c, "on_executable")),
		})
	}
	if t, ok := m.Get("template"); ok && t != nil {
		out.hasTemplate = true
		n.Template, _ = t.(bool)
	}

	if level == model.LevelExperiment {
		n.Axes = decodeAxes(m, path)
	}
	return out
}

func decodeEnvVars(m *model.Map) model.EnvVarActions {
	var a model.EnvVarActions
	if set := mapAt(m, "set"); set != nil {
		a.Set = set.Clone()
	}
	a.Unset = stringList(valueAt(m, "unset"))
	a.Append = decodeModifications(listAt(m, "append"))
	a.Prepend = decodeModifications(listAt(m, "prepend"))
	return a
}

func decodeModifications(items []any) []model.EnvVarModification {
	var out []model.EnvVarModification
	for _, item := range items {
		c, ok := item.(*model.Map)
		if !ok {
			continue
		}
		mod := model.EnvVarModification{Separator: stringAt(c, "var-separator")}
		if v := mapAt(c, "vars"); v != nil {
			mod.Vars = v.Clone()
		}
		if p := mapAt(c, "paths"); p != nil {
			mod.Paths = p.Clone()
		}
		out = append(out, mod)
	}
	return out
}

func decodeExecutable(name string, v any, d config.Defaults) model.CustomExecutable {
	ce := model.CustomExecutable{
		Name:          name,
		Template:      []string{},
		Redirect:      d.Redirect,
		OutputCapture: d.OutputCapture,
	}
	m, ok := v.(*model.Map)
	if !ok {
		return ce
	}
	if t, ok := m.Get("template"); ok && t != nil {
		ce.Template = stringList(t)
	}
	if u, ok := m.Get("use_mpi"); ok {
		ce.UseMPI, _ = u.(bool)
	}
	if r, ok := m.Get("redirect"); ok && r != nil {
		ce.Redirect = model.ScalarString(r)
	}
	if oc := stringAt(m, "output_capture"); oc != "" {
		ce.OutputCapture = model.OutputCapture(oc)
	}
	return ce
}

// decodeAxes flattens matrix and matrices declarations into axes in
// declaration order: matrix first, then each matrices entry.
func decodeAxes(m *model.Map, path string) []model.AxisDecl {
	var axes []model.AxisDecl
	for i, ref := range listAt(m, "matrix") {
		name := model.ScalarString(ref)
		axes = append(axes, model.AxisDecl{
			Key:  name,
			Vars: []string{name},
			Path: fmt.Sprintf("%s.matrix[%d]", path, i),
		})
	}
	for i, entry := range listAt(m, "matrices") {
		entryPath := fmt.Sprintf("%s.matrices[%d]", path, i)
		switch e := entry.(type) {
		case []any:
			for j, ref := range e {
				name := model.ScalarString(ref)
				axes = append(axes, model.AxisDecl{
					Key:  name,
					Vars: []string{name},
					Path: fmt.Sprintf("%s[%d]", entryPath, j),
				})
			}
		case *model.Map:
			e.Each(func(key string, refs any) {
				axes = append(axes, model.AxisDecl{
					Key:  key,
					Vars: stringList(refs),
					Path: entryPath + "." + key,
				})
			})
		}
	}
	return axes
}

func valueAt(m *model.Map, key string) any {
	v, _ := m.Get(key)
	return v
}

func mapAt(m *model.Map, key string) *model.Map {
	v, _ := valueAt(m, key).(*model.Map)
	return v
}

func listAt(m *model.Map, key string) []any {
	v, _ := valueAt(m, key).([]any)
	return v
}

func stringAt(m *model.Map, key string) string {
	v := valueAt(m, key)
	if v == nil {
		return ""
	}
	return model.ScalarString(v)
}

// stringList converts a scalar or a list of scalars into strings.
func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = model.ScalarString(item)
		}
		return out
	default:
		return []string{model.ScalarString(val)}
	}
}
