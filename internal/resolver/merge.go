package resolver

import "github.com/me/goramble/pkg/model"

// mergeLevels merges declared levels, shallowest first. Deeper declarations
// override same-named shallower ones; everything else is inherited. Order of
// the result follows first declaration, so an overridden entry keeps the
// position of its shallowest declaration.
func mergeLevels(levels ...declared) model.ConfigNode {
	deepest := levels[len(levels)-1].node
	out := model.ConfigNode{
		Level:     deepest.Level,
		Name:      deepest.Name,
		Variables: model.NewMap(),
		Axes:      deepest.Axes,
	}

	for _, d := range levels {
		n := d.node
		n.Variables.Each(func(k string, v any) {
			out.Variables.Set(k, model.CloneValue(v))
		})
		out.EnvVars = mergeEnvVars(out.EnvVars, n.EnvVars)
		out.SuccessCriteria = overrideByName(out.SuccessCriteria, n.SuccessCriteria,
			func(c model.SuccessCriterion) string { return c.Name })
		out.Internals.CustomExecutables = overrideByName(out.Internals.CustomExecutables, n.Internals.CustomExecutables,
			func(c model.CustomExecutable) string { return c.Name })
		if d.hasExecutables {
			out.Internals.Executables = append([]string(nil), n.Internals.Executables...)
		}
		for _, ce := range n.Chained {
			ce.Variables = ce.Variables.Clone()
			out.Chained = append(out.Chained, ce)
		}
		out.Modifiers = overrideByName(out.Modifiers, n.Modifiers,
			func(m model.ModifierRef) string { return m.Name })
		if d.hasTemplate {
			out.Template = n.Template
		}
	}
	return out
}

func mergeEnvVars(base, top model.EnvVarActions) model.EnvVarActions {
	out := model.EnvVarActions{
		Set:     base.Set.Clone(),
		Unset:   append([]string(nil), base.Unset...),
		Append:  append([]model.EnvVarModification(nil), base.Append...),
		Prepend: append([]model.EnvVarModification(nil), base.Prepend...),
	}
	top.Set.Each(func(k string, v any) {
		out.Set.Set(k, v)
	})
	for _, name := range top.Unset {
		if !containsString(out.Unset, name) {
			out.Unset = append(out.Unset, name)
		}
	}
	out.Append = append(out.Append, top.Append...)
	out.Prepend = append(out.Prepend, top.Prepend...)
	if out.Set.Len() == 0 {
		out.Set = nil
	}
	return out
}

// overrideByName merges top into base by key: a same-named entry replaces
// the base entry in place, new entries are appended.
func overrideByName[T any](base, top []T, key func(T) string) []T {
	if len(top) == 0 {
		return base
	}
	out := append([]T(nil), base...)
	for _, t := range top {
		replaced := false
		for i := range out {
			if key(out[i]) == key(t) {
				out[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, t)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
