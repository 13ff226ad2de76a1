// Package expand turns a merged leaf experiment into concrete instances by
// taking the Cartesian product of its matrix axes.
package expand

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/varexpand"
	"github.com/me/goramble/pkg/model"
)

// InstanceNamespace is the UUIDv5 namespace for instance IDs. IDs derive
// from the qualified experiment name and the instance index, so the same
// document always yields the same IDs.
var InstanceNamespace = uuid.MustParse("8a5f0e3c-3f7b-5d1e-9c42-6b1d2e7a9f10")

// Result is the outcome of expanding one leaf.
type Result struct {
	Instances []*model.ExperimentInstance
	Warnings  []string
}

// axis is a declared axis with its points enumerated. Each point holds one
// value per variable in vars.
type axis struct {
	key    string
	vars   []string
	points [][]any
}

// Expander expands leaves. It holds no per-leaf state and is safe for
// concurrent use.
type Expander struct {
	logger *slog.Logger
}

// New creates an Expander.
func New(logger *slog.Logger) *Expander {
	return &Expander{logger: logging.OrDiscard(logger).With("component", "expander")}
}

// Expand enumerates the instances of leaf. Axes are crossed in declaration
// order with the last axis varying fastest; within an axis the vector order
// is kept. The enumeration order assigns instance indexes.
//
// A leaf without axes yields exactly one instance. An empty axis yields no
// instances and a warning. Duplicate axis keys fail with *model.ExpansionError.
func (x *Expander) Expand(leaf *model.Leaf) (*Result, error) {
	qn := leaf.QualifiedName()
	res := &Result{}

	axes, problems := buildAxes(leaf)
	if len(problems) > 0 {
		return nil, &model.ExpansionError{Experiment: qn, Problems: problems}
	}

	consumed := make(map[string]bool)
	for _, a := range axes {
		for _, v := range a.vars {
			consumed[v] = true
		}
	}

	// Vectors keep their declared position and receive a value per instance;
	// vectors outside every axis are dropped so no instance carries one.
	base := model.NewMap()
	leaf.Node.Variables.Each(func(name string, v any) {
		if _, isVector := v.([]any); isVector && !consumed[name] {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: vector variable %q is not part of any matrix and was omitted", qn, name))
			return
		}
		base.Set(name, model.CloneValue(v))
	})

	total := 1
	for _, a := range axes {
		if len(a.points) == 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: matrix axis %q is empty; no instances generated", qn, a.key))
			x.logger.Warn("empty matrix axis", "experiment", qn, "axis", a.key)
			return res, nil
		}
		total *= len(a.points)
	}

	names := make(map[string]int)
	positions := make([]int, len(axes))
	for index := 0; index < total; index++ {
		inst, err := x.instance(leaf, base, axes, positions, index)
		if err != nil {
			return nil, &model.ExpansionError{Experiment: qn, Problems: []model.FieldError{{
				Path:    fmt.Sprintf("%s#%d", qn, index),
				Message: err.Error(),
			}}}
		}
		if prev, dup := names[inst.Name]; dup {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: instances %d and %d share the name %q", qn, prev, index, inst.Name))
		} else {
			names[inst.Name] = index
		}
		res.Instances = append(res.Instances, inst)
		advance(positions, axes)
	}

	x.logger.Debug("expanded experiment", "experiment", qn, "axes", len(axes), "instances", len(res.Instances))
	return res, nil
}

func (x *Expander) instance(leaf *model.Leaf, base *model.Map, axes []axis, positions []int, index int) (*model.ExperimentInstance, error) {
	vars := base.Clone()
	bindings := make([]model.AxisBinding, len(axes))
	for i, a := range axes {
		point := a.points[positions[i]]
		values := model.NewMap()
		for j, name := range a.vars {
			vars.Set(name, point[j])
			values.Set(name, point[j])
		}
		bindings[i] = model.AxisBinding{Key: a.key, Position: positions[i], Values: values}
	}

	ex := varexpand.New(vars)
	rendered, err := ex.Variables()
	if err != nil {
		return nil, err
	}
	name, err := ex.Expand(leaf.Experiment)
	if err != nil {
		return nil, err
	}
	internals, err := renderInternals(ex, leaf.Node.Internals)
	if err != nil {
		return nil, err
	}

	qn := leaf.QualifiedName()
	return &model.ExperimentInstance{
		ID:              uuid.NewSHA1(InstanceNamespace, []byte(fmt.Sprintf("%s#%d", qn, index))).String(),
		Index:           index,
		Application:     leaf.Application,
		Workload:        leaf.Workload,
		Experiment:      leaf.Experiment,
		Name:            name,
		Variables:       rendered,
		Axes:            bindings,
		EnvVars:         leaf.Node.EnvVars.Clone(),
		SuccessCriteria: append([]model.SuccessCriterion(nil), leaf.Node.SuccessCriteria...),
		Internals:       internals,
	}, nil
}

func renderInternals(ex *varexpand.Expander, in model.Internals) (model.Internals, error) {
	out := in.Clone()
	for i := range out.CustomExecutables {
		ce := &out.CustomExecutables[i]
		tmpl, err := ex.ExpandAll(ce.Template)
		if err != nil {
			return out, fmt.Errorf("executable %s: %w", ce.Name, err)
		}
		ce.Template = tmpl
		if ce.Redirect, err = ex.Expand(ce.Redirect); err != nil {
			return out, fmt.Errorf("executable %s: %w", ce.Name, err)
		}
	}
	return out, nil
}

// buildAxes enumerates the points of every declared axis and reports
// duplicate keys.
func buildAxes(leaf *model.Leaf) ([]axis, []model.FieldError) {
	var (
		axes     []axis
		problems []model.FieldError
	)
	seen := make(map[string]string)
	for _, decl := range leaf.Node.Axes {
		if first, dup := seen[decl.Key]; dup {
			problems = append(problems, model.FieldError{
				Path:    decl.Path,
				Message: fmt.Sprintf("matrix key %q is already declared at %s", decl.Key, first),
			})
			continue
		}
		seen[decl.Key] = decl.Path

		vectors := make([][]any, 0, len(decl.Vars))
		for _, name := range decl.Vars {
			v, _ := leaf.Node.Variables.Get(name)
			vec, ok := v.([]any)
			if !ok {
				problems = append(problems, model.FieldError{
					Path:    decl.Path,
					Message: fmt.Sprintf("matrix variable %q is not a vector", name),
				})
				continue
			}
			vectors = append(vectors, vec)
		}
		axes = append(axes, axis{key: decl.Key, vars: decl.Vars, points: product(vectors)})
	}
	return axes, problems
}

// product returns the Cartesian product of vectors, last vector fastest.
func product(vectors [][]any) [][]any {
	points := [][]any{{}}
	for _, vec := range vectors {
		next := make([][]any, 0, len(points)*len(vec))
		for _, p := range points {
			for _, v := range vec {
				point := make([]any, len(p), len(p)+1)
				copy(point, p)
				next = append(next, append(point, v))
			}
		}
		points = next
	}
	return points
}

// advance steps positions like an odometer, last axis fastest.
func advance(positions []int, axes []axis) {
	for i := len(axes) - 1; i >= 0; i-- {
		positions[i]++
		if positions[i] < len(axes[i].points) {
			return
		}
		positions[i] = 0
	}
}
