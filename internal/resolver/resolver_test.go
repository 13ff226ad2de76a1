package resolver

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/internal/document"
	"github.com/me/goramble/internal/schema"
	"github.com/me/goramble/pkg/model"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := schema.NewRegistry(config.DefaultDefaults())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return New(reg, config.DefaultDefaults(), nil)
}

func resolveYAML(t *testing.T, src string) ([]*model.Leaf, error) {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return testResolver(t).Resolve(doc)
}

func mustResolve(t *testing.T, src string) []*model.Leaf {
	t.Helper()
	leaves, err := resolveYAML(t, src)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return leaves
}

const hierarchyDoc = `
applications:
  App:
    variables:
      n_nodes: 1
      label: app
    env_vars:
      set:
        A: app
      unset: [X]
    success_criteria:
    - name: done
      mode: string
      match: app
    internals:
      custom_executables:
        foo:
          template: [echo, app]
        bar:
          template: bar-cmd
          use_mpi: true
      executables: [foo, bar]
    modifiers:
    - name: lscpu
    chained_experiments:
    - name: setup
    workloads:
      Work:
        variables:
          label: workload
          n: [1, 2, 3]
        env_vars:
          set:
            B: wl
          unset: [X, Y]
        experiments:
          exp:
            variables:
              label: experiment
            matrix: [n]
            success_criteria:
            - name: done
              mode: string
              match: experiment
            internals:
              custom_executables:
                foo:
                  template: [echo, experiment]
                  redirect: out.log
            modifiers:
            - name: lscpu
              mode: custom
          setup:
            template: true
`

func TestResolve_Hierarchy(t *testing.T) {
	leaves := mustResolve(t, hierarchyDoc)
	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(leaves))
	}
	leaf := leaves[0]
	if leaf.QualifiedName() != "App.Work.exp" {
		t.Errorf("QualifiedName = %q", leaf.QualifiedName())
	}
	n := leaf.Node

	if got := strings.Join(n.Variables.Keys(), ","); got != "n_nodes,label,n" {
		t.Errorf("variable order = %s, want n_nodes,label,n", got)
	}
	if v, _ := n.Variables.Get("label"); v != "experiment" {
		t.Errorf("label = %v, want experiment (deepest wins)", v)
	}
	if v, _ := n.Variables.Get("n_nodes"); v != 1 {
		t.Errorf("n_nodes = %v, want inherited 1", v)
	}

	if n.EnvVars.Set.Len() != 2 {
		t.Errorf("env set = %v, want A and B", n.EnvVars.Set.Keys())
	}
	if got := strings.Join(n.EnvVars.Unset, ","); got != "X,Y" {
		t.Errorf("unset = %s, want X,Y", got)
	}

	if len(n.SuccessCriteria) != 1 || n.SuccessCriteria[0].Match != "experiment" {
		t.Errorf("success criteria = %+v", n.SuccessCriteria)
	}
	if len(n.Modifiers) != 1 || n.Modifiers[0].Mode != "custom" {
		t.Errorf("modifiers = %+v", n.Modifiers)
	}
	if len(n.Chained) != 1 || n.Chained[0].Name != "setup" {
		t.Errorf("chained = %+v", n.Chained)
	}
	if got := strings.Join(n.Internals.Executables, ","); got != "foo,bar" {
		t.Errorf("executables = %s", got)
	}
	if len(n.Axes) != 1 || n.Axes[0].Key != "n" {
		t.Errorf("axes = %+v", n.Axes)
	}
	if n.Template {
		t.Error("exp should not be a template")
	}
	if !leaves[1].Node.Template {
		t.Error("setup should be a template")
	}
}

func TestResolve_CustomExecutableOverride(t *testing.T) {
	leaf := mustResolve(t, hierarchyDoc)[0]

	foo, ok := leaf.Node.Internals.Executable("foo")
	if !ok {
		t.Fatal("missing foo")
	}
	if strings.Join(foo.Template, " ") != "echo experiment" {
		t.Errorf("foo.template = %v, want experiment-level declaration", foo.Template)
	}
	if foo.Redirect != "out.log" {
		t.Errorf("foo.redirect = %q", foo.Redirect)
	}

	bar, ok := leaf.Node.Internals.Executable("bar")
	if !ok {
		t.Fatal("missing bar")
	}
	if len(bar.Template) != 1 || bar.Template[0] != "bar-cmd" || !bar.UseMPI {
		t.Errorf("bar = %+v, want unchanged application declaration", bar)
	}
	if bar.Redirect != "{log_file}" || bar.OutputCapture != model.OutputDefault {
		t.Errorf("bar defaults = %q/%q", bar.Redirect, bar.OutputCapture)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	first, _ := json.Marshal(mustResolve(t, hierarchyDoc))
	second, _ := json.Marshal(mustResolve(t, hierarchyDoc))
	if string(first) != string(second) {
		t.Error("resolving the same document twice produced different leaves")
	}
}

func TestResolve_DoesNotShareState(t *testing.T) {
	leaves := mustResolve(t, hierarchyDoc)
	leaves[0].Node.Variables.Set("n_nodes", 99)
	if v, _ := leaves[1].Node.Variables.Get("n_nodes"); v != 1 {
		t.Errorf("sibling leaf n_nodes = %v, want 1", v)
	}
}

func TestResolve_EmptyLevels(t *testing.T) {
	leaves := mustResolve(t, `
applications:
  App:
    workloads:
  Other:
    workloads:
      Empty: {}
`)
	if len(leaves) != 0 {
		t.Errorf("leaves = %d, want 0", len(leaves))
	}
}

func TestResolve_SchemaViolations(t *testing.T) {
	_, err := resolveYAML(t, `
applications:
  App:
    workloads:
      Work:
        experiments:
          exp:
            varibles: {}
settings: {}
`)
	var verr *model.SchemaValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want SchemaValidationError", err)
	}
	if len(verr.Violations) != 2 {
		t.Fatalf("violations = %v, want 2", verr.Violations)
	}
	if verr.Violations[0].Path != "applications.App.workloads.Work.experiments.exp.varibles" {
		t.Errorf("path = %q", verr.Violations[0].Path)
	}
}

func TestResolve_NullListItems(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{"success criteria", "success_criteria: [null]", "applications.App.success_criteria[0]"},
		{"chained experiments", "chained_experiments: [null]", "applications.App.chained_experiments[0]"},
		{"modifiers", "modifiers: [null]", "applications.App.modifiers[0]"},
		{"env append", "env_vars:\n      append: [null]", "applications.App.env_vars.append[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveYAML(t, "applications:\n  App:\n    "+tt.body+"\n")
			var verr *model.SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want SchemaValidationError", err)
			}
			if len(verr.Violations) != 1 || verr.Violations[0].Path != tt.path {
				t.Errorf("violations = %v, want one at %s", verr.Violations, tt.path)
			}
		})
	}
}

func TestDecodeNode_SkipsNonMappingItems(t *testing.T) {
	m := model.NewMap()
	m.Set("success_criteria", []any{nil})
	m.Set("chained_experiments", []any{nil, "x"})
	m.Set("modifiers", []any{3})
	env := model.NewMap()
	env.Set("append", []any{nil})
	m.Set("env_vars", env)

	got := decodeNode(model.LevelApplication, "App", m, "applications.App", config.DefaultDefaults()).node
	if len(got.SuccessCriteria) != 0 || len(got.Chained) != 0 || len(got.Modifiers) != 0 || len(got.EnvVars.Append) != 0 {
		t.Errorf("node = %+v, want no decoded list entries", got)
	}
}

func TestResolve_AxisReferences(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "undefined",
			doc: `
applications:
  App:
    workloads:
      Work:
        experiments:
          exp:
            matrix: [missing]
`,
			wantErr: `undefined variable "missing"`,
		},
		{
			name: "scalar shadows inherited vector",
			doc: `
applications:
  App:
    workloads:
      Work:
        variables:
          n: [1, 2]
        experiments:
          exp:
            variables:
              n: 5
            matrices:
            - axis: [n]
`,
			wantErr: `"n" is not a vector`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveYAML(t, tt.doc)
			var verr *model.SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want SchemaValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve_VectorShadowsInheritedScalar(t *testing.T) {
	leaves := mustResolve(t, `
applications:
  App:
    variables:
      n: 1
    workloads:
      Work:
        experiments:
          exp:
            variables:
              n: [1, 2]
            matrix: [n]
`)
	v, _ := leaves[0].Node.Variables.Get("n")
	if list, ok := v.([]any); !ok || len(list) != 2 {
		t.Errorf("n = %v, want the experiment vector", v)
	}
}

func TestResolve_MatricesAxes(t *testing.T) {
	leaves := mustResolve(t, `
applications:
  App:
    workloads:
      Work:
        variables:
          a: [1, 2]
          b: [x, y]
          c: [3]
        experiments:
          exp:
            matrix: [a]
            matrices:
            - [b]
            - grouped: [b, c]
              other: [c]
`)
	axes := leaves[0].Node.Axes
	var keys []string
	for _, a := range axes {
		keys = append(keys, a.Key)
	}
	if got := strings.Join(keys, ","); got != "a,b,grouped,other" {
		t.Fatalf("axis keys = %s", got)
	}
	if got := strings.Join(axes[2].Vars, ","); got != "b,c" {
		t.Errorf("grouped vars = %s", got)
	}
	if axes[2].Path != "applications.App.workloads.Work.experiments.exp.matrices[1].grouped" {
		t.Errorf("grouped path = %q", axes[2].Path)
	}
}

type rejectAll struct{}

func (rejectAll) Validate(*schema.Schema, any) []model.FieldError {
	return []model.FieldError{{Path: "x", Message: "rejected"}}
}

func TestResolve_CustomValidator(t *testing.T) {
	reg, _ := schema.NewRegistry(config.DefaultDefaults())
	r := New(reg, config.DefaultDefaults(), nil, WithValidator(rejectAll{}))
	_, err := r.Resolve(model.NewMap())
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("err = %v, want custom validator violation", err)
	}
}
