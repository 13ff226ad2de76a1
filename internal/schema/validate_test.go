package schema

import (
	"testing"

	"github.com/me/goramble/internal/document"
	"github.com/me/goramble/pkg/model"
)

func validateYAML(t *testing.T, r *Registry, src string) []model.FieldError {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return NewJSONSchemaValidator().Validate(r.Document(), doc)
}

func TestValidate_ValidDocument(t *testing.T) {
	r := testRegistry(t)
	errs := validateYAML(t, r, `
applications:
  hostname:
    variables:
      n_nodes: 1
    internals:
      custom_executables:
        foo:
          template: ["echo", 1]
          use_mpi: true
    workloads:
      serial:
        env_vars:
          set:
            OMP_NUM_THREADS: 4
          append:
          - var-separator: ":"
            paths:
              PATH: /opt/bin
        experiments:
          test_{n}:
            variables:
              n: [1, 2, 3]
            matrix: [n]
            matrices:
            - [n]
            - size: [n]
            success_criteria:
            - name: done
              mode: string
              match: ".*complete.*"
            chained_experiments:
            - name: other
              order: before
              variables:
                n: 4
            modifiers:
            - name: lscpu
            template: false
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected violations: %v", errs)
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	r := testRegistry(t)
	errs := validateYAML(t, r, `
applications:
  app:
    bogus: 1
    workloads:
      wl:
        matrix: [n]
        experiments:
          exp:
            variables:
              n: {nested: map}
            internals:
              custom_executables:
                foo:
                  use_mpi: "yes"
                  output_capture: SOMETIMES
            chained_experiments:
            - command: run
              order: during
            template: 3
extra: true
`)
	want := map[string]string{
		"applications.app.bogus":                                                   "unexpected property",
		"applications.app.workloads.wl.matrix":                                     "unexpected property",
		"applications.app.workloads.wl.experiments.exp.variables.n":                "expected string or number or array, got object",
		"applications.app.workloads.wl.experiments.exp.internals.custom_executables.foo.use_mpi":        "expected boolean, got string",
		"applications.app.workloads.wl.experiments.exp.internals.custom_executables.foo.output_capture": `"SOMETIMES" is not one of STDOUT, STDERR, ALL, DEFAULT`,
		"applications.app.workloads.wl.experiments.exp.chained_experiments[0].name":                     "required property is missing",
		"applications.app.workloads.wl.experiments.exp.chained_experiments[0].order":                    `"during" is not one of before, after`,
		"applications.app.workloads.wl.experiments.exp.template":                                         "expected boolean, got number",
		"extra": "unexpected property",
	}
	got := make(map[string]string)
	for _, e := range errs {
		got[e.Path] = e.Message
	}
	for path, msg := range want {
		if got[path] != msg {
			t.Errorf("%s: got %q, want %q", path, got[path], msg)
		}
	}
	if len(errs) != len(want) {
		t.Errorf("violations = %d, want %d: %v", len(errs), len(want), errs)
	}
}

func TestValidate_EmptyLevelsAllowed(t *testing.T) {
	r := testRegistry(t)
	errs := validateYAML(t, r, `
applications:
  app:
    workloads:
  other: {}
`)
	if len(errs) != 0 {
		t.Errorf("unexpected violations: %v", errs)
	}
}

func TestValidate_MatricesShapes(t *testing.T) {
	r := testRegistry(t)
	errs := validateYAML(t, r, `
applications:
  app:
    workloads:
      wl:
        experiments:
          exp:
            matrices:
            - 3
            - axis: [a, 1]
`)
	if len(errs) != 2 {
		t.Fatalf("violations = %v, want 2", errs)
	}
	if errs[0].Path != "applications.app.workloads.wl.experiments.exp.matrices[0]" {
		t.Errorf("first path = %q", errs[0].Path)
	}
	if errs[1].Path != "applications.app.workloads.wl.experiments.exp.matrices[1].axis[1]" {
		t.Errorf("second path = %q", errs[1].Path)
	}
}

func TestValidate_NullValues(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		name string
		src  string
		want map[string]string
	}{
		{
			name: "empty keys take defaults",
			src:  "applications:\n  app:\n    env_vars:\n    template:\n    internals:\n      custom_executables:\n        foo:\n          redirect:\n",
			want: map[string]string{},
		},
		{
			name: "null list items",
			src: `
applications:
  app:
    success_criteria: [null]
    chained_experiments: [null]
    modifiers: [null]
    env_vars:
      prepend: [null]
`,
			want: map[string]string{
				"applications.app.success_criteria[0]":    "expected object, got null",
				"applications.app.chained_experiments[0]": "expected object, got null",
				"applications.app.modifiers[0]":           "expected object, got null",
				"applications.app.env_vars.prepend[0]":    "expected object, got null",
			},
		},
		{
			name: "null variable",
			src:  "applications:\n  app:\n    variables:\n      n:\n",
			want: map[string]string{
				"applications.app.variables.n": "expected string or number or array, got null",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateYAML(t, r, tt.src)
			got := make(map[string]string)
			for _, e := range errs {
				got[e.Path] = e.Message
			}
			if len(got) != len(tt.want) {
				t.Fatalf("violations = %v, want %v", errs, tt.want)
			}
			for path, msg := range tt.want {
				if got[path] != msg {
					t.Errorf("%s: got %q, want %q", path, got[path], msg)
				}
			}
		})
	}
}

func TestJSONSchemaValidator_CachesCompiledSchema(t *testing.T) {
	r := testRegistry(t)
	v := NewJSONSchemaValidator()
	v.Validate(r.Document(), model.NewMap())
	v.Validate(r.Document(), model.NewMap())
	if len(v.compiled) != 1 {
		t.Errorf("compiled = %d, want 1", len(v.compiled))
	}
}
