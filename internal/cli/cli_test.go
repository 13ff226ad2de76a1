package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const benchDoc = `
applications:
  hpl:
    variables:
      n_ranks: '{n_nodes}*{ppn}'
      ppn: 4
    modifiers:
    - name: lscpu
    workloads:
      standard:
        variables:
          n_nodes: [1, 2, 4]
        experiments:
          'hpl_{n_nodes}':
            matrix: [n_nodes]
            chained_experiments:
            - name: warmup
              order: before
          warmup:
            template: true
            variables:
              n_nodes: 1
`

const brokenDoc = `
applications:
  hpl:
    workloads:
      standard:
        experiments:
          profiled:
            modifiers:
            - name: intel-aps
`

// runCLI executes the root command with the given args and returns
// captured stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ramble.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	out, _, err := runCLI(t, "validate", writeDoc(t, benchDoc))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "1 experiment(s), 1 template(s), 3 instance(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestValidate_SchemaViolations(t *testing.T) {
	out, _, err := runCLI(t, "validate", writeDoc(t, "applications:\n  hpl:\n    bogus: true\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "problem(s)") || !strings.Contains(out, "bogus") {
		t.Errorf("output = %q", out)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExpand_Table(t *testing.T) {
	out, _, err := runCLI(t, "expand", writeDoc(t, benchDoc))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for _, want := range []string{"hpl.standard.hpl_{n_nodes}", "hpl_1", "hpl_2", "hpl_4", "3 instance(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExpand_JSON(t *testing.T) {
	out, _, err := runCLI(t, "expand", "--json", writeDoc(t, benchDoc))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	var report struct {
		Leaves    int `json:"leaves"`
		Instances []struct {
			Name      string         `json:"name"`
			Variables map[string]any `json:"variables"`
		} `json:"instances"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Leaves != 2 || len(report.Instances) != 3 {
		t.Fatalf("leaves = %d, instances = %d", report.Leaves, len(report.Instances))
	}
	if got := report.Instances[2].Variables["n_ranks"]; got != "16" {
		t.Errorf("n_ranks = %v, want 16", got)
	}
}

func TestExpand_Failures(t *testing.T) {
	_, stderr, err := runCLI(t, "expand", writeDoc(t, brokenDoc))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr, "hpl.standard.profiled") || !strings.Contains(stderr, "intel-aps") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExpand_SaveAndBrowse(t *testing.T) {
	db := filepath.Join(t.TempDir(), "goramble.db")
	doc := writeDoc(t, benchDoc)

	_, stderr, err := runCLI(t, "expand", "--save", "--db", db, doc)
	if err != nil {
		t.Fatalf("expand --save: %v", err)
	}
	if !strings.Contains(stderr, "saved expansion exp_") {
		t.Errorf("stderr = %q", stderr)
	}

	out, _, err := runCLI(t, "expansions", "list", "--db", db)
	if err != nil {
		t.Fatalf("expansions list: %v", err)
	}
	if !strings.Contains(out, doc) || !strings.Contains(out, "Showing 1 of 1") {
		t.Errorf("expansions output = %q", out)
	}

	out, _, err = runCLI(t, "instances", "list", "--db", db, "--application", "hpl")
	if err != nil {
		t.Fatalf("instances list: %v", err)
	}
	if !strings.Contains(out, "hpl_4") || !strings.Contains(out, "Showing 3 of 3") {
		t.Errorf("instances output = %q", out)
	}

	out, _, err = runCLI(t, "instances", "list", "--db", db, "--workload", "other")
	if err != nil {
		t.Fatalf("instances list: %v", err)
	}
	if !strings.Contains(out, "No instances found.") {
		t.Errorf("filtered output = %q", out)
	}

	jsonOut, _, err := runCLI(t, "expand", "--json", doc)
	if err != nil {
		t.Fatalf("expand --json: %v", err)
	}
	var report struct {
		Instances []struct {
			ID string `json:"id"`
		} `json:"instances"`
	}
	if err := json.Unmarshal([]byte(jsonOut), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := report.Instances[0].ID

	out, _, err = runCLI(t, "instances", "show", "--db", db, id)
	if err != nil {
		t.Fatalf("instances show: %v", err)
	}
	if !strings.Contains(out, `"name": "hpl_1"`) {
		t.Errorf("show output = %q", out)
	}
}

func TestInstancesShow_NotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "goramble.db")
	_, _, err := runCLI(t, "instances", "show", "--db", db, "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestSchema(t *testing.T) {
	out, _, err := runCLI(t, "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if _, ok := doc["properties"]; !ok {
		t.Errorf("schema has no properties: %v", doc)
	}

	out, _, err = runCLI(t, "schema", "experiment")
	if err != nil {
		t.Fatalf("schema experiment: %v", err)
	}
	if !strings.Contains(out, "chained_experiments") {
		t.Errorf("experiment schema missing chained_experiments")
	}

	if _, _, err := runCLI(t, "schema", "bogus"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestModifiers(t *testing.T) {
	out, _, err := runCLI(t, "modifiers", "list")
	if err != nil {
		t.Fatalf("modifiers list: %v", err)
	}
	for _, want := range []string{"intel-aps", "lscpu", "maintained-1", "mpi,stat"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, "modifiers", "show", "lscpu")
	if err != nil {
		t.Fatalf("modifiers show: %v", err)
	}
	if !strings.Contains(out, "douglasjacobsen") || !strings.Contains(out, "Standard execution mode for lscpu") {
		t.Errorf("show output = %q", out)
	}

	if _, _, err := runCLI(t, "modifiers", "show", "nope"); err == nil {
		t.Error("expected error for unknown modifier")
	}
}

func TestModifiers_PluginDir(t *testing.T) {
	dir := t.TempDir()
	src := `package main

func ModifierDefinition() map[string]any {
	return map[string]any{
		"name":  "caliper",
		"tags":  []string{"profiler"},
		"modes": []map[string]any{{"name": "spot", "description": "Spot profiles"}},
	}
}
`
	if err := os.WriteFile(filepath.Join(dir, "caliper.go"), []byte(src), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}

	out, _, err := runCLI(t, "modifiers", "list", "--modifier-dir", dir)
	if err != nil {
		t.Fatalf("modifiers list: %v", err)
	}
	if !strings.Contains(out, "caliper") {
		t.Errorf("plugin modifier missing:\n%s", out)
	}
}

func TestConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "goramble.yaml")
	content := "defaults:\n  chain_order: bogus\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, "modifiers", "list", "--config", cfgPath); err == nil {
		t.Error("expected error for invalid config")
	}
}
