package schema

import (
	"fmt"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/pkg/model"
)

// Names of the reusable fragments held by a Registry.
const (
	FragmentVariables       = "variables"
	FragmentEnvVars         = "env_vars"
	FragmentSuccessCriteria = "success_criteria"
	FragmentLicenses        = "licenses"
	FragmentModifiers       = "modifiers"
	FragmentInternals       = "internals"
	FragmentMatrix          = "matrix"
	FragmentCommon          = "common"
)

// Registry holds the reusable fragments and the per-level fragments
// composed from them. It is built once and read-only afterwards.
type Registry struct {
	fragments map[string]*Fragment
	levels    map[model.Level]*Fragment
	document  *Schema
}

// NewRegistry composes the level fragments. Defaults supply the literal
// defaults advertised by the custom executable schema.
func NewRegistry(defaults config.Defaults) (*Registry, error) {
	r := &Registry{
		fragments: make(map[string]*Fragment),
		levels:    make(map[model.Level]*Fragment),
	}
	for _, f := range []*Fragment{
		variablesFragment(),
		envVarsFragment(),
		successCriteriaFragment(),
		licensesFragment(),
		modifiersFragment(),
		internalsFragment(defaults),
		matrixFragment(),
	} {
		r.fragments[f.Name] = f
	}

	common, err := Compose(FragmentCommon,
		r.fragments[FragmentVariables],
		r.fragments[FragmentEnvVars],
		r.fragments[FragmentSuccessCriteria],
		r.fragments[FragmentModifiers],
		r.fragments[FragmentInternals],
	)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", FragmentCommon, err)
	}
	r.fragments[FragmentCommon] = common

	experiment, err := Compose(string(model.LevelExperiment), common, r.fragments[FragmentMatrix])
	if err != nil {
		return nil, fmt.Errorf("compose experiment: %w", err)
	}
	workload, err := Compose(string(model.LevelWorkload), common,
		NewFragment("workload-children").Add("experiments", MapOf(Object(experiment))))
	if err != nil {
		return nil, fmt.Errorf("compose workload: %w", err)
	}
	application, err := Compose(string(model.LevelApplication), common,
		NewFragment("application-children").Add("workloads", MapOf(Object(workload))))
	if err != nil {
		return nil, fmt.Errorf("compose application: %w", err)
	}
	r.levels[model.LevelExperiment] = experiment
	r.levels[model.LevelWorkload] = workload
	r.levels[model.LevelApplication] = application

	r.document = Object(NewFragment("document").Add("applications", MapOf(Object(application))))
	r.document.Description = "goramble application configuration file schema"
	return r, nil
}

// Describe returns the composed fragment for a hierarchy level.
func (r *Registry) Describe(level model.Level) (*Fragment, error) {
	f, ok := r.levels[level]
	if !ok {
		return nil, fmt.Errorf("unknown level %q", level)
	}
	return f, nil
}

// Fragment returns a reusable fragment by name.
func (r *Registry) Fragment(name string) (*Fragment, bool) {
	f, ok := r.fragments[name]
	return f, ok
}

// Document returns the schema of a whole configuration document.
func (r *Registry) Document() *Schema {
	return r.document
}

// LevelSchema returns the closed object schema of one level.
func (r *Registry) LevelSchema(level model.Level) (*Schema, error) {
	f, err := r.Describe(level)
	if err != nil {
		return nil, err
	}
	return Object(f), nil
}
