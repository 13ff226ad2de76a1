// Package resolver walks a configuration document and merges every
// application, workload and experiment into one definition per leaf
// experiment.
package resolver

import (
	"fmt"
	"log/slog"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/schema"
	"github.com/me/goramble/pkg/model"
)

// Resolver validates documents and produces merged leaves.
type Resolver struct {
	registry  *schema.Registry
	validator schema.Validator
	defaults  config.Defaults
	logger    *slog.Logger
}

// Option configures optional Resolver dependencies.
type Option func(*Resolver)

// WithValidator replaces the built-in JSON Schema validator.
func WithValidator(v schema.Validator) Option {
	return func(r *Resolver) {
		r.validator = v
	}
}

// New creates a Resolver.
func New(registry *schema.Registry, defaults config.Defaults, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		registry:  registry,
		validator: schema.NewJSONSchemaValidator(),
		defaults:  defaults,
		logger:    logging.OrDiscard(logger).With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates doc and returns one merged leaf per experiment in
// declaration order. Every schema violation, including matrix references
// that do not name a vector variable, is reported in a single
// *model.SchemaValidationError before any leaf is returned.
func (r *Resolver) Resolve(doc *model.Map) ([]*model.Leaf, error) {
	if errs := r.validator.Validate(r.registry.Document(), doc); len(errs) > 0 {
		return nil, &model.SchemaValidationError{Violations: errs}
	}

	var (
		leaves []*model.Leaf
		errs   []model.FieldError
	)
	apps := mapAt(doc, "applications")
	apps.Each(func(appName string, av any) {
		appMap := asMap(av)
		appPath := "applications." + appName
		app := decodeNode(model.LevelApplication, appName, appMap, appPath, r.defaults)

		mapAt(appMap, "workloads").Each(func(wlName string, wv any) {
			wlMap := asMap(wv)
			wlPath := appPath + ".workloads." + wlName
			wl := decodeNode(model.LevelWorkload, wlName, wlMap, wlPath, r.defaults)

			mapAt(wlMap, "experiments").Each(func(expName string, ev any) {
				expPath := wlPath + ".experiments." + expName
				exp := decodeNode(model.LevelExperiment, expName, asMap(ev), expPath, r.defaults)

				leaf := &model.Leaf{
					Application: appName,
					Workload:    wlName,
					Experiment:  expName,
					Node:        mergeLevels(app, wl, exp),
				}
				errs = append(errs, checkAxisReferences(leaf)...)
				leaves = append(leaves, leaf)
				r.logger.Debug("resolved experiment",
					"experiment", leaf.QualifiedName(),
					"variables", leaf.Node.Variables.Len(),
					"axes", len(leaf.Node.Axes),
					"template", leaf.Node.Template)
			})
		})
	})

	if len(errs) > 0 {
		return nil, &model.SchemaValidationError{Violations: errs}
	}
	r.logger.Info("document resolved", "experiments", len(leaves))
	return leaves, nil
}

// checkAxisReferences verifies that each axis variable resolves, after
// shallow-to-deep shadowing, to a vector.
func checkAxisReferences(leaf *model.Leaf) []model.FieldError {
	var errs []model.FieldError
	for _, axis := range leaf.Node.Axes {
		if len(axis.Vars) == 0 {
			errs = append(errs, model.FieldError{Path: axis.Path, Message: "matrix references no variables"})
		}
		for _, name := range axis.Vars {
			v, ok := leaf.Node.Variables.Get(name)
			if !ok {
				errs = append(errs, model.FieldError{
					Path:    axis.Path,
					Message: fmt.Sprintf("matrix references undefined variable %q", name),
				})
				continue
			}
			if _, isVector := v.([]any); !isVector {
				errs = append(errs, model.FieldError{
					Path:    axis.Path,
					Message: fmt.Sprintf("matrix variable %q is not a vector at the deepest scope declaring it", name),
				})
			}
		}
	}
	return errs
}

func asMap(v any) *model.Map {
	m, _ := v.(*model.Map)
	if m == nil {
		return model.NewMap()
	}
	return m
}
