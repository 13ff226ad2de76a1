// Package workspace runs the full setup pipeline over a document: resolve
// the configuration tree, expand every leaf, attach chains and bind
// modifiers.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/goramble/internal/chain"
	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/internal/document"
	"github.com/me/goramble/internal/expand"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/internal/resolver"
	"github.com/me/goramble/internal/schema"
	"github.com/me/goramble/pkg/model"
)

// Failure records a leaf whose expansion, chain or modifier binding failed.
type Failure struct {
	Experiment string `json:"experiment"`
	Message    string `json:"error"`
	Err        error  `json:"-"`
}

// Report is the outcome of Setup. Instances are ordered by leaf
// declaration order, then by instance index.
type Report struct {
	Leaves    int                         `json:"leaves"`
	Templates int                         `json:"templates"`
	Instances []*model.ExperimentInstance `json:"instances"`
	Warnings  []string                    `json:"warnings,omitempty"`
	Failures  []Failure                   `json:"failures,omitempty"`
}

// Err joins the errors of all failed leaves, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

// Workspace wires the pipeline stages together.
type Workspace struct {
	schemas   *schema.Registry
	resolver  *resolver.Resolver
	expander  *expand.Expander
	modifiers *modifier.Registry
	defaults  config.Defaults
	workers   int
	logger    *slog.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithWorkers bounds concurrent leaf expansion. n <= 0 means unlimited.
func WithWorkers(n int) Option {
	return func(w *Workspace) { w.workers = n }
}

// WithDefaults replaces the defaults table.
func WithDefaults(d config.Defaults) Option {
	return func(w *Workspace) { w.defaults = d }
}

// New creates a Workspace binding modifiers from mods.
func New(mods *modifier.Registry, logger *slog.Logger, opts ...Option) (*Workspace, error) {
	logger = logging.OrDiscard(logger)
	w := &Workspace{
		modifiers: mods,
		defaults:  config.DefaultDefaults(),
		logger:    logger.With("component", "workspace"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.modifiers == nil {
		w.modifiers = modifier.NewRegistry(logger)
	}
	reg, err := schema.NewRegistry(w.defaults)
	if err != nil {
		return nil, fmt.Errorf("build schema registry: %w", err)
	}
	w.schemas = reg
	w.resolver = resolver.New(reg, w.defaults, logger)
	w.expander = expand.New(logger)
	return w, nil
}

// Schemas returns the schema registry the workspace validates against.
func (w *Workspace) Schemas() *schema.Registry {
	return w.schemas
}

// SetupFile loads a document from disk and runs Setup on it.
func (w *Workspace) SetupFile(ctx context.Context, path string) (*Report, error) {
	doc, err := document.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return w.Setup(ctx, doc)
}

// SetupBytes parses data as a document and runs Setup on it.
func (w *Workspace) SetupBytes(ctx context.Context, data []byte) (*Report, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	return w.Setup(ctx, doc)
}

// leafResult is the per-leaf output slot filled by one worker.
type leafResult struct {
	instances []*model.ExperimentInstance
	warnings  []string
	err       error
}

// Setup runs the pipeline over doc. Schema violations abort before any
// expansion. Per-leaf failures are collected in the report and do not stop
// sibling leaves. Template leaves are resolved and can be chained but
// produce no instances.
func (w *Workspace) Setup(ctx context.Context, doc *model.Map) (*Report, error) {
	leaves, err := w.resolver.Resolve(doc)
	if err != nil {
		return nil, err
	}
	chains := chain.New(chain.NewIndex(leaves), w.defaults, w.logger)

	results := make([]leafResult, len(leaves))
	sem := NewSemaphore(w.workers)
	w.logger.Debug("workspace setup starting", "leaves", len(leaves), "workers", sem.Capacity())
	var wg sync.WaitGroup
	report := &Report{Leaves: len(leaves)}

	for i, leaf := range leaves {
		if leaf.Node.Template {
			report.Templates++
			w.logger.Debug("skipping template experiment", "experiment", leaf.QualifiedName())
			continue
		}
		if !sem.Acquire(ctx) {
			break
		}
		wg.Add(1)
		go func(i int, leaf *model.Leaf) {
			defer wg.Done()
			defer sem.Release()
			results[i] = w.setupLeaf(leaf, chains)
		}(i, leaf)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, res := range results {
		report.Warnings = append(report.Warnings, res.warnings...)
		if res.err != nil {
			qn := leaves[i].QualifiedName()
			w.logger.Warn("experiment setup failed", "experiment", qn, "error", res.err)
			report.Failures = append(report.Failures, Failure{Experiment: qn, Message: res.err.Error(), Err: res.err})
			continue
		}
		report.Instances = append(report.Instances, res.instances...)
	}

	w.logger.Info("workspace setup complete",
		"leaves", report.Leaves,
		"instances", len(report.Instances),
		"warnings", len(report.Warnings),
		"failures", len(report.Failures))
	return report, nil
}

func (w *Workspace) setupLeaf(leaf *model.Leaf, chains *chain.Resolver) leafResult {
	res, err := w.expander.Expand(leaf)
	if err != nil {
		return leafResult{err: err}
	}
	out := leafResult{warnings: res.Warnings}

	resolved, err := chains.Resolve(leaf)
	if err != nil {
		out.err = err
		return out
	}
	bindings, err := w.modifiers.BindAll(leaf.Node.Modifiers)
	if err != nil {
		out.err = fmt.Errorf("%s: %w", leaf.QualifiedName(), err)
		return out
	}

	for _, inst := range res.Instances {
		inst.Chain = chain.Clone(resolved)
		for _, b := range bindings {
			b.OnExecutables = append([]string(nil), b.OnExecutables...)
			inst.Modifiers = append(inst.Modifiers, b)
		}
	}
	out.instances = res.Instances
	return out
}
