// Package chain resolves the chained experiments declared on a leaf into
// ordered invocations of other experiments.
package chain

import (
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/pkg/model"
)

// Index finds leaves by qualified name. Template leaves are indexed too;
// they exist to be chained.
type Index struct {
	leaves []*model.Leaf
	byName map[string]*model.Leaf
}

// NewIndex indexes leaves, keeping their declaration order for globs.
func NewIndex(leaves []*model.Leaf) *Index {
	ix := &Index{leaves: leaves, byName: make(map[string]*model.Leaf, len(leaves))}
	for _, l := range leaves {
		ix.byName[l.QualifiedName()] = l
	}
	return ix
}

// Lookup resolves ref relative to from. A reference is "exp" (same
// workload), "workload.exp" (same application) or "app.workload.exp".
// Any component may be a glob; matches come back in declaration order.
func (ix *Index) Lookup(from *model.Leaf, ref string) ([]*model.Leaf, error) {
	parts := strings.Split(ref, ".")
	var app, wl, exp string
	switch len(parts) {
	case 1:
		app, wl, exp = from.Application, from.Workload, parts[0]
	case 2:
		app, wl, exp = from.Application, parts[0], parts[1]
	case 3:
		app, wl, exp = parts[0], parts[1], parts[2]
	default:
		return nil, &model.UnresolvedChainReferenceError{Experiment: from.QualifiedName(), Reference: ref}
	}

	if !isGlob(ref) {
		if l, ok := ix.byName[model.QualifiedName(app, wl, exp)]; ok {
			return []*model.Leaf{l}, nil
		}
		return nil, &model.UnresolvedChainReferenceError{Experiment: from.QualifiedName(), Reference: ref}
	}

	var out []*model.Leaf
	for _, l := range ix.leaves {
		if match(app, l.Application) && match(wl, l.Workload) && match(exp, l.Experiment) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, &model.UnresolvedChainReferenceError{Experiment: from.QualifiedName(), Reference: ref}
	}
	return out, nil
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func match(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// Resolver turns chained-experiment declarations into invocations.
type Resolver struct {
	index    *Index
	defaults config.Defaults
	logger   *slog.Logger
}

// New creates a Resolver over index.
func New(index *Index, defaults config.Defaults, logger *slog.Logger) *Resolver {
	return &Resolver{
		index:    index,
		defaults: defaults,
		logger:   logging.OrDiscard(logger).With("component", "chain-resolver"),
	}
}

// Resolve returns the chain of leaf: every "before" invocation followed by
// every "after" invocation, each group in declaration order. Chained
// experiments that declare chains of their own are resolved recursively.
// Glob matches naming leaf itself, or an experiment already being resolved
// further up the chain, are left out.
//
// The returned invocations own their variable maps; callers attaching the
// same chain to several instances should Clone it per instance.
func (r *Resolver) Resolve(leaf *model.Leaf) ([]model.ChainedInvocation, error) {
	chain, err := r.resolve(leaf, []string{leaf.QualifiedName()})
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		r.logger.Debug("chain resolved", "experiment", leaf.QualifiedName(), "entries", len(chain))
	}
	return chain, nil
}

func (r *Resolver) resolve(leaf *model.Leaf, stack []string) ([]model.ChainedInvocation, error) {
	var out []model.ChainedInvocation
	for _, entry := range leaf.Node.Chained {
		targets, err := r.index.Lookup(leaf, entry.Name)
		if err != nil {
			return nil, err
		}
		glob := isGlob(entry.Name)
		for _, target := range targets {
			qn := target.QualifiedName()
			if slices.Contains(stack, qn) {
				// A glob never chains the experiment declaring it or one
				// being resolved above it; only named references cycle.
				if glob {
					r.logger.Debug("glob skips experiment on chain", "experiment", leaf.QualifiedName(), "pattern", entry.Name, "match", qn)
					continue
				}
				return nil, &model.ChainCycleError{Chain: append(append([]string(nil), stack...), qn)}
			}
			inv := r.invocation(target, entry)
			sub, err := r.resolve(target, append(stack[:len(stack):len(stack)], qn))
			if err != nil {
				return nil, fmt.Errorf("chain %s: %w", qn, err)
			}
			inv.Chain = sub
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order == model.ChainBefore && out[j].Order != model.ChainBefore
	})
	return out, nil
}

func (r *Resolver) invocation(target *model.Leaf, entry model.ChainedExperiment) model.ChainedInvocation {
	vars := model.NewMap()
	target.Node.Variables.Each(func(name string, v any) {
		if _, isVector := v.([]any); isVector {
			return
		}
		vars.Set(name, model.CloneValue(v))
	})
	entry.Variables.Each(func(name string, v any) {
		vars.Set(name, model.CloneValue(v))
	})

	inv := model.ChainedInvocation{
		Experiment: target.QualifiedName(),
		Command:    entry.Command,
		Order:      entry.Order,
		Variables:  vars,
	}
	if inv.Command == "" {
		inv.Command = r.defaults.ChainCommand
	}
	if inv.Order == "" {
		inv.Order = r.defaults.ChainOrder
	}
	return inv
}

// Clone deep-copies a resolved chain.
func Clone(chain []model.ChainedInvocation) []model.ChainedInvocation {
	if chain == nil {
		return nil
	}
	out := make([]model.ChainedInvocation, len(chain))
	for i, inv := range chain {
		inv.Variables = inv.Variables.Clone()
		inv.Chain = Clone(inv.Chain)
		out[i] = inv
	}
	return out
}
