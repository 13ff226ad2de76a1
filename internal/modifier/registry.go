// Package modifier holds the registry of modifier declarations and binds
// modifier references on experiments to concrete modes.
package modifier

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/pkg/model"
	"github.com/me/goramble/pkg/modkit"
)

// Registry maps modifier names to their declarations.
// Register calls are serialized; once registration is done the registry is
// only read and may be shared across workers.
type Registry struct {
	mu        sync.RWMutex
	modifiers map[string]*modkit.Modifier
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modifiers: make(map[string]*modkit.Modifier),
		logger:    logging.OrDiscard(logger).With("component", "modifier-registry"),
	}
}

// Register adds m. A second modifier with the same name is rejected with
// *model.DuplicateModifierError and the first one stays registered.
func (r *Registry) Register(m *modkit.Modifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modifiers[m.Name()]; exists {
		return &model.DuplicateModifierError{Modifier: m.Name()}
	}
	r.modifiers[m.Name()] = m
	r.logger.Info("modifier registered", "name", m.Name(), "modes", len(m.Modes()))
	return nil
}

// Get returns the modifier registered under name.
func (r *Registry) Get(name string) (*modkit.Modifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modifiers[name]
	if !ok {
		return nil, &model.UnknownModifierError{Modifier: name}
	}
	return m, nil
}

// GetMode returns mode of modifier name.
func (r *Registry) GetMode(name, mode string) (modkit.Mode, error) {
	m, err := r.Get(name)
	if err != nil {
		return modkit.Mode{}, err
	}
	md, ok := m.Mode(mode)
	if !ok {
		return modkit.Mode{}, &model.UnknownModeError{Modifier: name, Mode: mode}
	}
	return md, nil
}

// List returns all modifiers sorted by name.
func (r *Registry) List() []*modkit.Modifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*modkit.Modifier, 0, len(r.modifiers))
	for _, m := range r.modifiers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Bind resolves a modifier reference into the binding recorded on an
// instance. Without an explicit mode, a modifier declaring exactly one
// mode binds to it and a modifier declaring none binds with an empty mode;
// several modes require a choice.
func (r *Registry) Bind(ref model.ModifierRef) (model.ModifierBinding, error) {
	binding := model.ModifierBinding{
		Name:          ref.Name,
		Mode:          ref.Mode,
		OnExecutables: append([]string(nil), ref.OnExecutables...),
	}
	if ref.Mode != "" {
		_, err := r.GetMode(ref.Name, ref.Mode)
		return binding, err
	}

	m, err := r.Get(ref.Name)
	if err != nil {
		return binding, err
	}
	modes := m.Modes()
	switch len(modes) {
	case 0:
	case 1:
		binding.Mode = modes[0].Name
	default:
		return binding, &model.UnknownModeError{Modifier: ref.Name}
	}
	return binding, nil
}

// BindAll binds every reference in order and stops at the first failure.
func (r *Registry) BindAll(refs []model.ModifierRef) ([]model.ModifierBinding, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]model.ModifierBinding, 0, len(refs))
	for _, ref := range refs {
		b, err := r.Bind(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
