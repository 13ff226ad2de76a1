// Package modkit is the declaration surface for modifiers.
//
// A modifier is declared by a setup function that receives a Builder:
//
//	m, err := modkit.Define(func(b *modkit.Builder) {
//		b.Name("lscpu")
//		b.Tags("system-info")
//		b.Maintainers("douglasjacobsen")
//		b.Mode("standard", modkit.WithDescription("Run lscpu before the experiment"))
//	})
//
// Build produces an immutable Modifier; the Builder can be discarded afterwards.
package modkit

import (
	"errors"
	"fmt"
)

// Mode is a named variant of a modifier's behavior.
type Mode struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Modifier is a built modifier declaration. Its fields are unexported so a
// registered modifier cannot be changed; use the accessors.
type Modifier struct {
	name        string
	tags        []string
	maintainers []string
	modes       []Mode
}

// Name returns the registry key of the modifier.
func (m *Modifier) Name() string { return m.name }

// Tags returns a copy of the modifier's tags in declaration order.
func (m *Modifier) Tags() []string { return append([]string(nil), m.tags...) }

// Maintainers returns a copy of the maintainer identifiers.
func (m *Modifier) Maintainers() []string { return append([]string(nil), m.maintainers...) }

// Modes returns a copy of the modes in declaration order.
func (m *Modifier) Modes() []Mode { return append([]Mode(nil), m.modes...) }

// Mode returns the mode with the given name.
func (m *Modifier) Mode(name string) (Mode, bool) {
	for _, md := range m.modes {
		if md.Name == name {
			return md, true
		}
	}
	return Mode{}, false
}

// Info is the serializable view of a Modifier.
type Info struct {
	Name        string   `json:"name"`
	Tags        []string `json:"tags"`
	Maintainers []string `json:"maintainers"`
	Modes       []Mode   `json:"modes"`
}

// Info returns a snapshot of the declaration.
func (m *Modifier) Info() Info {
	return Info{Name: m.name, Tags: m.Tags(), Maintainers: m.Maintainers(), Modes: m.Modes()}
}

// ModeOption configures a mode declaration.
type ModeOption func(*Mode)

// WithDescription sets the human-readable description of a mode.
func WithDescription(desc string) ModeOption {
	return func(m *Mode) { m.Description = desc }
}

// Builder collects a modifier declaration. Tags and maintainers are sets:
// repeated values are kept once.
type Builder struct {
	name        string
	tags        []string
	maintainers []string
	modes       []Mode
	errs        []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the modifier name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Tags adds classification tags.
func (b *Builder) Tags(tags ...string) *Builder {
	b.tags = appendUnique(b.tags, tags...)
	return b
}

// Maintainers adds maintainer identifiers.
func (b *Builder) Maintainers(ids ...string) *Builder {
	b.maintainers = appendUnique(b.maintainers, ids...)
	return b
}

// Mode declares a named mode. Declaring the same name twice is an error
// reported by Build.
func (b *Builder) Mode(name string, opts ...ModeOption) *Builder {
	if name == "" {
		b.errs = append(b.errs, errors.New("mode name must not be empty"))
		return b
	}
	for _, m := range b.modes {
		if m.Name == name {
			b.errs = append(b.errs, fmt.Errorf("mode %q declared twice", name))
			return b
		}
	}
	md := Mode{Name: name}
	for _, opt := range opts {
		opt(&md)
	}
	b.modes = append(b.modes, md)
	return b
}

// Build validates the declaration and returns the immutable Modifier.
func (b *Builder) Build() (*Modifier, error) {
	errs := b.errs
	if b.name == "" {
		errs = append([]error{errors.New("modifier name must not be empty")}, errs...)
	}
	if err := errors.Join(errs...); err != nil {
		if b.name != "" {
			return nil, fmt.Errorf("modifier %s: %w", b.name, err)
		}
		return nil, err
	}
	return &Modifier{
		name:        b.name,
		tags:        append([]string(nil), b.tags...),
		maintainers: append([]string(nil), b.maintainers...),
		modes:       append([]Mode(nil), b.modes...),
	}, nil
}

// Define runs setup against a fresh Builder and builds the result.
func Define(setup func(*Builder)) (*Modifier, error) {
	b := NewBuilder()
	setup(b)
	return b.Build()
}

// MustDefine is like Define but panics on error. It is meant for built-in
// declarations evaluated at init time.
func MustDefine(setup func(*Builder)) *Modifier {
	m, err := Define(setup)
	if err != nil {
		panic(err)
	}
	return m
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
