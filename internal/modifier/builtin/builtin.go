// Package builtin declares the modifiers that ship with goramble.
package builtin

import (
	"fmt"

	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/pkg/modkit"
)

var maintained1 = modkit.MustDefine(func(b *modkit.Builder) {
	b.Name("maintained-1")
	b.Tags("test")
	b.Maintainers("maintainer-1")
	b.Mode("test", modkit.WithDescription("This is a test mode"))
})

var intelAPS = modkit.MustDefine(func(b *modkit.Builder) {
	b.Name("intel-aps")
	b.Tags("profiler", "performance-analysis")
	b.Maintainers("rfbgo")
	b.Mode("mpi", modkit.WithDescription("Collect MPI statistics with Intel Application Performance Snapshot"))
	b.Mode("stat", modkit.WithDescription("Collect general performance statistics with Intel Application Performance Snapshot"))
})

var lscpu = modkit.MustDefine(func(b *modkit.Builder) {
	b.Name("lscpu")
	b.Tags("info", "platform-info", "system-info")
	b.Maintainers("douglasjacobsen")
	b.Mode("standard", modkit.WithDescription("Standard execution mode for lscpu"))
})

// Modifiers returns the built-in declarations.
func Modifiers() []*modkit.Modifier {
	return []*modkit.Modifier{maintained1, intelAPS, lscpu}
}

// Register adds every built-in modifier to r.
func Register(r *modifier.Registry) error {
	for _, m := range Modifiers() {
		if err := r.Register(m); err != nil {
			return fmt.Errorf("register builtin: %w", err)
		}
	}
	return nil
}
