package builtin

import (
	"testing"

	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/pkg/model"
)

func TestRegister(t *testing.T) {
	r := modifier.NewRegistry(nil)
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := len(r.List()); got != 3 {
		t.Fatalf("registered %d modifiers, want 3", got)
	}
	md, err := r.GetMode("maintained-1", "test")
	if err != nil {
		t.Fatalf("GetMode: %v", err)
	}
	if md.Description != "This is a test mode" {
		t.Errorf("Description = %q", md.Description)
	}
	m, _ := r.Get("maintained-1")
	if tags := m.Tags(); len(tags) != 1 || tags[0] != "test" {
		t.Errorf("Tags = %v", tags)
	}

	// A second registration of the builtins collides.
	if err := Register(r); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestBind_Builtins(t *testing.T) {
	r := modifier.NewRegistry(nil)
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	b, err := r.Bind(model.ModifierRef{Name: "lscpu"})
	if err != nil || b.Mode != "standard" {
		t.Errorf("Bind(lscpu) = %+v, %v", b, err)
	}
	if _, err := r.Bind(model.ModifierRef{Name: "intel-aps"}); err == nil {
		t.Error("Bind(intel-aps) without mode should fail")
	}
}
