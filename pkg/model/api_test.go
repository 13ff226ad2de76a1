package model

import (
	"encoding/json"
	"testing"
)

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		input      ListOptions
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ListOptions{Limit: 0, Offset: 0}, 20, 0},
		{"negative limit", ListOptions{Limit: -5, Offset: 0}, 20, 0},
		{"over max", ListOptions{Limit: 2000, Offset: 0}, 500, 0},
		{"negative offset", ListOptions{Limit: 10, Offset: -3}, 10, 0},
		{"valid", ListOptions{Limit: 50, Offset: 10}, 50, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.input.Limit, tt.wantLimit)
			}
			if tt.input.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", tt.input.Offset, tt.wantOffset)
			}
		})
	}
}

func TestMap_OrderAndJSON(t *testing.T) {
	m := NewMap()
	m.Set("zeta", 1)
	m.Set("alpha", []any{"a", 2})
	m.Set("zeta", 3)

	if got := m.Keys(); len(got) != 2 || got[0] != "zeta" || got[1] != "alpha" {
		t.Fatalf("Keys() = %v, want [zeta alpha]", got)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"zeta":3,"alpha":["a",2]}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Map
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := back.Keys(); got[0] != "zeta" || got[1] != "alpha" {
		t.Errorf("round trip keys = %v", got)
	}
	if v, _ := back.Get("zeta"); v != 3 {
		t.Errorf("zeta = %v (%T), want int 3", v, v)
	}
}

func TestMap_CloneIsDeep(t *testing.T) {
	inner := NewMap()
	inner.Set("x", 1)
	m := NewMap()
	m.Set("inner", inner)
	m.Set("list", []any{1, 2})

	c := m.Clone()
	ci, _ := c.Get("inner")
	ci.(*Map).Set("x", 99)
	cl, _ := c.Get("list")
	cl.([]any)[0] = 42

	if v, _ := inner.Get("x"); v != 1 {
		t.Errorf("original inner mutated: x = %v", v)
	}
	l, _ := m.Get("list")
	if l.([]any)[0] != 1 {
		t.Errorf("original list mutated: %v", l)
	}
}

func TestMap_Delete(t *testing.T) {
	m := NewMap()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")
	m.Delete("missing")
	if got := m.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Keys() = %v, want [a c]", got)
	}
}

func TestMap_NilSafe(t *testing.T) {
	var m *Map
	if m.Len() != 0 || m.Keys() != nil || m.Has("x") {
		t.Error("nil Map should behave as empty")
	}
	if c := m.Clone(); c.Len() != 0 {
		t.Error("clone of nil Map should be empty")
	}
}

func TestPlain(t *testing.T) {
	inner := NewMap()
	inner.Set("x", 1)
	got := Plain([]any{inner, "s", nil})
	list, ok := got.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("Plain = %#v", got)
	}
	m, ok := list[0].(map[string]any)
	if !ok || m["x"] != 1 {
		t.Errorf("item 0 = %#v, want map with x=1", list[0])
	}
	if list[2] != nil {
		t.Errorf("item 2 = %#v, want nil", list[2])
	}
}
