package assets

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

func TestBuiltinServesShippedShaders(t *testing.T) {
	b := NewBuiltin()

	raw, err := b.ReadAsset("shaders/builtin.world.shadercfg")
	if err != nil {
		t.Fatalf("ReadAsset: %v", err)
	}
	if !bytes.Contains(raw, []byte(`name = "builtin.world"`)) {
		t.Fatalf("unexpected shader config:\n%s", raw)
	}

	found := false
	for _, name := range b.List() {
		if name == "shaders/builtin.world.shadercfg" {
			found = true
		}
	}
	if !found {
		t.Fatalf("builtin.world missing from %v", b.List())
	}

	if _, err := b.ReadAsset("shaders/nope.shadercfg"); !errors.Is(err, core.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
