package assets

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

func TestMemorySource(t *testing.T) {
	ms := NewMemorySource()
	data := []byte("hello")
	ms.Put("greeting.txt", data)
	data[0] = 'j'

	got, err := ms.ReadAsset("greeting.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("expected a private copy, got %q (%v)", got, err)
	}

	ms.Delete("greeting.txt")
	if _, err := ms.ReadAsset("greeting.txt"); !errors.Is(err, core.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestChainPrefersEarlierSources(t *testing.T) {
	first, second := NewMemorySource(), NewMemorySource()
	first.Put("a", []byte("first"))
	second.Put("a", []byte("second"))
	second.Put("b", []byte("only second"))

	chain := Chain{first, nil, second}

	if got, _ := chain.ReadAsset("a"); string(got) != "first" {
		t.Fatalf("expected first source to win, got %q", got)
	}
	if got, _ := chain.ReadAsset("b"); string(got) != "only second" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if _, err := chain.ReadAsset("c"); !errors.Is(err, core.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if _, err := (Chain{}).ReadAsset("c"); !errors.Is(err, core.ErrIO) {
		t.Fatalf("expected ErrIO from an empty chain, got %v", err)
	}
}
