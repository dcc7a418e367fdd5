package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/protocol"
)

func TestPairStoreAddHas(t *testing.T) {
	mem := flash.NewMemory()
	ctx := context.Background()
	p := NewPairStore(mem)

	if p.Has(ctx, "abc") {
		t.Error("empty pair set reports a member")
	}
	if err := p.Add(ctx, "abc"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !p.Has(ctx, "abc") {
		t.Error("Has() = false after Add")
	}
	if p.Has(ctx, "ABC") || p.Has(ctx, "ab") || p.Has(ctx, "") {
		t.Error("membership must be exact")
	}

	reloaded := NewPairStore(mem)
	if !reloaded.Has(ctx, "abc") || reloaded.Count(ctx) != 1 {
		t.Errorf("pair set not persisted: %+v", reloaded.Document(ctx))
	}
}

func TestPairStoreKeepsOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	p := NewPairStore(flash.NewMemory())

	for _, k := range []string{"one", "two", "one"} {
		if err := p.Add(ctx, k); err != nil {
			t.Fatal(err)
		}
	}

	keys := p.Document(ctx).Keys
	if fmt.Sprint(keys) != "[one two one]" {
		t.Errorf("keys = %v", keys)
	}
}

func TestPairStoreFull(t *testing.T) {
	ctx := context.Background()
	p := NewPairStore(flash.NewMemory())

	for i := 0; i < MaxPairedKeys; i++ {
		if err := p.Add(ctx, fmt.Sprintf("key-%d", i)); err != nil {
			t.Fatalf("Add(%d) error: %v", i, err)
		}
	}

	err := p.Add(ctx, "one-too-many")
	if !protocol.IsStorageFull(err) {
		t.Fatalf("Add() on a full set = %v, want StorageFull", err)
	}
	if p.Count(ctx) != MaxPairedKeys || p.Has(ctx, "one-too-many") {
		t.Error("a rejected Add changed the pair set")
	}
}
