package vm

import (
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Multi-engine tests
//
// Engines share nothing but the ID registry. These tests check that heap
// references never alias across engines and that engines can be driven
// from separate goroutines at the same time.
// ---------------------------------------------------------------------------

func TestMultiEngine_ReferencesDoNotAlias(t *testing.T) {
	e1 := NewEngine()
	defer e1.Close()
	e2 := NewEngine()
	defer e2.Close()

	if e1.ID() == e2.ID() {
		t.Fatalf("engines share ID %d", e1.ID())
	}

	s1 := e1.NewString("one")
	s2 := e2.NewString("two")
	if s1.Engine() != e1 || s2.Engine() != e2 {
		t.Fatal("string references resolve to the wrong engine")
	}
	if s1.StringValue() != "one" || s2.StringValue() != "two" {
		t.Errorf("contents %q/%q", s1.StringValue(), s2.StringValue())
	}

	// Even when both engines hand out the same slot, the values differ.
	if s1.slot() == s2.slot() && s1 == s2 {
		t.Error("references from different engines compare equal")
	}
}

func TestMultiEngine_IndependentCollection(t *testing.T) {
	e1 := NewEngine()
	defer e1.Close()
	e2 := NewEngine()
	defer e2.Close()

	w := e2.NewWeak(e2.NewObject().Value())
	defer w.Release()

	// Collecting one engine never touches another one's heap.
	e1.CollectGarbage()
	if !w.Value().IsObject() {
		t.Error("collecting e1 cleared a weak handle of e2")
	}
	e2.CollectGarbage()
	if w.Value() != Undefined {
		t.Error("collecting e2 did not clear its weak handle")
	}
	if e1.GCCycles() != 1 || e2.GCCycles() != 1 {
		t.Errorf("cycles %d/%d, want 1/1", e1.GCCycles(), e2.GCCycles())
	}
}

func TestMultiEngine_ConcurrentMutators(t *testing.T) {
	const engines = 8

	var g errgroup.Group
	for n := 0; n < engines; n++ {
		g.Go(func() error {
			cfg := DefaultConfig()
			cfg.GCThreshold = 128
			e, err := NewEngineWithConfig(cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			c := e.NewContext()

			keep := e.NewPersistent(e.NewArray().Value())
			defer keep.Release()
			arr := ObjectFromValue(keep.Value())

			for i := 0; i < 2000; i++ {
				if _, err := arr.Push(c, FromInt32(int32(n*10000+i))); err != nil {
					return err
				}
				if i%3 == 0 {
					if _, err := arr.Shift(c); err != nil {
						return err
					}
				}
				e.NewObject()
			}

			want := int32(n*10000 + 667)
			first, _, err := arr.GetIndexed(c, 0)
			if err != nil {
				return err
			}
			if first != FromInt32(want) {
				return fmt.Errorf("engine %d: first element %v, want %d", n, first, want)
			}
			if arr.Length() != 1333 {
				return fmt.Errorf("engine %d: length %d, want 1333", n, arr.Length())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
