package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Strong handles
// ---------------------------------------------------------------------------

func TestPersistentKeepsValueAlive(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	obj := e.NewArray(e.NewString("kept"))
	p := e.NewPersistent(obj.Value())
	defer p.Release()

	e.CollectGarbage()

	kept := ObjectFromValue(p.Value())
	if kept == nil {
		t.Fatal("object held by a persistent handle was collected")
	}
	if v, _ := kept.Storage().Get(0); v.StringValue() != "kept" {
		t.Errorf("element reachable from the handle was collected: %q", v.StringValue())
	}
}

func TestUnrootedValueIsCollected(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	e.CollectGarbage()
	before := e.Heap().Live()
	for i := 0; i < 100; i++ {
		e.NewArray(FromInt32(int32(i)))
	}
	if n := e.CollectGarbage(); n < 100 {
		t.Errorf("CollectGarbage() reclaimed %d cells, want at least 100", n)
	}
	if e.Heap().Live() != before {
		t.Errorf("Live() = %d after collection, want %d", e.Heap().Live(), before)
	}
}

func TestPersistentCopyAndAssign(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	a := e.NewObject().Value()
	b := e.NewObject().Value()

	p := e.NewPersistent(a)
	q := p.Copy()
	if e.StrongHandleCount() != 1 {
		t.Errorf("StrongHandleCount() = %d with a shared cell, want 1", e.StrongHandleCount())
	}

	q.Assign(b)
	if p.Value() != a || q.Value() != b {
		t.Error("assigning a copy changed the original")
	}
	if e.StrongHandleCount() != 2 {
		t.Errorf("StrongHandleCount() = %d after detaching, want 2", e.StrongHandleCount())
	}

	// A uniquely owned cell is updated in place.
	q.Assign(a)
	if q.Value() != a || e.StrongHandleCount() != 2 {
		t.Errorf("in-place assign: value %v, count %d", q.Value(), e.StrongHandleCount())
	}

	// Non-heap values do not stay on the root list.
	q.Assign(FromInt32(1))
	if e.StrongHandleCount() != 1 {
		t.Errorf("StrongHandleCount() = %d after assigning a number, want 1", e.StrongHandleCount())
	}

	q.Set(p)
	if q.Value() != a || e.StrongHandleCount() != 1 {
		t.Errorf("Set: value %v, count %d", q.Value(), e.StrongHandleCount())
	}

	p.Release()
	if q.Value() != a {
		t.Error("releasing one owner cleared the shared cell")
	}
	q.Release()
	if !e.IsEmpty() {
		t.Errorf("engine still has %d strong handles", e.StrongHandleCount())
	}
	if !q.IsEmpty() || q.Value() != Undefined {
		t.Error("released handle still holds a value")
	}
}

func TestZeroHandles(t *testing.T) {
	var p Persistent
	var w Weak
	if !p.IsEmpty() || p.Value() != Undefined || !w.IsEmpty() || w.Value() != Undefined {
		t.Error("zero handles are not empty")
	}
	p.Release()
	w.Release()

	e := NewEngine()
	defer e.Close()
	obj := e.NewObject().Value()
	p.Assign(obj)
	defer p.Release()
	if p.Value() != obj || e.StrongHandleCount() != 1 {
		t.Error("assigning to a zero handle did not link it")
	}
}

func TestHandleMovesBetweenEngines(t *testing.T) {
	e1 := NewEngine()
	defer e1.Close()
	e2 := NewEngine()
	defer e2.Close()

	p := NewPersistent(e1.NewObject().Value())
	defer p.Release()
	if e1.StrongHandleCount() != 1 || e2.StrongHandleCount() != 0 {
		t.Fatalf("counts %d/%d, want 1/0", e1.StrongHandleCount(), e2.StrongHandleCount())
	}
	p.Assign(e2.NewObject().Value())
	if e1.StrongHandleCount() != 0 || e2.StrongHandleCount() != 1 {
		t.Errorf("counts %d/%d after move, want 0/1", e1.StrongHandleCount(), e2.StrongHandleCount())
	}
}

func TestSharedHandleAssignedAcrossEngines(t *testing.T) {
	e1 := NewEngine()
	defer e1.Close()
	e2 := NewEngine()
	defer e2.Close()

	a := NewPersistent(e1.NewObject().Value())
	defer a.Release()
	b := a.Copy()
	defer b.Release()

	b.Assign(e2.NewObject().Value())
	if e1.StrongHandleCount() != 1 || e2.StrongHandleCount() != 1 {
		t.Fatalf("counts %d/%d after split, want 1/1", e1.StrongHandleCount(), e2.StrongHandleCount())
	}
	e2.CollectGarbage()
	if ObjectFromValue(b.Value()) == nil {
		t.Error("assigned handle did not keep its object alive")
	}
	e1.CollectGarbage()
	if ObjectFromValue(a.Value()) == nil {
		t.Error("original handle lost its object")
	}
}

func TestEngineHandleOnForeignValue(t *testing.T) {
	e1 := NewEngine()
	defer e1.Close()
	e2 := NewEngine()
	defer e2.Close()
	e2.CollectGarbage()

	p := e1.NewPersistent(e2.NewObject().Value())
	defer p.Release()
	w := e1.NewWeak(e2.NewObject().Value())
	defer w.Release()
	if e1.StrongHandleCount() != 0 || e2.StrongHandleCount() != 1 || e2.WeakHandleCount() != 1 {
		t.Fatalf("handles linked into the wrong engine: %v / %v", e1, e2)
	}

	if n := e2.CollectGarbage(); n != 1 {
		t.Errorf("collected %d cells, want only the weakly held object", n)
	}
	if ObjectFromValue(p.Value()) == nil {
		t.Error("foreign value held by a strong handle was collected")
	}
	if w.Value() != Undefined {
		t.Error("weak handle of the collected object was not cleared")
	}
}

// ---------------------------------------------------------------------------
// Weak handles
// ---------------------------------------------------------------------------

func TestWeakIsClearedWhenUnreachable(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	w := e.NewWeak(e.NewObject().Value())
	defer w.Release()
	if !w.Value().IsObject() {
		t.Fatal("weak handle does not hold the object")
	}

	e.CollectGarbage()
	if w.Value() != Undefined {
		t.Errorf("weak handle = %#x after collection, want undefined", uint64(w.Value()))
	}
	if w.LastLive() != 0 {
		t.Errorf("LastLive() = %d for a value never found live", w.LastLive())
	}
}

func TestWeakObservesLiveValue(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	obj := e.NewObject().Value()
	p := e.NewPersistent(obj)
	w := e.NewWeak(obj)
	defer w.Release()

	e.CollectGarbage()
	if w.Value() != obj {
		t.Error("weak handle lost a strongly held value")
	}
	if w.LastLive() != e.GCCycles() {
		t.Errorf("LastLive() = %d, want %d", w.LastLive(), e.GCCycles())
	}
	if e.WeakHandleCount() != 1 {
		t.Errorf("WeakHandleCount() = %d, want 1", e.WeakHandleCount())
	}

	p.Release()
	e.CollectGarbage()
	if w.Value() != Undefined {
		t.Error("weak handle kept a value alive after the strong handle was released")
	}
}

func TestWeakCopyIndependence(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	a := e.NewString("a")
	w := e.NewWeak(a)
	v := w.Copy()
	v.Assign(e.NewString("b"))
	if w.Value() != a {
		t.Error("assigning a weak copy changed the original")
	}
	w.Release()
	v.Release()
	if e.WeakHandleCount() != 0 {
		t.Errorf("WeakHandleCount() = %d after release, want 0", e.WeakHandleCount())
	}
}

// ---------------------------------------------------------------------------
// Scopes and automatic collection
// ---------------------------------------------------------------------------

func TestScopeRootsTemporaries(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	w := e.NewWeak(Undefined)
	defer w.Release()

	sc := e.OpenScope()
	obj := sc.Hold(e.NewObject().Value())
	w.Assign(obj)
	e.CollectGarbage()
	if w.Value() != obj {
		t.Error("value held by an open scope was collected")
	}
	sc.Close()
	e.CollectGarbage()
	if w.Value() != Undefined {
		t.Error("value survived after its scope closed")
	}
}

func TestAutomaticCollection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCThreshold = 64
	e, err := NewEngineWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	c := e.NewContext()

	keep := e.NewPersistent(e.NewArray().Value())
	defer keep.Release()
	arr := ObjectFromValue(keep.Value())

	for i := 0; i < 1000; i++ {
		if _, err := arr.Push(c, e.NewString(NumberToString(float64(i)))); err != nil {
			t.Fatal(err)
		}
		e.NewObject() // garbage
	}
	if e.GCCycles() == 0 {
		t.Fatal("no automatic collection ran")
	}
	s, err := arr.Join(c, Undefined)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) == 0 || s[:6] != "0,1,2," {
		t.Errorf("array contents lost across collections: %.20q", s)
	}
	if live := e.Heap().Live(); live > 1400 {
		t.Errorf("Live() = %d, garbage is not being reclaimed", live)
	}
}

func TestClosedEngineHandles(t *testing.T) {
	e := NewEngine()
	obj := e.NewObject().Value()
	e.Close()

	if obj.Engine() != nil {
		t.Error("value of a closed engine still resolves")
	}
	p := e.NewPersistent(obj)
	defer p.Release()
	if e.StrongHandleCount() != 0 {
		t.Error("handle created after Close was linked")
	}
}
