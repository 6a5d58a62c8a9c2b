package vm

import (
	"fmt"
	"math"
	"sync"
)

// ---------------------------------------------------------------------------
// Heap: collector-managed cells addressed by slot
// ---------------------------------------------------------------------------

type cellKind uint8

const (
	cellFree cellKind = iota
	cellString
	cellObject
)

// heapCell is one slot of the managed heap. Exactly one of str/obj is
// meaningful, selected by kind.
type heapCell struct {
	kind   cellKind
	marked bool
	str    string
	obj    *Object
}

// Heap stores every string and object owned by one engine. Slots are reused
// through a free list once the collector has swept them.
type Heap struct {
	cells []heapCell
	free  []uint32
	live  int
}

// NewHeap creates a heap with room for initialCapacity cells.
func NewHeap(initialCapacity int) *Heap {
	return &Heap{cells: make([]heapCell, 0, initialCapacity)}
}

func (h *Heap) alloc(kind cellKind) uint32 {
	var slot uint32
	if n := len(h.free); n > 0 {
		slot = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		if len(h.cells) == math.MaxUint32 {
			panic("vm: heap slot space exhausted")
		}
		slot = uint32(len(h.cells))
		h.cells = append(h.cells, heapCell{})
	}
	h.cells[slot] = heapCell{kind: kind}
	h.live++
	return slot
}

func (h *Heap) release(slot uint32) {
	h.cells[slot] = heapCell{}
	h.free = append(h.free, slot)
	h.live--
}

// cell returns the live cell at slot, or nil for a freed or foreign slot.
func (h *Heap) cell(slot uint32) *heapCell {
	if int(slot) >= len(h.cells) {
		return nil
	}
	c := &h.cells[slot]
	if c.kind == cellFree {
		return nil
	}
	return c
}

// Live returns the number of allocated cells.
func (h *Heap) Live() int {
	return h.live
}

// Capacity returns the number of slots ever allocated, free or not.
func (h *Heap) Capacity() int {
	return len(h.cells)
}

// ---------------------------------------------------------------------------
// Engine registry: resolves the engine ID carried in heap references
// ---------------------------------------------------------------------------

var engineRegistry = struct {
	mu   sync.RWMutex
	byID map[uint16]*Engine
	next uint16
}{byID: make(map[uint16]*Engine)}

func registerEngine(e *Engine) error {
	engineRegistry.mu.Lock()
	defer engineRegistry.mu.Unlock()

	if len(engineRegistry.byID) >= math.MaxUint16 {
		return fmt.Errorf("vm: too many live engines (%d)", len(engineRegistry.byID))
	}
	// ID 0 is never handed out so a zero payload cannot resolve.
	for {
		engineRegistry.next++
		if engineRegistry.next == 0 {
			continue
		}
		if _, taken := engineRegistry.byID[engineRegistry.next]; !taken {
			break
		}
	}
	e.id = engineRegistry.next
	engineRegistry.byID[e.id] = e
	return nil
}

func unregisterEngine(e *Engine) {
	engineRegistry.mu.Lock()
	defer engineRegistry.mu.Unlock()
	delete(engineRegistry.byID, e.id)
}

func lookupEngine(id uint16) *Engine {
	engineRegistry.mu.RLock()
	defer engineRegistry.mu.RUnlock()
	return engineRegistry.byID[id]
}

// ---------------------------------------------------------------------------
// Heap value helpers
// ---------------------------------------------------------------------------

// NewString allocates a heap string. This is an allocation safe point.
func (e *Engine) NewString(s string) Value {
	e.safePoint()
	slot := e.heap.alloc(cellString)
	e.heap.cells[slot].str = s
	return makeRef(tagString, e.id, slot)
}

// stringContent returns the characters of a string value. A string whose
// cell has been collected reads as empty.
func stringContent(v Value) string {
	e := v.Engine()
	if e == nil {
		return ""
	}
	c := e.heap.cell(v.slot())
	if c == nil || c.kind != cellString {
		return ""
	}
	return c.str
}

// StringValue returns the characters of a string value.
// Panics if v is not a string.
func (v Value) StringValue() string {
	if !v.IsString() {
		panic("Value.StringValue: not a string")
	}
	return stringContent(v)
}

// ObjectFromValue returns the object referenced by v, or nil if v is not an
// object or its cell is no longer live.
func ObjectFromValue(v Value) *Object {
	if !v.IsObject() {
		return nil
	}
	e := v.Engine()
	if e == nil {
		return nil
	}
	c := e.heap.cell(v.slot())
	if c == nil || c.kind != cellObject {
		return nil
	}
	return c.obj
}
