package vm

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Engine: one isolated heap, its root lists and intrinsics
// ---------------------------------------------------------------------------

// Config holds the tunables of an engine. The zero value is not useful; start
// from DefaultConfig.
type Config struct {
	// GCThreshold is the number of allocations between automatic
	// collections. 0 disables automatic collection.
	GCThreshold int

	// ReserveLimit bounds the eager reservation performed by the Array
	// constructor for a numeric length argument.
	ReserveLimit uint32

	// MinHeadRoom is the smallest head-room allocated in front of a dense
	// region on the first unshift.
	MinHeadRoom int

	// SparseGap is the largest hole run a put may open past the dense
	// region before the storage is promoted to sparse.
	SparseGap uint32

	// MaxDenseIndex is the largest index the dense region may hold.
	MaxDenseIndex uint32
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		GCThreshold:   0,
		ReserveLimit:  0x1000,
		MinHeadRoom:   16,
		SparseGap:     1024,
		MaxDenseIndex: 1 << 26,
	}
}

// Engine owns a managed heap, the strong and weak handle root lists and the
// intrinsic prototypes. An engine is driven by a single mutator goroutine;
// distinct engines are independent.
type Engine struct {
	id     uint16
	config Config
	heap   *Heap

	// Root lists of handle cells.
	persistentValues *handleCell
	weakValues       *handleCell
	persistentCount  int
	weakCount        int

	// scopeStack holds temporaries native code roots across allocations.
	scopeStack []Value

	// Intrinsics
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	ErrorPrototype    *Object

	allocsSinceGC int
	collecting    bool
	gcCycles      uint64
	closed        bool
}

// NewEngine creates and bootstraps an engine with the default configuration.
func NewEngine() *Engine {
	e, err := NewEngineWithConfig(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}

// NewEngineWithConfig creates and bootstraps an engine.
func NewEngineWithConfig(cfg Config) (*Engine, error) {
	if cfg.MinHeadRoom < 1 {
		cfg.MinHeadRoom = 1
	}
	e := &Engine{
		config: cfg,
		heap:   NewHeap(256),
	}
	if err := registerEngine(e); err != nil {
		return nil, err
	}
	e.bootstrap()
	return e, nil
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() Config {
	return e.config
}

// ID returns the engine ID carried by this engine's heap references.
func (e *Engine) ID() uint16 {
	return e.id
}

// Heap exposes the managed heap for statistics.
func (e *Engine) Heap() *Heap {
	return e.heap
}

// Close detaches the engine from the registry. Heap values of a closed
// engine no longer resolve and handles created afterwards stay unlinked.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	unregisterEngine(e)
}

func (e *Engine) bootstrap() {
	e.ObjectPrototype = e.newObjectNoGC(ClassObject, nil)
	e.FunctionPrototype = e.newObjectNoGC(ClassFunction, e.ObjectPrototype)
	e.ArrayPrototype = e.newObjectNoGC(ClassArray, e.ObjectPrototype)
	e.ErrorPrototype = e.newObjectNoGC(ClassError, e.ObjectPrototype)

	e.installObjectPrototype()
	e.installArrayPrototype()
	e.installErrorPrototype()
}

// NewContext creates an execution context on this engine.
func (e *Engine) NewContext() *Context {
	return &Context{engine: e}
}

// ---------------------------------------------------------------------------
// Scopes: temporary roots
// ---------------------------------------------------------------------------

// Scope roots values for the lifetime of a native operation. Scopes nest
// strictly: Close releases everything held since OpenScope.
type Scope struct {
	engine *Engine
	base   int
}

// OpenScope starts a new temporary root scope.
func (e *Engine) OpenScope() Scope {
	return Scope{engine: e, base: len(e.scopeStack)}
}

// Hold roots v until the scope is closed and returns it.
func (s Scope) Hold(v Value) Value {
	if v.IsHeap() {
		s.engine.scopeStack = append(s.engine.scopeStack, v)
	}
	return v
}

// Close drops every value held since the scope was opened.
func (s Scope) Close() {
	stack := s.engine.scopeStack
	for i := s.base; i < len(stack); i++ {
		stack[i] = Undefined
	}
	s.engine.scopeStack = stack[:s.base]
}

// ---------------------------------------------------------------------------
// Garbage Collection
// ---------------------------------------------------------------------------

// safePoint runs an automatic collection when the allocation threshold is
// reached. Called before every heap allocation.
func (e *Engine) safePoint() {
	e.allocsSinceGC++
	if e.config.GCThreshold > 0 && e.allocsSinceGC >= e.config.GCThreshold && !e.collecting {
		e.CollectGarbage()
	}
}

// CollectGarbage performs a mark-sweep collection and returns the number of
// heap cells reclaimed.
//
// Roots are the intrinsics, every cell on the strong handle list and the
// scope stack. The weak list is visited only after marking: cells whose
// payload was reached get MarkOnce, the rest are reset to undefined.
func (e *Engine) CollectGarbage() int {
	if e.collecting {
		return 0
	}
	e.collecting = true
	defer func() { e.collecting = false }()

	e.gcCycles++
	e.allocsSinceGC = 0

	// Mark phase
	var work []Value
	mark := func(v Value) {
		if !v.IsHeap() || v.engineID() != e.id {
			return
		}
		c := e.heap.cell(v.slot())
		if c == nil || c.marked {
			return
		}
		c.marked = true
		if c.kind == cellObject {
			work = append(work, v)
		}
	}

	for _, proto := range []*Object{e.ObjectPrototype, e.FunctionPrototype, e.ArrayPrototype, e.ErrorPrototype} {
		mark(proto.Value())
	}
	for d := e.persistentValues; d != nil; d = d.next {
		mark(d.value)
	}
	for _, v := range e.scopeStack {
		mark(v)
	}

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		if obj := e.heap.cells[v.slot()].obj; obj != nil {
			obj.trace(mark)
		}
	}

	// Weak pass: never marks, only observes
	cleared := 0
	for d := e.weakValues; d != nil; d = d.next {
		if !d.value.IsHeap() || d.value.engineID() != e.id {
			continue
		}
		if c := e.heap.cell(d.value.slot()); c != nil && c.marked {
			d.markOnce(e.gcCycles)
			continue
		}
		d.value = Undefined
		cleared++
	}

	// Sweep phase
	collected := 0
	for slot := range e.heap.cells {
		c := &e.heap.cells[slot]
		if c.kind == cellFree {
			continue
		}
		if c.marked {
			c.marked = false
			continue
		}
		e.heap.release(uint32(slot))
		collected++
	}

	gcLogger().Debugf("cycle %d: collected %d cells, cleared %d weak handles, %d live",
		e.gcCycles, collected, cleared, e.heap.Live())
	return collected
}

// GCCycles returns the number of collections run so far.
func (e *Engine) GCCycles() uint64 {
	return e.gcCycles
}

// String describes the engine for diagnostics.
func (e *Engine) String() string {
	return fmt.Sprintf("engine#%d (%d live cells, %d strong, %d weak)",
		e.id, e.heap.Live(), e.persistentCount, e.weakCount)
}

func gcLogger() commonlog.Logger {
	return commonlog.GetLogger("qv4.gc")
}
