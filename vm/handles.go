package vm

// ---------------------------------------------------------------------------
// Handles: strong and weak external references into the managed heap
// ---------------------------------------------------------------------------

// handleCell is the shared backing store of Persistent and Weak handles.
// A cell is linked into its engine's strong or weak root list while its
// refcount is positive and it holds a heap value of a live engine.
type handleCell struct {
	value    Value
	refcount int
	prev     *handleCell
	next     *handleCell
	engine   *Engine
	weak     bool
	linked   bool

	// lastLive is the collection cycle in which a weak cell's payload was
	// last found reachable.
	lastLive uint64
}

// newHandleCell allocates a cell with refcount 1. A heap value always links
// into the engine that owns it; engine is only recorded for other values.
func newHandleCell(v Value, engine *Engine, weak bool) *handleCell {
	d := &handleCell{value: v, refcount: 1, engine: engine, weak: weak}
	if v.IsHeap() {
		d.engine = v.Engine()
		d.link()
	}
	return d
}

func (d *handleCell) listRoot() (**handleCell, *int) {
	if d.weak {
		return &d.engine.weakValues, &d.engine.weakCount
	}
	return &d.engine.persistentValues, &d.engine.persistentCount
}

// link inserts the cell at the head of its root list.
func (d *handleCell) link() {
	if d.linked || d.engine == nil || d.engine.closed {
		return
	}
	root, count := d.listRoot()
	d.prev = nil
	d.next = *root
	if d.next != nil {
		d.next.prev = d
	}
	*root = d
	*count++
	d.linked = true
}

// unlink removes the cell from its root list.
func (d *handleCell) unlink() {
	if !d.linked {
		return
	}
	root, count := d.listRoot()
	if d.prev != nil {
		d.prev.next = d.next
	} else {
		*root = d.next
	}
	if d.next != nil {
		d.next.prev = d.prev
	}
	d.prev, d.next = nil, nil
	*count--
	d.linked = false
}

func (d *handleCell) ref() {
	d.refcount++
}

func (d *handleCell) deref() {
	d.refcount--
	if d.refcount == 0 {
		d.unlink()
		d.value = Undefined
	}
}

// detach rebinds a handle holding d to v. A uniquely owned cell is updated
// in place; a shared one is left to its other owners and a new cell is
// returned.
func (d *handleCell) detach(v Value) *handleCell {
	if d.refcount > 1 {
		d.refcount--
		// newHandleCell resolves the engine of a heap v itself.
		return newHandleCell(v, d.engine, d.weak)
	}
	d.value = v
	if !v.IsHeap() {
		d.unlink()
		return d
	}
	if d.linked && v.engineID() != d.engine.id {
		d.unlink()
		d.engine = nil
	}
	if !d.linked {
		if d.engine == nil || v.engineID() != d.engine.id {
			d.engine = v.Engine()
		}
		d.link()
	}
	return d
}

// markOnce records that the collector found the payload of a weak cell
// reachable in cycle. It never marks anything itself.
func (d *handleCell) markOnce(cycle uint64) {
	d.lastLive = cycle
}

// ---------------------------------------------------------------------------
// Persistent
// ---------------------------------------------------------------------------

// Persistent is a strong handle: while it holds a heap value that value is a
// collection root. The zero Persistent holds undefined.
//
// Persistent values are reference-counted handles, so copying the struct
// does not count as a new owner; use Copy.
type Persistent struct {
	d *handleCell
}

// NewPersistent creates a strong handle, resolving the engine from v.
func NewPersistent(v Value) Persistent {
	return Persistent{d: newHandleCell(v, nil, false)}
}

// NewPersistent creates a strong handle on e. A heap value of another engine
// is rooted in that engine instead.
func (e *Engine) NewPersistent(v Value) Persistent {
	return Persistent{d: newHandleCell(v, e, false)}
}

// Value returns the held value.
func (p Persistent) Value() Value {
	if p.d == nil {
		return Undefined
	}
	return p.d.value
}

// IsEmpty returns true for a released or zero handle.
func (p Persistent) IsEmpty() bool {
	return p.d == nil
}

// Copy returns a handle sharing p's cell.
func (p Persistent) Copy() Persistent {
	if p.d != nil {
		p.d.ref()
	}
	return p
}

// Assign makes p hold v. Other copies sharing the cell keep the old value.
func (p *Persistent) Assign(v Value) {
	if p.d == nil {
		p.d = newHandleCell(v, nil, false)
		return
	}
	p.d = p.d.detach(v)
}

// Set makes p share other's cell, releasing its own.
func (p *Persistent) Set(other Persistent) {
	if p.d == other.d {
		return
	}
	if p.d != nil {
		p.d.deref()
	}
	p.d = other.Copy().d
}

// Release drops p's ownership. The cell is unlinked when its last owner
// releases it.
func (p *Persistent) Release() {
	if p.d == nil {
		return
	}
	p.d.deref()
	p.d = nil
}

// ---------------------------------------------------------------------------
// Weak
// ---------------------------------------------------------------------------

// Weak observes a heap value without keeping it alive. After a collection
// in which the value was unreachable, the handle reads as undefined.
type Weak struct {
	d *handleCell
}

// NewWeak creates a weak handle, resolving the engine from v.
func NewWeak(v Value) Weak {
	return Weak{d: newHandleCell(v, nil, true)}
}

// NewWeak creates a weak handle on e. A heap value of another engine is
// observed by that engine instead.
func (e *Engine) NewWeak(v Value) Weak {
	return Weak{d: newHandleCell(v, e, true)}
}

// Value returns the held value, or undefined once it was collected.
func (w Weak) Value() Value {
	if w.d == nil {
		return Undefined
	}
	return w.d.value
}

// IsEmpty returns true for a released or zero handle.
func (w Weak) IsEmpty() bool {
	return w.d == nil
}

// LastLive returns the collection cycle in which the payload was last found
// reachable, 0 if never.
func (w Weak) LastLive() uint64 {
	if w.d == nil {
		return 0
	}
	return w.d.lastLive
}

// Copy returns a handle sharing w's cell.
func (w Weak) Copy() Weak {
	if w.d != nil {
		w.d.ref()
	}
	return w
}

// Assign makes w observe v. Other copies sharing the cell keep the old value.
func (w *Weak) Assign(v Value) {
	if w.d == nil {
		w.d = newHandleCell(v, nil, true)
		return
	}
	w.d = w.d.detach(v)
}

// Set makes w share other's cell, releasing its own.
func (w *Weak) Set(other Weak) {
	if w.d == other.d {
		return
	}
	if w.d != nil {
		w.d.deref()
	}
	w.d = other.Copy().d
}

// Release drops w's ownership.
func (w *Weak) Release() {
	if w.d == nil {
		return
	}
	w.d.deref()
	w.d = nil
}

// ---------------------------------------------------------------------------
// Root list statistics
// ---------------------------------------------------------------------------

// StrongHandleCount returns the number of linked strong cells.
func (e *Engine) StrongHandleCount() int {
	return e.persistentCount
}

// WeakHandleCount returns the number of linked weak cells.
func (e *Engine) WeakHandleCount() int {
	return e.weakCount
}

// IsEmpty returns true when no handle cell is linked.
func (e *Engine) IsEmpty() bool {
	return e.persistentCount == 0 && e.weakCount == 0
}
