// Package snapshot serialises graphs of engine objects. A snapshot records
// what a script can observe: own elements, own named properties and array
// lengths. Whether an array was stored densely or sparsely is not recorded,
// so equal graphs produce equal snapshots.
package snapshot

import (
	"fmt"
	"math"

	"github.com/xhaakon/qv4/vm"
)

// SchemaVersion is bumped whenever the Snapshot layout changes.
const SchemaVersion uint16 = 1

// Kind is the variant of a Cell.
type Kind uint8

const (
	KindUndefined Kind = 0
	KindNull      Kind = 1
	KindBoolean   Kind = 2
	KindInteger   Kind = 3
	KindDouble    Kind = 4
	KindString    Kind = 5
	KindRef       Kind = 6
)

// Cell is one serialised value. Objects are referenced by their index in
// Snapshot.Nodes. Doubles are kept as IEEE 754 bits so that -0 survives
// omitempty.
type Cell struct {
	Kind Kind   `cbor:"1,keyasint" msgpack:"k"`
	Bool bool   `cbor:"2,keyasint,omitempty" msgpack:"b,omitempty"`
	Int  int32  `cbor:"3,keyasint,omitempty" msgpack:"i,omitempty"`
	Bits uint64 `cbor:"4,keyasint,omitempty" msgpack:"d,omitempty"`
	Str  string `cbor:"5,keyasint,omitempty" msgpack:"s,omitempty"`
	Ref  uint32 `cbor:"6,keyasint,omitempty" msgpack:"r,omitempty"`
}

// Element is an own indexed property.
type Element struct {
	Index uint32 `cbor:"1,keyasint" msgpack:"i"`
	Value Cell   `cbor:"2,keyasint" msgpack:"v"`
}

// Property is an own named property.
type Property struct {
	Name  string `cbor:"1,keyasint" msgpack:"n"`
	Value Cell   `cbor:"2,keyasint" msgpack:"v"`
}

// Node is one object of the graph.
type Node struct {
	Class    vm.Class   `cbor:"1,keyasint" msgpack:"c"`
	Length   uint32     `cbor:"2,keyasint,omitempty" msgpack:"l,omitempty"`
	Elements []Element  `cbor:"3,keyasint,omitempty" msgpack:"e,omitempty"`
	Props    []Property `cbor:"4,keyasint,omitempty" msgpack:"p,omitempty"`
}

// Snapshot is a serialisable object graph. Nodes[0] is the root object when
// Root is a reference.
type Snapshot struct {
	Schema uint16 `cbor:"1,keyasint" msgpack:"v"`
	Root   Cell   `cbor:"2,keyasint" msgpack:"r"`
	Nodes  []Node `cbor:"3,keyasint,omitempty" msgpack:"n,omitempty"`
}

// ---------------------------------------------------------------------------
// Capture
// ---------------------------------------------------------------------------

type capturer struct {
	c     *vm.Context
	ids   map[*vm.Object]uint32
	nodes []Node
	queue []*vm.Object
}

// Capture records the graph reachable from root. Element values are read
// the way a script reads them, so accessor getters run. Native functions
// cannot be captured.
func Capture(c *vm.Context, root vm.Value) (*Snapshot, error) {
	sc := c.Engine().OpenScope()
	defer sc.Close()
	sc.Hold(root)

	cp := &capturer{c: c, ids: make(map[*vm.Object]uint32)}
	rootCell, err := cp.cell(root)
	if err != nil {
		return nil, err
	}
	for len(cp.queue) > 0 {
		obj := cp.queue[0]
		cp.queue = cp.queue[1:]
		if err := cp.fill(obj); err != nil {
			return nil, err
		}
	}
	return &Snapshot{Schema: SchemaVersion, Root: rootCell, Nodes: cp.nodes}, nil
}

func (cp *capturer) cell(v vm.Value) (Cell, error) {
	switch v.Tag() {
	case vm.TagUndefined:
		return Cell{Kind: KindUndefined}, nil
	case vm.TagNull:
		return Cell{Kind: KindNull}, nil
	case vm.TagBoolean:
		return Cell{Kind: KindBoolean, Bool: v == vm.True}, nil
	case vm.TagInteger:
		return Cell{Kind: KindInteger, Int: v.Int32()}, nil
	case vm.TagDouble:
		return Cell{Kind: KindDouble, Bits: math.Float64bits(v.Float64())}, nil
	case vm.TagString:
		return Cell{Kind: KindString, Str: v.StringValue()}, nil
	}

	obj := vm.ObjectFromValue(v)
	if obj == nil {
		return Cell{}, fmt.Errorf("snapshot: reference to a collected object")
	}
	if obj.IsCallable() {
		return Cell{}, fmt.Errorf("snapshot: cannot capture native function")
	}
	if id, ok := cp.ids[obj]; ok {
		return Cell{Kind: KindRef, Ref: id}, nil
	}
	id := uint32(len(cp.nodes))
	cp.ids[obj] = id
	cp.nodes = append(cp.nodes, Node{Class: obj.Class()})
	cp.queue = append(cp.queue, obj)
	return Cell{Kind: KindRef, Ref: id}, nil
}

func (cp *capturer) fill(obj *vm.Object) error {
	id := cp.ids[obj]
	node := Node{Class: obj.Class()}
	if obj.IsArray() {
		node.Length = obj.Length()
	}

	var indices []uint32
	obj.Storage().Each(func(i uint32, _ vm.Value) bool {
		indices = append(indices, i)
		return true
	})
	for _, i := range indices {
		v, exists, err := obj.GetIndexed(cp.c, i)
		if err != nil {
			return fmt.Errorf("snapshot: element %d: %w", i, err)
		}
		if !exists {
			continue
		}
		cell, err := cp.cell(v)
		if err != nil {
			return err
		}
		node.Elements = append(node.Elements, Element{Index: i, Value: cell})
	}

	for _, name := range obj.OwnPropertyNames() {
		v, err := obj.Get(cp.c, name)
		if err != nil {
			return fmt.Errorf("snapshot: property %q: %w", name, err)
		}
		cell, err := cp.cell(v)
		if err != nil {
			return err
		}
		node.Props = append(node.Props, Property{Name: name, Value: cell})
	}

	cp.nodes[id] = node
	return nil
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

// Restore rebuilds the graph on e and returns the root value. The result is
// not rooted; hold it before the next allocation.
func Restore(e *vm.Engine, s *Snapshot) (vm.Value, error) {
	if s.Schema != SchemaVersion {
		return vm.Undefined, fmt.Errorf("snapshot: unsupported schema %d (want %d)", s.Schema, SchemaVersion)
	}
	if err := s.validate(); err != nil {
		return vm.Undefined, err
	}

	sc := e.OpenScope()
	defer sc.Close()

	objs := make([]*vm.Object, len(s.Nodes))
	for i, n := range s.Nodes {
		switch n.Class {
		case vm.ClassArray:
			objs[i] = e.NewArray()
		case vm.ClassError:
			objs[i] = e.NewObjectWithClass(vm.ClassError, e.ErrorPrototype)
		case vm.ClassObject:
			objs[i] = e.NewObject()
		default:
			return vm.Undefined, fmt.Errorf("snapshot: node %d: cannot restore class %s", i, n.Class)
		}
		sc.Hold(objs[i].Value())
	}

	value := func(cell Cell) vm.Value {
		switch cell.Kind {
		case KindNull:
			return vm.Null
		case KindBoolean:
			return vm.FromBool(cell.Bool)
		case KindInteger:
			return vm.FromInt32(cell.Int)
		case KindDouble:
			return vm.FromFloat64(math.Float64frombits(cell.Bits))
		case KindString:
			return e.NewString(cell.Str)
		case KindRef:
			return objs[cell.Ref].Value()
		}
		return vm.Undefined
	}

	c := e.NewContext()
	for i, n := range s.Nodes {
		obj := objs[i]
		for _, el := range n.Elements {
			obj.Storage().Put(el.Index, value(el.Value))
		}
		if n.Class == vm.ClassArray {
			obj.SetLengthUnchecked(n.Length)
		}
		for _, p := range n.Props {
			if err := obj.Put(c, p.Name, value(p.Value)); err != nil {
				return vm.Undefined, fmt.Errorf("snapshot: node %d property %q: %w", i, p.Name, err)
			}
		}
	}
	return value(s.Root), nil
}

// validate checks references and element ordering before anything is
// allocated.
func (s *Snapshot) validate() error {
	checkCell := func(where string, c Cell) error {
		if c.Kind > KindRef {
			return fmt.Errorf("snapshot: %s: unknown kind %d", where, c.Kind)
		}
		if c.Kind == KindRef && int(c.Ref) >= len(s.Nodes) {
			return fmt.Errorf("snapshot: %s: reference %d out of range", where, c.Ref)
		}
		return nil
	}
	if err := checkCell("root", s.Root); err != nil {
		return err
	}
	for i, n := range s.Nodes {
		for k, el := range n.Elements {
			where := fmt.Sprintf("node %d element %d", i, el.Index)
			if el.Index == vm.MaxArrayLength {
				return fmt.Errorf("snapshot: %s: not an array index", where)
			}
			if k > 0 && el.Index <= n.Elements[k-1].Index {
				return fmt.Errorf("snapshot: %s: elements out of order", where)
			}
			if n.Class == vm.ClassArray && el.Index >= n.Length {
				return fmt.Errorf("snapshot: %s: beyond length %d", where, n.Length)
			}
			if err := checkCell(where, el.Value); err != nil {
				return err
			}
		}
		for _, p := range n.Props {
			if err := checkCell(fmt.Sprintf("node %d property %q", i, p.Name), p.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
