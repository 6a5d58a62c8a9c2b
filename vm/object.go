package vm

import (
	"strconv"

	"fortio.org/safecast"
)

// Class identifies the built-in kind of an object.
type Class uint8

const (
	ClassObject Class = iota
	ClassArray
	ClassFunction
	ClassError
)

// String returns the class name reported by Object.prototype.toString.
func (c Class) String() string {
	switch c {
	case ClassArray:
		return "Array"
	case ClassFunction:
		return "Function"
	case ClassError:
		return "Error"
	default:
		return "Object"
	}
}

// Hint selects the preferred result type of ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

// PrimitiveHook overrides the default primitive conversion of an object.
// The returned value must be primitive.
type PrimitiveHook func(c *Context, this *Object, hint Hint) (Value, error)

// Object represents a heap-allocated script object.
//
// Named properties keep insertion order. Canonical array-index names live in
// the indexed storage instead, which every class has; only arrays tie the
// "length" property to it.
type Object struct {
	engine *Engine
	slot   uint32
	class  Class
	proto  *Object

	names []string
	props map[string]Value

	storage ArrayStorage

	call        NativeFunction
	toPrimitive PrimitiveHook

	// boxed is the primitive wrapped by a receiver box.
	boxed Value
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// newObjectNoGC allocates without a safe point. Used while bootstrapping and
// by the allocators below once their inputs are rooted.
func (e *Engine) newObjectNoGC(class Class, proto *Object) *Object {
	slot := e.heap.alloc(cellObject)
	obj := &Object{
		engine:  e,
		slot:    slot,
		class:   class,
		proto:   proto,
		storage: newArrayStorage(&e.config),
	}
	e.heap.cells[slot].obj = obj
	return obj
}

func (e *Engine) newStringNoGC(s string) Value {
	slot := e.heap.alloc(cellString)
	e.heap.cells[slot].str = s
	return makeRef(tagString, e.id, slot)
}

func (e *Engine) newFunctionNoGC(name string, fn NativeFunction) *Object {
	obj := e.newObjectNoGC(ClassFunction, e.FunctionPrototype)
	obj.call = fn
	obj.setOwn("name", e.newStringNoGC(name))
	return obj
}

// NewObjectWithClass allocates an object of the given class. This is an
// allocation safe point; proto is kept alive across it.
func (e *Engine) NewObjectWithClass(class Class, proto *Object) *Object {
	if proto != nil {
		sc := e.OpenScope()
		sc.Hold(proto.Value())
		e.safePoint()
		sc.Close()
	} else {
		e.safePoint()
	}
	return e.newObjectNoGC(class, proto)
}

// NewObject allocates a plain object inheriting from Object.prototype.
func (e *Engine) NewObject() *Object {
	return e.NewObjectWithClass(ClassObject, e.ObjectPrototype)
}

// NewArray allocates an array holding values.
func (e *Engine) NewArray(values ...Value) *Object {
	sc := e.OpenScope()
	for _, v := range values {
		sc.Hold(v)
	}
	arr := e.NewObjectWithClass(ClassArray, e.ArrayPrototype)
	sc.Close()
	if n, err := safecast.Conv[uint32](len(values)); err == nil && n > 0 {
		arr.storage.Reserve(n)
		for i, v := range values {
			arr.storage.Put(uint32(i), v)
		}
	}
	return arr
}

// NewFunction allocates a native function object.
func (e *Engine) NewFunction(name string, fn NativeFunction) *Object {
	obj := e.NewObjectWithClass(ClassFunction, e.FunctionPrototype)
	obj.call = fn
	sc := e.OpenScope()
	defer sc.Close()
	sc.Hold(obj.Value())
	obj.setOwn("name", e.NewString(name))
	return obj
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Value returns the object reference for obj.
func (o *Object) Value() Value {
	return makeRef(tagObject, o.engine.id, o.slot)
}

// Engine returns the owning engine.
func (o *Object) Engine() *Engine {
	return o.engine
}

// Class returns the built-in kind of the object.
func (o *Object) Class() Class {
	return o.class
}

// IsArray returns true for Array objects.
func (o *Object) IsArray() bool {
	return o.class == ClassArray
}

// IsCallable returns true for objects with a native call.
func (o *Object) IsCallable() bool {
	return o.call != nil
}

// Prototype returns the prototype, nil at the end of the chain.
func (o *Object) Prototype() *Object {
	return o.proto
}

// SetPrototype replaces the prototype. Gaining a chain that contributes
// indexed properties turns the storage sparse.
func (o *Object) SetPrototype(proto *Object) {
	o.proto = proto
	if o.ProtoHasIndexed() {
		o.storage.promote("prototype chain has indexed properties")
	}
}

// ProtoHasIndexed reports whether any object on the prototype chain has own
// indexed properties.
func (o *Object) ProtoHasIndexed() bool {
	for p := o.proto; p != nil; p = p.proto {
		if p.storage.hasElements() {
			return true
		}
	}
	return false
}

// Storage exposes the indexed storage of the object.
func (o *Object) Storage() *ArrayStorage {
	return &o.storage
}

// SetPrimitiveHook installs a primitive conversion override.
func (o *Object) SetPrimitiveHook(h PrimitiveHook) {
	o.toPrimitive = h
}

// OwnPropertyNames returns the named own properties in insertion order.
func (o *Object) OwnPropertyNames() []string {
	return append([]string(nil), o.names...)
}

// ---------------------------------------------------------------------------
// Named properties
// ---------------------------------------------------------------------------

func (o *Object) setOwn(name string, v Value) {
	if o.props == nil {
		o.props = make(map[string]Value)
	}
	if _, ok := o.props[name]; !ok {
		o.names = append(o.names, name)
	}
	o.props[name] = v
}

func (o *Object) getOwn(name string) (Value, bool) {
	v, ok := o.props[name]
	return v, ok
}

func (o *Object) deleteOwn(name string) {
	if _, ok := o.props[name]; !ok {
		return
	}
	delete(o.props, name)
	for i, n := range o.names {
		if n == name {
			o.names = append(o.names[:i], o.names[i+1:]...)
			break
		}
	}
}

// arrayIndex parses a canonical array index name.
func arrayIndex(name string) (uint32, bool) {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n == MaxArrayLength {
		return 0, false
	}
	return uint32(n), true
}

// HasProperty reports whether name is an own or inherited property.
func (o *Object) HasProperty(name string) bool {
	if i, ok := arrayIndex(name); ok {
		return o.HasIndexed(i)
	}
	if o.class == ClassArray && name == "length" {
		return true
	}
	for p := o; p != nil; p = p.proto {
		if _, ok := p.props[name]; ok {
			return true
		}
	}
	return false
}

// Get reads a property, walking the prototype chain.
func (o *Object) Get(c *Context, name string) (Value, error) {
	if i, ok := arrayIndex(name); ok {
		v, _, err := o.GetIndexed(c, i)
		return v, err
	}
	if o.class == ClassArray && name == "length" {
		return FromUint32(o.storage.length), nil
	}
	for p := o; p != nil; p = p.proto {
		if v, ok := p.props[name]; ok {
			return v, nil
		}
	}
	return Undefined, nil
}

// Put writes an own property. Assigning "length" on an array truncates or
// extends it.
func (o *Object) Put(c *Context, name string, v Value) error {
	if i, ok := arrayIndex(name); ok {
		return o.PutIndexed(c, i, v)
	}
	if o.class == ClassArray && name == "length" {
		n, err := c.ToNumber(v)
		if err != nil {
			return err
		}
		length := ToUint32(n)
		if float64(length) != n {
			return c.ThrowRangeError("Invalid array length")
		}
		o.SetLength(length)
		return nil
	}
	o.setOwn(name, v)
	return nil
}

// Delete removes an own property.
func (o *Object) Delete(name string) {
	if i, ok := arrayIndex(name); ok {
		o.DeleteIndexedProperty(i)
		return
	}
	o.deleteOwn(name)
}

// ---------------------------------------------------------------------------
// Indexed properties
// ---------------------------------------------------------------------------

// HasIndexed reports whether index i is an own or inherited property.
func (o *Object) HasIndexed(i uint32) bool {
	if i == MaxArrayLength {
		return o.HasProperty(strconv.FormatUint(uint64(i), 10))
	}
	for p := o; p != nil; p = p.proto {
		if _, ok := p.storage.get(i); ok {
			return true
		}
	}
	return false
}

// GetIndexed reads index i from own storage, then the prototype chain.
// Accessor getters run with o as the receiver.
func (o *Object) GetIndexed(c *Context, i uint32) (Value, bool, error) {
	if i == MaxArrayLength {
		name := strconv.FormatUint(uint64(i), 10)
		for p := o; p != nil; p = p.proto {
			if v, ok := p.props[name]; ok {
				return v, true, nil
			}
		}
		return Undefined, false, nil
	}
	for p := o; p != nil; p = p.proto {
		sl, ok := p.storage.get(i)
		if !ok {
			continue
		}
		if sl.attr != attrAccessor {
			return sl.value, true, nil
		}
		if sl.value.IsUndefined() {
			return Undefined, true, nil
		}
		v, err := c.Call(sl.value, o.Value())
		return v, true, err
	}
	return Undefined, false, nil
}

// PutIndexed writes index i. An own or inherited accessor runs its setter;
// otherwise the value is stored as an own data property and the length
// grows to cover it.
func (o *Object) PutIndexed(c *Context, i uint32, v Value) error {
	if i == MaxArrayLength {
		o.setOwn(strconv.FormatUint(uint64(i), 10), v)
		return nil
	}
	for p := o; p != nil; p = p.proto {
		sl, ok := p.storage.get(i)
		if !ok {
			continue
		}
		if sl.attr == attrAccessor {
			if sl.setter.IsUndefined() {
				return nil
			}
			_, err := c.Call(sl.setter, o.Value(), v)
			return err
		}
		break
	}
	o.storage.Put(i, v)
	return nil
}

// DefineAccessor installs a getter/setter pair at index i. Either may be
// undefined.
func (o *Object) DefineAccessor(i uint32, getter, setter Value) {
	o.storage.putSlot(i, slot{value: getter, setter: setter, attr: attrAccessor})
}

// DeleteIndexedProperty removes the own property at i. The length is never
// reduced.
func (o *Object) DeleteIndexedProperty(i uint32) {
	if i == MaxArrayLength {
		o.deleteOwn(strconv.FormatUint(uint64(i), 10))
		return
	}
	o.storage.Delete(i)
}

// Reserve pre-allocates dense capacity.
func (o *Object) Reserve(n uint32) {
	o.storage.Reserve(n)
}

// Length returns the array length of the indexed storage.
func (o *Object) Length() uint32 {
	return o.storage.length
}

// SetLengthUnchecked sets the array length without touching the elements.
func (o *Object) SetLengthUnchecked(n uint32) {
	o.storage.SetLengthUnchecked(n)
}

// SetLength sets the array length, deleting every element at or above n.
func (o *Object) SetLength(n uint32) {
	if n < o.storage.length {
		o.storage.truncate(n)
	}
	o.storage.length = n
}

// ---------------------------------------------------------------------------
// Primitive conversion
// ---------------------------------------------------------------------------

// ToPrimitive converts the object with its hook, or with the ordinary
// valueOf/toString protocol.
func (o *Object) ToPrimitive(c *Context, hint Hint) (Value, error) {
	if o.toPrimitive != nil {
		v, err := o.toPrimitive(c, o, hint)
		if err != nil {
			return Undefined, err
		}
		if v.IsObject() {
			return Undefined, c.ThrowTypeError("Cannot convert object to primitive value")
		}
		return v, nil
	}
	order := [2]string{"valueOf", "toString"}
	if hint == HintString {
		order = [2]string{"toString", "valueOf"}
	}
	for _, name := range order {
		fn, err := o.Get(c, name)
		if err != nil {
			return Undefined, err
		}
		if !IsCallable(fn) {
			continue
		}
		v, err := c.Call(fn, o.Value())
		if err != nil {
			return Undefined, err
		}
		if v.IsPrimitive() {
			return v, nil
		}
	}
	return Undefined, c.ThrowTypeError("Cannot convert object to primitive value")
}

// trace marks every value the object references.
func (o *Object) trace(mark func(Value)) {
	if o.proto != nil {
		mark(o.proto.Value())
	}
	for _, v := range o.props {
		mark(v)
	}
	mark(o.boxed)
	o.storage.trace(mark)
}

// ---------------------------------------------------------------------------
// Object.prototype
// ---------------------------------------------------------------------------

func (e *Engine) installObjectPrototype() {
	p := e.ObjectPrototype
	p.setOwn("toString", e.newFunctionNoGC("toString", objectProtoToString).Value())
	p.setOwn("valueOf", e.newFunctionNoGC("valueOf", objectProtoValueOf).Value())
}

func objectProtoToString(c *Context, this Value, _ []Value) (Value, error) {
	switch {
	case this.IsUndefined():
		return c.engine.NewString("[object Undefined]"), nil
	case this.IsNull():
		return c.engine.NewString("[object Null]"), nil
	}
	class := "Object"
	if obj := ObjectFromValue(this); obj != nil {
		class = obj.class.String()
	} else {
		switch this.Tag() {
		case TagBoolean:
			class = "Boolean"
		case TagInteger, TagDouble:
			class = "Number"
		case TagString:
			class = "String"
		}
	}
	return c.engine.NewString("[object " + class + "]"), nil
}

func objectProtoValueOf(c *Context, this Value, _ []Value) (Value, error) {
	if this.IsNullOrUndefined() {
		return Undefined, c.ThrowTypeError("Cannot convert undefined or null to object")
	}
	return this, nil
}
