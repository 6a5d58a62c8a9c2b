package vm

import (
	"fmt"
)

// MaxCallDepth bounds native re-entrancy through Context.Call.
const MaxCallDepth = 1024

// NativeFunction is the Go implementation of a callable object.
type NativeFunction func(c *Context, this Value, args []Value) (Value, error)

// Context is the state of one active execution on an engine. Re-entrant
// calls share the context of their caller.
type Context struct {
	engine *Engine
	depth  int

	// joining holds the arrays whose join is in progress, so that a cyclic
	// array renders as the empty string.
	joining map[*Object]struct{}
}

// Engine returns the engine the context runs on.
func (c *Context) Engine() *Engine {
	return c.engine
}

// Depth returns the current native call depth.
func (c *Context) Depth() int {
	return c.depth
}

// Throw returns v as a thrown exception.
func (c *Context) Throw(v Value) error {
	return &Exception{Value: v, Kind: KindError}
}

// ThrowTypeError allocates a TypeError object and returns it as a thrown
// exception.
func (c *Context) ThrowTypeError(format string, args ...any) error {
	return c.throwKind(KindTypeError, format, args...)
}

// ThrowRangeError allocates a RangeError object and returns it as a thrown
// exception.
func (c *Context) ThrowRangeError(format string, args ...any) error {
	return c.throwKind(KindRangeError, format, args...)
}

func (c *Context) throwKind(kind ErrorKind, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	obj := c.engine.NewError(kind, msg)
	return &Exception{Value: obj.Value(), Kind: kind, Message: msg}
}

// IsCallable reports whether v is an object with a native call.
func IsCallable(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.call != nil
}

// Call invokes fn with the given receiver and arguments.
func (c *Context) Call(fn Value, this Value, args ...Value) (Value, error) {
	obj := ObjectFromValue(fn)
	if obj == nil || obj.call == nil {
		return Undefined, c.ThrowTypeError("value is not a function")
	}
	if c.depth >= MaxCallDepth {
		return Undefined, c.ThrowRangeError("Maximum call stack size exceeded")
	}
	c.depth++
	defer func() { c.depth-- }()

	// The callee, receiver and arguments stay rooted for the call.
	sc := c.engine.OpenScope()
	defer sc.Close()
	sc.Hold(fn)
	sc.Hold(this)
	for _, a := range args {
		sc.Hold(a)
	}
	return obj.call(c, this, args)
}

// enterJoin marks obj as being joined. It returns false when obj is
// already on the join stack.
func (c *Context) enterJoin(obj *Object) bool {
	if _, busy := c.joining[obj]; busy {
		return false
	}
	if c.joining == nil {
		c.joining = make(map[*Object]struct{})
	}
	c.joining[obj] = struct{}{}
	return true
}

func (c *Context) leaveJoin(obj *Object) {
	delete(c.joining, obj)
}
