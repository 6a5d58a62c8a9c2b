package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Exceptions: script-level errors carried as Go errors
// ---------------------------------------------------------------------------

// ErrorKind classifies the exceptions the core raises itself.
type ErrorKind uint8

const (
	KindError ErrorKind = iota
	KindTypeError
	KindRangeError
)

// String returns the constructor name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTypeError:
		return "TypeError"
	case KindRangeError:
		return "RangeError"
	default:
		return "Error"
	}
}

// Exception is a thrown script value unwinding through native code.
// It is the only error the core ever recovers from.
type Exception struct {
	Value   Value
	Kind    ErrorKind
	Message string
}

func (ex *Exception) Error() string {
	if ex.Message == "" {
		return ex.Kind.String()
	}
	return ex.Kind.String() + ": " + ex.Message
}

// ErrAborted is returned by hosts that stop a running script. The core
// never swallows it.
var ErrAborted = errors.New("vm: execution aborted")

// IsException reports whether err is (or wraps) a thrown script value and
// returns it.
func IsException(err error) (*Exception, bool) {
	var ex *Exception
	if errors.As(err, &ex) {
		return ex, true
	}
	return nil, false
}

// IsTypeError reports whether err is a thrown TypeError.
func IsTypeError(err error) bool {
	ex, ok := IsException(err)
	return ok && ex.Kind == KindTypeError
}

// IsRangeError reports whether err is a thrown RangeError.
func IsRangeError(err error) bool {
	ex, ok := IsException(err)
	return ok && ex.Kind == KindRangeError
}

// ---------------------------------------------------------------------------
// Error objects
// ---------------------------------------------------------------------------

// NewError allocates an Error object with the given name and message.
func (e *Engine) NewError(kind ErrorKind, message string) *Object {
	obj := e.NewObjectWithClass(ClassError, e.ErrorPrototype)
	sc := e.OpenScope()
	defer sc.Close()
	sc.Hold(obj.Value())
	obj.setOwn("name", sc.Hold(e.NewString(kind.String())))
	obj.setOwn("message", e.NewString(message))
	return obj
}

func (e *Engine) installErrorPrototype() {
	p := e.ErrorPrototype
	p.setOwn("name", e.newStringNoGC("Error"))
	p.setOwn("message", e.newStringNoGC(""))
	p.setOwn("toString", e.newFunctionNoGC("toString", errorProtoToString).Value())
}

// errorProtoToString implements Error.prototype.toString.
func errorProtoToString(c *Context, this Value, _ []Value) (Value, error) {
	obj := ObjectFromValue(this)
	if obj == nil {
		return Undefined, c.ThrowTypeError("Error.prototype.toString called on non-object")
	}
	nameVal, err := obj.Get(c, "name")
	if err != nil {
		return Undefined, err
	}
	name := "Error"
	if !nameVal.IsUndefined() {
		if name, err = c.ToString(nameVal); err != nil {
			return Undefined, err
		}
	}
	msgVal, err := obj.Get(c, "message")
	if err != nil {
		return Undefined, err
	}
	msg := ""
	if !msgVal.IsUndefined() {
		if msg, err = c.ToString(msgVal); err != nil {
			return Undefined, err
		}
	}
	switch {
	case name == "":
		return c.engine.NewString(msg), nil
	case msg == "":
		return c.engine.NewString(name), nil
	}
	return c.engine.NewString(fmt.Sprintf("%s: %s", name, msg)), nil
}
