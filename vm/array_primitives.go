package vm

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

// arg returns the i-th argument, undefined when absent.
func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

// optional returns the argument list from i on, empty when absent. Used
// where a missing argument differs from an explicit undefined.
func optional(args []Value, i int) []Value {
	if i < len(args) {
		return args[i : i+1]
	}
	return nil
}

// ToObject converts a receiver for the array built-ins. Undefined and null
// raise a TypeError; other primitives are boxed into a plain object whose
// primitive conversion yields the original value.
func (c *Context) ToObject(v Value) (*Object, error) {
	if v.IsNullOrUndefined() {
		return nil, c.ThrowTypeError("Cannot convert undefined or null to object")
	}
	if obj := ObjectFromValue(v); obj != nil {
		return obj, nil
	}
	if v.IsObject() {
		return nil, c.ThrowTypeError("Cannot convert a collected object")
	}
	sc := c.engine.OpenScope()
	defer sc.Close()
	sc.Hold(v)
	box := c.engine.NewObject()
	box.boxed = v
	box.toPrimitive = func(_ *Context, this *Object, _ Hint) (Value, error) { return this.boxed, nil }
	return box, nil
}

func (e *Engine) installArrayPrototype() {
	p := e.ArrayPrototype
	def := func(name string, fn NativeFunction) {
		p.setOwn(name, e.newFunctionNoGC(name, fn).Value())
	}

	// toString - join if callable, Object.prototype.toString otherwise
	def("toString", func(c *Context, this Value, _ []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		join, err := o.Get(c, "join")
		if err != nil {
			return Undefined, err
		}
		if IsCallable(join) {
			return c.Call(join, this)
		}
		return objectProtoToString(c, this, nil)
	})

	// join: separator
	def("join", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		s, err := o.Join(c, arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		return c.engine.NewString(s), nil
	})

	// push: items...
	def("push", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.Push(c, args...)
	})

	// pop
	def("pop", func(c *Context, this Value, _ []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.Pop(c)
	})

	// shift
	def("shift", func(c *Context, this Value, _ []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.Shift(c)
	})

	// unshift: items...
	def("unshift", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.Unshift(c, args...)
	})

	// splice: start deleteCount items...
	def("splice", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		var items []Value
		if len(args) > 2 {
			items = args[2:]
		}
		removed, err := o.Splice(c, arg(args, 0), arg(args, 1), items...)
		if err != nil {
			return Undefined, err
		}
		return removed.Value(), nil
	})

	// slice: start end
	def("slice", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		result, err := o.Slice(c, arg(args, 0), arg(args, 1))
		if err != nil {
			return Undefined, err
		}
		return result.Value(), nil
	})

	// concat: items...
	def("concat", func(c *Context, this Value, args []Value) (Value, error) {
		if this.IsNullOrUndefined() {
			return Undefined, c.ThrowTypeError("Cannot convert undefined or null to object")
		}
		result, err := c.concat(this, args)
		if err != nil {
			return Undefined, err
		}
		return result.Value(), nil
	})

	// reverse
	def("reverse", func(c *Context, this Value, _ []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		if err := o.Reverse(c); err != nil {
			return Undefined, err
		}
		return o.Value(), nil
	})

	// sort: comparefn
	def("sort", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		if err := o.Sort(c, arg(args, 0)); err != nil {
			return Undefined, err
		}
		return o.Value(), nil
	})

	// indexOf: searchElement fromIndex
	def("indexOf", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		i, err := o.IndexOf(c, arg(args, 0), optional(args, 1)...)
		if err != nil {
			return Undefined, err
		}
		return FromNumber(float64(i)), nil
	})

	// lastIndexOf: searchElement fromIndex
	def("lastIndexOf", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		i, err := o.LastIndexOf(c, arg(args, 0), optional(args, 1)...)
		if err != nil {
			return Undefined, err
		}
		return FromNumber(float64(i)), nil
	})

	// forEach: callback thisArg
	def("forEach", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return Undefined, o.ForEach(c, arg(args, 0), arg(args, 1))
	})

	// map: callback thisArg
	def("map", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		result, err := o.Map(c, arg(args, 0), arg(args, 1))
		if err != nil {
			return Undefined, err
		}
		return result.Value(), nil
	})

	// filter: callback thisArg
	def("filter", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		result, err := o.Filter(c, arg(args, 0), arg(args, 1))
		if err != nil {
			return Undefined, err
		}
		return result.Value(), nil
	})

	// every: callback thisArg
	def("every", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		ok, err := o.Every(c, arg(args, 0), arg(args, 1))
		return FromBool(ok), err
	})

	// some: callback thisArg
	def("some", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		ok, err := o.Some(c, arg(args, 0), arg(args, 1))
		return FromBool(ok), err
	})

	// reduce: callback initialValue
	def("reduce", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.Reduce(c, arg(args, 0), optional(args, 1)...)
	})

	// reduceRight: callback initialValue
	def("reduceRight", func(c *Context, this Value, args []Value) (Value, error) {
		o, err := c.ToObject(this)
		if err != nil {
			return Undefined, err
		}
		return o.ReduceRight(c, arg(args, 0), optional(args, 1)...)
	})
}
