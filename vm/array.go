package vm

import (
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// ---------------------------------------------------------------------------
// Array operations
//
// Every operation works on arrays and on generic array-like objects. Arrays
// keep their length in the indexed storage; other objects use their "length"
// property. Fast paths manipulate the storage directly and are only taken
// when they cannot be told apart from the element-by-element algorithm.
// ---------------------------------------------------------------------------

// lengthOf returns the array length of o.
func (c *Context) lengthOf(o *Object) (uint32, error) {
	if o.class == ClassArray {
		return o.storage.length, nil
	}
	v, err := o.Get(c, "length")
	if err != nil {
		return 0, err
	}
	return c.ToUint32(v)
}

// setLengthOf stores a new length. Arrays reject lengths outside the uint32
// domain with a RangeError.
func (c *Context) setLengthOf(o *Object, n float64) error {
	if o.class != ClassArray {
		return o.Put(c, "length", FromNumber(n))
	}
	if n < 0 || n > MaxArrayLength {
		return c.ThrowRangeError("Invalid array length")
	}
	o.SetLength(uint32(n))
	return nil
}

// ownElementsOnly reports whether the indexed properties of o are exactly
// its own data slots: no prototype contributes indices and no accessor can
// run code.
func (o *Object) ownElementsOnly() bool {
	return !o.storage.hasAccessors && !o.ProtoHasIndexed()
}

// fastPathEligible reports whether structural operations may edit the
// storage in place for an object of the given length.
func (o *Object) fastPathEligible(length uint32) bool {
	return o.ownElementsOnly() && o.storage.length <= length
}

// nextCandidate returns the first index at or above k that can hold a
// property, or length when none can.
func (o *Object) nextCandidate(k, length uint32) uint32 {
	if !o.ownElementsOnly() {
		return k
	}
	if i, ok := o.storage.nextIndex(k); ok && i < length {
		return i
	}
	return length
}

// relativeIndex clamps a relative start/end argument to [0, length].
func relativeIndex(d float64, length uint32) uint32 {
	l := float64(length)
	if d < 0 {
		return uint32(math.Max(l+d, 0))
	}
	return uint32(math.Min(d, l))
}

func (o *Object) root() Scope {
	sc := o.engine.OpenScope()
	sc.Hold(o.Value())
	return sc
}

// ---------------------------------------------------------------------------
// push / pop / shift / unshift
// ---------------------------------------------------------------------------

// Push appends values and returns the new length.
func (o *Object) Push(c *Context, values ...Value) (Value, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}
	n := uint64(len(values))

	if uint64(length)+n > MaxArrayLength {
		// Indices past the array range become named properties.
		l := float64(length)
		for i, v := range values {
			if err := o.Put(c, NumberToString(l+float64(i)), v); err != nil {
				return Undefined, err
			}
		}
		newLen := l + float64(n)
		if o.class == ClassArray {
			return Undefined, c.ThrowRangeError("Array.prototype.push: Overflow")
		}
		if err := o.Put(c, "length", FromNumber(newLen)); err != nil {
			return Undefined, err
		}
		return FromNumber(newLen), nil
	}

	if o.fastPathEligible(length) {
		for i, v := range values {
			o.storage.Put(length+uint32(i), v)
		}
	} else {
		for i, v := range values {
			if err := o.PutIndexed(c, length+uint32(i), v); err != nil {
				return Undefined, err
			}
		}
	}
	length += uint32(n)
	if o.class == ClassArray {
		o.SetLengthUnchecked(length)
	} else if err := o.Put(c, "length", FromUint32(length)); err != nil {
		return Undefined, err
	}
	return FromUint32(length), nil
}

// Pop removes and returns the last element.
func (o *Object) Pop(c *Context) (Value, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}
	if length == 0 {
		if o.class != ClassArray {
			return Undefined, o.Put(c, "length", FromInt32(0))
		}
		return Undefined, nil
	}
	result, _, err := o.GetIndexed(c, length-1)
	if err != nil {
		return Undefined, err
	}
	sc.Hold(result)
	o.DeleteIndexedProperty(length - 1)
	if o.class == ClassArray {
		o.SetLengthUnchecked(length - 1)
	} else if err := o.Put(c, "length", FromUint32(length-1)); err != nil {
		return Undefined, err
	}
	return result, nil
}

// Shift removes and returns the first element, renumbering the rest.
func (o *Object) Shift(c *Context) (Value, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}
	if length == 0 {
		if o.class != ClassArray {
			return Undefined, o.Put(c, "length", FromInt32(0))
		}
		return Undefined, nil
	}
	result, _, err := o.GetIndexed(c, 0)
	if err != nil {
		return Undefined, err
	}
	sc.Hold(result)

	if o.fastPathEligible(length) {
		o.storage.shiftFront()
		if o.class != ClassArray && o.storage.length > 0 {
			o.storage.length--
		}
	} else {
		for k := uint32(1); k < length; k++ {
			v, exists, err := o.GetIndexed(c, k)
			if err != nil {
				return Undefined, err
			}
			if exists {
				err = o.PutIndexed(c, k-1, v)
			} else {
				o.DeleteIndexedProperty(k - 1)
			}
			if err != nil {
				return Undefined, err
			}
		}
		o.DeleteIndexedProperty(length - 1)
	}

	if o.class == ClassArray {
		o.SetLengthUnchecked(length - 1)
	} else if err := o.Put(c, "length", FromUint32(length-1)); err != nil {
		return Undefined, err
	}
	return result, nil
}

// Unshift inserts values at the front and returns the new length.
func (o *Object) Unshift(c *Context, values ...Value) (Value, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}
	n := uint64(len(values))
	if uint64(length)+n > MaxArrayLength {
		return Undefined, c.ThrowRangeError("Array.prototype.unshift: Overflow")
	}
	count := uint32(n)

	if o.fastPathEligible(length) {
		for i := len(values) - 1; i >= 0; i-- {
			o.storage.unshiftFront(values[i])
		}
		if o.class != ClassArray {
			// The storage length tracks the highest own index.
			o.storage.length += count
		}
	} else {
		for k := length; k > 0; k-- {
			v, exists, err := o.GetIndexed(c, k-1)
			if err != nil {
				return Undefined, err
			}
			if exists {
				err = o.PutIndexed(c, k+count-1, v)
			} else {
				o.DeleteIndexedProperty(k + count - 1)
			}
			if err != nil {
				return Undefined, err
			}
		}
		for i, v := range values {
			if err := o.PutIndexed(c, uint32(i), v); err != nil {
				return Undefined, err
			}
		}
	}

	newLen := length + count
	if o.class == ClassArray {
		o.SetLengthUnchecked(newLen)
	} else if err := o.Put(c, "length", FromUint32(newLen)); err != nil {
		return Undefined, err
	}
	return FromUint32(newLen), nil
}

// ---------------------------------------------------------------------------
// splice / slice / concat / reverse
// ---------------------------------------------------------------------------

// Splice removes deleteCount elements at start, inserts items in their
// place and returns the removed elements as a new array. Holes stay holes.
func (o *Object) Splice(c *Context, start, deleteCount Value, items ...Value) (*Object, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return nil, err
	}
	rs, err := c.ToInteger(start)
	if err != nil {
		return nil, err
	}
	from := relativeIndex(rs, length)
	dc, err := c.ToInteger(deleteCount)
	if err != nil {
		return nil, err
	}
	del := uint32(math.Min(math.Max(dc, 0), float64(length-from)))
	itemCount := uint64(len(items))
	if uint64(length-del)+itemCount > MaxArrayLength {
		return nil, c.ThrowRangeError("Invalid array length")
	}
	ic := uint32(itemCount)

	removed := o.engine.NewArray()
	sc.Hold(removed.Value())
	removed.Reserve(min(del, o.engine.config.ReserveLimit))
	for i := uint32(0); i < del; i++ {
		v, exists, err := o.GetIndexed(c, from+i)
		if err != nil {
			return nil, err
		}
		if exists {
			removed.storage.Put(i, v)
		}
	}
	removed.SetLengthUnchecked(del)

	move := func(src, dst uint32) error {
		v, exists, err := o.GetIndexed(c, src)
		if err != nil {
			return err
		}
		if exists {
			return o.PutIndexed(c, dst, v)
		}
		o.DeleteIndexedProperty(dst)
		return nil
	}

	switch {
	case ic < del:
		for k := from; k < length-del; k++ {
			if err := move(k+del, k+ic); err != nil {
				return nil, err
			}
		}
		for k := length; k > length-del+ic; k-- {
			o.DeleteIndexedProperty(k - 1)
		}
	case ic > del:
		for k := length - del; k > from; k-- {
			if err := move(k+del-1, k+ic-1); err != nil {
				return nil, err
			}
		}
	}

	for i, v := range items {
		if err := o.PutIndexed(c, from+uint32(i), v); err != nil {
			return nil, err
		}
	}
	if err := c.setLengthOf(o, float64(length-del)+float64(ic)); err != nil {
		return nil, err
	}
	return removed, nil
}

// Slice copies the elements in [start, end) into a new array. An undefined
// end means the length.
func (o *Object) Slice(c *Context, start, end Value) (*Object, error) {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return nil, err
	}
	s, err := c.ToInteger(start)
	if err != nil {
		return nil, err
	}
	from := relativeIndex(s, length)
	to := length
	if !end.IsUndefined() {
		e, err := c.ToInteger(end)
		if err != nil {
			return nil, err
		}
		to = relativeIndex(e, length)
	}

	result := o.engine.NewArray()
	sc.Hold(result.Value())
	if from >= to {
		return result, nil
	}
	if o.ownElementsOnly() {
		o.storage.each(func(i uint32, sl slot) bool {
			if i >= to {
				return false
			}
			if i >= from {
				result.storage.Put(i-from, sl.value)
			}
			return true
		})
	} else {
		for k := from; k < to; k++ {
			v, exists, err := o.GetIndexed(c, k)
			if err != nil {
				return nil, err
			}
			if exists {
				result.storage.Put(k-from, v)
			}
		}
	}
	result.SetLengthUnchecked(to - from)
	return result, nil
}

// appendElements copies the indexed properties of src in [0, length) to
// dst starting at base, keeping holes.
func (c *Context) appendElements(dst *Object, base uint32, src *Object, length uint32) error {
	if src.ownElementsOnly() {
		src.storage.each(func(i uint32, sl slot) bool {
			if i >= length {
				return false
			}
			dst.storage.Put(base+i, sl.value)
			return true
		})
		return nil
	}
	for k := uint32(0); k < length; k++ {
		v, exists, err := src.GetIndexed(c, k)
		if err != nil {
			return err
		}
		if exists {
			dst.storage.Put(base+k, v)
		}
	}
	return nil
}

// Concat returns a new array holding the elements of o followed by each
// item. Array items are flattened one level.
func (o *Object) Concat(c *Context, items ...Value) (*Object, error) {
	return c.concat(o.Value(), items)
}

func (c *Context) concat(this Value, items []Value) (*Object, error) {
	e := c.engine
	sc := e.OpenScope()
	defer sc.Close()
	sc.Hold(this)

	result := e.NewArray()
	sc.Hold(result.Value())

	add := func(v Value) error {
		obj := ObjectFromValue(v)
		if obj == nil || obj.class != ClassArray {
			length := result.storage.length
			if length == MaxArrayLength {
				return c.ThrowRangeError("Invalid array length")
			}
			result.storage.Put(length, v)
			return nil
		}
		length := obj.storage.length
		base := result.storage.length
		if uint64(base)+uint64(length) > MaxArrayLength {
			return c.ThrowRangeError("Invalid array length")
		}
		if err := c.appendElements(result, base, obj, length); err != nil {
			return err
		}
		result.SetLengthUnchecked(base + length)
		return nil
	}

	if err := add(this); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := add(item); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Reverse reverses the elements in place, keeping holes.
func (o *Object) Reverse(c *Context) error {
	sc := o.root()
	defer sc.Close()

	length, err := c.lengthOf(o)
	if err != nil {
		return err
	}
	if length < 2 {
		return nil
	}
	for lo, hi := uint32(0), length-1; lo < hi; lo, hi = lo+1, hi-1 {
		lval, loExists, err := o.GetIndexed(c, lo)
		if err != nil {
			return err
		}
		hval, hiExists, err := o.GetIndexed(c, hi)
		if err != nil {
			return err
		}
		if hiExists {
			err = o.PutIndexed(c, lo, hval)
		} else {
			o.DeleteIndexedProperty(lo)
		}
		if err != nil {
			return err
		}
		if loExists {
			err = o.PutIndexed(c, hi, lval)
		} else {
			o.DeleteIndexedProperty(hi)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// sort
// ---------------------------------------------------------------------------

// compareUTF16 orders strings by UTF-16 code units.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Sort sorts the elements in place: defined values first in comparator
// order, then undefined values, then holes. The sort is stable. Elements
// are copied out before comparing, so a comparator that mutates the array
// only affects what is written back.
func (o *Object) Sort(c *Context, comparefn Value) error {
	if !comparefn.IsUndefined() && !IsCallable(comparefn) {
		return c.ThrowTypeError("Array.prototype.sort: comparefn is not a function")
	}
	sc := o.root()
	defer sc.Close()
	sc.Hold(comparefn)

	length, err := c.lengthOf(o)
	if err != nil {
		return err
	}

	var defined []Value
	undefinedCount := uint32(0)
	collect := func(v Value) {
		if v.IsUndefined() {
			undefinedCount++
			return
		}
		sc.Hold(v)
		defined = append(defined, v)
	}
	if o.ownElementsOnly() {
		o.storage.each(func(i uint32, sl slot) bool {
			if i >= length {
				return false
			}
			collect(sl.value)
			return true
		})
	} else {
		for k := uint32(0); k < length; k++ {
			v, exists, err := o.GetIndexed(c, k)
			if err != nil {
				return err
			}
			if exists {
				collect(v)
			}
		}
	}

	var sortErr error
	if comparefn.IsUndefined() {
		keys := make(map[Value]string, len(defined))
		for _, v := range defined {
			if _, ok := keys[v]; ok {
				continue
			}
			s, err := c.ToString(v)
			if err != nil {
				return err
			}
			keys[v] = s
		}
		slices.SortStableFunc(defined, func(a, b Value) int {
			return compareUTF16(keys[a], keys[b])
		})
	} else {
		slices.SortStableFunc(defined, func(a, b Value) int {
			if sortErr != nil {
				return 0
			}
			r, err := c.Call(comparefn, Undefined, a, b)
			if err != nil {
				sortErr = err
				return 0
			}
			d, err := c.ToNumber(r)
			if err != nil {
				sortErr = err
				return 0
			}
			switch {
			case d < 0:
				return -1
			case d > 0:
				return 1
			}
			return 0
		})
	}
	if sortErr != nil {
		return sortErr
	}

	k := uint32(0)
	for _, v := range defined {
		if err := o.PutIndexed(c, k, v); err != nil {
			return err
		}
		k++
	}
	for i := uint32(0); i < undefinedCount; i++ {
		if err := o.PutIndexed(c, k, Undefined); err != nil {
			return err
		}
		k++
	}
	for ; k < length; k = o.nextCandidate(k+1, length) {
		o.DeleteIndexedProperty(k)
	}
	return nil
}

// ---------------------------------------------------------------------------
// indexOf / lastIndexOf
// ---------------------------------------------------------------------------

// IndexOf returns the first index whose element is strictly equal to
// search, or -1. An optional fromIndex selects the start.
func (o *Object) IndexOf(c *Context, search Value, fromIndex ...Value) (int64, error) {
	length, err := c.lengthOf(o)
	if err != nil || length == 0 {
		return -1, err
	}
	from := uint32(0)
	if len(fromIndex) > 0 {
		f, err := c.ToInteger(fromIndex[0])
		if err != nil {
			return -1, err
		}
		if f >= float64(length) {
			return -1, nil
		}
		if f < 0 {
			f = math.Max(float64(length)+f, 0)
		}
		from = uint32(f)
	}

	if o.ownElementsOnly() {
		found := int64(-1)
		o.storage.each(func(i uint32, sl slot) bool {
			if i >= length {
				return false
			}
			if i >= from && StrictEquals(sl.value, search) {
				found = int64(i)
				return false
			}
			return true
		})
		return found, nil
	}
	for k := from; k < length; k++ {
		v, exists, err := o.GetIndexed(c, k)
		if err != nil {
			return -1, err
		}
		if exists && StrictEquals(v, search) {
			return int64(k), nil
		}
	}
	return -1, nil
}

// LastIndexOf returns the last index whose element is strictly equal to
// search, or -1. An optional fromIndex selects where the backward search
// starts.
func (o *Object) LastIndexOf(c *Context, search Value, fromIndex ...Value) (int64, error) {
	length, err := c.lengthOf(o)
	if err != nil || length == 0 {
		return -1, err
	}
	// from is one past the first index examined.
	from := length
	if len(fromIndex) > 0 {
		f, err := c.ToInteger(fromIndex[0])
		if err != nil {
			return -1, err
		}
		if f > 0 {
			f = math.Min(f, float64(length-1))
		} else if f < 0 {
			f += float64(length)
			if f < 0 {
				return -1, nil
			}
		}
		from = uint32(f) + 1
	}

	if o.ownElementsOnly() {
		found := int64(-1)
		o.storage.eachReverse(func(i uint32, sl slot) bool {
			if i < from && StrictEquals(sl.value, search) {
				found = int64(i)
				return false
			}
			return true
		})
		return found, nil
	}
	for k := from; k > 0; {
		k--
		v, exists, err := o.GetIndexed(c, k)
		if err != nil {
			return -1, err
		}
		if exists && StrictEquals(v, search) {
			return int64(k), nil
		}
	}
	return -1, nil
}

// ---------------------------------------------------------------------------
// join
// ---------------------------------------------------------------------------

// Join concatenates the string forms of the elements separated by sep
// (default ","). Undefined and null elements are empty. An array that is
// already being joined further up the stack joins as "".
func (o *Object) Join(c *Context, sep Value) (string, error) {
	separator := ","
	if !sep.IsUndefined() {
		var err error
		if separator, err = c.ToString(sep); err != nil {
			return "", err
		}
	}
	sc := o.root()
	defer sc.Close()

	lv, err := o.Get(c, "length")
	if err != nil {
		return "", err
	}
	length := uint32(0)
	if !lv.IsUndefined() {
		if length, err = c.ToUint32(lv); err != nil {
			return "", err
		}
	}
	if length == 0 || !c.enterJoin(o) {
		return "", nil
	}
	defer c.leaveJoin(o)

	var sb strings.Builder
	appendElement := func(k uint32) error {
		v, _, err := o.GetIndexed(c, k)
		if err != nil {
			return err
		}
		if v.IsNullOrUndefined() {
			return nil
		}
		s, err := c.ToString(v)
		if err != nil {
			return err
		}
		sb.WriteString(s)
		return nil
	}

	if o.class == ClassArray {
		// The length is re-read on every step: elements may mutate it.
		for k := uint32(0); k < o.storage.length; k++ {
			if k > 0 {
				sb.WriteString(separator)
			}
			if err := appendElement(k); err != nil {
				return "", err
			}
		}
		return sb.String(), nil
	}
	for k := uint32(0); k < length; k++ {
		if k > 0 {
			sb.WriteString(separator)
		}
		if err := appendElement(k); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// Iteration with callbacks
// ---------------------------------------------------------------------------

// eachPresent calls fn for every present index below length in ascending
// order. Presence is re-checked at each step since fn may mutate o.
func (c *Context) eachPresent(o *Object, length uint32, fn func(k uint32, v Value) (bool, error)) error {
	for k := o.nextCandidate(0, length); k < length; {
		v, exists, err := o.GetIndexed(c, k)
		if err != nil {
			return err
		}
		if exists {
			more, err := fn(k, v)
			if err != nil || !more {
				return err
			}
		}
		k = o.nextCandidate(k+1, length)
	}
	return nil
}

func (c *Context) requireCallable(fn Value, method string) error {
	if !IsCallable(fn) {
		return c.ThrowTypeError("Array.prototype.%s: callback is not a function", method)
	}
	return nil
}

// ForEach calls fn(element, index, array) for every present element.
func (o *Object) ForEach(c *Context, fn, thisArg Value) error {
	if err := c.requireCallable(fn, "forEach"); err != nil {
		return err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return err
	}
	return c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		_, err := c.Call(fn, thisArg, v, FromUint32(k), o.Value())
		return true, err
	})
}

// Map returns a new array of the same length holding fn's result for every
// present element.
func (o *Object) Map(c *Context, fn, thisArg Value) (*Object, error) {
	if err := c.requireCallable(fn, "map"); err != nil {
		return nil, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return nil, err
	}
	result := o.engine.NewArray()
	sc.Hold(result.Value())
	result.Reserve(min(length, o.engine.config.ReserveLimit))
	result.SetLengthUnchecked(length)
	err = c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		mapped, err := c.Call(fn, thisArg, v, FromUint32(k), o.Value())
		if err != nil {
			return false, err
		}
		result.storage.Put(k, mapped)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Filter returns a new array holding the present elements for which fn
// returns a truthy value.
func (o *Object) Filter(c *Context, fn, thisArg Value) (*Object, error) {
	if err := c.requireCallable(fn, "filter"); err != nil {
		return nil, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return nil, err
	}
	result := o.engine.NewArray()
	sc.Hold(result.Value())
	to := uint32(0)
	err = c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		selected, err := c.Call(fn, thisArg, v, FromUint32(k), o.Value())
		if err != nil {
			return false, err
		}
		if ToBoolean(selected) {
			result.storage.Put(to, v)
			to++
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Every reports whether fn returns a truthy value for every present
// element.
func (o *Object) Every(c *Context, fn, thisArg Value) (bool, error) {
	if err := c.requireCallable(fn, "every"); err != nil {
		return false, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return false, err
	}
	ok := true
	err = c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		r, err := c.Call(fn, thisArg, v, FromUint32(k), o.Value())
		if err != nil {
			return false, err
		}
		ok = ToBoolean(r)
		return ok, nil
	})
	return ok, err
}

// Some reports whether fn returns a truthy value for any present element.
func (o *Object) Some(c *Context, fn, thisArg Value) (bool, error) {
	if err := c.requireCallable(fn, "some"); err != nil {
		return false, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return false, err
	}
	found := false
	err = c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		r, err := c.Call(fn, thisArg, v, FromUint32(k), o.Value())
		if err != nil {
			return false, err
		}
		found = ToBoolean(r)
		return !found, nil
	})
	return found, err
}

// Reduce folds the present elements from the left with
// fn(acc, element, index, array). Without an initial value the first
// present element seeds the accumulator; an empty array then raises a
// TypeError.
func (o *Object) Reduce(c *Context, fn Value, initial ...Value) (Value, error) {
	if err := c.requireCallable(fn, "reduce"); err != nil {
		return Undefined, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}

	acc := Undefined
	seeded := len(initial) > 0
	if seeded {
		acc = initial[0]
	}
	err = c.eachPresent(o, length, func(k uint32, v Value) (bool, error) {
		if !seeded {
			acc, seeded = v, true
			return true, nil
		}
		sc.Hold(acc)
		r, err := c.Call(fn, Undefined, acc, v, FromUint32(k), o.Value())
		if err != nil {
			return false, err
		}
		acc = r
		return true, nil
	})
	if err != nil {
		return Undefined, err
	}
	if !seeded {
		return Undefined, c.ThrowTypeError("Reduce of empty array with no initial value")
	}
	return acc, nil
}

// ReduceRight folds the present elements from the right.
func (o *Object) ReduceRight(c *Context, fn Value, initial ...Value) (Value, error) {
	if err := c.requireCallable(fn, "reduceRight"); err != nil {
		return Undefined, err
	}
	sc := o.root()
	defer sc.Close()
	length, err := c.lengthOf(o)
	if err != nil {
		return Undefined, err
	}

	acc := Undefined
	seeded := len(initial) > 0
	if seeded {
		acc = initial[0]
	}
	for k := length; k > 0; k-- {
		v, exists, err := o.GetIndexed(c, k-1)
		if err != nil {
			return Undefined, err
		}
		if !exists {
			continue
		}
		if !seeded {
			acc, seeded = v, true
			continue
		}
		sc.Hold(acc)
		if acc, err = c.Call(fn, Undefined, acc, v, FromUint32(k-1), o.Value()); err != nil {
			return Undefined, err
		}
	}
	if !seeded {
		return Undefined, c.ThrowTypeError("Reduce of empty array with no initial value")
	}
	return acc, nil
}

// ---------------------------------------------------------------------------
// Array constructor
// ---------------------------------------------------------------------------

// ConstructArray implements new Array(...args). A single numeric argument
// is the length: it must be an exact uint32 and only lengths below the
// configured reserve limit are allocated eagerly. Any other argument list
// becomes the elements.
func (c *Context) ConstructArray(args ...Value) (*Object, error) {
	if len(args) == 1 && args[0].IsNumber() {
		length, err := c.ToArrayLength(args[0])
		if err != nil {
			return nil, err
		}
		arr := c.engine.NewArray()
		if length < c.engine.config.ReserveLimit {
			arr.Reserve(length)
		}
		arr.SetLengthUnchecked(length)
		return arr, nil
	}
	return c.engine.NewArray(args...), nil
}
