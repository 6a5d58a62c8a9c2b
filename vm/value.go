package vm

import (
	"math"
)

// Value represents an ECMAScript value using NaN-boxing.
//
// Every value is a 64-bit word. Doubles are stored as their IEEE 754 bits;
// every other tag is encoded in the quiet-NaN space with 3 tag bits and a
// 48-bit payload.
//
// Encoding scheme:
//   - Double:  native IEEE 754 bits (all NaNs canonicalised to canonicalNaN)
//   - Integer: quiet NaN + tagInt + int32 in the low 32 bits
//   - Special: quiet NaN + tagSpecial + undefined/null/false/true
//   - String:  quiet NaN + tagString + engine ID (16 bits) + heap slot (32 bits)
//   - Object:  quiet NaN + tagObject + engine ID (16 bits) + heap slot (32 bits)
//
// String and Object values do not own their payload. The heap cell they
// name lives until the collector finds it unreachable.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for slot/int/special
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagObject  uint64 = 0x0001000000000000
	tagInt     uint64 = 0x0002000000000000
	tagSpecial uint64 = 0x0003000000000000
	tagString  uint64 = 0x0004000000000000

	// canonicalNaN is the only NaN bit pattern a Value ever holds.
	canonicalNaN uint64 = nanBits

	refEngineShift = 32
	refSlotMask    = 0xFFFFFFFF
)

// Special value payloads
const (
	specialUndefined uint64 = 0
	specialNull      uint64 = 1
	specialFalse     uint64 = 2
	specialTrue      uint64 = 3
)

// Pre-defined special values
const (
	Undefined Value = Value(nanBits | tagSpecial | specialUndefined)
	Null      Value = Value(nanBits | tagSpecial | specialNull)
	False     Value = Value(nanBits | tagSpecial | specialFalse)
	True      Value = Value(nanBits | tagSpecial | specialTrue)
	NaN       Value = Value(canonicalNaN)
)

// Tag is the discriminant of a Value.
type Tag uint8

const (
	TagUndefined Tag = iota
	TagNull
	TagBoolean
	TagInteger
	TagDouble
	TagString
	TagObject
)

// String returns the tag name as used in diagnostics.
func (t Tag) String() string {
	switch t {
	case TagUndefined:
		return "undefined"
	case TagNull:
		return "null"
	case TagBoolean:
		return "boolean"
	case TagInteger:
		return "integer"
	case TagDouble:
		return "double"
	case TagString:
		return "string"
	case TagObject:
		return "object"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Tag returns the active variant of v.
func (v Value) Tag() Tag {
	bits := uint64(v)
	if bits&nanBits != nanBits || bits&tagMask == 0 {
		return TagDouble
	}
	switch bits & tagMask {
	case tagInt:
		return TagInteger
	case tagString:
		return TagString
	case tagObject:
		return TagObject
	case tagSpecial:
		switch bits & payloadMask {
		case specialUndefined:
			return TagUndefined
		case specialNull:
			return TagNull
		default:
			return TagBoolean
		}
	}
	// Unused tag bits never come out of the constructors.
	return TagUndefined
}

// IsDouble returns true if v holds an IEEE 754 double (including NaN and
// the infinities).
func (v Value) IsDouble() bool {
	bits := uint64(v)
	return bits&nanBits != nanBits || bits&tagMask == 0
}

// IsInteger returns true if v holds the int32 fast-path representation.
func (v Value) IsInteger() bool {
	return uint64(v)&(nanBits|tagMask) == nanBits|tagInt
}

// IsNumber returns true for both numeric representations.
func (v Value) IsNumber() bool {
	return v.IsInteger() || v.IsDouble()
}

// IsString returns true if v references a heap string.
func (v Value) IsString() bool {
	return uint64(v)&(nanBits|tagMask) == nanBits|tagString
}

// IsObject returns true if v references a heap object.
func (v Value) IsObject() bool {
	return uint64(v)&(nanBits|tagMask) == nanBits|tagObject
}

// IsHeap returns true if v references collector-managed storage.
func (v Value) IsHeap() bool {
	return v.IsString() || v.IsObject()
}

func (v Value) IsUndefined() bool { return v == Undefined }
func (v Value) IsNull() bool      { return v == Null }

// IsNullOrUndefined is the test used by join and the ToObject checks.
func (v Value) IsNullOrUndefined() bool {
	return v == Undefined || v == Null
}

// IsBoolean returns true if v is true or false.
func (v Value) IsBoolean() bool {
	return v == True || v == False
}

// IsPrimitive returns true for every tag except Object.
func (v Value) IsPrimitive() bool {
	return !v.IsObject()
}

// ---------------------------------------------------------------------------
// Double operations
// ---------------------------------------------------------------------------

// FromFloat64 creates a Double value. NaN payloads are canonicalised so that
// no double can alias a tagged value.
func FromFloat64(f float64) Value {
	if f != f {
		return NaN
	}
	return Value(math.Float64bits(f))
}

// Float64 returns the double held by v.
// Panics if v is not a double.
func (v Value) Float64() float64 {
	if !v.IsDouble() {
		panic("Value.Float64: not a double")
	}
	return math.Float64frombits(uint64(v))
}

// ---------------------------------------------------------------------------
// Integer operations
// ---------------------------------------------------------------------------

// FromInt32 creates an Integer value.
func FromInt32(n int32) Value {
	return Value(nanBits | tagInt | uint64(uint32(n)))
}

// Int32 returns the integer held by v.
// Panics if v is not an integer.
func (v Value) Int32() int32 {
	if !v.IsInteger() {
		panic("Value.Int32: not an integer")
	}
	return int32(uint32(uint64(v) & refSlotMask))
}

// FromNumber creates the canonical value for f: an Integer when f is an
// int32 other than -0, a Double otherwise.
func FromNumber(f float64) Value {
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		i := int32(f)
		if float64(i) == f && !(i == 0 && math.Signbit(f)) {
			return FromInt32(i)
		}
	}
	return FromFloat64(f)
}

// FromUint32 creates the canonical value for an array length or index.
func FromUint32(n uint32) Value {
	if n <= math.MaxInt32 {
		return FromInt32(int32(n))
	}
	return FromFloat64(float64(n))
}

// AsFloat returns the numeric payload of an Integer or Double as float64.
// Panics for non-numeric tags.
func (v Value) AsFloat() float64 {
	if v.IsInteger() {
		return float64(v.Int32())
	}
	return v.Float64()
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// ---------------------------------------------------------------------------
// Heap references
// ---------------------------------------------------------------------------

func makeRef(tag uint64, engine uint16, slot uint32) Value {
	return Value(nanBits | tag | uint64(engine)<<refEngineShift | uint64(slot))
}

// engineID returns the engine part of a heap reference payload.
func (v Value) engineID() uint16 {
	return uint16((uint64(v) & payloadMask) >> refEngineShift)
}

// slot returns the heap slot part of a heap reference payload.
func (v Value) slot() uint32 {
	return uint32(uint64(v) & refSlotMask)
}

// Engine resolves the engine owning v's heap payload. Returns nil for
// non-heap values and for values of a closed engine.
func (v Value) Engine() *Engine {
	if !v.IsHeap() {
		return nil
	}
	return lookupEngine(v.engineID())
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// SameValue compares a and b with the engine's normalising rule.
//
// Identical bits are equal. Two strings compare by content. An Integer and a
// Double compare equal when the Integer is non-zero and its float value
// equals the double, or when the Integer is zero and the double's bits are
// all zero (+0). NaN and -0 get no further special treatment.
func SameValue(a, b Value) bool {
	if a == b {
		return true
	}
	if a.IsString() && b.IsString() {
		return stringContent(a) == stringContent(b)
	}
	if a.IsInteger() {
		if !b.IsDouble() {
			return false
		}
		if n := a.Int32(); n != 0 {
			return float64(n) == b.Float64()
		}
		return uint64(b) == 0
	}
	if b.IsInteger() {
		if !a.IsDouble() {
			return false
		}
		if n := b.Int32(); n != 0 {
			return a.Float64() == float64(n)
		}
		return uint64(a) == 0
	}
	return false
}

// StrictEquals implements the === comparison.
func StrictEquals(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.IsInteger() && b.IsInteger() {
			return a == b
		}
		return a.AsFloat() == b.AsFloat()
	}
	if a.IsString() && b.IsString() {
		return a == b || stringContent(a) == stringContent(b)
	}
	return a == b
}
