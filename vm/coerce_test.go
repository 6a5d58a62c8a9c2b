package vm

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Integer range conversions
// ---------------------------------------------------------------------------

func TestToInt32(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{math.Copysign(0, -1), 0},
		{1.9, 1},
		{-1.9, -1},
		{2147483647, 2147483647},
		{2147483648, -2147483648},
		{-2147483649, 2147483647},
		{4294967296, 0},
		{4294967297, 1},
		{-4294967297, -1},
		{1e20, 1661992960},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := ToInt32(tt.in); got != tt.want {
			t.Errorf("ToInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToInt32Periodicity(t *testing.T) {
	samples := []float64{0, 1, -1, 12345.75, -98765.5, 2147483647, -2147483648, 3e9, -3e9}
	for _, d := range samples {
		base := ToInt32(d)
		for k := -3.0; k <= 3; k++ {
			shifted := d + k*two32
			if got := ToInt32(shifted); got != base {
				t.Errorf("ToInt32(%v + %v*2^32) = %d, want %d", d, k, got, base)
			}
		}
	}
}

func TestToUint32(t *testing.T) {
	tests := []struct {
		in   float64
		want uint32
	}{
		{0, 0},
		{-0.5, 0},
		{-1, 4294967295},
		{4294967295, 4294967295},
		{4294967296, 0},
		{4294967297.5, 1},
		{-4294967297, 4294967295},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := ToUint32(tt.in); got != tt.want {
			t.Errorf("ToUint32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToUint32OfToInt32(t *testing.T) {
	samples := []float64{0, 1, -1, 2147483648, -2147483649, 1e10, -1e10, 123.456, -0.75, 9007199254740991}
	for _, d := range samples {
		if a, b := ToUint32(float64(ToInt32(d))), ToUint32(d); a != b {
			t.Errorf("ToUint32(ToInt32(%v)) = %d, ToUint32 = %d", d, a, b)
		}
	}
}

func TestToUint16(t *testing.T) {
	tests := []struct {
		in   float64
		want uint16
	}{
		{0, 0},
		{65535, 65535},
		{65536, 0},
		{65537, 1},
		{-1, 65535},
		{70000.9, 4464},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ToUint16(tt.in); got != tt.want {
			t.Errorf("ToUint16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToInteger(t *testing.T) {
	negZero := math.Copysign(0, -1)
	tests := []struct {
		in   float64
		want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), math.Inf(1)},
		{math.Inf(-1), math.Inf(-1)},
		{negZero, negZero},
		{-0.5, negZero},
		{2.7, 2},
		{-2.7, -2},
	}
	for _, tt := range tests {
		got := ToInteger(tt.in)
		if math.Float64bits(got) != math.Float64bits(tt.want) {
			t.Errorf("ToInteger(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// String to number
// ---------------------------------------------------------------------------

func TestStringToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{"42", 42},
		{"  42  ", 42},
		{"\t\n\u00a0\ufeff7\u2028", 7},
		{"-3.5", -3.5},
		{"+.5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"1E-2", 0.01},
		{"0x1F", 31},
		{"0XfF", 255},
		{"0x10000000000000000", 18446744073709551616},
		{"Infinity", math.Inf(1)},
		{"+Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e400", math.Inf(1)},
		{"-1e400", math.Inf(-1)},
	}
	for _, tt := range tests {
		if got := StringToNumber(tt.in); got != tt.want {
			t.Errorf("StringToNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStringToNumberRejects(t *testing.T) {
	for _, in := range []string{
		"abc", "infinity", "INFINITY", "inf", "NaN", "1_000", "0x", "0xg", "-0x10",
		"1e", "e5", ".", "+", "1.2.3", "0b101", "0o17", "12px", "\u00851",
	} {
		if got := StringToNumber(in); !math.IsNaN(got) {
			t.Errorf("StringToNumber(%q) = %v, want NaN", in, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Value coercions
// ---------------------------------------------------------------------------

func TestToNumberValues(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	tests := []struct {
		name string
		v    Value
		want float64
	}{
		{"null", Null, 0},
		{"true", True, 1},
		{"false", False, 0},
		{"int", FromInt32(-9), -9},
		{"double", FromFloat64(2.25), 2.25},
		{"string", e.NewString(" 12 "), 12},
		{"empty array", e.NewArray().Value(), 0},
		{"one element array", e.NewArray(e.NewString("8")).Value(), 8},
	}
	for _, tt := range tests {
		got, err := c.ToNumber(tt.v)
		if err != nil {
			t.Fatalf("%s: ToNumber error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: ToNumber = %v, want %v", tt.name, got, tt.want)
		}
	}
	if got, _ := c.ToNumber(Undefined); !math.IsNaN(got) {
		t.Errorf("ToNumber(undefined) = %v, want NaN", got)
	}
	if got, _ := c.ToNumber(e.NewObject().Value()); !math.IsNaN(got) {
		t.Errorf("ToNumber({}) = %v, want NaN", got)
	}
}

func TestToNumberUsesPrimitiveHook(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	obj := e.NewObject()
	var hints []Hint
	obj.SetPrimitiveHook(func(_ *Context, _ *Object, hint Hint) (Value, error) {
		hints = append(hints, hint)
		return FromInt32(41), nil
	})
	got, err := c.ToNumber(obj.Value())
	if err != nil || got != 41 {
		t.Fatalf("ToNumber = %v, %v", got, err)
	}
	if len(hints) != 1 || hints[0] != HintNumber {
		t.Errorf("hook hints = %v, want [number]", hints)
	}
}

func TestToBoolean(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	tests := []struct {
		v    Value
		want bool
	}{
		{Undefined, false},
		{Null, false},
		{False, false},
		{True, true},
		{FromInt32(0), false},
		{FromInt32(-1), true},
		{FromFloat64(math.Copysign(0, -1)), false},
		{NaN, false},
		{FromFloat64(0.1), true},
		{e.NewString(""), false},
		{e.NewString("0"), true},
		{e.NewObject().Value(), true},
	}
	for _, tt := range tests {
		if got := ToBoolean(tt.v); got != tt.want {
			t.Errorf("ToBoolean(%v value) = %v, want %v", tt.v.Tag(), got, tt.want)
		}
	}
}

func TestToStringValues(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, "undefined"},
		{Null, "null"},
		{True, "true"},
		{False, "false"},
		{FromInt32(-12), "-12"},
		{FromFloat64(0.1), "0.1"},
		{FromFloat64(math.Copysign(0, -1)), "0"},
		{NaN, "NaN"},
		{FromFloat64(math.Inf(-1)), "-Infinity"},
		{e.NewString("s"), "s"},
		{e.NewObject().Value(), "[object Object]"},
		{e.NewArray(FromInt32(1), Null, FromInt32(3)).Value(), "1,,3"},
		{e.NewError(KindTypeError, "bad").Value(), "TypeError: bad"},
	}
	for _, tt := range tests {
		got, err := c.ToString(tt.v)
		if err != nil {
			t.Fatalf("ToString error: %v", err)
		}
		if got != tt.want {
			t.Errorf("ToString = %q, want %q", got, tt.want)
		}
	}
}

func TestToStringFallsBackToThrownValue(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	obj := e.NewObject()
	obj.SetPrimitiveHook(func(c *Context, _ *Object, _ Hint) (Value, error) {
		return Undefined, c.Throw(c.Engine().NewString("from the throw"))
	})
	got, err := c.ToString(obj.Value())
	if err != nil {
		t.Fatalf("ToString error: %v", err)
	}
	if got != "from the throw" {
		t.Errorf("ToString = %q, want the thrown value", got)
	}
}

func TestToStringDoubleFailureIsEmpty(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	// The thrown value is itself an object whose conversion throws.
	thrower := e.NewObject()
	thrower.SetPrimitiveHook(func(c *Context, this *Object, _ Hint) (Value, error) {
		return Undefined, c.Throw(this.Value())
	})
	got, err := c.ToString(thrower.Value())
	if err != nil {
		t.Fatalf("ToString error: %v", err)
	}
	if got != "" {
		t.Errorf("ToString = %q, want empty string", got)
	}
}

func TestToStringPropagatesAbort(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	obj := e.NewObject()
	obj.SetPrimitiveHook(func(*Context, *Object, Hint) (Value, error) {
		return Undefined, ErrAborted
	})
	if _, err := c.ToString(obj.Value()); !errors.Is(err, ErrAborted) {
		t.Errorf("ToString error = %v, want ErrAborted", err)
	}
}

func TestToArrayLength(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	c := e.NewContext()

	for _, ok := range []float64{0, 3, 4294967295} {
		n, err := c.ToArrayLength(FromNumber(ok))
		if err != nil || float64(n) != ok {
			t.Errorf("ToArrayLength(%v) = %d, %v", ok, n, err)
		}
	}
	for _, bad := range []float64{-1, 1.5, 4294967296, math.NaN(), math.Inf(1)} {
		if _, err := c.ToArrayLength(FromNumber(bad)); !IsRangeError(err) {
			t.Errorf("ToArrayLength(%v) error = %v, want RangeError", bad, err)
		}
	}
}
