package vm

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Integer range conversions
// ---------------------------------------------------------------------------

const (
	two16 = 65536.0
	two31 = 2147483648.0
	two32 = 4294967296.0
)

// ToInt32 converts d with the ECMAScript ToInt32 modular reduction.
func ToInt32(d float64) int32 {
	if d >= -two31 && d < two31 {
		return int32(d)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	n := math.Floor(math.Abs(d))
	if math.Signbit(d) {
		n = -n
	}
	n = math.Mod(n, two32)
	if n < -two31 {
		n += two32
	} else if n >= two31 {
		n -= two32
	}
	return int32(n)
}

// ToUint32 converts d with the ECMAScript ToUint32 modular reduction.
func ToUint32(d float64) uint32 {
	if d >= 0 && d < two32 {
		return uint32(d)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	n := math.Floor(math.Abs(d))
	if math.Signbit(d) {
		n = -n
	}
	n = math.Mod(n, two32)
	if n < 0 {
		n += two32
	}
	return uint32(n)
}

// ToUint16 converts d with the ECMAScript ToUint16 modular reduction.
func ToUint16(d float64) uint16 {
	if d >= 0 && d < two16 {
		return uint16(d)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	n := math.Floor(math.Abs(d))
	if math.Signbit(d) {
		n = -n
	}
	n = math.Mod(n, two16)
	if n < 0 {
		n += two16
	}
	return uint16(n)
}

// ToInteger truncates d toward zero. NaN becomes +0; infinities and zeros
// are returned unchanged.
func ToInteger(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	if d == 0 || math.IsInf(d, 0) {
		return d
	}
	n := math.Floor(math.Abs(d))
	if math.Signbit(d) {
		return -n
	}
	return n
}

// ---------------------------------------------------------------------------
// String to number
// ---------------------------------------------------------------------------

// isJSWhitespace reports whether r is a WhiteSpace or LineTerminator code
// point.
func isJSWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return r > 0x7f && unicode.Is(unicode.Zs, r)
}

// StringToNumber parses s with the StringNumericLiteral grammar. Anything
// the grammar rejects is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSWhitespace)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return parseHexInteger(s[2:])
	}
	if !isDecimalLiteral(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			// Overflow yields ±Inf and underflow ±0, as required.
			return f
		}
		return math.NaN()
	}
	return f
}

func parseHexInteger(digits string) float64 {
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return math.NaN()
		}
	}
	if len(digits) <= 13 {
		n, _ := strconv.ParseUint(digits, 16, 64)
		return float64(n)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// isDecimalLiteral validates
// [+-]? (digits ("." digits?)? | "." digits) ([eE] [+-]? digits)?
func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		intDigits++
	}
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// ---------------------------------------------------------------------------
// Value coercions
// ---------------------------------------------------------------------------

// ToBoolean converts v with the ECMAScript ToBoolean rules.
func ToBoolean(v Value) bool {
	switch v.Tag() {
	case TagUndefined, TagNull:
		return false
	case TagBoolean:
		return v == True
	case TagInteger:
		return v.Int32() != 0
	case TagDouble:
		d := v.Float64()
		return !math.IsNaN(d) && d != 0
	case TagString:
		return stringContent(v) != ""
	}
	return true
}

// ToPrimitive returns v unchanged when it is primitive and converts objects
// through their primitive hook otherwise.
func (c *Context) ToPrimitive(v Value, hint Hint) (Value, error) {
	if v.IsPrimitive() {
		return v, nil
	}
	obj := ObjectFromValue(v)
	if obj == nil {
		return Undefined, c.ThrowTypeError("Cannot convert a collected object")
	}
	if hint == HintDefault {
		hint = HintNumber
	}
	return obj.ToPrimitive(c, hint)
}

// ToNumber converts v to a number. Objects go through ToPrimitive with a
// number hint first.
func (c *Context) ToNumber(v Value) (float64, error) {
	if v.IsObject() {
		prim, err := c.ToPrimitive(v, HintNumber)
		if err != nil {
			return math.NaN(), err
		}
		v = prim
	}
	return primitiveToNumber(v), nil
}

// primitiveToNumber converts a primitive value.
func primitiveToNumber(v Value) float64 {
	switch v.Tag() {
	case TagUndefined:
		return math.NaN()
	case TagNull:
		return 0
	case TagBoolean:
		if v == True {
			return 1
		}
		return 0
	case TagInteger:
		return float64(v.Int32())
	case TagDouble:
		return v.Float64()
	case TagString:
		return StringToNumber(stringContent(v))
	}
	return math.NaN()
}

// ToInteger converts v to an integral number. Integers short-circuit.
func (c *Context) ToInteger(v Value) (float64, error) {
	if v.IsInteger() {
		return float64(v.Int32()), nil
	}
	d, err := c.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return ToInteger(d), nil
}

// ToInt32 converts v to a number and reduces it to int32.
func (c *Context) ToInt32(v Value) (int32, error) {
	if v.IsInteger() {
		return v.Int32(), nil
	}
	d, err := c.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return ToInt32(d), nil
}

// ToUint32 converts v to a number and reduces it to uint32.
func (c *Context) ToUint32(v Value) (uint32, error) {
	if v.IsInteger() {
		return uint32(v.Int32()), nil
	}
	d, err := c.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return ToUint32(d), nil
}

// ToUint16 converts v to a number and reduces it to uint16.
func (c *Context) ToUint16(v Value) (uint16, error) {
	if v.IsInteger() {
		return uint16(uint32(v.Int32())), nil
	}
	d, err := c.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return ToUint16(d), nil
}

// ToArrayLength validates a length argument: it must be a number that is
// exactly a uint32.
func (c *Context) ToArrayLength(v Value) (uint32, error) {
	d, err := c.ToNumber(v)
	if err != nil {
		return 0, err
	}
	n := ToUint32(d)
	if float64(n) != d {
		return 0, c.ThrowRangeError("Invalid array length")
	}
	return n, nil
}

// ToString converts v to its string form.
//
// When converting an object throws, the thrown value itself is converted
// once more with a string hint; if that throws as well the result is the
// empty string. Only thrown exceptions take this path, every other error
// propagates.
func (c *Context) ToString(v Value) (string, error) {
	if !v.IsObject() {
		return primitiveToString(v), nil
	}
	prim, err := c.ToPrimitive(v, HintString)
	if err == nil {
		return primitiveToString(prim), nil
	}
	ex, ok := IsException(err)
	if !ok {
		return "", err
	}
	prim, err = c.ToPrimitive(ex.Value, HintString)
	if err == nil {
		valueLogger().Debugf("string conversion threw, using the thrown value")
		return primitiveToString(prim), nil
	}
	if _, ok := IsException(err); !ok {
		return "", err
	}
	valueLogger().Warningf("string conversion threw twice, result is empty: %s", err)
	return "", nil
}

// ToStringValue converts v to a string value, reusing v when it already is
// one.
func (c *Context) ToStringValue(v Value) (Value, error) {
	if v.IsString() {
		return v, nil
	}
	s, err := c.ToString(v)
	if err != nil {
		return Undefined, err
	}
	return c.engine.NewString(s), nil
}

// primitiveToString converts a primitive value.
func primitiveToString(v Value) string {
	switch v.Tag() {
	case TagUndefined:
		return "undefined"
	case TagNull:
		return "null"
	case TagBoolean:
		if v == True {
			return "true"
		}
		return "false"
	case TagInteger:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case TagDouble:
		return NumberToString(v.Float64())
	case TagString:
		return stringContent(v)
	}
	return ""
}

func valueLogger() commonlog.Logger {
	return commonlog.GetLogger("qv4.value")
}
