package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Number to string
// ---------------------------------------------------------------------------

// NumberToString formats d with the ECMAScript Number::toString algorithm:
// the shortest digit string that round-trips, laid out in fixed or
// exponential notation depending on the decimal exponent.
func NumberToString(d float64) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case d == 0:
		return "0"
	case d < 0:
		return "-" + NumberToString(-d)
	case math.IsInf(d, 1):
		return "Infinity"
	}
	digits, n := shortestDigits(d)
	k := len(digits)

	var sb strings.Builder
	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		writeExponent(&sb, n-1)
	}
	return sb.String()
}

// shortestDigits returns the shortest round-trip decimal digits of a
// positive finite d and the exponent n such that d = 0.digits × 10^n.
func shortestDigits(d float64) (string, int) {
	s := strconv.FormatFloat(d, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expPart)
	return strings.Replace(mantissa, ".", "", 1), exp + 1
}

func writeExponent(sb *strings.Builder, e int) {
	sb.WriteByte('e')
	if e < 0 {
		sb.WriteByte('-')
		e = -e
	} else {
		sb.WriteByte('+')
	}
	sb.WriteString(strconv.Itoa(e))
}

// ---------------------------------------------------------------------------
// Exact decimal rounding
// ---------------------------------------------------------------------------

// exactDecimal returns the exact decimal expansion of a non-negative finite
// x, split at the decimal point, without trailing fractional zeros.
func exactDecimal(x float64) (string, string) {
	// 1100 fractional digits cover the smallest subnormal exactly.
	text := new(big.Float).SetFloat64(x).Text('f', 1100)
	intPart, frac, _ := strings.Cut(text, ".")
	return intPart, strings.TrimRight(frac, "0")
}

// incrementDecimal adds one unit in the last place of a digit string.
func incrementDecimal(s string) string {
	b := []byte(s)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}

// roundFixed rounds x to f fractional digits, ties away from zero.
func roundFixed(x float64, f int) string {
	intPart, frac := exactDecimal(x)
	if len(frac) < f+1 {
		frac += strings.Repeat("0", f+1-len(frac))
	}
	digits := intPart + frac[:f]
	if frac[f] >= '5' {
		digits = incrementDecimal(digits)
	}
	if f == 0 {
		return digits
	}
	point := len(digits) - f
	return digits[:point] + "." + digits[point:]
}

// roundSignificant rounds a positive finite x to p significant digits, ties
// away from zero. It returns the digits and the exponent e of the first
// digit, so that x ≈ d.ddd × 10^e.
func roundSignificant(x float64, p int) (string, int) {
	intPart, frac := exactDecimal(x)
	all := intPart + frac
	first := strings.IndexFunc(all, func(r rune) bool { return r != '0' })
	e := len(intPart) - 1 - first
	sig := all[first:]
	if len(sig) <= p {
		return sig + strings.Repeat("0", p-len(sig)), e
	}
	up := sig[p] >= '5'
	sig = sig[:p]
	if up {
		sig = incrementDecimal(sig)
		if len(sig) > p {
			sig = sig[:p]
			e++
		}
	}
	return sig, e
}

// ---------------------------------------------------------------------------
// Number.prototype helpers
// ---------------------------------------------------------------------------

// maxRadixFractionDigits bounds the fraction digits produced for a radix
// conversion whose expansion does not terminate.
const maxRadixFractionDigits = 1100

// ThisNumberValue returns the number held by a Number.prototype receiver.
func (c *Context) ThisNumberValue(v Value) (float64, error) {
	if v.IsNumber() {
		return v.AsFloat(), nil
	}
	return 0, c.ThrowTypeError("Number.prototype method called on incompatible receiver %s", v.Tag())
}

// NumberToStringRadix formats d in the given radix. An undefined radix
// means 10.
func (c *Context) NumberToStringRadix(d float64, radix Value) (string, error) {
	if radix.IsUndefined() {
		return NumberToString(d), nil
	}
	r, err := c.ToInt32(radix)
	if err != nil {
		return "", err
	}
	if r < 2 || r > 36 {
		return "", c.ThrowRangeError("Number.prototype.toString: %d is not a valid radix", r)
	}
	switch {
	case math.IsNaN(d):
		return "NaN", nil
	case math.IsInf(d, 1):
		return "Infinity", nil
	case math.IsInf(d, -1):
		return "-Infinity", nil
	case r == 10:
		return NumberToString(d), nil
	}
	return formatRadix(d, float64(r)), nil
}

func radixDigit(n float64) byte {
	c := byte(n)
	if c < 10 {
		return '0' + c
	}
	return 'a' + c - 10
}

func formatRadix(num, radix float64) string {
	negative := num < 0
	if negative {
		num = -num
	}
	frac := num - math.Floor(num)
	num = ToInteger(num)

	var intDigits []byte
	for {
		intDigits = append(intDigits, radixDigit(math.Mod(num, radix)))
		num = math.Floor(num / radix)
		if num == 0 {
			break
		}
	}

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	for i := len(intDigits) - 1; i >= 0; i-- {
		sb.WriteByte(intDigits[i])
	}
	if frac != 0 {
		sb.WriteByte('.')
		for n := 0; frac != 0 && n < maxRadixFractionDigits; n++ {
			frac *= radix
			sb.WriteByte(radixDigit(math.Floor(frac)))
			frac -= math.Floor(frac)
		}
	}
	return sb.String()
}

// NumberToFixed formats d with a fixed number of fraction digits in
// [0, 20]. Magnitudes of 1e21 and above format as NumberToString.
func (c *Context) NumberToFixed(d float64, fractionDigits Value) (string, error) {
	f := 0.0
	if !fractionDigits.IsUndefined() {
		var err error
		if f, err = c.ToInteger(fractionDigits); err != nil {
			return "", err
		}
	}
	if f < 0 || f > 20 {
		return "", c.ThrowRangeError("Number.prototype.toFixed: fractionDigits out of range")
	}
	switch {
	case math.IsNaN(d):
		return "NaN", nil
	case math.IsInf(d, 1):
		return "Infinity", nil
	case math.IsInf(d, -1):
		return "-Infinity", nil
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	if d >= 1e21 {
		return sign + NumberToString(d), nil
	}
	return sign + roundFixed(d, int(f)), nil
}

// NumberToExponential formats d in exponential notation with the given
// fraction digits in [0, 20]; undefined uses as many digits as needed.
func (c *Context) NumberToExponential(d float64, fractionDigits Value) (string, error) {
	f := -1
	if !fractionDigits.IsUndefined() {
		n, err := c.ToInteger(fractionDigits)
		if err != nil {
			return "", err
		}
		if n < 0 || n > 20 {
			return "", c.ThrowRangeError("Number.prototype.toExponential: fractionDigits out of range")
		}
		f = int(n)
	}
	switch {
	case math.IsNaN(d):
		return "NaN", nil
	case math.IsInf(d, 1):
		return "Infinity", nil
	case math.IsInf(d, -1):
		return "-Infinity", nil
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	var digits string
	e := 0
	switch {
	case d == 0:
		digits = strings.Repeat("0", max(f, 0)+1)
	case f < 0:
		var n int
		digits, n = shortestDigits(d)
		e = n - 1
	default:
		digits, e = roundSignificant(d, f+1)
	}
	sb.WriteByte(digits[0])
	if len(digits) > 1 {
		sb.WriteByte('.')
		sb.WriteString(digits[1:])
	}
	writeExponent(&sb, e)
	return sb.String(), nil
}

// NumberToPrecision formats d with precision significant digits in
// [1, 21]; undefined precision formats as NumberToString.
func (c *Context) NumberToPrecision(d float64, precision Value) (string, error) {
	if precision.IsUndefined() {
		return NumberToString(d), nil
	}
	pf, err := c.ToInteger(precision)
	if err != nil {
		return "", err
	}
	if pf < 1 || pf > 21 {
		return "", c.ThrowRangeError("Number.prototype.toPrecision: precision out of range")
	}
	p := int(pf)
	switch {
	case math.IsNaN(d):
		return "NaN", nil
	case math.IsInf(d, 1):
		return "Infinity", nil
	case math.IsInf(d, -1):
		return "-Infinity", nil
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	if d == 0 {
		sb.WriteByte('0')
		if p > 1 {
			sb.WriteByte('.')
			sb.WriteString(strings.Repeat("0", p-1))
		}
		return sb.String(), nil
	}

	digits, e := roundSignificant(d, p)
	switch {
	case e < -6 || e >= p:
		sb.WriteByte(digits[0])
		if p > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		writeExponent(&sb, e)
	case e == p-1:
		sb.WriteString(digits)
	case e >= 0:
		sb.WriteString(digits[:e+1])
		sb.WriteByte('.')
		sb.WriteString(digits[e+1:])
	default:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -(e + 1)))
		sb.WriteString(digits)
	}
	return sb.String(), nil
}
