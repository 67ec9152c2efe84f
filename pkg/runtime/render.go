package runtime

import (
	"math"
	"strconv"
	"strings"
)

// Format renders a value in its canonical printed form.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case NumberValue:
		return FormatNumber(val.Val)
	case ComplexValue:
		return FormatComplex(val.Val)
	case StringValue:
		return val.Val
	case UnitValue:
		return FormatNumber(val.Val) + " " + val.Unit.String()
	case *ArrayValue:
		return formatArray(val)
	case *FunctionValue:
		return "<function " + val.Name() + ">"
	case *NativeFunctionValue:
		return "<function " + val.Name + ">"
	case ErrorValue:
		return "<error: " + val.Message + ">"
	default:
		return "<" + v.Kind().String() + ">"
	}
}

// FormatNumber prints integral values without a fractional part and anything
// else with up to 10 significant digits.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		if f == 0 {
			return "0"
		}
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', 10, 64)
}

// FormatComplex prints `a + bi`, `a - bi`, or `bi` when the real part is zero.
func FormatComplex(c complex128) string {
	re, im := real(c), imag(c)
	if re == 0 {
		return FormatNumber(im) + "i"
	}
	if im < 0 {
		return FormatNumber(re) + " - " + FormatNumber(-im) + "i"
	}
	return FormatNumber(re) + " + " + FormatNumber(im) + "i"
}

func formatArray(arr *ArrayValue) string {
	if arr == nil {
		return "[]"
	}
	parts := make([]string, len(arr.Elements))
	for i, el := range arr.Elements {
		parts[i] = Format(el)
	}
	sep := ", "
	if arr.Shape == ShapeColumn {
		sep = "; "
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Join(parts, sep))
	b.WriteByte(']')
	return b.String()
}
