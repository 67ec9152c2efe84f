package interpreter

import (
	"math"
	"math/cmplx"
	"strings"

	"madola/interpreter-go/pkg/runtime"
)

func isComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

// applyBinary evaluates a binary operator over two already-evaluated operands.
func applyBinary(op string, left, right runtime.Value) (runtime.Value, error) {
	if op == "+" {
		if _, ok := left.(runtime.StringValue); ok {
			return runtime.StringValue{Val: runtime.Format(left) + runtime.Format(right)}, nil
		}
		if _, ok := right.(runtime.StringValue); ok {
			return runtime.StringValue{Val: runtime.Format(left) + runtime.Format(right)}, nil
		}
	}
	if isComparison(op) {
		return compareValues(op, left, right)
	}

	_, leftArr := left.(*runtime.ArrayValue)
	_, rightArr := right.(*runtime.ArrayValue)
	if leftArr || rightArr {
		return applyArrayOperation(op, left, right)
	}
	_, leftUnit := left.(runtime.UnitValue)
	_, rightUnit := right.(runtime.UnitValue)
	if leftUnit || rightUnit {
		return applyUnitOperation(op, left, right)
	}

	switch l := left.(type) {
	case runtime.NumberValue:
		switch r := right.(type) {
		case runtime.NumberValue:
			return applyNumberOperation(op, l.Val, r.Val)
		case runtime.ComplexValue:
			return applyComplexOperation(op, complex(l.Val, 0), r.Val)
		}
	case runtime.ComplexValue:
		switch r := right.(type) {
		case runtime.NumberValue:
			return applyComplexOperation(op, l.Val, complex(r.Val, 0))
		case runtime.ComplexValue:
			return applyComplexOperation(op, l.Val, r.Val)
		}
	}
	return nil, typeMismatch(op, left, right)
}

func typeMismatch(op string, left, right runtime.Value) *RuntimeError {
	return newError(KindTypeMismatch, "unsupported operand types for %s: %s and %s", op, left.Kind(), right.Kind())
}

func applyNumberOperation(op string, a, b float64) (runtime.Value, error) {
	switch op {
	case "+":
		return runtime.NumberValue{Val: a + b}, nil
	case "-":
		return runtime.NumberValue{Val: a - b}, nil
	case "*":
		return runtime.NumberValue{Val: a * b}, nil
	case "/":
		if b == 0 {
			return nil, newError(KindDivisionByZero, "division by zero")
		}
		return runtime.NumberValue{Val: a / b}, nil
	case "%":
		if b == 0 {
			return nil, newError(KindDivisionByZero, "division by zero")
		}
		return runtime.NumberValue{Val: math.Mod(a, b)}, nil
	case "^", "**":
		if a == 0 && b < 0 {
			return nil, newError(KindDivisionByZero, "division by zero: 0 raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			return runtime.Complex(complexPow(complex(a, 0), complex(b, 0))), nil
		}
		return checkedNumber("^", math.Pow(a, b))
	default:
		return nil, newError(KindInternal, "unknown operator %q", op)
	}
}

func applyComplexOperation(op string, a, b complex128) (runtime.Value, error) {
	switch op {
	case "+":
		return runtime.Complex(a + b), nil
	case "-":
		return runtime.Complex(a - b), nil
	case "*":
		return runtime.Complex(a * b), nil
	case "/":
		if b == 0 {
			return nil, newError(KindDivisionByZero, "division by zero")
		}
		return runtime.Complex(a / b), nil
	case "^", "**":
		if a == 0 && b == 0 {
			return runtime.NumberValue{Val: 1}, nil
		}
		if a == 0 && real(b) < 0 {
			return nil, newError(KindDivisionByZero, "division by zero: 0 raised to a negative power")
		}
		return runtime.Complex(complexPow(a, b)), nil
	case "%":
		return nil, newError(KindTypeMismatch, "unsupported operand types for %%: complex")
	default:
		return nil, newError(KindInternal, "unknown operator %q", op)
	}
}

// complexPow drops the rounding residue cmplx.Pow leaves on a component that
// is zero in exact arithmetic, so (-1)^0.5 is i rather than 6e-17 + 1i.
func complexPow(a, b complex128) complex128 {
	if b == 0.5 {
		return cmplx.Sqrt(a)
	}
	c := cmplx.Pow(a, b)
	limit := cmplx.Abs(c) * 1e-14
	re, im := real(c), imag(c)
	if math.Abs(re) < limit {
		re = 0
	}
	if math.Abs(im) < limit {
		im = 0
	}
	return complex(re, im)
}

func compareValues(op string, left, right runtime.Value) (runtime.Value, error) {
	if l, ok := left.(runtime.UnitValue); ok {
		if r, ok := right.(runtime.UnitValue); ok {
			factor, ok := r.Unit.ConversionFactor(l.Unit)
			if !ok {
				return nil, incompatibleUnits(op, l.Unit, r.Unit)
			}
			return compareNumbers(op, l.Val, r.Val*factor), nil
		}
	}
	if l, ok := left.(runtime.NumberValue); ok {
		if r, ok := right.(runtime.NumberValue); ok {
			return compareNumbers(op, l.Val, r.Val), nil
		}
	}
	if l, ok := left.(runtime.StringValue); ok {
		if r, ok := right.(runtime.StringValue); ok {
			return compareNumbers(op, float64(strings.Compare(l.Val, r.Val)), 0), nil
		}
	}
	switch op {
	case "==":
		return runtime.Bool(valuesEqualNumeric(left, right)), nil
	case "!=":
		return runtime.Bool(!valuesEqualNumeric(left, right)), nil
	}
	return nil, typeMismatch(op, left, right)
}

// valuesEqualNumeric is structural equality that also treats Number n and
// Complex n+0i as equal.
func valuesEqualNumeric(left, right runtime.Value) bool {
	if l, ok := left.(runtime.NumberValue); ok {
		if r, ok := right.(runtime.ComplexValue); ok {
			return complex(l.Val, 0) == r.Val
		}
	}
	if l, ok := left.(runtime.ComplexValue); ok {
		if r, ok := right.(runtime.NumberValue); ok {
			return l.Val == complex(r.Val, 0)
		}
	}
	return runtime.ValuesEqual(left, right)
}

func compareNumbers(op string, a, b float64) runtime.Value {
	switch op {
	case "<":
		return runtime.Bool(a < b)
	case "<=":
		return runtime.Bool(a <= b)
	case ">":
		return runtime.Bool(a > b)
	case ">=":
		return runtime.Bool(a >= b)
	case "==":
		return runtime.Bool(a == b)
	default:
		return runtime.Bool(a != b)
	}
}

func negate(v runtime.Value) (runtime.Value, error) {
	switch val := v.(type) {
	case runtime.NumberValue:
		return runtime.NumberValue{Val: -val.Val}, nil
	case runtime.ComplexValue:
		return runtime.Complex(-val.Val), nil
	case runtime.UnitValue:
		return runtime.UnitValue{Val: -val.Val, Unit: val.Unit}, nil
	case *runtime.ArrayValue:
		out := &runtime.ArrayValue{Elements: make([]runtime.Value, len(val.Elements)), Shape: val.Shape}
		for idx, el := range val.Elements {
			neg, err := negate(el)
			if err != nil {
				return nil, err
			}
			out.Elements[idx] = neg
		}
		return out, nil
	default:
		return nil, newError(KindTypeMismatch, "cannot negate %s", v.Kind())
	}
}
