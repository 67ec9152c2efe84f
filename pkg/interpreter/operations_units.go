package interpreter

import (
	"math"

	"madola/interpreter-go/pkg/runtime"
)

func incompatibleUnits(op string, left, right runtime.Unit) *RuntimeError {
	return newError(KindTypeMismatch, "incompatible units for %s: %s and %s", op, left, right)
}

// normalizeUnit collapses dimensionless results to plain numbers.
func normalizeUnit(val float64, unit runtime.Unit) runtime.Value {
	if unit.Dimensionless() {
		return runtime.NumberValue{Val: val * unit.Scale()}
	}
	return runtime.UnitValue{Val: val, Unit: unit}
}

func applyUnitOperation(op string, left, right runtime.Value) (runtime.Value, error) {
	l, leftIsUnit := left.(runtime.UnitValue)
	r, rightIsUnit := right.(runtime.UnitValue)
	switch op {
	case "+", "-":
		if !leftIsUnit || !rightIsUnit {
			return nil, typeMismatch(op, left, right)
		}
		factor, ok := r.Unit.ConversionFactor(l.Unit)
		if !ok {
			return nil, incompatibleUnits(op, l.Unit, r.Unit)
		}
		if op == "+" {
			return runtime.UnitValue{Val: l.Val + r.Val*factor, Unit: l.Unit}, nil
		}
		return runtime.UnitValue{Val: l.Val - r.Val*factor, Unit: l.Unit}, nil
	case "*":
		switch {
		case leftIsUnit && rightIsUnit:
			return normalizeUnit(l.Val*r.Val, l.Unit.Mul(r.Unit)), nil
		case leftIsUnit:
			n, ok := right.(runtime.NumberValue)
			if !ok {
				return nil, typeMismatch(op, left, right)
			}
			return runtime.UnitValue{Val: l.Val * n.Val, Unit: l.Unit}, nil
		default:
			n, ok := left.(runtime.NumberValue)
			if !ok {
				return nil, typeMismatch(op, left, right)
			}
			return runtime.UnitValue{Val: n.Val * r.Val, Unit: r.Unit}, nil
		}
	case "/":
		switch {
		case leftIsUnit && rightIsUnit:
			if r.Val == 0 {
				return nil, newError(KindDivisionByZero, "division by zero")
			}
			return normalizeUnit(l.Val/r.Val, l.Unit.Div(r.Unit)), nil
		case leftIsUnit:
			n, ok := right.(runtime.NumberValue)
			if !ok {
				return nil, typeMismatch(op, left, right)
			}
			if n.Val == 0 {
				return nil, newError(KindDivisionByZero, "division by zero")
			}
			return runtime.UnitValue{Val: l.Val / n.Val, Unit: l.Unit}, nil
		default:
			n, ok := left.(runtime.NumberValue)
			if !ok {
				return nil, typeMismatch(op, left, right)
			}
			if r.Val == 0 {
				return nil, newError(KindDivisionByZero, "division by zero")
			}
			return runtime.UnitValue{Val: n.Val / r.Val, Unit: r.Unit.Pow(-1)}, nil
		}
	case "^", "**":
		exp, ok := right.(runtime.NumberValue)
		if !leftIsUnit || !ok {
			return nil, typeMismatch(op, left, right)
		}
		if exp.Val != math.Trunc(exp.Val) {
			return nil, newError(KindDomain, "unit exponent must be an integer, got %s", runtime.FormatNumber(exp.Val))
		}
		return normalizeUnit(math.Pow(l.Val, exp.Val), l.Unit.Pow(int(exp.Val))), nil
	default:
		return nil, typeMismatch(op, left, right)
	}
}
