package interpreter

import (
	"math"
	"math/cmplx"
	"unicode/utf8"

	"madola/interpreter-go/pkg/runtime"
)

const variadic = -1

func (i *Interpreter) newBuiltins() map[string]*runtime.NativeFunctionValue {
	builtins := make(map[string]*runtime.NativeFunctionValue)
	register := func(name string, arity int, impl func([]runtime.Value) (runtime.Value, error)) {
		builtins[name] = &runtime.NativeFunctionValue{Name: name, Arity: arity, Impl: impl}
	}

	register("math.sqrt", 1, builtinSqrt)
	register("math.exp", 1, realFunc("exp", math.Exp, nil))
	register("math.log", 1, realFunc("log", math.Log, positive))
	register("math.ln", 1, realFunc("ln", math.Log, positive))
	register("math.log10", 1, realFunc("log10", math.Log10, positive))
	register("math.sin", 1, angleFunc("sin", math.Sin))
	register("math.cos", 1, angleFunc("cos", math.Cos))
	register("math.tan", 1, angleFunc("tan", math.Tan))
	register("math.asin", 1, realFunc("asin", math.Asin, unitInterval))
	register("math.acos", 1, realFunc("acos", math.Acos, unitInterval))
	register("math.atan", 1, realFunc("atan", math.Atan, nil))
	register("math.floor", 1, realFunc("floor", math.Floor, nil))
	register("math.ceil", 1, realFunc("ceil", math.Ceil, nil))
	register("math.round", 1, realFunc("round", math.Round, nil))
	register("math.abs", 1, builtinAbs)
	register("math.atan2", 2, func(args []runtime.Value) (runtime.Value, error) {
		y, err := realArg("atan2", args[0])
		if err != nil {
			return nil, err
		}
		x, err := realArg("atan2", args[1])
		if err != nil {
			return nil, err
		}
		return checkedNumber("atan2", math.Atan2(y, x))
	})
	register("math.pow", 2, func(args []runtime.Value) (runtime.Value, error) {
		return applyBinary("^", args[0], args[1])
	})
	register("math.min", variadic, extremum("min", func(a, b float64) bool { return a < b }))
	register("math.max", variadic, extremum("max", func(a, b float64) bool { return a > b }))

	register("len", 1, builtinLen)
	register("zeros", variadic, filled("zeros", 0))
	register("ones", variadic, filled("ones", 1))
	register("eye", 1, builtinEye)
	register("re", 1, complexPart("re", func(c complex128) float64 { return real(c) }))
	register("im", 1, complexPart("im", func(c complex128) float64 { return imag(c) }))
	register("conj", 1, func(args []runtime.Value) (runtime.Value, error) {
		switch v := args[0].(type) {
		case runtime.NumberValue:
			return v, nil
		case runtime.ComplexValue:
			return runtime.Complex(cmplx.Conj(v.Val)), nil
		default:
			return nil, newError(KindTypeMismatch, "conj expects a number, got %s", v.Kind())
		}
	})
	register("det", 1, func(args []runtime.Value) (runtime.Value, error) { return matrixDet(args[0]) })
	register("inv", 1, func(args []runtime.Value) (runtime.Value, error) { return matrixInverse(args[0]) })
	register("tr", 1, func(args []runtime.Value) (runtime.Value, error) { return matrixTrace(args[0]) })
	register("transpose", 1, func(args []runtime.Value) (runtime.Value, error) { return transpose(args[0]) })
	register("eigenvalues", 1, func(args []runtime.Value) (runtime.Value, error) { return matrixEigenvalues(args[0]) })
	register("eigenvectors", 1, func(args []runtime.Value) (runtime.Value, error) { return matrixEigenvectors(args[0]) })
	register("plot", variadic, i.builtinPlot)
	register("error", 1, func(args []runtime.Value) (runtime.Value, error) {
		return runtime.ErrorValue{Message: runtime.Format(args[0])}, nil
	})
	return builtins
}

// checkedNumber rejects NaN and infinite results.
func checkedNumber(name string, v float64) (runtime.Value, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, newError(KindDomain, "%s: result is not a finite number", name)
	}
	return runtime.NumberValue{Val: v}, nil
}

func realArg(name string, v runtime.Value) (float64, error) {
	num, ok := v.(runtime.NumberValue)
	if !ok {
		return 0, newError(KindTypeMismatch, "%s expects a number, got %s", name, v.Kind())
	}
	return num.Val, nil
}

type domainCheck func(name string, x float64) error

func positive(name string, x float64) error {
	if x <= 0 {
		return newError(KindDomain, "%s of non-positive number %s", name, runtime.FormatNumber(x))
	}
	return nil
}

func unitInterval(name string, x float64) error {
	if x < -1 || x > 1 {
		return newError(KindDomain, "%s argument %s outside [-1, 1]", name, runtime.FormatNumber(x))
	}
	return nil
}

func realFunc(name string, fn func(float64) float64, check domainCheck) func([]runtime.Value) (runtime.Value, error) {
	return func(args []runtime.Value) (runtime.Value, error) {
		x, err := realArg(name, args[0])
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(name, x); err != nil {
				return nil, err
			}
		}
		return checkedNumber(name, fn(x))
	}
}

// angleFunc accepts plain radians or a value in an angle unit (`90 deg`).
func angleFunc(name string, fn func(float64) float64) func([]runtime.Value) (runtime.Value, error) {
	rad := runtime.MustParseUnit("rad")
	return func(args []runtime.Value) (runtime.Value, error) {
		if u, ok := args[0].(runtime.UnitValue); ok {
			factor, ok := u.Unit.ConversionFactor(rad)
			if !ok {
				return nil, newError(KindTypeMismatch, "%s expects an angle, got %s", name, u.Unit)
			}
			return checkedNumber(name, fn(u.Val*factor))
		}
		x, err := realArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return checkedNumber(name, fn(x))
	}
}

func builtinSqrt(args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case runtime.NumberValue:
		if v.Val < 0 {
			return nil, newError(KindDomain, "sqrt of negative number %s", runtime.FormatNumber(v.Val))
		}
		return runtime.NumberValue{Val: math.Sqrt(v.Val)}, nil
	case runtime.ComplexValue:
		return runtime.Complex(cmplx.Sqrt(v.Val)), nil
	case runtime.UnitValue:
		if v.Val < 0 {
			return nil, newError(KindDomain, "sqrt of negative number %s", runtime.FormatNumber(v.Val))
		}
		for _, f := range v.Unit {
			if f.Exp%2 != 0 {
				return nil, newError(KindDomain, "sqrt of unit %s", v.Unit)
			}
		}
		halved := make(runtime.Unit, len(v.Unit))
		for idx, f := range v.Unit {
			halved[idx] = runtime.UnitFactor{Symbol: f.Symbol, Exp: f.Exp / 2}
		}
		return runtime.UnitValue{Val: math.Sqrt(v.Val), Unit: halved}, nil
	default:
		return nil, newError(KindTypeMismatch, "sqrt expects a number, got %s", v.Kind())
	}
}

func builtinAbs(args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case runtime.NumberValue:
		return runtime.NumberValue{Val: math.Abs(v.Val)}, nil
	case runtime.ComplexValue:
		return runtime.NumberValue{Val: cmplx.Abs(v.Val)}, nil
	case runtime.UnitValue:
		return runtime.UnitValue{Val: math.Abs(v.Val), Unit: v.Unit}, nil
	default:
		return nil, newError(KindTypeMismatch, "abs expects a number, got %s", v.Kind())
	}
}

// extremum accepts numbers or a single vector.
func extremum(name string, better func(a, b float64) bool) func([]runtime.Value) (runtime.Value, error) {
	return func(args []runtime.Value) (runtime.Value, error) {
		if len(args) == 1 {
			if arr, ok := args[0].(*runtime.ArrayValue); ok && !arr.IsMatrix() {
				args = arr.Elements
			}
		}
		if len(args) == 0 {
			return nil, newError(KindArity, "%s expects at least one argument", name)
		}
		best := 0.0
		for idx, arg := range args {
			x, err := realArg(name, arg)
			if err != nil {
				return nil, err
			}
			if idx == 0 || better(x, best) {
				best = x
			}
		}
		return runtime.NumberValue{Val: best}, nil
	}
}

func builtinLen(args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case *runtime.ArrayValue:
		return runtime.NumberValue{Val: float64(len(v.Elements))}, nil
	case runtime.StringValue:
		return runtime.NumberValue{Val: float64(utf8.RuneCountInString(v.Val))}, nil
	default:
		return nil, newError(KindTypeMismatch, "len expects an array or string, got %s", v.Kind())
	}
}

func sizeArg(name string, v runtime.Value) (int, error) {
	n, err := realArg(name, v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n != math.Trunc(n) {
		return 0, newError(KindDomain, "%s size must be a non-negative integer, got %s", name, runtime.FormatNumber(n))
	}
	return int(n), nil
}

// filled builds `zeros(n)` as a row vector and `zeros(r, c)` as a matrix.
func filled(name string, fill float64) func([]runtime.Value) (runtime.Value, error) {
	return func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 && len(args) != 2 {
			return nil, newError(KindArity, "%s expects 1 or 2 arguments, got %d", name, len(args))
		}
		n, err := sizeArg(name, args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return runtime.NewRow(fillValues(n, fill)), nil
		}
		c, err := sizeArg(name, args[1])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return &runtime.ArrayValue{Shape: runtime.ShapeMatrix}, nil
		}
		rows := make([][]runtime.Value, n)
		for r := range rows {
			rows[r] = fillValues(c, fill)
		}
		return runtime.NewMatrix(rows)
	}
}

func fillValues(n int, fill float64) []runtime.Value {
	out := make([]runtime.Value, n)
	for idx := range out {
		out[idx] = runtime.NumberValue{Val: fill}
	}
	return out
}

func builtinEye(args []runtime.Value) (runtime.Value, error) {
	n, err := sizeArg("eye", args[0])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newError(KindDomain, "eye size must be positive")
	}
	rows := make([][]runtime.Value, n)
	for r := range rows {
		rows[r] = fillValues(n, 0)
		rows[r][r] = runtime.NumberValue{Val: 1}
	}
	return runtime.NewMatrix(rows)
}

func complexPart(name string, part func(complex128) float64) func([]runtime.Value) (runtime.Value, error) {
	return func(args []runtime.Value) (runtime.Value, error) {
		switch v := args[0].(type) {
		case runtime.NumberValue:
			return runtime.NumberValue{Val: part(complex(v.Val, 0))}, nil
		case runtime.ComplexValue:
			return runtime.NumberValue{Val: part(v.Val)}, nil
		default:
			return nil, newError(KindTypeMismatch, "%s expects a number, got %s", name, v.Kind())
		}
	}
}

// builtinPlot records `plot(x, y)` or `plot(x, y, title)` for the host.
func (i *Interpreter) builtinPlot(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, newError(KindArity, "plot expects 2 or 3 arguments, got %d", len(args))
	}
	xs, err := plotSeries(args[0])
	if err != nil {
		return nil, err
	}
	ys, err := plotSeries(args[1])
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) {
		return nil, newError(KindDimension, "plot series lengths differ: %d and %d", len(xs), len(ys))
	}
	plot := PlotDescriptor{X: xs, Y: ys}
	if len(args) == 3 {
		plot.Title = runtime.Format(args[2])
	}
	i.session.plots = append(i.session.plots, plot)
	return runtime.NumberValue{Val: float64(len(i.session.plots))}, nil
}

func plotSeries(v runtime.Value) ([]float64, error) {
	arr, ok := v.(*runtime.ArrayValue)
	if !ok || arr.IsMatrix() {
		return nil, newError(KindTypeMismatch, "plot expects vectors, got %s", v.Kind())
	}
	out := make([]float64, len(arr.Elements))
	for idx, el := range arr.Elements {
		x, err := realArg("plot", el)
		if err != nil {
			return nil, err
		}
		out[idx] = x
	}
	return out, nil
}
