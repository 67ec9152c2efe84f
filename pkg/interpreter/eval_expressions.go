package interpreter

import (
	"math"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evalExpression(node ast.Expression, env *runtime.Environment) (result runtime.Value, err error) {
	defer func() {
		if err != nil {
			err = i.attachRuntimeContext(err, node)
		}
	}()
	if node == nil {
		return nil, newError(KindInternal, "missing expression")
	}
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return runtime.NumberValue{Val: n.Value}, nil
	case *ast.ImaginaryLiteral:
		return runtime.Complex(complex(0, n.Value)), nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.Identifier:
		value, err := env.Get(n.Name)
		if err != nil {
			return nil, newError(KindUndefinedVariable, "undefined variable '%s'", n.Name)
		}
		return value, nil
	case *ast.UnaryExpression:
		return i.evalUnary(n, env)
	case *ast.BinaryExpression:
		return i.evalBinary(n, env)
	case *ast.ArrayLiteral:
		return i.evalArrayLiteral(n, env)
	case *ast.MatrixLiteral:
		return i.evalMatrixLiteral(n, env)
	case *ast.RangeExpression:
		return i.evalRange(n, env)
	case *ast.IndexExpression:
		return i.evalIndexExpression(n, env)
	case *ast.MemberExpression:
		return i.evalMember(n, env)
	case *ast.CallExpression:
		return i.evalCall(n, env)
	case *ast.UnitExpression:
		return i.evalUnitExpression(n, env)
	case *ast.SubstitutionExpression:
		return i.evalSubstitution(n, env)
	case *ast.SummationExpression:
		return i.evalSummation(n, env)
	case *ast.PiecewiseExpression:
		return i.evalPiecewise(n, env)
	case *ast.DerivativeExpression:
		return i.evalDerivative(n, env)
	default:
		return nil, newError(KindInternal, "unsupported expression %T", node)
	}
}

func (i *Interpreter) evalUnary(n *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evalExpression(n.Operand, env)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		return negate(operand)
	case "+":
		return operand, nil
	case "!", "not":
		num, ok := operand.(runtime.NumberValue)
		if !ok {
			return nil, newError(KindTypeMismatch, "cannot apply ! to %s", operand.Kind())
		}
		return runtime.Bool(num.Val == 0), nil
	default:
		return nil, newError(KindInternal, "unknown unary operator %q", n.Operator)
	}
}

func (i *Interpreter) evalBinary(n *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	switch n.Operator {
	case "&&", "and":
		return i.evalLogical(n, env, true)
	case "||", "or":
		return i.evalLogical(n, env, false)
	}
	left, err := i.evalExpression(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpression(n.Right, env)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Operator, left, right)
}

// evalLogical short-circuits: && stops on a false left operand, || on a true one.
func (i *Interpreter) evalLogical(n *ast.BinaryExpression, env *runtime.Environment, isAnd bool) (runtime.Value, error) {
	left, err := i.evalTruth(n.Left, env, n.Operator)
	if err != nil {
		return nil, err
	}
	if isAnd && !left {
		return runtime.Bool(false), nil
	}
	if !isAnd && left {
		return runtime.Bool(true), nil
	}
	right, err := i.evalTruth(n.Right, env, n.Operator)
	if err != nil {
		return nil, err
	}
	return runtime.Bool(right), nil
}

func (i *Interpreter) evalTruth(expr ast.Expression, env *runtime.Environment, operator string) (bool, error) {
	value, err := i.evalExpression(expr, env)
	if err != nil {
		return false, err
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		return false, newError(KindTypeMismatch, "operand of %s must be a number, got %s", operator, value.Kind())
	}
	return num.Val != 0, nil
}

func (i *Interpreter) evalExpressions(exprs []ast.Expression, env *runtime.Environment) ([]runtime.Value, error) {
	values := make([]runtime.Value, 0, len(exprs))
	for _, expr := range exprs {
		value, err := i.evalExpression(expr, env)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// evalArrayLiteral builds a vector. A literal whose elements are all row vectors
// of one length is a matrix: `[[1, 2], [3, 4]]`.
func (i *Interpreter) evalArrayLiteral(n *ast.ArrayLiteral, env *runtime.Environment) (runtime.Value, error) {
	elements, err := i.evalExpressions(n.Elements, env)
	if err != nil {
		return nil, err
	}
	if rows, ok := rowsOf(elements); ok {
		m, err := runtime.NewMatrix(rows)
		if err != nil {
			return nil, newError(KindDimension, "%v", err)
		}
		return m, nil
	}
	if n.Column {
		return runtime.NewColumn(elements), nil
	}
	return runtime.NewRow(elements), nil
}

func rowsOf(elements []runtime.Value) ([][]runtime.Value, bool) {
	if len(elements) == 0 {
		return nil, false
	}
	rows := make([][]runtime.Value, 0, len(elements))
	for _, el := range elements {
		arr, ok := el.(*runtime.ArrayValue)
		if !ok || arr.Shape != runtime.ShapeRow {
			return nil, false
		}
		if len(rows) > 0 && len(arr.Elements) != len(rows[0]) {
			return nil, false
		}
		rows = append(rows, arr.Elements)
	}
	return rows, true
}

func (i *Interpreter) evalMatrixLiteral(n *ast.MatrixLiteral, env *runtime.Environment) (runtime.Value, error) {
	rows := make([][]runtime.Value, 0, len(n.Rows))
	for _, row := range n.Rows {
		values, err := i.evalExpressions(row, env)
		if err != nil {
			return nil, err
		}
		rows = append(rows, values)
	}
	m, err := runtime.NewMatrix(rows)
	if err != nil {
		return nil, newError(KindDimension, "%v", err)
	}
	return m, nil
}

func (i *Interpreter) evalRange(n *ast.RangeExpression, env *runtime.Environment) (runtime.Value, error) {
	start, err := i.evalNumber(n.Start, env, "range start")
	if err != nil {
		return nil, err
	}
	end, err := i.evalNumber(n.End, env, "range end")
	if err != nil {
		return nil, err
	}
	step := 1.0
	if n.Step != nil {
		step, err = i.evalNumber(n.Step, env, "range step")
		if err != nil {
			return nil, err
		}
	}
	if step == 0 {
		return nil, newError(KindDomain, "range step must not be zero")
	}
	const eps = 1e-9
	var elements []runtime.Value
	for k := 0; ; k++ {
		v := start + float64(k)*step
		if step > 0 && (v > end+eps || (!n.Inclusive && v > end-eps)) {
			break
		}
		if step < 0 && (v < end-eps || (!n.Inclusive && v < end+eps)) {
			break
		}
		elements = append(elements, runtime.NumberValue{Val: v})
	}
	return runtime.NewRow(elements), nil
}

func (i *Interpreter) evalNumber(expr ast.Expression, env *runtime.Environment, what string) (float64, error) {
	value, err := i.evalExpression(expr, env)
	if err != nil {
		return 0, err
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		return 0, newError(KindTypeMismatch, "%s must be a number, got %s", what, value.Kind())
	}
	return num.Val, nil
}

func (i *Interpreter) evalIndexExpression(n *ast.IndexExpression, env *runtime.Environment) (runtime.Value, error) {
	target, err := i.evalExpression(n.Target, env)
	if err != nil {
		return nil, err
	}
	current := target
	for _, expr := range n.Indices {
		idx, err := i.evalIndex(expr, env)
		if err != nil {
			return nil, err
		}
		current, err = indexValue(current, idx)
		if err != nil {
			return nil, i.attachRuntimeContext(err, expr)
		}
	}
	return current, nil
}

func indexValue(target runtime.Value, idx int) (runtime.Value, error) {
	switch t := target.(type) {
	case *runtime.ArrayValue:
		if idx >= len(t.Elements) {
			return nil, newError(KindIndex, "index %d out of range for %s of length %d", idx, t.Shape, len(t.Elements))
		}
		return t.Elements[idx], nil
	case runtime.StringValue:
		runes := []rune(t.Val)
		if idx >= len(runes) {
			return nil, newError(KindIndex, "index %d out of range for string of length %d", idx, len(runes))
		}
		return runtime.StringValue{Val: string(runes[idx])}, nil
	default:
		return nil, newError(KindTypeMismatch, "cannot index into %s", target.Kind())
	}
}

func (i *Interpreter) evalUnitExpression(n *ast.UnitExpression, env *runtime.Environment) (runtime.Value, error) {
	value, err := i.evalExpression(n.Value, env)
	if err != nil {
		return nil, err
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		return nil, newError(KindTypeMismatch, "unit %s applies to a number, got %s", n.Unit, value.Kind())
	}
	unit, err := runtime.ParseUnit(n.Unit)
	if err != nil {
		return nil, newError(KindTypeMismatch, "%v", err)
	}
	return runtime.UnitValue{Val: num.Val, Unit: unit}, nil
}

// evalSubstitution evaluates the base with the bindings in a child scope. The
// bindings are evaluated in the enclosing scope, which is never modified.
func (i *Interpreter) evalSubstitution(n *ast.SubstitutionExpression, env *runtime.Environment) (runtime.Value, error) {
	scope := env.Extend()
	for _, binding := range n.Bindings {
		if binding == nil || binding.Name == nil {
			return nil, newError(KindInternal, "substitution binding without a name")
		}
		value, err := i.evalExpression(binding.Value, env)
		if err != nil {
			return nil, err
		}
		scope.Define(binding.Name.Name, value)
	}
	return i.evalExpression(n.Base, scope)
}

// maxExactInteger is 2^53, the largest magnitude below which every integer is
// a float64.
const maxExactInteger = 1 << 53

// evalSummation adds body over an inclusive integer range. An empty range sums
// to zero.
func (i *Interpreter) evalSummation(n *ast.SummationExpression, env *runtime.Environment) (runtime.Value, error) {
	if n.Variable == nil {
		return nil, newError(KindInternal, "summation without a variable")
	}
	lower, err := i.evalNumber(n.Lower, env, "summation lower bound")
	if err != nil {
		return nil, err
	}
	upper, err := i.evalNumber(n.Upper, env, "summation upper bound")
	if err != nil {
		return nil, err
	}
	for _, bound := range []float64{lower, upper} {
		if math.IsInf(bound, 0) || math.IsNaN(bound) || bound != math.Trunc(bound) {
			return nil, newError(KindDomain, "summation bounds must be integers")
		}
		if math.Abs(bound) > maxExactInteger {
			return nil, newError(KindDomain, "summation bound %s is beyond exact integer range", runtime.FormatNumber(bound))
		}
	}
	scope := env.Extend()
	var acc runtime.Value
	for k := int64(lower); k <= int64(upper); k++ {
		if err := i.checkContext(); err != nil {
			return nil, err
		}
		scope.Define(n.Variable.Name, runtime.NumberValue{Val: float64(k)})
		term, err := i.evalExpression(n.Body, scope)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = term
			continue
		}
		acc, err = applyBinary("+", acc, term)
		if err != nil {
			return nil, err
		}
	}
	if acc == nil {
		return runtime.NumberValue{}, nil
	}
	return acc, nil
}

func (i *Interpreter) evalPiecewise(n *ast.PiecewiseExpression, env *runtime.Environment) (runtime.Value, error) {
	for idx, c := range n.Cases {
		if c != nil && c.Otherwise && idx != len(n.Cases)-1 {
			return nil, newError(KindPiecewise, "otherwise must be the last piecewise case")
		}
	}
	for _, c := range n.Cases {
		if c == nil {
			continue
		}
		if c.Otherwise {
			return i.evalExpression(c.Value, env)
		}
		ok, err := i.evalTruth(c.Condition, env, "piecewise condition")
		if err != nil {
			return nil, err
		}
		if ok {
			return i.evalExpression(c.Value, env)
		}
	}
	return nil, newError(KindPiecewise, "no piecewise case matched")
}

func (i *Interpreter) evalDerivative(n *ast.DerivativeExpression, env *runtime.Environment) (runtime.Value, error) {
	if n.Variable == nil {
		return nil, newError(KindInternal, "derivative without a variable")
	}
	if i.differentiator == nil {
		return nil, newError(KindInternal, "no differentiator configured")
	}
	derived, err := i.differentiator.Differentiate(n.Expression, n.Variable.Name)
	if err != nil {
		return nil, newError(KindDomain, "cannot differentiate with respect to %s: %v", n.Variable.Name, err)
	}
	return i.evalExpression(derived, env)
}
