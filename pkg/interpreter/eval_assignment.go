package interpreter

import (
	"math"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

// execIndexAssignment implements `x[i] := v` and `m[i][j] := v`. Targets grow as
// needed, padding with zeros; an unbound target is created, as a column vector
// when the statement carries the column marker.
func (i *Interpreter) execIndexAssignment(s *ast.IndexAssignment, env *runtime.Environment) error {
	if s.Name == nil {
		return newError(KindInternal, "index assignment without a target")
	}
	if len(s.Indices) == 0 || len(s.Indices) > 2 {
		return newError(KindIndex, "index assignment takes one or two indices, got %d", len(s.Indices))
	}
	indices := make([]int, len(s.Indices))
	for n, expr := range s.Indices {
		idx, err := i.evalIndex(expr, env)
		if err != nil {
			return err
		}
		indices[n] = idx
	}
	value, err := i.evalExpression(s.Value, env)
	if err != nil {
		return err
	}

	var target *runtime.ArrayValue
	current, _, found := env.Lookup(s.Name.Name)
	switch {
	case !found:
		target = &runtime.ArrayValue{Shape: runtime.ShapeRow}
		if s.ColumnMarker {
			target.Shape = runtime.ShapeColumn
		}
	default:
		arr, ok := current.(*runtime.ArrayValue)
		if !ok {
			return newError(KindTypeMismatch, "cannot index into %s '%s'", current.Kind(), s.Name.Name)
		}
		target = runtime.CopyValue(arr).(*runtime.ArrayValue)
	}

	if len(indices) == 2 {
		if (indices[0]+1)*(indices[1]+1) > i.maxArrayLen {
			return i.attachRuntimeContext(newError(KindIndex, "matrix element [%d][%d] exceeds the array length limit %d", indices[0], indices[1], i.maxArrayLen), s.Indices[1])
		}
		target = asMatrix(target)
		setMatrixElement(target, indices[0], indices[1], value)
	} else if target.Shape == runtime.ShapeMatrix {
		row, ok := value.(*runtime.ArrayValue)
		_, width := target.Dims()
		if !ok || row.Shape == runtime.ShapeMatrix || len(row.Elements) != width {
			return newError(KindDimension, "row assignment into '%s' needs a vector of length %d", s.Name.Name, width)
		}
		for len(target.Elements) <= indices[0] {
			target.Elements = append(target.Elements, zeroRow(width))
		}
		target.Elements[indices[0]] = runtime.NewRow(append([]runtime.Value(nil), row.Elements...))
	} else {
		for len(target.Elements) <= indices[0] {
			target.Elements = append(target.Elements, runtime.NumberValue{})
		}
		target.Elements[indices[0]] = value
	}
	env.Assign(s.Name.Name, target)
	return nil
}

// evalIndex evaluates a 0-based index, rejecting negative, fractional and
// oversized values.
func (i *Interpreter) evalIndex(expr ast.Expression, env *runtime.Environment) (int, error) {
	value, err := i.evalExpression(expr, env)
	if err != nil {
		return 0, err
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		return 0, i.attachRuntimeContext(newError(KindTypeMismatch, "index must be a number, got %s", value.Kind()), expr)
	}
	if num.Val < 0 || num.Val != math.Trunc(num.Val) || math.IsInf(num.Val, 0) {
		return 0, i.attachRuntimeContext(newError(KindIndex, "invalid index %s", runtime.FormatNumber(num.Val)), expr)
	}
	if num.Val >= float64(i.maxArrayLen) {
		return 0, i.attachRuntimeContext(newError(KindIndex, "index %s exceeds the array length limit %d", runtime.FormatNumber(num.Val), i.maxArrayLen), expr)
	}
	return int(num.Val), nil
}

// asMatrix views a vector as a matrix: rows become 1×n, columns n×1.
func asMatrix(arr *runtime.ArrayValue) *runtime.ArrayValue {
	switch arr.Shape {
	case runtime.ShapeMatrix:
		return arr
	case runtime.ShapeColumn:
		rows := make([]runtime.Value, len(arr.Elements))
		for n, el := range arr.Elements {
			rows[n] = runtime.NewRow([]runtime.Value{el})
		}
		return &runtime.ArrayValue{Elements: rows, Shape: runtime.ShapeMatrix}
	default:
		if len(arr.Elements) == 0 {
			return &runtime.ArrayValue{Shape: runtime.ShapeMatrix}
		}
		row := runtime.NewRow(arr.Elements)
		return &runtime.ArrayValue{Elements: []runtime.Value{row}, Shape: runtime.ShapeMatrix}
	}
}

// setMatrixElement writes m[r][c], growing the matrix rectangularly.
func setMatrixElement(m *runtime.ArrayValue, r, c int, value runtime.Value) {
	_, width := m.Dims()
	if c+1 > width {
		width = c + 1
	}
	for len(m.Elements) <= r {
		m.Elements = append(m.Elements, zeroRow(0))
	}
	for _, el := range m.Elements {
		row := el.(*runtime.ArrayValue)
		for len(row.Elements) < width {
			row.Elements = append(row.Elements, runtime.NumberValue{})
		}
	}
	m.Row(r).Elements[c] = value
}

func zeroRow(width int) *runtime.ArrayValue {
	elements := make([]runtime.Value, width)
	for n := range elements {
		elements[n] = runtime.NumberValue{}
	}
	return runtime.NewRow(elements)
}
