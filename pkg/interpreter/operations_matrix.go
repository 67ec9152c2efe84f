package interpreter

import (
	"gonum.org/v1/gonum/mat"

	"madola/interpreter-go/pkg/runtime"
)

func isScalar(v runtime.Value) bool {
	switch v.(type) {
	case runtime.NumberValue, runtime.ComplexValue:
		return true
	}
	return false
}

// applyArrayOperation covers elementwise +/- on equal shapes, scalar broadcast
// for * and /, and the matrix product.
func applyArrayOperation(op string, left, right runtime.Value) (runtime.Value, error) {
	l, leftIsArr := left.(*runtime.ArrayValue)
	r, rightIsArr := right.(*runtime.ArrayValue)
	switch {
	case leftIsArr && rightIsArr:
		switch op {
		case "+", "-":
			lr, lc := l.Dims()
			rr, rc := r.Dims()
			if lr != rr || lc != rc || l.Shape != r.Shape {
				return nil, newError(KindDimension, "cannot apply %s to %dx%d and %dx%d", op, lr, lc, rr, rc)
			}
			return zipArrays(op, l, r)
		case "*":
			return matrixProduct(l, r)
		default:
			return nil, typeMismatch(op, left, right)
		}
	case leftIsArr && isScalar(right):
		if op != "*" && op != "/" {
			return nil, typeMismatch(op, left, right)
		}
		return mapArray(l, func(el runtime.Value) (runtime.Value, error) {
			return applyBinary(op, el, right)
		})
	case rightIsArr && isScalar(left):
		if op != "*" {
			return nil, typeMismatch(op, left, right)
		}
		return mapArray(r, func(el runtime.Value) (runtime.Value, error) {
			return applyBinary(op, left, el)
		})
	default:
		return nil, typeMismatch(op, left, right)
	}
}

func mapArray(arr *runtime.ArrayValue, fn func(runtime.Value) (runtime.Value, error)) (*runtime.ArrayValue, error) {
	out := &runtime.ArrayValue{Elements: make([]runtime.Value, len(arr.Elements)), Shape: arr.Shape}
	for idx, el := range arr.Elements {
		var (
			mapped runtime.Value
			err    error
		)
		if nested, ok := el.(*runtime.ArrayValue); ok {
			mapped, err = mapArray(nested, fn)
		} else {
			mapped, err = fn(el)
		}
		if err != nil {
			return nil, err
		}
		out.Elements[idx] = mapped
	}
	return out, nil
}

func zipArrays(op string, l, r *runtime.ArrayValue) (*runtime.ArrayValue, error) {
	out := &runtime.ArrayValue{Elements: make([]runtime.Value, len(l.Elements)), Shape: l.Shape}
	for idx := range l.Elements {
		var (
			value runtime.Value
			err   error
		)
		ln, lok := l.Elements[idx].(*runtime.ArrayValue)
		rn, rok := r.Elements[idx].(*runtime.ArrayValue)
		if lok && rok {
			value, err = zipArrays(op, ln, rn)
		} else {
			value, err = applyBinary(op, l.Elements[idx], r.Elements[idx])
		}
		if err != nil {
			return nil, err
		}
		out.Elements[idx] = value
	}
	return out, nil
}

// elementAt reads (row, col) of a vector or matrix viewed through Dims.
func elementAt(arr *runtime.ArrayValue, row, col int) runtime.Value {
	switch arr.Shape {
	case runtime.ShapeMatrix:
		return arr.Row(row).Elements[col]
	case runtime.ShapeColumn:
		return arr.Elements[row]
	default:
		return arr.Elements[col]
	}
}

// matrixProduct multiplies (a×n)(n×b). A 1×1 result is a scalar; a single
// column or row result is a vector.
func matrixProduct(l, r *runtime.ArrayValue) (runtime.Value, error) {
	lr, lc := l.Dims()
	rr, rc := r.Dims()
	if lc != rr {
		return nil, newError(KindDimension, "cannot multiply %dx%d by %dx%d", lr, lc, rr, rc)
	}
	rows := make([][]runtime.Value, lr)
	for i := 0; i < lr; i++ {
		rows[i] = make([]runtime.Value, rc)
		for j := 0; j < rc; j++ {
			var acc runtime.Value = runtime.NumberValue{}
			for k := 0; k < lc; k++ {
				term, err := applyBinary("*", elementAt(l, i, k), elementAt(r, k, j))
				if err != nil {
					return nil, err
				}
				acc, err = applyBinary("+", acc, term)
				if err != nil {
					return nil, err
				}
			}
			rows[i][j] = acc
		}
	}
	switch {
	case lr == 1 && rc == 1:
		return rows[0][0], nil
	case rc == 1 && l.Shape != runtime.ShapeRow:
		column := make([]runtime.Value, lr)
		for i := range rows {
			column[i] = rows[i][0]
		}
		return runtime.NewColumn(column), nil
	case lr == 1 && r.Shape != runtime.ShapeColumn:
		return runtime.NewRow(rows[0]), nil
	}
	return runtime.NewMatrix(rows)
}

// toDense converts a real matrix for gonum.
func toDense(v runtime.Value, op string) (*mat.Dense, error) {
	arr, ok := v.(*runtime.ArrayValue)
	if !ok {
		return nil, newError(KindTypeMismatch, "%s expects a matrix, got %s", op, v.Kind())
	}
	rows, cols := arr.Dims()
	if rows == 0 || cols == 0 {
		return nil, newError(KindDimension, "%s of an empty matrix", op)
	}
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			num, ok := elementAt(arr, i, j).(runtime.NumberValue)
			if !ok {
				return nil, newError(KindTypeMismatch, "%s expects real entries, got %s", op, elementAt(arr, i, j).Kind())
			}
			data = append(data, num.Val)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

func toSquareDense(v runtime.Value, op string) (*mat.Dense, error) {
	d, err := toDense(v, op)
	if err != nil {
		return nil, err
	}
	r, c := d.Dims()
	if r != c {
		return nil, newError(KindDimension, "%s requires a square matrix, got %dx%d", op, r, c)
	}
	return d, nil
}

func fromDense(m mat.Matrix) runtime.Value {
	r, c := m.Dims()
	rows := make([][]runtime.Value, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]runtime.Value, c)
		for j := 0; j < c; j++ {
			rows[i][j] = runtime.NumberValue{Val: m.At(i, j)}
		}
	}
	out, _ := runtime.NewMatrix(rows)
	return out
}

func matrixDet(v runtime.Value) (runtime.Value, error) {
	d, err := toSquareDense(v, "det")
	if err != nil {
		return nil, err
	}
	return runtime.NumberValue{Val: mat.Det(d)}, nil
}

func matrixInverse(v runtime.Value) (runtime.Value, error) {
	d, err := toSquareDense(v, "inv")
	if err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return nil, newError(KindDomain, "matrix is singular")
	}
	return fromDense(&inv), nil
}

func matrixTrace(v runtime.Value) (runtime.Value, error) {
	d, err := toSquareDense(v, "tr")
	if err != nil {
		return nil, err
	}
	return runtime.NumberValue{Val: mat.Trace(d)}, nil
}

// transpose works on any shape: rows and columns swap, matrices transpose.
func transpose(v runtime.Value) (runtime.Value, error) {
	arr, ok := v.(*runtime.ArrayValue)
	if !ok {
		return nil, newError(KindTypeMismatch, "transpose expects an array, got %s", v.Kind())
	}
	switch arr.Shape {
	case runtime.ShapeRow:
		return runtime.NewColumn(append([]runtime.Value(nil), arr.Elements...)), nil
	case runtime.ShapeColumn:
		return runtime.NewRow(append([]runtime.Value(nil), arr.Elements...)), nil
	}
	rows, cols := arr.Dims()
	out := make([][]runtime.Value, cols)
	for j := 0; j < cols; j++ {
		out[j] = make([]runtime.Value, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = arr.Row(i).Elements[j]
		}
	}
	if cols == 0 {
		return &runtime.ArrayValue{Shape: runtime.ShapeMatrix}, nil
	}
	return runtime.NewMatrix(out)
}

func factorizeEigen(v runtime.Value, op string, kind mat.EigenKind) (*mat.Eigen, error) {
	d, err := toSquareDense(v, op)
	if err != nil {
		return nil, err
	}
	var eig mat.Eigen
	if ok := eig.Factorize(d, kind); !ok {
		return nil, newError(KindDomain, "%s: eigen decomposition did not converge", op)
	}
	return &eig, nil
}

func matrixEigenvalues(v runtime.Value) (runtime.Value, error) {
	eig, err := factorizeEigen(v, "eigenvalues", mat.EigenNone)
	if err != nil {
		return nil, err
	}
	values := eig.Values(nil)
	out := make([]runtime.Value, len(values))
	for i, ev := range values {
		out[i] = runtime.Complex(ev)
	}
	return runtime.NewRow(out), nil
}

// matrixEigenvectors returns the right eigenvectors as the columns of a matrix.
func matrixEigenvectors(v runtime.Value) (runtime.Value, error) {
	eig, err := factorizeEigen(v, "eigenvectors", mat.EigenRight)
	if err != nil {
		return nil, err
	}
	var vectors mat.CDense
	eig.VectorsTo(&vectors)
	r, c := vectors.Dims()
	rows := make([][]runtime.Value, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]runtime.Value, c)
		for j := 0; j < c; j++ {
			rows[i][j] = runtime.Complex(vectors.At(i, j))
		}
	}
	return runtime.NewMatrix(rows)
}
