package runtime

import (
	"fmt"

	"madola/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindComplex
	KindString
	KindArray
	KindUnit
	KindFunction
	KindNativeFunction
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindComplex:
		return "complex"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindUnit:
		return "unit"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

// NumberValue is a 64-bit float. It doubles as the boolean type: 0 is false.
type NumberValue struct {
	Val float64
}

func (NumberValue) Kind() Kind { return KindNumber }

// Bool converts a Go bool to Number 1 or 0.
func Bool(b bool) NumberValue {
	if b {
		return NumberValue{Val: 1}
	}
	return NumberValue{Val: 0}
}

type ComplexValue struct {
	Val complex128
}

func (ComplexValue) Kind() Kind { return KindComplex }

// Complex returns a ComplexValue, demoting to a NumberValue when the imaginary
// part is exactly zero.
func Complex(c complex128) Value {
	if imag(c) == 0 {
		return NumberValue{Val: real(c)}
	}
	return ComplexValue{Val: c}
}

type StringValue struct {
	Val string
}

func (StringValue) Kind() Kind { return KindString }

// UnitValue is a number tagged with a physical unit.
type UnitValue struct {
	Val  float64
	Unit Unit
}

func (UnitValue) Kind() Kind { return KindUnit }

// ErrorValue is the explicit error marker produced by `error(msg)`.
type ErrorValue struct {
	Message string
}

func (ErrorValue) Kind() Kind { return KindError }

//-----------------------------------------------------------------------------
// Arrays
//-----------------------------------------------------------------------------

type Shape int

const (
	ShapeRow Shape = iota
	ShapeColumn
	ShapeMatrix
)

func (s Shape) String() string {
	switch s {
	case ShapeRow:
		return "row"
	case ShapeColumn:
		return "column"
	case ShapeMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("unknown_shape_%d", int(s))
	}
}

// ArrayValue is a row vector, a column vector, or a matrix. Matrix elements are
// row-shaped ArrayValues of equal length.
type ArrayValue struct {
	Elements []Value
	Shape    Shape
}

func (*ArrayValue) Kind() Kind { return KindArray }

func NewRow(elements []Value) *ArrayValue {
	return &ArrayValue{Elements: elements, Shape: ShapeRow}
}

func NewColumn(elements []Value) *ArrayValue {
	return &ArrayValue{Elements: elements, Shape: ShapeColumn}
}

// NewMatrix wraps each row in a row-shaped ArrayValue. Rows must be non-empty and
// of equal length.
func NewMatrix(rows [][]Value) (*ArrayValue, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix must have at least one row")
	}
	width := len(rows[0])
	elements := make([]Value, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("matrix rows must have equal length: row %d has %d elements, expected %d", i, len(row), width)
		}
		elements[i] = NewRow(row)
	}
	return &ArrayValue{Elements: elements, Shape: ShapeMatrix}, nil
}

// IsMatrix reports whether the array is a matrix.
func (v *ArrayValue) IsMatrix() bool {
	return v != nil && v.Shape == ShapeMatrix
}

// Dims returns (rows, columns). Row vectors are 1×n and column vectors n×1.
func (v *ArrayValue) Dims() (int, int) {
	switch v.Shape {
	case ShapeMatrix:
		if len(v.Elements) == 0 {
			return 0, 0
		}
		first, _ := v.Elements[0].(*ArrayValue)
		if first == nil {
			return len(v.Elements), 0
		}
		return len(v.Elements), len(first.Elements)
	case ShapeColumn:
		return len(v.Elements), 1
	default:
		return 1, len(v.Elements)
	}
}

// Row returns the i-th row of a matrix.
func (v *ArrayValue) Row(i int) *ArrayValue {
	row, _ := v.Elements[i].(*ArrayValue)
	return row
}

//-----------------------------------------------------------------------------
// Callables
//-----------------------------------------------------------------------------

// FunctionValue is a user-declared function. Closure is always the global scope
// of the program that declared it.
type FunctionValue struct {
	Declaration *ast.FunctionDeclaration
	Closure     *Environment
}

func (*FunctionValue) Kind() Kind { return KindFunction }

// Name returns the declared function name.
func (v *FunctionValue) Name() string {
	if v == nil || v.Declaration == nil || v.Declaration.Name == nil {
		return "<anonymous>"
	}
	return v.Declaration.Name.Name
}

// Arity returns the number of declared parameters.
func (v *FunctionValue) Arity() int {
	if v == nil || v.Declaration == nil {
		return 0
	}
	return len(v.Declaration.Params)
}

// NativeFunctionValue is a builtin or an imported precompiled function. Arity -1
// accepts any number of arguments.
type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  func(args []Value) (Value, error)
}

func (*NativeFunctionValue) Kind() Kind { return KindNativeFunction }
