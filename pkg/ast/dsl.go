package ast

import "strings"

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Num(value float64) *NumberLiteral {
	return NewNumberLiteral(value)
}

func Imag(value float64) *ImaginaryLiteral {
	return NewImaginaryLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

// Operator helpers.

func Un(operator string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(operator, operand)
}

func Neg(operand Expression) *UnaryExpression {
	return NewUnaryExpression("-", operand)
}

func Not(operand Expression) *UnaryExpression {
	return NewUnaryExpression("!", operand)
}

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

// Collection helpers.

func Arr(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements, false)
}

func Col(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements, true)
}

func Row(elements ...Expression) []Expression {
	return elements
}

func Mat(rows ...[]Expression) *MatrixLiteral {
	return NewMatrixLiteral(rows)
}

func Rng(start, end Expression) *RangeExpression {
	return NewRangeExpression(start, end, nil, true)
}

func RngStep(start, end, step Expression) *RangeExpression {
	return NewRangeExpression(start, end, step, true)
}

func Idx(target Expression, indices ...Expression) *IndexExpression {
	return NewIndexExpression(target, indices)
}

// Call and member helpers.

func Member(object Expression, name string) *MemberExpression {
	return NewMemberExpression(object, ID(name))
}

// Call builds a call whose callee is a plain or dotted name: Call("math.sqrt", x).
func Call(name string, args ...Expression) *CallExpression {
	parts := strings.Split(name, ".")
	var callee Expression = ID(parts[0])
	for _, part := range parts[1:] {
		callee = Member(callee, part)
	}
	return NewCallExpression(callee, args)
}

// Method builds `object.name(args...)`.
func Method(object Expression, name string, args ...Expression) *CallExpression {
	return NewCallExpression(Member(object, name), args)
}

// Domain helpers.

func Unit(value Expression, unit string) *UnitExpression {
	return NewUnitExpression(value, unit)
}

func Bind(name string, value Expression) *Binding {
	return &Binding{Name: ID(name), Value: value}
}

func Subst(base Expression, bindings ...*Binding) *SubstitutionExpression {
	return NewSubstitutionExpression(base, bindings)
}

func Sum(variable string, lower, upper, body Expression) *SummationExpression {
	return NewSummationExpression(ID(variable), lower, upper, body)
}

func Case(value, condition Expression) *PiecewiseCase {
	return &PiecewiseCase{Value: value, Condition: condition}
}

func Otherwise(value Expression) *PiecewiseCase {
	return &PiecewiseCase{Value: value, Otherwise: true}
}

func Piecewise(cases ...*PiecewiseCase) *PiecewiseExpression {
	return NewPiecewiseExpression(cases)
}

func Deriv(expr Expression, variable string) *DerivativeExpression {
	return NewDerivativeExpression(expr, ID(variable))
}

// Statement helpers.

func Assign(name string, value Expression) *Assignment {
	return NewAssignment(ID(name), value)
}

func IdxAssign(name string, value Expression, indices ...Expression) *IndexAssignment {
	return NewIndexAssignment(ID(name), indices, false, value)
}

// ColAssign is `name[index;] := value`.
func ColAssign(name string, index, value Expression) *IndexAssignment {
	return NewIndexAssignment(ID(name), []Expression{index}, true, value)
}

func Fn(name string, params []string, body ...Statement) *FunctionDeclaration {
	ids := make([]*Identifier, 0, len(params))
	for _, p := range params {
		ids = append(ids, ID(p))
	}
	return NewFunctionDeclaration(ID(name), ids, body, nil)
}

// ExprFn is the single-expression form `name(params) := expr`.
func ExprFn(name string, params []string, expr Expression) *FunctionDeclaration {
	return Fn(name, params, Ret(expr))
}

func Decorate(fn *FunctionDeclaration, decorators ...string) *FunctionDeclaration {
	fn.Decorators = append(fn.Decorators, decorators...)
	return fn
}

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Print(args ...Expression) *PrintStatement {
	return NewPrintStatement(args)
}

func Block(stmts ...Statement) []Statement {
	return stmts
}

func If(condition Expression, then []Statement, otherwise []Statement) *IfStatement {
	return NewIfStatement(condition, then, otherwise)
}

func For(variable string, iterable Expression, body ...Statement) *ForLoop {
	return NewForLoop(ID(variable), iterable, body)
}

func While(condition Expression, body ...Statement) *WhileLoop {
	return NewWhileLoop(condition, body)
}

func Ret(value Expression) *ReturnStatement {
	return NewReturnStatement(value)
}

func Brk() *BreakStatement {
	return NewBreakStatement()
}

func ImportAs(name, alias string) *ImportName {
	return &ImportName{Name: name, Alias: alias}
}

func Import(module string, names ...*ImportName) *ImportStatement {
	return NewImportStatement(module, names)
}

func Prog(body ...Statement) *Program {
	return NewProgram(body)
}
