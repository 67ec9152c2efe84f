package ast

type NodeType string

const (
	NodeProgram                NodeType = "Program"
	NodeIdentifier             NodeType = "Identifier"
	NodeNumberLiteral          NodeType = "NumberLiteral"
	NodeImaginaryLiteral       NodeType = "ImaginaryLiteral"
	NodeStringLiteral          NodeType = "StringLiteral"
	NodeUnaryExpression        NodeType = "UnaryExpression"
	NodeBinaryExpression       NodeType = "BinaryExpression"
	NodeArrayLiteral           NodeType = "ArrayLiteral"
	NodeMatrixLiteral          NodeType = "MatrixLiteral"
	NodeRangeExpression        NodeType = "RangeExpression"
	NodeIndexExpression        NodeType = "IndexExpression"
	NodeMemberExpression       NodeType = "MemberExpression"
	NodeCallExpression         NodeType = "CallExpression"
	NodeUnitExpression         NodeType = "UnitExpression"
	NodeSubstitutionExpression NodeType = "SubstitutionExpression"
	NodeSummationExpression    NodeType = "SummationExpression"
	NodePiecewiseExpression    NodeType = "PiecewiseExpression"
	NodeDerivativeExpression   NodeType = "DerivativeExpression"
	NodeAssignment             NodeType = "Assignment"
	NodeIndexAssignment        NodeType = "IndexAssignment"
	NodeFunctionDeclaration    NodeType = "FunctionDeclaration"
	NodeExpressionStatement    NodeType = "ExpressionStatement"
	NodePrintStatement         NodeType = "PrintStatement"
	NodeIfStatement            NodeType = "IfStatement"
	NodeForLoop                NodeType = "ForLoop"
	NodeWhileLoop              NodeType = "WhileLoop"
	NodeReturnStatement        NodeType = "ReturnStatement"
	NodeBreakStatement         NodeType = "BreakStatement"
	NodeImportStatement        NodeType = "ImportStatement"
)

type Node interface {
	NodeType() NodeType
	Location() Location
	isNode()
}

// Location is a 1-based line/column plus byte offset into the source text.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// IsZero reports whether the location was never assigned.
func (l Location) IsZero() bool {
	return l == Location{}
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	loc  Location
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Location() Location { return n.loc }
func (nodeImpl) isNode()              {}

func (n *nodeImpl) setLocation(l Location) {
	if n.loc.IsZero() {
		n.loc = l
	}
}

// Marker interfaces. Both are sealed: only this package can add variants.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Program

type Program struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewProgram(body []Statement) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

// Expressions

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

type NumberLiteral struct {
	nodeImpl
	expressionMarker

	Value float64 `json:"value"`
}

func NewNumberLiteral(value float64) *NumberLiteral {
	return &NumberLiteral{nodeImpl: newNodeImpl(NodeNumberLiteral), Value: value}
}

// ImaginaryLiteral is a literal such as `2i`.
type ImaginaryLiteral struct {
	nodeImpl
	expressionMarker

	Value float64 `json:"value"`
}

func NewImaginaryLiteral(value float64) *ImaginaryLiteral {
	return &ImaginaryLiteral{nodeImpl: newNodeImpl(NodeImaginaryLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

// ArrayLiteral is a vector literal; Column selects `[1; 2; 3]` over `[1, 2, 3]`.
type ArrayLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
	Column   bool         `json:"column,omitempty"`
}

func NewArrayLiteral(elements []Expression, column bool) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements, Column: column}
}

type MatrixLiteral struct {
	nodeImpl
	expressionMarker

	Rows [][]Expression `json:"rows"`
}

func NewMatrixLiteral(rows [][]Expression) *MatrixLiteral {
	return &MatrixLiteral{nodeImpl: newNodeImpl(NodeMatrixLiteral), Rows: rows}
}

type RangeExpression struct {
	nodeImpl
	expressionMarker

	Start     Expression `json:"start"`
	End       Expression `json:"end"`
	Step      Expression `json:"step,omitempty"`
	Inclusive bool       `json:"inclusive"`
}

func NewRangeExpression(start, end, step Expression, inclusive bool) *RangeExpression {
	return &RangeExpression{nodeImpl: newNodeImpl(NodeRangeExpression), Start: start, End: end, Step: step, Inclusive: inclusive}
}

type IndexExpression struct {
	nodeImpl
	expressionMarker

	Target  Expression   `json:"target"`
	Indices []Expression `json:"indices"`
}

func NewIndexExpression(target Expression, indices []Expression) *IndexExpression {
	return &IndexExpression{nodeImpl: newNodeImpl(NodeIndexExpression), Target: target, Indices: indices}
}

// MemberExpression covers namespace members (`math.pi`) and value properties (`M.T`).
type MemberExpression struct {
	nodeImpl
	expressionMarker

	Object Expression  `json:"object"`
	Member *Identifier `json:"member"`
}

func NewMemberExpression(object Expression, member *Identifier) *MemberExpression {
	return &MemberExpression{nodeImpl: newNodeImpl(NodeMemberExpression), Object: object, Member: member}
}

// CallExpression invokes Callee, which is an Identifier (`f(x)`) or a
// MemberExpression (`math.sqrt(x)`, `M.inv()`).
type CallExpression struct {
	nodeImpl
	expressionMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallExpression(callee Expression, args []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: args}
}

// CalleeName returns the dotted name of the callee (`f`, `math.sqrt`), or "" when
// the callee is not a plain name.
func (c *CallExpression) CalleeName() string {
	return dottedName(c.Callee)
}

func dottedName(expr Expression) string {
	switch e := expr.(type) {
	case *Identifier:
		return e.Name
	case *MemberExpression:
		base := dottedName(e.Object)
		if base == "" || e.Member == nil {
			return ""
		}
		return base + "." + e.Member.Name
	default:
		return ""
	}
}

type UnitExpression struct {
	nodeImpl
	expressionMarker

	Value Expression `json:"value"`
	Unit  string     `json:"unit"`
}

func NewUnitExpression(value Expression, unit string) *UnitExpression {
	return &UnitExpression{nodeImpl: newNodeImpl(NodeUnitExpression), Value: value, Unit: unit}
}

type Binding struct {
	Name  *Identifier `json:"name"`
	Value Expression  `json:"value"`
}

// SubstitutionExpression is `base | x: 1, y: 2`.
type SubstitutionExpression struct {
	nodeImpl
	expressionMarker

	Base     Expression `json:"base"`
	Bindings []*Binding `json:"bindings"`
}

func NewSubstitutionExpression(base Expression, bindings []*Binding) *SubstitutionExpression {
	return &SubstitutionExpression{nodeImpl: newNodeImpl(NodeSubstitutionExpression), Base: base, Bindings: bindings}
}

type SummationExpression struct {
	nodeImpl
	expressionMarker

	Variable *Identifier `json:"variable"`
	Lower    Expression  `json:"lower"`
	Upper    Expression  `json:"upper"`
	Body     Expression  `json:"body"`
}

func NewSummationExpression(variable *Identifier, lower, upper, body Expression) *SummationExpression {
	return &SummationExpression{nodeImpl: newNodeImpl(NodeSummationExpression), Variable: variable, Lower: lower, Upper: upper, Body: body}
}

// PiecewiseCase is one `(value, condition)` arm. Otherwise arms have no condition.
type PiecewiseCase struct {
	Value     Expression `json:"value"`
	Condition Expression `json:"condition,omitempty"`
	Otherwise bool       `json:"otherwise,omitempty"`
}

type PiecewiseExpression struct {
	nodeImpl
	expressionMarker

	Cases []*PiecewiseCase `json:"cases"`
}

func NewPiecewiseExpression(cases []*PiecewiseCase) *PiecewiseExpression {
	return &PiecewiseExpression{nodeImpl: newNodeImpl(NodePiecewiseExpression), Cases: cases}
}

type DerivativeExpression struct {
	nodeImpl
	expressionMarker

	Expression Expression  `json:"expression"`
	Variable   *Identifier `json:"variable"`
}

func NewDerivativeExpression(expr Expression, variable *Identifier) *DerivativeExpression {
	return &DerivativeExpression{nodeImpl: newNodeImpl(NodeDerivativeExpression), Expression: expr, Variable: variable}
}

// Statements

type Assignment struct {
	nodeImpl
	statementMarker

	Name  *Identifier `json:"name"`
	Value Expression  `json:"value"`
}

func NewAssignment(name *Identifier, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Name: name, Value: value}
}

// IndexAssignment is `x[i] := v`, `m[i][j] := v`, or `x[i;] := v` when
// ColumnMarker requests a column vector for a not-yet-bound name.
type IndexAssignment struct {
	nodeImpl
	statementMarker

	Name         *Identifier  `json:"name"`
	Indices      []Expression `json:"indices"`
	ColumnMarker bool         `json:"columnMarker,omitempty"`
	Value        Expression   `json:"value"`
}

func NewIndexAssignment(name *Identifier, indices []Expression, columnMarker bool, value Expression) *IndexAssignment {
	return &IndexAssignment{nodeImpl: newNodeImpl(NodeIndexAssignment), Name: name, Indices: indices, ColumnMarker: columnMarker, Value: value}
}

type FunctionDeclaration struct {
	nodeImpl
	statementMarker

	Name       *Identifier   `json:"name"`
	Params     []*Identifier `json:"params"`
	Body       []Statement   `json:"body"`
	Decorators []string      `json:"decorators,omitempty"`
}

func NewFunctionDeclaration(name *Identifier, params []*Identifier, body []Statement, decorators []string) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), Name: name, Params: params, Body: body, Decorators: decorators}
}

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

type PrintStatement struct {
	nodeImpl
	statementMarker

	Arguments []Expression `json:"arguments"`
}

func NewPrintStatement(args []Expression) *PrintStatement {
	return &PrintStatement{nodeImpl: newNodeImpl(NodePrintStatement), Arguments: args}
}

type IfStatement struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Then      []Statement `json:"then"`
	Else      []Statement `json:"else,omitempty"`
}

func NewIfStatement(condition Expression, then, otherwise []Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: condition, Then: then, Else: otherwise}
}

type ForLoop struct {
	nodeImpl
	statementMarker

	Variable *Identifier `json:"variable"`
	Iterable Expression  `json:"iterable"`
	Body     []Statement `json:"body"`
}

func NewForLoop(variable *Identifier, iterable Expression, body []Statement) *ForLoop {
	return &ForLoop{nodeImpl: newNodeImpl(NodeForLoop), Variable: variable, Iterable: iterable, Body: body}
}

type WhileLoop struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
}

func NewWhileLoop(condition Expression, body []Statement) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhileLoop), Condition: condition, Body: body}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

type BreakStatement struct {
	nodeImpl
	statementMarker
}

func NewBreakStatement() *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement)}
}

type ImportName struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// LocalName is the name the import binds in the importing scope.
func (n ImportName) LocalName() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

type ImportStatement struct {
	nodeImpl
	statementMarker

	Module string        `json:"module"`
	Names  []*ImportName `json:"names"`
}

func NewImportStatement(module string, names []*ImportName) *ImportStatement {
	return &ImportStatement{nodeImpl: newNodeImpl(NodeImportStatement), Module: module, Names: names}
}
