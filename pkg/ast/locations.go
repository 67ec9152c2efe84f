package ast

// SetLocation annotates the node with its source location. Locations are fixed at
// tree-build time: a node that already carries one keeps it.
func SetLocation(node Node, loc Location) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setLocation(Location) }); ok {
		setter.setLocation(loc)
	}
}

// At sets a line/column location on node and returns it, for building trees inline.
func At[T Node](node T, line, column int) T {
	SetLocation(node, Location{Line: line, Column: column})
	return node
}

// AtOffset is At with an explicit byte offset.
func AtOffset[T Node](node T, line, column, offset int) T {
	SetLocation(node, Location{Line: line, Column: column, Offset: offset})
	return node
}

// Inspect walks the tree rooted at node in depth-first order, calling fn for each
// node. Children are skipped when fn returns false.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		inspectStatements(n.Body, fn)
	case *Assignment:
		inspectIdentifier(n.Name, fn)
		inspectExpression(n.Value, fn)
	case *IndexAssignment:
		inspectIdentifier(n.Name, fn)
		inspectExpressions(n.Indices, fn)
		inspectExpression(n.Value, fn)
	case *FunctionDeclaration:
		inspectIdentifier(n.Name, fn)
		for _, p := range n.Params {
			inspectIdentifier(p, fn)
		}
		inspectStatements(n.Body, fn)
	case *ExpressionStatement:
		inspectExpression(n.Expression, fn)
	case *PrintStatement:
		inspectExpressions(n.Arguments, fn)
	case *IfStatement:
		inspectExpression(n.Condition, fn)
		inspectStatements(n.Then, fn)
		inspectStatements(n.Else, fn)
	case *ForLoop:
		inspectIdentifier(n.Variable, fn)
		inspectExpression(n.Iterable, fn)
		inspectStatements(n.Body, fn)
	case *WhileLoop:
		inspectExpression(n.Condition, fn)
		inspectStatements(n.Body, fn)
	case *ReturnStatement:
		inspectExpression(n.Value, fn)
	case *UnaryExpression:
		inspectExpression(n.Operand, fn)
	case *BinaryExpression:
		inspectExpression(n.Left, fn)
		inspectExpression(n.Right, fn)
	case *ArrayLiteral:
		inspectExpressions(n.Elements, fn)
	case *MatrixLiteral:
		for _, row := range n.Rows {
			inspectExpressions(row, fn)
		}
	case *RangeExpression:
		inspectExpression(n.Start, fn)
		inspectExpression(n.End, fn)
		inspectExpression(n.Step, fn)
	case *IndexExpression:
		inspectExpression(n.Target, fn)
		inspectExpressions(n.Indices, fn)
	case *MemberExpression:
		inspectExpression(n.Object, fn)
	case *CallExpression:
		inspectExpression(n.Callee, fn)
		inspectExpressions(n.Arguments, fn)
	case *UnitExpression:
		inspectExpression(n.Value, fn)
	case *SubstitutionExpression:
		inspectExpression(n.Base, fn)
		for _, b := range n.Bindings {
			inspectExpression(b.Value, fn)
		}
	case *SummationExpression:
		inspectExpression(n.Lower, fn)
		inspectExpression(n.Upper, fn)
		inspectExpression(n.Body, fn)
	case *PiecewiseExpression:
		for _, c := range n.Cases {
			inspectExpression(c.Value, fn)
			inspectExpression(c.Condition, fn)
		}
	case *DerivativeExpression:
		inspectExpression(n.Expression, fn)
	}
}

func inspectExpression(expr Expression, fn func(Node) bool) {
	if expr == nil {
		return
	}
	Inspect(expr, fn)
}

func inspectIdentifier(id *Identifier, fn func(Node) bool) {
	if id != nil {
		Inspect(id, fn)
	}
}

func inspectExpressions(exprs []Expression, fn func(Node) bool) {
	for _, expr := range exprs {
		inspectExpression(expr, fn)
	}
}

func inspectStatements(stmts []Statement, fn func(Node) bool) {
	for _, stmt := range stmts {
		if stmt != nil {
			Inspect(stmt, fn)
		}
	}
}

// FindFunction returns the first function declaration named name, searching nested
// bodies as well as the top level.
func FindFunction(program *Program, name string) *FunctionDeclaration {
	var found *FunctionDeclaration
	Inspect(program, func(n Node) bool {
		if found != nil {
			return false
		}
		if fn, ok := n.(*FunctionDeclaration); ok && fn.Name != nil && fn.Name.Name == name {
			found = fn
			return false
		}
		return true
	})
	return found
}
