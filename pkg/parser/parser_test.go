package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/runtime"
)

type fakeChild struct {
	field string
	node  *fakeNode
}

// fakeNode stands in for a tree-sitter node so conversion can be tested
// without linking the grammar.
type fakeNode struct {
	kind     string
	text     string
	isError  bool
	missing  bool
	loc      ast.Location
	children []fakeChild
}

func (n *fakeNode) Kind() string    { return n.kind }
func (n *fakeNode) IsNamed() bool   { return true }
func (n *fakeNode) IsError() bool   { return n.isError }
func (n *fakeNode) IsMissing() bool { return n.missing }
func (n *fakeNode) Text() string    { return n.text }

func (n *fakeNode) Location() ast.Location { return n.loc }

func (n *fakeNode) HasError() bool {
	if n.isError || n.missing {
		return true
	}
	for _, c := range n.children {
		if c.node.HasError() {
			return true
		}
	}
	return false
}

func (n *fakeNode) Children() []cstNode {
	out := make([]cstNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c.node)
	}
	return out
}

func (n *fakeNode) NamedChildren() []cstNode { return n.Children() }

func (n *fakeNode) Field(name string) cstNode {
	for _, c := range n.children {
		if c.field == name {
			return c.node
		}
	}
	return nil
}

func (n *fakeNode) Fields(name string) []cstNode {
	var out []cstNode
	for _, c := range n.children {
		if c.field == name {
			out = append(out, c.node)
		}
	}
	return out
}

func node(kind string, children ...fakeChild) *fakeNode {
	return &fakeNode{kind: kind, children: children}
}

func leaf(kind, text string) *fakeNode {
	return &fakeNode{kind: kind, text: text}
}

func field(name string, n *fakeNode) fakeChild {
	return fakeChild{field: name, node: n}
}

func child(n *fakeNode) fakeChild {
	return fakeChild{node: n}
}

func at(n *fakeNode, line, column int) *fakeNode {
	n.loc = ast.Location{Line: line, Column: column}
	return n
}

func ident(name string) *fakeNode { return leaf("identifier", name) }
func num(text string) *fakeNode   { return leaf("number", text) }

func binary(op string, left, right *fakeNode) *fakeNode {
	return node("binary_expression", field("left", left), field("operator", leaf(op, op)), field("right", right))
}

func call(name string, args ...*fakeNode) *fakeNode {
	children := []fakeChild{field("function", ident(name))}
	for _, a := range args {
		children = append(children, field("argument", a))
	}
	return node("call_expression", children...)
}

func printStmt(args ...*fakeNode) *fakeNode {
	children := make([]fakeChild, 0, len(args))
	for _, a := range args {
		children = append(children, field("argument", a))
	}
	return node("print_statement", children...)
}

func run(t *testing.T, program *ast.Program) *interpreter.Result {
	t.Helper()
	res := interpreter.New().Run(context.Background(), program)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	return res
}

func TestConvertAssignmentAndPrint(t *testing.T) {
	root := node("source_file",
		child(at(node("assignment", field("name", ident("x")), field("value", num("2"))), 1, 1)),
		child(leaf("comment", "# scale")),
		child(at(printStmt(binary("*", ident("x"), num("3"))), 2, 1)),
	)
	program, err := convertProgram(root)
	if err != nil {
		t.Fatalf("convertProgram: %v", err)
	}
	if len(program.Body) != 2 {
		t.Fatalf("expected comments to be skipped, got %d statements", len(program.Body))
	}
	if loc := program.Body[1].Location(); loc.Line != 2 || loc.Column != 1 {
		t.Fatalf("print location = %+v", loc)
	}
	if got := strings.Join(run(t, program).Output, "\n"); got != "6" {
		t.Fatalf("output = %q", got)
	}
}

func TestConvertRecursiveFunction(t *testing.T) {
	factorial := node("function_declaration",
		field("name", ident("factorial")),
		field("parameters", node("parameter_list", child(ident("n")))),
		field("body", node("block",
			child(node("if_statement",
				field("condition", binary("<=", ident("n"), num("1"))),
				field("consequence", node("block", child(node("return_statement", field("value", num("1")))))),
			)),
			child(node("return_statement", field("value",
				binary("*", ident("n"), call("factorial", binary("-", ident("n"), num("1")))),
			))),
		)),
	)
	root := node("source_file", child(factorial), child(printStmt(call("factorial", num("5")))))
	program, err := convertProgram(root)
	if err != nil {
		t.Fatalf("convertProgram: %v", err)
	}
	if got := strings.Join(run(t, program).Output, "\n"); got != "120" {
		t.Fatalf("output = %q", got)
	}
}

func TestConvertLoopsAndIndexAssignment(t *testing.T) {
	root := node("source_file",
		child(node("assignment", field("name", ident("v")), field("value", node("row_vector", field("element", num("0")))))),
		child(node("for_statement",
			field("variable", ident("i")),
			field("iterable", node("range_expression", field("start", num("1")), field("end", num("3")))),
			field("body", node("index_assignment", field("name", ident("v")), field("index", ident("i")), field("value", binary("^", ident("i"), num("2"))))),
		)),
		child(node("assignment", field("name", ident("k")), field("value", num("0")))),
		child(node("while_statement",
			field("condition", node("unary_expression", field("operator", leaf("not", "not")), field("operand", binary(">=", ident("k"), num("2"))))),
			field("body", node("block",
				child(node("assignment", field("name", ident("k")), field("value", binary("+", ident("k"), num("1"))))),
			)),
		)),
		child(printStmt(ident("v"), ident("k"))),
	)
	program, err := convertProgram(root)
	if err != nil {
		t.Fatalf("convertProgram: %v", err)
	}
	if got := strings.Join(run(t, program).Output, "\n"); got != "[0, 1, 4, 9] 2" {
		t.Fatalf("output = %q", got)
	}
}

func TestConvertDomainExpressions(t *testing.T) {
	abs := node("piecewise_expression",
		field("case", node("piecewise_case", field("value", ident("x")), field("condition", binary(">=", ident("x"), num("0"))))),
		field("case", node("otherwise_case", field("value", node("unary_expression", field("operator", leaf("-", "-")), field("operand", ident("x")))))),
	)
	root := node("source_file",
		child(node("expression_function",
			field("name", ident("abs_val")),
			field("parameters", node("parameter_list", child(ident("x")))),
			field("value", abs),
		)),
		child(printStmt(call("abs_val", node("unary_expression", field("operator", leaf("-", "-")), field("operand", num("5")))))),
		child(printStmt(node("substitution_expression",
			field("base", binary("+", ident("a"), ident("b"))),
			field("binding", node("binding", field("name", ident("a")), field("value", num("1")))),
			field("binding", node("binding", field("name", ident("b")), field("value", num("2")))),
		))),
		child(printStmt(node("summation_expression",
			field("variable", ident("i")),
			field("lower", num("1")),
			field("upper", num("4")),
			field("body", ident("i")),
		))),
		child(printStmt(node("unit_expression", field("value", num("5")), field("unit", leaf("unit", "m"))))),
		child(printStmt(node("matrix",
			field("row", node("matrix_row", field("element", num("1")), field("element", num("2")))),
			field("row", node("matrix_row", field("element", num("3")), field("element", num("4")))),
		))),
		child(printStmt(node("column_vector", field("element", num("1")), field("element", num("2"))))),
		child(printStmt(leaf("string", `"beam"`), leaf("string", `'ok'`), leaf("imaginary", "2i"))),
		child(printStmt(node("member_expression", field("object", ident("math")), field("member", ident("pi"))))),
	)
	program, err := convertProgram(root)
	if err != nil {
		t.Fatalf("convertProgram: %v", err)
	}
	want := []string{"5", "3", "10", "5 m", "[[1, 2], [3, 4]]", "[1; 2]", "beam ok 2i", runtime.FormatNumber(3.141592653589793)}
	if got := run(t, program).Output; strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestConvertDeclarationsAndImports(t *testing.T) {
	root := node("source_file",
		child(node("function_declaration",
			field("decorator", leaf("decorator", "@gen_cpp")),
			field("name", ident("area")),
			field("parameters", node("parameter_list", child(ident("w")), child(ident("h")))),
			field("body", node("return_statement", field("value", binary("*", ident("w"), ident("h"))))),
		)),
		child(node("import_statement",
			field("module", leaf("dotted_name", "geometry . shapes")),
			field("name", node("import_name", field("name", ident("circle")), field("alias", ident("c")))),
			field("name", ident("square")),
		)),
		child(node("expression_statement", child(node("derivative_expression", field("expression", binary("^", ident("x"), num("2"))), field("variable", ident("x")))))),
	)
	program, err := convertProgram(root)
	if err != nil {
		t.Fatalf("convertProgram: %v", err)
	}
	decl := program.Body[0].(*ast.FunctionDeclaration)
	if decl.Name.Name != "area" || len(decl.Params) != 2 || len(decl.Decorators) != 1 || decl.Decorators[0] != "gen_cpp" {
		t.Fatalf("unexpected declaration %+v", decl)
	}
	imp := program.Body[1].(*ast.ImportStatement)
	if imp.Module != "geometry.shapes" || len(imp.Names) != 2 || imp.Names[0].LocalName() != "c" || imp.Names[1].Name != "square" {
		t.Fatalf("unexpected import %+v", imp)
	}
	expr, err := singleExpression(ast.Prog(program.Body[2]))
	if err != nil {
		t.Fatalf("singleExpression: %v", err)
	}
	if _, ok := expr.(*ast.DerivativeExpression); !ok {
		t.Fatalf("expected derivative expression, got %T", expr)
	}
	if _, err := singleExpression(ast.Prog(program.Body[1])); err == nil {
		t.Fatalf("expected non-expression statement to be rejected")
	}
}

func TestConvertSyntaxErrors(t *testing.T) {
	broken := node("source_file",
		child(at(node("assignment", field("name", ident("x")), field("value", num("1"))), 1, 1)),
		child(at(&fakeNode{kind: "ERROR", isError: true}, 3, 5)),
	)
	_, err := convertProgram(broken)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Location.Line != 3 || perr.Location.Column != 5 || !strings.Contains(err.Error(), "parser: syntax errors present") {
		t.Fatalf("unexpected syntax error %v", err)
	}

	missing := node("source_file",
		child(at(printStmt(call("f", &fakeNode{kind: ")", missing: true, loc: ast.Location{Line: 2, Column: 9}})), 2, 1)),
	)
	_, err = convertProgram(missing)
	if err == nil || !strings.Contains(err.Error(), "expected )") || !strings.Contains(err.Error(), "line 2, column 9") {
		t.Fatalf("unexpected missing-node error %v", err)
	}
}

func TestConvertRejectsMalformedTrees(t *testing.T) {
	cases := map[string]*fakeNode{
		"unsupported statement": node("source_file", child(at(leaf("lambda", "x => x"), 4, 2))),
		"duplicate parameter": node("source_file", child(node("function_declaration",
			field("name", ident("f")),
			field("parameters", node("parameter_list", child(ident("a")), child(ident("a")))),
			field("body", node("block")),
		))),
		"bad index count": node("source_file", child(node("index_assignment",
			field("name", ident("m")),
			field("value", num("1")),
		))),
		"bad number":      node("source_file", child(printStmt(num("1.2.3")))),
		"wrong root":      node("module"),
		"missing operand": node("source_file", child(printStmt(node("unary_expression", field("operator", leaf("-", "-")))))),
	}
	for label, root := range cases {
		if _, err := convertProgram(root); err == nil {
			t.Fatalf("%s: expected error", label)
		}
	}

	_, err := convertProgram(cases["unsupported statement"])
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Location.Line != 4 || perr.Location.Column != 2 {
		t.Fatalf("expected located error, got %v", err)
	}
}

func TestNewModuleParserRequiresLanguage(t *testing.T) {
	if _, err := NewModuleParser(nil); err == nil {
		t.Fatalf("expected missing language error")
	}
	var p *ModuleParser
	if _, err := p.ParseProgram([]byte("x := 1")); err == nil {
		t.Fatalf("expected nil parser error")
	}
	p.Close()
}
