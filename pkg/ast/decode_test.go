package ast

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeJSONFixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "factorial.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	program, err := DecodeFile("factorial.json", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(program.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Body))
	}
	fn, ok := program.Body[0].(*FunctionDeclaration)
	if !ok {
		t.Fatalf("expected function declaration, got %T", program.Body[0])
	}
	if fn.Name.Name != "factorial" || len(fn.Params) != 1 || fn.Params[0].Name != "n" {
		t.Fatalf("unexpected declaration %+v", fn)
	}
	ifStmt, ok := fn.Body[0].(*IfStatement)
	if !ok {
		t.Fatalf("expected if statement, got %T", fn.Body[0])
	}
	if loc := ifStmt.Location(); loc.Line != 2 || loc.Column != 5 || loc.Offset != 22 {
		t.Fatalf("unexpected location %+v", loc)
	}
	printStmt, ok := program.Body[1].(*PrintStatement)
	if !ok {
		t.Fatalf("expected print statement, got %T", program.Body[1])
	}
	call, ok := printStmt.Arguments[0].(*CallExpression)
	if !ok || call.CalleeName() != "factorial" {
		t.Fatalf("expected call to factorial, got %#v", printStmt.Arguments[0])
	}
}

func TestDecodeYAMLFixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "piecewise.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	program, err := DecodeFile("piecewise.yaml", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fn := FindFunction(program, "abs_val")
	if fn == nil {
		t.Fatalf("expected abs_val declaration")
	}
	ret := fn.Body[0].(*ReturnStatement)
	pw, ok := ret.Value.(*PiecewiseExpression)
	if !ok {
		t.Fatalf("expected piecewise body, got %T", ret.Value)
	}
	if len(pw.Cases) != 2 || !pw.Cases[1].Otherwise || pw.Cases[1].Condition != nil {
		t.Fatalf("unexpected cases %+v", pw.Cases)
	}
	arg := program.Body[1].(*PrintStatement).Arguments[0].(*CallExpression).Arguments[0]
	if lit, ok := arg.(*NumberLiteral); !ok || lit.Value != -3 {
		t.Fatalf("expected -3 literal, got %#v", arg)
	}
}

func TestDecodeDottedCallee(t *testing.T) {
	src := `{"type":"Program","body":[{"type":"ExpressionStatement","expression":
		{"type":"CallExpression","callee":"math.sqrt","arguments":[{"type":"NumberLiteral","value":4}]}}]}`
	program, err := DecodeJSON([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	call := program.Body[0].(*ExpressionStatement).Expression.(*CallExpression)
	if got := call.CalleeName(); got != "math.sqrt" {
		t.Fatalf("expected math.sqrt, got %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown type", `{"body":[{"type":"Goto"}]}`, `unknown node type "Goto"`},
		{"expression as statement", `{"body":[{"type":"NumberLiteral","value":1}]}`, "is not a statement"},
		{"missing operand", `{"body":[{"type":"ExpressionStatement","expression":{"type":"UnaryExpression","operator":"-"}}]}`, "missing operand"},
		{"wrong root", `{"type":"Assignment"}`, "root must be Program"},
		{"too many indices", `{"body":[{"type":"IndexAssignment","name":"x","indices":[{"type":"NumberLiteral","value":0},{"type":"NumberLiteral","value":0},{"type":"NumberLiteral","value":0}],"value":{"type":"NumberLiteral","value":1}}]}`, "one or two indices"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tc.src))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	if _, err := DecodeFile("prog.txt", nil); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
