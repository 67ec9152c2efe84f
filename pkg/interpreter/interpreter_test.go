package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func runProgram(t *testing.T, interp *Interpreter, stmts ...ast.Statement) *Result {
	t.Helper()
	if interp == nil {
		interp = New()
	}
	return interp.Run(context.Background(), ast.Prog(stmts...))
}

func expectOutput(t *testing.T, res *Result, want ...string) {
	t.Helper()
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if strings.Join(res.Output, "\n") != strings.Join(want, "\n") {
		t.Fatalf("expected output %q, got %q", want, res.Output)
	}
}

func expectKind(t *testing.T, res *Result, kind ErrorKind) *RuntimeError {
	t.Helper()
	if res.Success {
		t.Fatalf("expected %s failure, run succeeded with %q", kind, res.Output)
	}
	var rerr *RuntimeError
	if !errors.As(res.Err, &rerr) {
		t.Fatalf("expected RuntimeError, got %T", res.Err)
	}
	if rerr.Kind != kind {
		t.Fatalf("expected %s, got %s (%s)", kind, rerr.Kind, rerr.Message)
	}
	return rerr
}

func factorialProgram() []ast.Statement {
	return []ast.Statement{
		ast.Fn("factorial", []string{"n"},
			ast.If(ast.Bin("<=", ast.ID("n"), ast.Num(1)),
				ast.Block(ast.Ret(ast.Num(1))),
				ast.Block(ast.Ret(ast.Bin("*", ast.ID("n"),
					ast.Call("factorial", ast.Bin("-", ast.ID("n"), ast.Num(1)))))),
			),
		),
		ast.Print(ast.Call("factorial", ast.Num(5))),
	}
}

func TestFactorialPrints120(t *testing.T) {
	expectOutput(t, runProgram(t, nil, factorialProgram()...), "120")
}

func TestQuadraticRootWithGreekNames(t *testing.T) {
	res := runProgram(t, nil,
		ast.Assign(`\alpha`, ast.Num(1)),
		ast.Assign(`\beta`, ast.Num(-4)),
		ast.Assign(`\gamma`, ast.Num(4)),
		ast.Assign("r", ast.Bin("/",
			ast.Bin("+", ast.Neg(ast.ID(`\beta`)), ast.Call("math.sqrt",
				ast.Bin("-", ast.Bin("^", ast.ID(`\beta`), ast.Num(2)),
					ast.Bin("*", ast.Bin("*", ast.Num(4), ast.ID(`\alpha`)), ast.ID(`\gamma`))))),
			ast.Bin("*", ast.Num(2), ast.ID(`\alpha`)),
		)),
		ast.Print(ast.ID("r")),
	)
	expectOutput(t, res, "2")
}

func TestPiecewiseAbsoluteValue(t *testing.T) {
	res := runProgram(t, nil,
		ast.ExprFn("f", []string{"x"}, ast.Piecewise(
			ast.Case(ast.ID("x"), ast.Bin(">=", ast.ID("x"), ast.Num(0))),
			ast.Otherwise(ast.Neg(ast.ID("x"))),
		)),
		ast.Print(ast.Call("f", ast.Num(-5))),
		ast.Print(ast.Call("f", ast.Num(3))),
		ast.Print(ast.Call("f", ast.Num(0))),
	)
	expectOutput(t, res, "5", "3", "0")
}

func TestPiecewiseWithoutMatch(t *testing.T) {
	res := runProgram(t, nil,
		ast.Print(ast.Piecewise(ast.Case(ast.Num(1), ast.Bin(">", ast.Num(0), ast.Num(1))))),
	)
	expectKind(t, res, KindPiecewise)

	res = runProgram(t, nil,
		ast.Print(ast.Piecewise(ast.Otherwise(ast.Num(1)), ast.Case(ast.Num(2), ast.Num(1)))),
	)
	expectKind(t, res, KindPiecewise)
}

func TestSubstitutionDoesNotMutateScope(t *testing.T) {
	res := runProgram(t, nil,
		ast.Assign("x", ast.Num(10)),
		ast.Print(ast.Subst(ast.Bin("*", ast.ID("x"), ast.Num(2)), ast.Bind("x", ast.Num(3)))),
		ast.Print(ast.ID("x")),
		ast.Print(ast.Subst(ast.Bin("+", ast.ID("y"), ast.ID("x")), ast.Bind("y", ast.Num(1)))),
	)
	expectOutput(t, res, "6", "10", "11")
}

func TestSummation(t *testing.T) {
	res := runProgram(t, nil,
		ast.Print(ast.Sum("i", ast.Num(1), ast.Num(4), ast.Bin("^", ast.ID("i"), ast.Num(2)))),
		ast.Print(ast.Sum("i", ast.Num(5), ast.Num(1), ast.ID("i"))),
	)
	expectOutput(t, res, "30", "0")
}

func TestSummationRejectsInexactBounds(t *testing.T) {
	cases := []struct {
		name         string
		lower, upper ast.Expression
	}{
		{"beyond 2^53", ast.Num(1e16), ast.Bin("+", ast.Num(1e16), ast.Num(4))},
		{"negative beyond 2^53", ast.Num(-1e16), ast.Num(0)},
		{"infinite", ast.Num(1), ast.Bin("/", ast.Num(1), ast.Num(1e-320))},
		{"fractional", ast.Num(1.5), ast.Num(3)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			res := New().Run(ctx, ast.Prog(ast.Print(ast.Sum("i", tc.lower, tc.upper, ast.Num(1)))))
			expectKind(t, res, KindDomain)
		})
	}

	res := runProgram(t, nil, ast.Print(ast.Sum("i", ast.Num(1<<53-2), ast.Num(1<<53), ast.Num(1))))
	expectOutput(t, res, "3")
}

func TestDivisionByZeroKeepsEarlierOutput(t *testing.T) {
	res := runProgram(t, nil,
		ast.Print(ast.Str("before")),
		ast.At(ast.Print(ast.Bin("/", ast.Num(1), ast.Num(0))), 2, 1),
		ast.Print(ast.Str("after")),
	)
	rerr := expectKind(t, res, KindDivisionByZero)
	if rerr.Location.Line != 2 {
		t.Fatalf("expected failure at line 2, got %+v", rerr.Location)
	}
	if len(res.Output) != 1 || res.Output[0] != "before" {
		t.Fatalf("expected output before failure to be kept, got %q", res.Output)
	}
}

func TestControlFlowSignals(t *testing.T) {
	res := runProgram(t, nil,
		ast.Assign("total", ast.Num(0)),
		ast.For("i", ast.Rng(ast.Num(1), ast.Num(10)),
			ast.If(ast.Bin(">", ast.ID("i"), ast.Num(4)), ast.Block(ast.Brk()), nil),
			ast.Assign("total", ast.Bin("+", ast.ID("total"), ast.ID("i"))),
		),
		ast.Print(ast.ID("total")),
		ast.Fn("firstOver", []string{"limit"},
			ast.Assign("n", ast.Num(0)),
			ast.While(ast.Num(1),
				ast.Assign("n", ast.Bin("+", ast.ID("n"), ast.Num(1))),
				ast.If(ast.Bin(">", ast.Bin("*", ast.ID("n"), ast.ID("n")), ast.ID("limit")),
					ast.Block(ast.Ret(ast.ID("n"))), nil),
			),
		),
		ast.Print(ast.Call("firstOver", ast.Num(50))),
		ast.Fn("noReturn", nil, ast.Assign("unused", ast.Num(1))),
		ast.Print(ast.Call("noReturn")),
		ast.Ret(ast.Num(0)),
		ast.Print(ast.Str("unreachable")),
	)
	expectOutput(t, res, "10", "8", "0")
}

func TestBreakOutsideLoopFails(t *testing.T) {
	res := runProgram(t, nil,
		ast.Fn("f", nil, ast.Brk()),
		ast.For("i", ast.Arr(ast.Num(1)), ast.Expr(ast.Call("f"))),
	)
	expectKind(t, res, KindInternal)
}

func TestConditionMustBeNumber(t *testing.T) {
	res := runProgram(t, nil, ast.If(ast.Str("yes"), ast.Block(ast.Print(ast.Num(1))), nil))
	expectKind(t, res, KindTypeMismatch)
}

func TestFunctionsBindToGlobalScope(t *testing.T) {
	res := runProgram(t, nil,
		ast.Assign("scale", ast.Num(2)),
		ast.Fn("outer", nil,
			ast.Assign("scale", ast.Num(3)),
			ast.Fn("inner", []string{"x"}, ast.Ret(ast.Bin("*", ast.ID("x"), ast.ID("scale")))),
			ast.Ret(ast.Call("inner", ast.Num(5))),
		),
		ast.Print(ast.Call("outer")),
		ast.Print(ast.ID("scale")),
	)
	expectOutput(t, res, "15", "3")
}

func TestUndefinedNamesAndArity(t *testing.T) {
	expectKind(t, runProgram(t, nil, ast.Print(ast.ID("nope"))), KindUndefinedVariable)
	expectKind(t, runProgram(t, nil, ast.Print(ast.Call("nope"))), KindUndefinedFunction)
	expectKind(t, runProgram(t, nil,
		ast.ExprFn("f", []string{"a", "b"}, ast.ID("a")),
		ast.Print(ast.Call("f", ast.Num(1))),
	), KindArity)
	expectKind(t, runProgram(t, nil, ast.Print(ast.Call("math.sqrt", ast.Num(1), ast.Num(2)))), KindArity)
}

func TestBuiltinsResolveBeforeUserFunctions(t *testing.T) {
	res := runProgram(t, nil,
		ast.ExprFn("len", []string{"x"}, ast.Num(99)),
		ast.Print(ast.Call("len", ast.Arr(ast.Num(1), ast.Num(2)))),
	)
	expectOutput(t, res, "2")
}

func TestIndexAssignmentAutoExtends(t *testing.T) {
	res := runProgram(t, nil,
		ast.IdxAssign("v", ast.Num(7), ast.Num(3)),
		ast.Print(ast.ID("v")),
		ast.ColAssign("c", ast.Num(1), ast.Num(5)),
		ast.Print(ast.ID("c")),
		ast.IdxAssign("m", ast.Num(1), ast.Num(1), ast.Num(2)),
		ast.Print(ast.ID("m")),
		ast.Assign("w", ast.Arr(ast.Num(1), ast.Num(2))),
		ast.Assign("alias", ast.ID("w")),
		ast.IdxAssign("alias", ast.Num(9), ast.Num(0)),
		ast.Print(ast.ID("w"), ast.ID("alias")),
		ast.Print(ast.Idx(ast.ID("m"), ast.Num(1), ast.Num(2))),
	)
	expectOutput(t, res,
		"[0, 0, 0, 7]",
		"[0; 5]",
		"[[0, 0, 0], [0, 0, 1]]",
		"[1, 2] [9, 2]",
		"1",
	)
}

func TestInvalidIndices(t *testing.T) {
	expectKind(t, runProgram(t, nil, ast.IdxAssign("v", ast.Num(1), ast.Num(-1))), KindIndex)
	expectKind(t, runProgram(t, nil, ast.IdxAssign("v", ast.Num(1), ast.Num(0.5))), KindIndex)
	expectKind(t, runProgram(t, nil,
		ast.Assign("v", ast.Arr(ast.Num(1))),
		ast.Print(ast.Idx(ast.ID("v"), ast.Num(3))),
	), KindIndex)
	expectKind(t, runProgram(t, nil,
		ast.Assign("n", ast.Num(1)),
		ast.IdxAssign("n", ast.Num(1), ast.Num(0)),
	), KindTypeMismatch)
}

func TestOversizedIndicesFailWithLocation(t *testing.T) {
	cases := []struct {
		name string
		stmt ast.Statement
	}{
		{"assign huge", ast.IdxAssign("x", ast.Num(1), ast.At(ast.Num(1e300), 2, 4))},
		{"assign past limit", ast.IdxAssign("x", ast.Num(1), ast.At(ast.Num(1e10), 2, 4))},
		{"matrix assign", ast.IdxAssign("x", ast.Num(1), ast.Num(0), ast.At(ast.Num(1e10), 2, 4))},
		{"matrix area", ast.IdxAssign("x", ast.Num(1), ast.Num(1<<12), ast.At(ast.Num(1<<12), 2, 4))},
		{"read huge", ast.Print(ast.Idx(ast.ID("y"), ast.At(ast.Num(1e300), 2, 4)))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runProgram(t, nil,
				ast.Assign("y", ast.Arr(ast.Num(1), ast.Num(2))),
				ast.At(tc.stmt, 2, 1),
			)
			rerr := expectKind(t, res, KindIndex)
			if rerr.Location.Line != 2 || rerr.Location.Column != 4 {
				t.Fatalf("expected location 2:4, got %+v", rerr.Location)
			}
		})
	}

	interp := NewWithOptions(Options{MaxArrayLength: 4})
	expectKind(t, runProgram(t, interp, ast.IdxAssign("x", ast.Num(1), ast.Num(4))), KindIndex)
	expectOutput(t, runProgram(t, NewWithOptions(Options{MaxArrayLength: 4}),
		ast.IdxAssign("x", ast.Num(1), ast.Num(3)),
		ast.Print(ast.ID("x")),
	), "[0, 0, 0, 1]")
}

func TestPrintRendering(t *testing.T) {
	res := runProgram(t, nil,
		ast.Print(ast.Num(0.1), ast.Bin("+", ast.Num(1), ast.Imag(2))),
		ast.Print(ast.Col(ast.Num(1), ast.Num(2))),
		ast.Print(ast.Mat(ast.Row(ast.Num(1), ast.Num(2)), ast.Row(ast.Num(3), ast.Num(4)))),
		ast.Print(ast.Unit(ast.Num(5), "m")),
		ast.Print(ast.Bin("+", ast.Str("x = "), ast.Num(3))),
		ast.Print(ast.Call("error", ast.Str("bad input"))),
		ast.ExprFn("g", nil, ast.Num(1)),
		ast.Print(ast.ID("g")),
		ast.Print(ast.Bin("*", ast.Imag(1), ast.Imag(1))),
	)
	expectOutput(t, res,
		"0.1 1 + 2i",
		"[1; 2]",
		"[[1, 2], [3, 4]]",
		"5 m",
		"x = 3",
		"<error: bad input>",
		"<function g>",
		"-1",
	)
}

func TestCancelledContextTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New().Run(ctx, ast.Prog(ast.Print(ast.Num(1))))
	if res.Success || !res.Terminated() {
		t.Fatalf("expected terminated run, got %+v", res)
	}
}

type recordingGenerator struct {
	seen []string
}

func (g *recordingGenerator) Generate(_ context.Context, decl *ast.FunctionDeclaration, decorator string) ([]GeneratedFile, error) {
	g.seen = append(g.seen, decorator+":"+decl.Name.Name)
	return []GeneratedFile{{Name: decl.Name.Name + ".cpp", Decorator: decorator, Content: "// " + decl.Name.Name}}, nil
}

func TestDecoratedFunctionsUseCodeGenerator(t *testing.T) {
	decl := ast.Decorate(ast.ExprFn("area", []string{"r"}, ast.Bin("*", ast.ID("r"), ast.ID("r"))), "gen_cpp")
	expectKind(t, runProgram(t, nil, decl), KindInternal)

	gen := &recordingGenerator{}
	interp := NewWithOptions(Options{Generator: gen})
	res := runProgram(t, interp, decl, ast.Print(ast.Call("area", ast.Num(3))))
	expectOutput(t, res, "9")
	if len(res.Files) != 1 || res.Files[0].Name != "area.cpp" {
		t.Fatalf("expected generated file, got %+v", res.Files)
	}
	if len(gen.seen) != 1 || gen.seen[0] != "gen_cpp:area" {
		t.Fatalf("unexpected generator calls %v", gen.seen)
	}
}

type squareRule struct{}

// Differentiate knows d/dx x^2 = 2*x only.
func (squareRule) Differentiate(expr ast.Expression, variable string) (ast.Expression, error) {
	return ast.Bin("*", ast.Num(2), ast.ID(variable)), nil
}

func TestDerivativeDelegatesToDifferentiator(t *testing.T) {
	body := ast.Deriv(ast.Bin("^", ast.ID("x"), ast.Num(2)), "x")
	expectKind(t, runProgram(t, nil, ast.Print(body)), KindInternal)

	interp := NewWithOptions(Options{Differentiator: squareRule{}})
	res := runProgram(t, interp, ast.Assign("x", ast.Num(4)), ast.Print(body))
	expectOutput(t, res, "8")
}

func TestPlotRecordsDescriptor(t *testing.T) {
	res := runProgram(t, nil,
		ast.Expr(ast.Call("plot", ast.Arr(ast.Num(1), ast.Num(2)), ast.Arr(ast.Num(3), ast.Num(4)), ast.Str("line"))),
	)
	if !res.Success || len(res.Plots) != 1 || res.Plots[0].Title != "line" || res.Plots[0].Y[1] != 4 {
		t.Fatalf("unexpected plots %+v (%s)", res.Plots, res.Error)
	}
}

func TestEvaluateExpressionUsesGivenScope(t *testing.T) {
	interp := New()
	res := runProgram(t, interp, ast.Assign("alpha", ast.Num(2)))
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	v, err := interp.EvaluateExpression(ast.Bin("*", ast.ID("alpha"), ast.Num(3)), interp.Global())
	if err != nil || runtime.Format(v) != "6" {
		t.Fatalf("expected 6, got %v, %v", v, err)
	}
}
