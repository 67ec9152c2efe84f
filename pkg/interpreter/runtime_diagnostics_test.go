package interpreter

import (
	"context"
	"errors"
	"testing"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func TestRuntimeDiagnosticIncludesCallSites(t *testing.T) {
	program := ast.Prog(
		ast.At(ast.Fn("inner", []string{"x"},
			ast.At(ast.Ret(ast.At(ast.Bin("/", ast.ID("x"), ast.Num(0)), 2, 10)), 2, 3),
		), 1, 1),
		ast.At(ast.Fn("outer", []string{"x"},
			ast.At(ast.Ret(ast.At(ast.Call("inner", ast.ID("x")), 5, 10)), 5, 3),
		), 4, 1),
		ast.At(ast.Print(ast.At(ast.Call("outer", ast.Num(1)), 7, 7)), 7, 1),
	)
	res := New().Run(context.Background(), program)
	if res.Success {
		t.Fatalf("expected failure")
	}
	if res.Diagnostic == nil {
		t.Fatalf("expected diagnostic")
	}
	want := "runtime: line 2, column 10 division by zero\n" +
		"note: line 5, column 10 called from here\n" +
		"note: line 7, column 7 called from here"
	if res.Error != want {
		t.Fatalf("unexpected diagnostic:\n%s\nwant:\n%s", res.Error, want)
	}
	var rerr *RuntimeError
	if !errors.As(res.Err, &rerr) || len(rerr.Stack) != 2 || rerr.Stack[0].Function != "inner" {
		t.Fatalf("expected stack captured at the failure point, got %+v", res.Err)
	}
}

func TestDescribeRuntimeDiagnosticWithoutLocation(t *testing.T) {
	diag := BuildRuntimeDiagnostic(newError(KindDomain, "runtime: matrix is singular"))
	if got := DescribeRuntimeDiagnostic(diag); got != "runtime: matrix is singular" {
		t.Fatalf("unexpected description %q", got)
	}
	if BuildRuntimeDiagnostic(nil).Message != "" {
		t.Fatalf("expected empty diagnostic for nil error")
	}
}

func TestAsRuntimeErrorClassifiesForeignErrors(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{runtime.ErrUndefinedVariable, KindUndefinedVariable},
		{ErrTerminated, KindTerminated},
		{errors.New("boom"), KindInternal},
		{newError(KindIndex, "out of range"), KindIndex},
	}
	for _, tc := range cases {
		if got := asRuntimeError(tc.err).Kind; got != tc.kind {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.kind, got)
		}
	}
	if !IsTerminated(terminatedError(context.Canceled)) {
		t.Fatalf("expected cancellation to count as termination")
	}
	if IsTerminated(errors.New("boom")) {
		t.Fatalf("plain errors are not terminations")
	}
}

func TestErrorKindNames(t *testing.T) {
	if KindDivisionByZero.String() == KindDomain.String() {
		t.Fatalf("error kinds must have distinct names")
	}
}
