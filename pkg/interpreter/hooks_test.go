package interpreter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

type recordingHook struct {
	events []string
	stopAt int
}

func (h *recordingHook) record(kind string, ev Event) error {
	fn := ev.Function
	if fn == "" {
		fn = "<main>"
	}
	h.events = append(h.events, fmt.Sprintf("%s %d:%d d%d %s", kind, ev.Location.Line, ev.Location.Column, ev.Depth, fn))
	if h.stopAt > 0 && ev.Location.Line == h.stopAt {
		return ErrTerminated
	}
	return nil
}

func (h *recordingHook) BeforeStatement(ev Event) error { return h.record("before", ev) }
func (h *recordingHook) AfterStatement(ev Event) error  { return h.record("after", ev) }
func (h *recordingHook) EnterCall(ev Event) error       { return h.record("enter", ev) }
func (h *recordingHook) ExitCall(ev Event) error        { return h.record("exit", ev) }
func (h *recordingHook) Returned(ev Event) error        { return h.record("returned", ev) }

func incrementProgram() *ast.Program {
	return ast.Prog(
		ast.At(ast.Fn("f", []string{"x"},
			ast.At(ast.Ret(ast.Bin("+", ast.ID("x"), ast.Num(1))), 2, 3),
		), 1, 1),
		ast.At(ast.Print(ast.At(ast.Call("f", ast.Num(1)), 3, 7)), 3, 1),
	)
}

func TestHookEventOrder(t *testing.T) {
	hook := &recordingHook{}
	interp := New()
	interp.SetHook(hook)
	res := interp.Run(context.Background(), incrementProgram())
	expectOutput(t, res, "2")

	want := []string{
		"before 1:1 d0 <main>",
		"after 1:1 d0 <main>",
		"before 3:1 d0 <main>",
		"enter 3:7 d1 f",
		"before 2:3 d1 f",
		"after 2:3 d1 f",
		"exit 3:7 d1 f",
		"returned 3:7 d0 <main>",
		"after 3:1 d0 <main>",
	}
	if strings.Join(hook.events, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected events:\n%s", strings.Join(hook.events, "\n"))
	}
}

func TestHookCanTerminateRun(t *testing.T) {
	hook := &recordingHook{stopAt: 2}
	interp := New()
	interp.SetHook(hook)
	res := interp.Run(context.Background(), incrementProgram())
	if !res.Terminated() {
		t.Fatalf("expected terminated run, got success=%v err=%v", res.Success, res.Err)
	}
	if len(res.Output) != 0 {
		t.Fatalf("expected no output, got %q", res.Output)
	}
	if interp.Depth() != 0 {
		t.Fatalf("expected call stack to unwind, depth %d", interp.Depth())
	}
}

func TestEvaluateExpressionSuspendsHooks(t *testing.T) {
	hook := &recordingHook{}
	interp := New()
	res := interp.Run(context.Background(), incrementProgram())
	expectOutput(t, res, "2")

	interp.SetHook(hook)
	v, err := interp.EvaluateExpression(ast.Call("f", ast.Num(41)), interp.Global())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := runtime.Format(v); got != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
	if len(hook.events) != 0 {
		t.Fatalf("expected no hook events during inspection, got %v", hook.events)
	}
}
