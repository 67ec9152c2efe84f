package runtime

import (
	"errors"
	"testing"
)

func TestEnvironmentScoping(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("x", num(1))
	child := global.Extend()

	v, err := child.Get("x")
	if err != nil || Format(v) != "1" {
		t.Fatalf("expected inherited x=1, got %v, %v", v, err)
	}

	child.Assign("x", num(2))
	if v, _ := global.Get("x"); Format(v) != "2" {
		t.Fatalf("assign should update the owning scope, got %s", Format(v))
	}
	if child.HasInCurrentScope("x") {
		t.Fatalf("assign must not shadow an existing binding")
	}

	child.Assign("y", num(3))
	if !child.HasInCurrentScope("y") || global.Has("y") {
		t.Fatalf("assign of a new name should define locally")
	}

	child.Define("x", num(5))
	if v, _ := global.Get("x"); Format(v) != "2" {
		t.Fatalf("define should shadow, not overwrite the parent")
	}

	_, err = child.Get("missing")
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}
}

func TestEnvironmentLookupReportsOwner(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("alpha", num(1))
	child := global.Extend()
	_, owner, ok := child.Lookup("alpha")
	if !ok || owner != global {
		t.Fatalf("expected global owner")
	}
	if _, _, ok := child.Lookup("beta"); ok {
		t.Fatalf("expected beta to be unbound")
	}
}

func TestEnvironmentCopiesOnDefine(t *testing.T) {
	env := NewEnvironment(nil)
	arr := NewRow([]Value{num(1), num(2)})
	env.Define("a", arr)
	env.Define("b", arr)
	arr.Elements[0] = num(9)
	a, _ := env.Get("a")
	b, _ := env.Get("b")
	a.(*ArrayValue).Elements[1] = num(7)
	if Format(a) != "[1, 7]" || Format(b) != "[1, 2]" {
		t.Fatalf("bindings aliased: a=%s b=%s", Format(a), Format(b))
	}
	if keys := env.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestCallStackOrder(t *testing.T) {
	var stack CallStack
	stack.Push(Frame{Function: "outer"})
	stack.Push(Frame{Function: "inner"})
	if stack.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", stack.Depth())
	}
	frames := stack.Frames()
	if frames[0].Function != "inner" || frames[1].Function != "outer" {
		t.Fatalf("expected innermost first, got %+v", frames)
	}
	top, _ := stack.Pop()
	if top.Function != "inner" || stack.Depth() != 1 {
		t.Fatalf("unexpected pop %+v", top)
	}
	stack.Pop()
	if _, ok := stack.Pop(); ok {
		t.Fatalf("expected empty stack")
	}
}
