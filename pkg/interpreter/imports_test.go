package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func mapResolver(units map[string]*ModuleUnit, loads map[string]int) ModuleResolver {
	return ModuleResolverFunc(func(_ context.Context, name string) (*ModuleUnit, error) {
		if loads != nil {
			loads[name]++
		}
		unit, ok := units[name]
		if !ok {
			return nil, errors.New("no such module")
		}
		return unit, nil
	})
}

func TestImportNamedMembersWithAlias(t *testing.T) {
	loads := map[string]int{}
	geometry := &ModuleUnit{Name: "geometry", Program: ast.Prog(
		ast.ExprFn("area", []string{"r"}, ast.Bin("*", ast.Member(ast.ID("math"), "pi"), ast.Bin("^", ast.ID("r"), ast.Num(2)))),
		ast.Assign("unit_len", ast.Num(3)),
	)}
	interp := NewWithOptions(Options{Resolver: mapResolver(map[string]*ModuleUnit{"geometry": geometry}, loads)})
	res := runProgram(t, interp,
		ast.Import("geometry", ast.ImportAs("unit_len", "u")),
		ast.Import("geometry", ast.ImportAs("unit_len", "")),
		ast.Print(ast.ID("u"), ast.ID("unit_len")),
	)
	expectOutput(t, res, "3 3")
	if loads["geometry"] != 1 {
		t.Fatalf("expected module to be evaluated once, got %d", loads["geometry"])
	}
}

func TestImportAllSkipsPrivateNames(t *testing.T) {
	units := map[string]*ModuleUnit{
		"lib": {Name: "lib", Program: ast.Prog(
			ast.Assign("_scratch", ast.Num(1)),
			ast.Assign("visible", ast.Num(2)),
		)},
	}
	interp := NewWithOptions(Options{Resolver: mapResolver(units, nil)})
	expectOutput(t, runProgram(t, interp, ast.Import("lib"), ast.Print(ast.ID("visible"))), "2")
	expectKind(t, runProgram(t, interp, ast.Import("lib"), ast.Print(ast.ID("_scratch"))), KindUndefinedVariable)
}

func TestImportNativeModule(t *testing.T) {
	units := map[string]*ModuleUnit{
		"natives": {Name: "natives", Natives: map[string]*runtime.NativeFunctionValue{
			"double": {Name: "double", Arity: 1, Impl: func(args []runtime.Value) (runtime.Value, error) {
				n := args[0].(runtime.NumberValue)
				return runtime.NumberValue{Val: n.Val * 2}, nil
			}},
		}},
	}
	interp := NewWithOptions(Options{Resolver: mapResolver(units, nil)})
	res := runProgram(t, interp,
		ast.Import("natives", ast.ImportAs("double", "")),
		ast.Print(ast.Call("double", ast.Num(21))),
	)
	expectOutput(t, res, "42")
}

func TestImportFailures(t *testing.T) {
	expectKind(t, runProgram(t, nil, ast.Import("anything")), KindImport)

	units := map[string]*ModuleUnit{
		"a":     {Name: "a", Program: ast.Prog(ast.Import("b"))},
		"b":     {Name: "b", Program: ast.Prog(ast.Import("a"))},
		"empty": {Name: "empty", Program: ast.Prog()},
	}
	interp := NewWithOptions(Options{Resolver: mapResolver(units, nil)})

	rerr := expectKind(t, runProgram(t, interp, ast.Import("a")), KindImport)
	if !strings.Contains(rerr.Message, "import cycle: a -> b -> a") {
		t.Fatalf("unexpected cycle message %q", rerr.Message)
	}
	expectKind(t, runProgram(t, interp, ast.Import("missing")), KindImport)
	expectKind(t, runProgram(t, interp, ast.Import("empty", ast.ImportAs("nope", ""))), KindImport)
}
