package driver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/reusee/starlarkutil"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"madola/interpreter-go/pkg/runtime"
)

var starlarkFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	Recursion:       true,
}

// loadStarlarkModule executes a .star file and exposes each public callable
// global as a native function. Globals are frozen after loading, so calls
// cannot mutate module state.
func loadStarlarkModule(ctx context.Context, logger *slog.Logger, name, path string, src []byte) (map[string]*runtime.NativeFunctionValue, error) {
	thread := newStarlarkThread(ctx, logger, name)
	predeclared := starlark.StringDict{
		"math": starlarkmath.Module,
		"log": starlarkutil.MakeFunc("log", func(msg string) {
			logger.InfoContext(ctx, "starlark log", "module", name, "msg", msg)
		}),
	}
	globals, err := starlark.ExecFileOptions(starlarkFileOptions, thread, path, src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark %s: %w", path, err)
	}
	globals.Freeze()

	natives := make(map[string]*runtime.NativeFunctionValue)
	for _, gname := range globals.Keys() {
		if strings.HasPrefix(gname, "_") {
			continue
		}
		fn, ok := globals[gname].(starlark.Callable)
		if !ok {
			continue
		}
		natives[gname] = starlarkNative(ctx, logger, name, gname, fn)
	}
	return natives, nil
}

func newStarlarkThread(ctx context.Context, logger *slog.Logger, module string) *starlark.Thread {
	return &starlark.Thread{
		Name: module,
		Print: func(_ *starlark.Thread, msg string) {
			logger.InfoContext(ctx, "starlark print", "module", module, "msg", msg)
		},
	}
}

func starlarkNative(ctx context.Context, logger *slog.Logger, module, name string, fn starlark.Callable) *runtime.NativeFunctionValue {
	arity := -1
	if f, ok := fn.(*starlark.Function); ok && !f.HasVarargs() && !f.HasKwargs() {
		arity = f.NumParams()
	}
	return &runtime.NativeFunctionValue{
		Name:  name,
		Arity: arity,
		Impl: func(args []runtime.Value) (runtime.Value, error) {
			sargs := make(starlark.Tuple, len(args))
			for i, arg := range args {
				v, err := toStarlarkValue(arg)
				if err != nil {
					return nil, fmt.Errorf("%s argument %d: %w", name, i+1, err)
				}
				sargs[i] = v
			}
			// a fresh thread per call keeps call depth and cancellation independent
			thread := newStarlarkThread(ctx, logger, module)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := starlark.Call(thread, fn, sargs, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return fromStarlarkValue(result)
		},
	}
}

func toStarlarkValue(v runtime.Value) (starlark.Value, error) {
	switch v := v.(type) {
	case runtime.NumberValue:
		if v.Val == math.Trunc(v.Val) && math.Abs(v.Val) < 1<<53 {
			return starlark.MakeInt64(int64(v.Val)), nil
		}
		return starlark.Float(v.Val), nil
	case runtime.StringValue:
		return starlark.String(v.Val), nil
	case *runtime.ArrayValue:
		elems := make([]starlark.Value, len(v.Elements))
		for i, elem := range v.Elements {
			sv, err := toStarlarkValue(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	default:
		return nil, fmt.Errorf("%s values cannot be passed to starlark", v.Kind())
	}
}

func fromStarlarkValue(v starlark.Value) (runtime.Value, error) {
	switch v := v.(type) {
	case starlark.Bool:
		return runtime.Bool(bool(v)), nil
	case starlark.Int, starlark.Float:
		f, ok := starlark.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("starlark number %s out of range", v)
		}
		return runtime.NumberValue{Val: f}, nil
	case starlark.String:
		return runtime.StringValue{Val: string(v)}, nil
	case *starlark.List:
		return fromStarlarkSequence(v)
	case starlark.Tuple:
		return fromStarlarkSequence(v)
	default:
		return nil, fmt.Errorf("starlark %s results are not supported", v.Type())
	}
}

// fromStarlarkSequence builds a row vector, or a matrix when every element is
// a row of the same length.
func fromStarlarkSequence(seq starlark.Indexable) (runtime.Value, error) {
	n := seq.Len()
	elems := make([]runtime.Value, n)
	rows := make([][]runtime.Value, 0, n)
	for i := range n {
		elem, err := fromStarlarkValue(seq.Index(i))
		if err != nil {
			return nil, err
		}
		elems[i] = elem
		if row, ok := elem.(*runtime.ArrayValue); ok && row.Shape == runtime.ShapeRow {
			rows = append(rows, row.Elements)
		}
	}
	if n > 0 && len(rows) == n {
		if matrix, err := runtime.NewMatrix(rows); err == nil {
			return matrix, nil
		}
	}
	return runtime.NewRow(elems), nil
}
