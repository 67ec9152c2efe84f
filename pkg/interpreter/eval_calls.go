package interpreter

import (
	"math"
	"strings"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

// mathConstants are the members of the `math` namespace that are not functions.
var mathConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// valueMethods maps `value.method()` onto the builtin taking the value first.
var valueMethods = map[string]string{
	"inv":          "inv",
	"det":          "det",
	"tr":           "tr",
	"T":            "transpose",
	"transpose":    "transpose",
	"eigenvalues":  "eigenvalues",
	"eigenvectors": "eigenvectors",
	"re":           "re",
	"im":           "im",
	"conj":         "conj",
	"len":          "len",
}

// valueProperties are members readable without a call: `M.T`.
var valueProperties = map[string]string{
	"T": "transpose",
}

func (i *Interpreter) evalCall(n *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	name := n.CalleeName()
	if builtin, ok := i.builtins[name]; ok && !i.shadowsNamespace(name, env) {
		args, err := i.evalExpressions(n.Arguments, env)
		if err != nil {
			return nil, err
		}
		return i.callNative(builtin, args)
	}

	switch callee := n.Callee.(type) {
	case *ast.Identifier:
		value, err := env.Get(callee.Name)
		if err != nil {
			return nil, newError(KindUndefinedFunction, "undefined function '%s'", callee.Name)
		}
		args, err := i.evalExpressions(n.Arguments, env)
		if err != nil {
			return nil, err
		}
		return i.callValue(value, args, n, env)
	case *ast.MemberExpression:
		if callee.Member == nil {
			return nil, newError(KindInternal, "method call without a name")
		}
		if ns, ok := callee.Object.(*ast.Identifier); ok && ns.Name == "math" && !env.Has("math") {
			return nil, newError(KindUndefinedFunction, "undefined function '%s'", name)
		}
		receiver, err := i.evalExpression(callee.Object, env)
		if err != nil {
			return nil, err
		}
		args, err := i.evalExpressions(n.Arguments, env)
		if err != nil {
			return nil, err
		}
		return i.callMethod(receiver, callee.Member.Name, args)
	default:
		value, err := i.evalExpression(n.Callee, env)
		if err != nil {
			return nil, err
		}
		args, err := i.evalExpressions(n.Arguments, env)
		if err != nil {
			return nil, err
		}
		return i.callValue(value, args, n, env)
	}
}

// shadowsNamespace reports whether a dotted builtin name like `math.sqrt` is
// hidden because the program bound `math` itself.
func (i *Interpreter) shadowsNamespace(name string, env *runtime.Environment) bool {
	ns, _, dotted := strings.Cut(name, ".")
	return dotted && env.Has(ns)
}

func (i *Interpreter) callMethod(receiver runtime.Value, method string, args []runtime.Value) (runtime.Value, error) {
	target, ok := valueMethods[method]
	if !ok {
		return nil, newError(KindUndefinedFunction, "unknown method '%s' on %s", method, receiver.Kind())
	}
	builtin := i.builtins[target]
	return i.callNative(builtin, append([]runtime.Value{receiver}, args...))
}

func (i *Interpreter) callValue(value runtime.Value, args []runtime.Value, call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	switch fn := value.(type) {
	case *runtime.FunctionValue:
		return i.callFunction(fn, args, call, env)
	case *runtime.NativeFunctionValue:
		return i.callNative(fn, args)
	default:
		return nil, newError(KindTypeMismatch, "%s is not callable", value.Kind())
	}
}

func (i *Interpreter) callNative(fn *runtime.NativeFunctionValue, args []runtime.Value) (runtime.Value, error) {
	if fn.Arity >= 0 && len(args) != fn.Arity {
		return nil, newError(KindArity, "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args))
	}
	result, err := fn.Impl(args)
	if err != nil {
		if _, ok := err.(*RuntimeError); ok {
			return nil, err
		}
		return nil, newError(KindInternal, "%s: %v", fn.Name, err)
	}
	if result == nil {
		return runtime.NumberValue{}, nil
	}
	return result, nil
}

// callFunction runs a user function in a child of its defining scope. A body
// that finishes without return yields 0. callerEnv is only reported to hooks.
func (i *Interpreter) callFunction(fn *runtime.FunctionValue, args []runtime.Value, call *ast.CallExpression, callerEnv *runtime.Environment) (result runtime.Value, err error) {
	decl := fn.Declaration
	if decl == nil {
		return nil, newError(KindInternal, "function without declaration")
	}
	name := fn.Name()
	if len(args) != len(decl.Params) {
		return nil, newError(KindArity, "%s expects %d argument(s), got %d", name, len(decl.Params), len(args))
	}
	if i.stack.Depth() >= i.maxCallDepth {
		return nil, newError(KindInternal, "maximum call depth %d exceeded in %s", i.maxCallDepth, name)
	}
	closure := fn.Closure
	if closure == nil {
		closure = i.global
	}
	callEnv := closure.Extend()
	for idx, param := range decl.Params {
		callEnv.Define(param.Name, args[idx])
	}

	var site ast.Location
	if call != nil {
		site = call.Location()
	}
	i.stack.Push(runtime.Frame{Function: name, CallSite: site, Env: callEnv})
	popped := false
	pop := func() {
		if !popped {
			i.stack.Pop()
			popped = true
		}
	}
	defer pop()

	savedLoops := i.loopDepth
	i.loopDepth = 0
	defer func() { i.loopDepth = savedLoops }()

	callEvent := Event{Node: call, Location: site, Env: callEnv, Depth: i.stack.Depth(), Function: name}
	if i.hookActive() {
		if err := i.hook.EnterCall(callEvent); err != nil {
			return nil, err
		}
	}
	sig, err := i.execBlock(decl.Body, callEnv)
	if err != nil {
		return nil, err
	}
	result = runtime.NumberValue{}
	if sig.kind == signalReturn && sig.value != nil {
		result = sig.value
	}
	if i.hookActive() {
		if err := i.hook.ExitCall(callEvent); err != nil {
			return nil, err
		}
	}
	pop()
	if i.hookActive() {
		caller := ""
		if top, ok := i.stack.Top(); ok {
			caller = top.Function
		}
		returned := Event{Node: call, Location: site, Env: callerEnv, Depth: i.stack.Depth(), Function: caller}
		if err := i.hook.Returned(returned); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (i *Interpreter) evalMember(n *ast.MemberExpression, env *runtime.Environment) (runtime.Value, error) {
	if n.Member == nil {
		return nil, newError(KindInternal, "member access without a name")
	}
	if ns, ok := n.Object.(*ast.Identifier); ok && ns.Name == "math" && !env.Has("math") {
		if value, ok := mathConstants[n.Member.Name]; ok {
			return runtime.NumberValue{Val: value}, nil
		}
		if fn, ok := i.builtins["math."+n.Member.Name]; ok {
			return fn, nil
		}
		return nil, newError(KindUndefinedVariable, "undefined variable 'math.%s'", n.Member.Name)
	}
	object, err := i.evalExpression(n.Object, env)
	if err != nil {
		return nil, err
	}
	target, ok := valueProperties[n.Member.Name]
	if !ok {
		return nil, newError(KindUndefinedVariable, "unknown property '%s' on %s", n.Member.Name, object.Kind())
	}
	return i.callNative(i.builtins[target], []runtime.Value{object})
}
