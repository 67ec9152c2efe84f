package interpreter

import (
	"fmt"
	"strings"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func (i *Interpreter) execBlock(stmts []ast.Statement, env *runtime.Environment) (controlSignal, error) {
	for _, stmt := range stmts {
		sig, err := i.execStatement(stmt, env)
		if err != nil {
			return noSignal, err
		}
		if sig.active() {
			return sig, nil
		}
	}
	return noSignal, nil
}

func (i *Interpreter) execStatement(stmt ast.Statement, env *runtime.Environment) (controlSignal, error) {
	if stmt == nil {
		return noSignal, nil
	}
	if err := i.checkContext(); err != nil {
		return noSignal, err
	}
	if i.hookActive() {
		if err := i.hook.BeforeStatement(i.statementEvent(stmt, env)); err != nil {
			return noSignal, i.attachRuntimeContext(err, stmt)
		}
	}
	sig, err := i.dispatchStatement(stmt, env)
	if err != nil {
		return noSignal, i.attachRuntimeContext(err, stmt)
	}
	if i.hookActive() {
		if err := i.hook.AfterStatement(i.statementEvent(stmt, env)); err != nil {
			return noSignal, i.attachRuntimeContext(err, stmt)
		}
	}
	return sig, nil
}

func (i *Interpreter) statementEvent(stmt ast.Statement, env *runtime.Environment) Event {
	ev := Event{Node: stmt, Location: stmt.Location(), Env: env, Depth: i.stack.Depth()}
	if top, ok := i.stack.Top(); ok {
		ev.Function = top.Function
	}
	return ev
}

func (i *Interpreter) dispatchStatement(stmt ast.Statement, env *runtime.Environment) (controlSignal, error) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		return noSignal, i.execAssignment(s, env)
	case *ast.IndexAssignment:
		return noSignal, i.execIndexAssignment(s, env)
	case *ast.FunctionDeclaration:
		return noSignal, i.execFunctionDeclaration(s, env)
	case *ast.ExpressionStatement:
		_, err := i.evalExpression(s.Expression, env)
		return noSignal, err
	case *ast.PrintStatement:
		return noSignal, i.execPrint(s, env)
	case *ast.IfStatement:
		return i.execIf(s, env)
	case *ast.ForLoop:
		return i.execFor(s, env)
	case *ast.WhileLoop:
		return i.execWhile(s, env)
	case *ast.ReturnStatement:
		if s.Value == nil {
			return returnSignal(runtime.NumberValue{}), nil
		}
		value, err := i.evalExpression(s.Value, env)
		if err != nil {
			return noSignal, err
		}
		return returnSignal(value), nil
	case *ast.BreakStatement:
		if i.loopDepth == 0 {
			return noSignal, newError(KindInternal, "break outside of a loop")
		}
		return breakSignal(), nil
	case *ast.ImportStatement:
		return noSignal, i.execImport(s, env)
	default:
		return noSignal, newError(KindInternal, "unsupported statement %T", stmt)
	}
}

func (i *Interpreter) execAssignment(s *ast.Assignment, env *runtime.Environment) error {
	if s.Name == nil {
		return newError(KindInternal, "assignment without a target")
	}
	value, err := i.evalExpression(s.Value, env)
	if err != nil {
		return err
	}
	env.Assign(s.Name.Name, value)
	return nil
}

func (i *Interpreter) execFunctionDeclaration(s *ast.FunctionDeclaration, env *runtime.Environment) error {
	if s.Name == nil {
		return newError(KindInternal, "function declaration without a name")
	}
	fn := &runtime.FunctionValue{Declaration: s, Closure: rootScope(env)}
	env.Define(s.Name.Name, fn)
	for _, decorator := range s.Decorators {
		decorator = strings.TrimPrefix(decorator, "@")
		if i.generator == nil {
			return newError(KindInternal, "@%s on %s: no code generator configured", decorator, s.Name.Name)
		}
		files, err := i.generator.Generate(i.ctx, s, decorator)
		if err != nil {
			return newError(KindInternal, "@%s on %s: %v", decorator, s.Name.Name, err)
		}
		i.logger.DebugContext(i.ctx, "generated code", "function", s.Name.Name, "decorator", decorator, "files", len(files))
		i.session.files = append(i.session.files, files...)
	}
	return nil
}

// rootScope returns the global scope env belongs to. Imported programs have
// their own.
func rootScope(env *runtime.Environment) *runtime.Environment {
	for env.Parent() != nil {
		env = env.Parent()
	}
	return env
}

func (i *Interpreter) execPrint(s *ast.PrintStatement, env *runtime.Environment) error {
	parts := make([]string, 0, len(s.Arguments))
	for _, arg := range s.Arguments {
		value, err := i.evalExpression(arg, env)
		if err != nil {
			return err
		}
		parts = append(parts, runtime.Format(value))
	}
	line := strings.Join(parts, " ")
	i.session.output = append(i.session.output, line)
	if i.stdout != nil {
		fmt.Fprintln(i.stdout, line)
	}
	return nil
}

func (i *Interpreter) execIf(s *ast.IfStatement, env *runtime.Environment) (controlSignal, error) {
	ok, err := i.evalCondition(s.Condition, env, "if")
	if err != nil {
		return noSignal, err
	}
	if ok {
		return i.execBlock(s.Then, env)
	}
	return i.execBlock(s.Else, env)
}

func (i *Interpreter) evalCondition(expr ast.Expression, env *runtime.Environment, construct string) (bool, error) {
	value, err := i.evalExpression(expr, env)
	if err != nil {
		return false, err
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		return false, i.attachRuntimeContext(newError(KindTypeMismatch, "%s condition must be a number, got %s", construct, value.Kind()), expr)
	}
	return num.Val != 0, nil
}

func (i *Interpreter) execFor(s *ast.ForLoop, env *runtime.Environment) (controlSignal, error) {
	if s.Variable == nil {
		return noSignal, newError(KindInternal, "for loop without a variable")
	}
	iterable, err := i.evalExpression(s.Iterable, env)
	if err != nil {
		return noSignal, err
	}
	arr, ok := iterable.(*runtime.ArrayValue)
	if !ok {
		return noSignal, i.attachRuntimeContext(newError(KindTypeMismatch, "cannot iterate over %s", iterable.Kind()), s.Iterable)
	}
	items := append([]runtime.Value(nil), arr.Elements...)
	bodyEnv := env.Extend()
	i.loopDepth++
	defer func() { i.loopDepth-- }()
	for _, item := range items {
		bodyEnv.Define(s.Variable.Name, item)
		sig, err := i.execBlock(s.Body, bodyEnv)
		if err != nil {
			return noSignal, err
		}
		switch sig.kind {
		case signalBreak:
			return noSignal, nil
		case signalReturn:
			return sig, nil
		}
	}
	return noSignal, nil
}

func (i *Interpreter) execWhile(s *ast.WhileLoop, env *runtime.Environment) (controlSignal, error) {
	bodyEnv := env.Extend()
	i.loopDepth++
	defer func() { i.loopDepth-- }()
	for {
		if err := i.checkContext(); err != nil {
			return noSignal, err
		}
		ok, err := i.evalCondition(s.Condition, bodyEnv, "while")
		if err != nil {
			return noSignal, err
		}
		if !ok {
			return noSignal, nil
		}
		sig, err := i.execBlock(s.Body, bodyEnv)
		if err != nil {
			return noSignal, err
		}
		switch sig.kind {
		case signalBreak:
			return noSignal, nil
		case signalReturn:
			return sig, nil
		}
	}
}
