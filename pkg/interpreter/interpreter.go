package interpreter

import (
	"context"
	"io"
	"log/slog"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

const (
	defaultMaxCallDepth   = 2048
	defaultMaxArrayLength = 1 << 24
)

// Options configures an Interpreter. Every collaborator is optional.
type Options struct {
	Logger         *slog.Logger
	Resolver       ModuleResolver
	Generator      CodeGenerator
	Differentiator Differentiator

	// Stdout, when set, receives each printed line as it is produced in addition
	// to the Result output log.
	Stdout       io.Writer
	OutputName   string
	MaxCallDepth int

	// MaxArrayLength bounds every index, so growth by assignment stays finite.
	MaxArrayLength int
}

// Interpreter evaluates MADOLA syntax trees. It is single-threaded and not
// reentrant: one Run at a time.
type Interpreter struct {
	logger         *slog.Logger
	resolver       ModuleResolver
	generator      CodeGenerator
	differentiator Differentiator
	stdout         io.Writer
	outputName     string
	maxCallDepth   int
	maxArrayLen    int

	builtins map[string]*runtime.NativeFunctionValue
	hook     Hook

	// per-run state
	ctx            context.Context
	global         *runtime.Environment
	stack          runtime.CallStack
	loopDepth      int
	hooksSuspended int
	session        *session
}

// New returns an interpreter with default options.
func New() *Interpreter {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxDepth := opts.MaxCallDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxCallDepth
	}
	maxLen := opts.MaxArrayLength
	if maxLen <= 0 {
		maxLen = defaultMaxArrayLength
	}
	i := &Interpreter{
		logger:         logger,
		resolver:       opts.Resolver,
		generator:      opts.Generator,
		differentiator: opts.Differentiator,
		stdout:         opts.Stdout,
		outputName:     opts.OutputName,
		maxCallDepth:   maxDepth,
		maxArrayLen:    maxLen,
		global:         runtime.NewEnvironment(nil),
	}
	i.builtins = i.newBuiltins()
	return i
}

// SetHook installs the observer consulted at every suspension point.
func (i *Interpreter) SetHook(h Hook) {
	i.hook = h
}

func (i *Interpreter) SetModuleResolver(r ModuleResolver) {
	i.resolver = r
}

func (i *Interpreter) Logger() *slog.Logger {
	return i.logger
}

// Global returns the global scope of the current or most recent run.
func (i *Interpreter) Global() *runtime.Environment {
	return i.global
}

// CallStack returns the active frames, innermost first.
func (i *Interpreter) CallStack() []runtime.Frame {
	return i.stack.Frames()
}

// Depth is the number of active user calls.
func (i *Interpreter) Depth() int {
	return i.stack.Depth()
}

// Run executes program in a fresh global scope. Evaluation errors are reported
// through the Result; output printed before a failure is preserved.
func (i *Interpreter) Run(ctx context.Context, program *ast.Program) (result *Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	i.ctx = ctx
	i.global = runtime.NewEnvironment(nil)
	i.stack.Reset()
	i.loopDepth = 0
	i.hooksSuspended = 0
	i.session = newSession(i.outputName)

	i.logger.DebugContext(ctx, "run started", "statements", len(programBody(program)))
	defer func() {
		if r := recover(); r != nil {
			err := newError(KindInternal, "internal error: %v", r)
			result = i.session.result(err)
		}
		i.logger.DebugContext(ctx, "run finished", "success", result.Success, "lines", len(result.Output))
	}()

	if program == nil {
		return i.session.result(newError(KindInternal, "no program"))
	}
	_, err := i.execBlock(program.Body, i.global)
	return i.session.result(err)
}

func programBody(program *ast.Program) []ast.Statement {
	if program == nil {
		return nil
	}
	return program.Body
}

// EvaluateExpression evaluates expr in env outside normal statement flow. Hooks
// are not consulted while it runs, so inspection from inside a hook is safe.
func (i *Interpreter) EvaluateExpression(expr ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if env == nil {
		env = i.global
	}
	if i.ctx == nil {
		i.ctx = context.Background()
	}
	if i.session == nil {
		i.session = newSession(i.outputName)
	}
	i.hooksSuspended++
	defer func() { i.hooksSuspended-- }()
	savedLoops := i.loopDepth
	defer func() { i.loopDepth = savedLoops }()
	value, err := i.evalExpression(expr, env)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return value, nil
}

func (i *Interpreter) hookActive() bool {
	return i.hook != nil && i.hooksSuspended == 0
}

func (i *Interpreter) checkContext() error {
	if i.ctx == nil {
		return nil
	}
	if err := i.ctx.Err(); err != nil {
		return terminatedError(err)
	}
	return nil
}
