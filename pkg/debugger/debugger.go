package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/runtime"
)

// Options configures a Debugger. Every field is optional; without Commands a
// pause ends the session as if the user quit.
type Options struct {
	Interpreter *interpreter.Interpreter
	Parser      ExpressionParser
	Commands    CommandSource
	Output      io.Writer
	Logger      *slog.Logger

	// Source is the program text shown by `list`.
	Source      string
	StopOnEntry bool
}

// Debugger drives one Interpreter through its Hook. It adds suspension checks
// around statements and calls and never evaluates statements itself.
type Debugger struct {
	interp      *interpreter.Interpreter
	parser      ExpressionParser
	commands    CommandSource
	out         io.Writer
	logger      *slog.Logger
	sessionID   string
	sourceLines []string
	stopOnEntry bool

	breakpoints *Registry
	listeners   []Listener
	watched     map[int]trackedValue

	ctx        context.Context
	program    *ast.Program
	state      State
	issueDepth int
	entry      bool
	current    *ExecutionContext
}

// trackedValue is the last observed binding of a watched name.
type trackedValue struct {
	value   runtime.Value
	owner   *runtime.Environment
	present bool
}

func New(opts Options) *Debugger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.NewString()
	d := &Debugger{
		interp:      opts.Interpreter,
		parser:      opts.Parser,
		commands:    opts.Commands,
		out:         opts.Output,
		logger:      logger.With("session", id),
		sessionID:   id,
		stopOnEntry: opts.StopOnEntry,
		breakpoints: NewRegistry(),
		watched:     make(map[int]trackedValue),
		state:       Terminated,
		ctx:         context.Background(),
	}
	if d.interp == nil {
		d.interp = interpreter.NewWithOptions(interpreter.Options{Logger: logger})
	}
	if d.parser == nil {
		d.parser = SnippetParser{}
	}
	if d.commands == nil {
		d.commands = &ScriptSource{}
	}
	if d.out == nil {
		d.out = io.Discard
	}
	if opts.Source != "" {
		d.sourceLines = strings.Split(opts.Source, "\n")
	}
	return d
}

func (d *Debugger) SessionID() string {
	return d.sessionID
}

// State reports the current state. A debugger with no program running is
// Terminated.
func (d *Debugger) State() State {
	return d.state
}

func (d *Debugger) Breakpoints() *Registry {
	return d.breakpoints
}

func (d *Debugger) Interpreter() *interpreter.Interpreter {
	return d.interp
}

func (d *Debugger) AddListener(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

// Load sets the program that `break <name>` consults to tell functions from
// variables before Run starts.
func (d *Debugger) Load(program *ast.Program) {
	d.program = program
}

// Command executes one line of the command surface outside the pause loop.
// Commands that resume execution are rejected there.
func (d *Debugger) Command(line string) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		return err
	}
	if cmd.resumes() && d.current == nil && cmd.Kind != CmdQuit {
		return errors.New("the program is not paused")
	}
	return d.execute(cmd)
}

// Run executes program under debugger control and reports the same Result an
// undebugged run would. Quitting reports a terminated result.
func (d *Debugger) Run(ctx context.Context, program *ast.Program) *interpreter.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	d.ctx = ctx
	if program != nil {
		d.program = program
	}
	for id := range d.watched {
		d.watched[id] = trackedValue{}
	}
	d.state = Running
	d.entry = d.stopOnEntry
	d.current = nil
	d.logger.InfoContext(d.ctx, "debug session started", "stop_on_entry", d.stopOnEntry, "breakpoints", d.breakpoints.Len())

	d.interp.SetHook(&debugHook{d: d})
	res := d.interp.Run(ctx, d.program)
	d.interp.SetHook(nil)

	d.state = Terminated
	d.current = nil
	switch {
	case res.Success:
		fmt.Fprintln(d.out, "Program finished.")
	case res.Terminated():
		fmt.Fprintln(d.out, "Program terminated.")
	default:
		fmt.Fprintln(d.out, res.Error)
	}
	d.logger.InfoContext(d.ctx, "debug session finished", "success", res.Success, "terminated", res.Terminated())
	for _, l := range d.listeners {
		l.OnTerminated(res)
	}
	return res
}

func (d *Debugger) pause(ev interpreter.Event, reason PauseReason, bp *Breakpoint) error {
	d.state = Paused
	pc := ExecutionContext{
		Reason:     reason,
		Breakpoint: bp,
		Node:       ev.Node,
		Location:   ev.Location,
		Depth:      ev.Depth,
		Function:   ev.Function,
		Env:        ev.Env,
		Frames:     d.interp.CallStack(),
	}
	d.current = &pc
	d.announce(pc)
	d.logger.DebugContext(d.ctx, "paused", "reason", reason.String(), "line", ev.Location.Line, "depth", ev.Depth)
	if bp != nil {
		for _, l := range d.listeners {
			l.OnBreakpointHit(*bp)
		}
	}
	for _, l := range d.listeners {
		l.OnStep(pc)
	}

	for {
		line, err := d.commands.ReadCommand(pc)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.logger.WarnContext(d.ctx, "command source failed", "error", err)
			}
			d.state = Terminated
		} else {
			cmd, perr := ParseCommand(line)
			if perr != nil {
				fmt.Fprintf(d.out, "error: %s\n", perr)
				continue
			}
			if cmd.Kind == CmdNone {
				continue
			}
			if xerr := d.execute(cmd); xerr != nil {
				fmt.Fprintf(d.out, "error: %s\n", xerr)
				continue
			}
			if !cmd.resumes() {
				continue
			}
		}
		d.current = nil
		if d.state == Terminated {
			d.logger.InfoContext(d.ctx, "quit requested")
			return interpreter.ErrTerminated
		}
		d.logger.DebugContext(d.ctx, "resumed", "state", d.state.String(), "issue_depth", d.issueDepth)
		return nil
	}
}

func (d *Debugger) announce(pc ExecutionContext) {
	where := describeLocation(pc.Location)
	switch pc.Reason {
	case ReasonEntry:
		fmt.Fprintf(d.out, "Stopped at entry, %s\n", where)
	case ReasonBreakpoint:
		fmt.Fprintf(d.out, "Breakpoint %d, %s at %s\n", pc.Breakpoint.ID, functionLabel(pc.Function), where)
	case ReasonFrameExit:
		fmt.Fprintf(d.out, "Returning from %s to %s\n", functionLabel(pc.Function), where)
	default:
		fmt.Fprintf(d.out, "Stopped in %s at %s\n", functionLabel(pc.Function), where)
	}
}

func (d *Debugger) execute(cmd Command) error {
	switch cmd.Kind {
	case CmdNone:
		return nil
	case CmdBreak:
		return d.addBreakpoint(cmd)
	case CmdWatch:
		bp := d.breakpoints.AddWatch(cmd.Target)
		d.watched[bp.ID] = d.observe(cmd.Target)
		fmt.Fprintf(d.out, "Watchpoint %d: %s\n", bp.ID, cmd.Target)
		return nil
	case CmdDelete:
		if err := d.breakpoints.Delete(cmd.ID); err != nil {
			return err
		}
		delete(d.watched, cmd.ID)
		fmt.Fprintf(d.out, "Deleted breakpoint %d\n", cmd.ID)
		return nil
	case CmdEnable, CmdDisable:
		if err := d.breakpoints.SetEnabled(cmd.ID, cmd.Kind == CmdEnable); err != nil {
			return err
		}
		// Changes made while disabled are not reported.
		if bp, err := d.breakpoints.Get(cmd.ID); err == nil && cmd.Kind == CmdEnable &&
			(bp.Kind == BreakVariable || bp.Kind == BreakWatch) {
			d.watched[bp.ID] = d.observe(bp.Name)
		}
		return nil
	case CmdInfo:
		d.listBreakpoints()
		return nil
	case CmdHelp:
		fmt.Fprintln(d.out, helpText)
		return nil
	case CmdQuit:
		d.state = Terminated
		return nil
	}

	pc := d.current
	if pc == nil {
		return errors.New("the program is not paused")
	}
	switch cmd.Kind {
	case CmdContinue:
		d.state = Running
	case CmdStep:
		d.state = StepInto
	case CmdNext:
		d.state = StepOver
		d.issueDepth = pc.Depth
		if pc.Reason == ReasonFrameExit {
			d.issueDepth--
		}
	case CmdFinish:
		d.state = StepOut
		d.issueDepth = pc.Depth
	case CmdPrint:
		return d.printExpression(pc, cmd.Target)
	case CmdLocals:
		d.printLocals(pc)
	case CmdBacktrace:
		d.printBacktrace(pc)
	case CmdList:
		return d.listSource(pc)
	default:
		return fmt.Errorf("%w", ErrUnknownCommand)
	}
	return nil
}

func (d *Debugger) addBreakpoint(cmd Command) error {
	var cond ast.Expression
	if cmd.Condition != "" {
		expr, err := d.parser.ParseExpression(cmd.Condition)
		if err != nil {
			return fmt.Errorf("malformed condition %q: %w", cmd.Condition, err)
		}
		cond = expr
	}
	if line, err := strconv.Atoi(cmd.Target); err == nil {
		if line <= 0 {
			return fmt.Errorf("break: invalid line %d", line)
		}
		bp := d.breakpoints.AddLine(line, cond, cmd.Condition)
		fmt.Fprintf(d.out, "Breakpoint %d at line %d\n", bp.ID, line)
		return nil
	}
	if strings.ContainsAny(cmd.Target, " \t()[]") {
		return fmt.Errorf("break: invalid target %q", cmd.Target)
	}
	if d.isFunction(cmd.Target) {
		bp := d.breakpoints.AddFunction(cmd.Target, cond, cmd.Condition)
		fmt.Fprintf(d.out, "Breakpoint %d on function %s\n", bp.ID, cmd.Target)
		return nil
	}
	if cond != nil {
		return errors.New("break: conditions apply to line and function breakpoints")
	}
	bp := d.breakpoints.AddVariable(cmd.Target)
	d.watched[bp.ID] = d.observe(cmd.Target)
	fmt.Fprintf(d.out, "Breakpoint %d on variable %s\n", bp.ID, cmd.Target)
	return nil
}

func (d *Debugger) isFunction(name string) bool {
	if d.program != nil && ast.FindFunction(d.program, name) != nil {
		return true
	}
	if d.current != nil && d.current.Env != nil {
		if v, _, ok := d.current.Env.Lookup(name); ok {
			_, isFn := v.(*runtime.FunctionValue)
			return isFn
		}
	}
	return false
}

func (d *Debugger) listBreakpoints() {
	all := d.breakpoints.All()
	if len(all) == 0 {
		fmt.Fprintln(d.out, "No breakpoints.")
		return
	}
	fmt.Fprintf(d.out, "%-4s %-9s %-4s %-5s %s\n", "Num", "Type", "Enb", "Hits", "What")
	for _, bp := range all {
		enabled := "n"
		if bp.Enabled {
			enabled = "y"
		}
		fmt.Fprintf(d.out, "%-4d %-9s %-4s %-5d %s\n", bp.ID, bp.Kind, enabled, bp.Hits, bp.What())
	}
}

func (d *Debugger) printExpression(pc *ExecutionContext, text string) error {
	expr, err := d.parser.ParseExpression(text)
	if err != nil {
		return err
	}
	value, err := d.interp.EvaluateExpression(expr, pc.Env)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s = %s\n", text, runtime.Format(value))
	return nil
}

// printLocals shows the bindings visible in the innermost frame, stopping at
// the frame's own scope so enclosing globals are not repeated inside calls.
func (d *Debugger) printLocals(pc *ExecutionContext) {
	var stop *runtime.Environment
	if len(pc.Frames) > 0 {
		stop = pc.Frames[0].Env
	}
	values := make(map[string]runtime.Value)
	for env := pc.Env; env != nil; env = env.Parent() {
		for name, value := range env.Snapshot() {
			if _, seen := values[name]; !seen {
				values[name] = value
			}
		}
		if env == stop {
			break
		}
	}
	if len(values) == 0 {
		fmt.Fprintln(d.out, "No locals.")
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(d.out, "%s = %s\n", name, runtime.Format(values[name]))
	}
}

func (d *Debugger) printBacktrace(pc *ExecutionContext) {
	loc := pc.Location
	for idx, frame := range pc.Frames {
		fmt.Fprintf(d.out, "#%d %s at %s\n", idx, frame.Function, describeLocation(loc))
		loc = frame.CallSite
	}
	fmt.Fprintf(d.out, "#%d <main> at %s\n", len(pc.Frames), describeLocation(loc))
}

func (d *Debugger) listSource(pc *ExecutionContext) error {
	if len(d.sourceLines) == 0 {
		return errors.New("no source text available")
	}
	line := pc.Location.Line
	if line <= 0 || line > len(d.sourceLines) {
		return fmt.Errorf("no source for %s", describeLocation(pc.Location))
	}
	start := max(1, line-3)
	end := min(len(d.sourceLines), line+3)
	for n := start; n <= end; n++ {
		marker := "  "
		if n == line {
			marker = "=>"
		}
		fmt.Fprintf(d.out, "%s %4d  %s\n", marker, n, d.sourceLines[n-1])
	}
	return nil
}

// observe reads the binding of name visible from the paused scope, or from the
// global scope when nothing is paused.
func (d *Debugger) observe(name string) trackedValue {
	env := d.interp.Global()
	if d.current != nil {
		env = d.current.Env
	}
	return observeIn(env, name)
}

func observeIn(env *runtime.Environment, name string) trackedValue {
	if env == nil {
		return trackedValue{}
	}
	value, owner, ok := env.Lookup(name)
	if !ok {
		return trackedValue{}
	}
	return trackedValue{value: runtime.CopyValue(value), owner: owner, present: true}
}
