package debugger

import (
	"bufio"
	"fmt"
	"io"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/runtime"
)

type State int

const (
	Running State = iota
	Paused
	StepInto
	StepOver
	StepOut
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case StepInto:
		return "step_into"
	case StepOver:
		return "step_over"
	case StepOut:
		return "step_out"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// PauseReason says which check suspended the program.
type PauseReason int

const (
	ReasonEntry PauseReason = iota
	ReasonBreakpoint
	ReasonStep
	// ReasonFrameExit pauses after a function body finished, before its frame
	// is popped.
	ReasonFrameExit
)

func (r PauseReason) String() string {
	switch r {
	case ReasonEntry:
		return "entry"
	case ReasonBreakpoint:
		return "breakpoint"
	case ReasonStep:
		return "step"
	case ReasonFrameExit:
		return "frame_exit"
	default:
		return fmt.Sprintf("unknown_reason_%d", int(r))
	}
}

// ExecutionContext is the paused program state handed to listeners and
// command sources.
type ExecutionContext struct {
	Reason     PauseReason
	Breakpoint *Breakpoint
	Node       ast.Node
	Location   ast.Location
	Depth      int
	Function   string
	Env        *runtime.Environment
	Frames     []runtime.Frame
}

// Listener receives debugger events synchronously from the command loop.
type Listener interface {
	OnBreakpointHit(bp Breakpoint)
	OnStep(ctx ExecutionContext)
	OnVariableChange(name string, before, after runtime.Value)
	OnTerminated(res *interpreter.Result)
}

// NopListener implements Listener with no-ops; embed it to override selected
// events.
type NopListener struct{}

func (NopListener) OnBreakpointHit(Breakpoint)                            {}
func (NopListener) OnStep(ExecutionContext)                               {}
func (NopListener) OnVariableChange(string, runtime.Value, runtime.Value) {}
func (NopListener) OnTerminated(*interpreter.Result)                      {}

// CommandSource supplies command lines while the program is paused. Returning
// io.EOF ends the session like `quit`.
type CommandSource interface {
	ReadCommand(ctx ExecutionContext) (string, error)
}

type lineSource struct {
	scanner *bufio.Scanner
	prompt  io.Writer
}

// NewLineSource reads one command per line from r, writing a prompt to prompt
// when it is non-nil.
func NewLineSource(r io.Reader, prompt io.Writer) CommandSource {
	return &lineSource{scanner: bufio.NewScanner(r), prompt: prompt}
}

func (s *lineSource) ReadCommand(ExecutionContext) (string, error) {
	if s.prompt != nil {
		fmt.Fprint(s.prompt, "(madola) ")
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// ScriptSource replays fixed commands, then reports io.EOF.
type ScriptSource struct {
	Commands []string
	next     int
}

func (s *ScriptSource) ReadCommand(ExecutionContext) (string, error) {
	if s.next >= len(s.Commands) {
		return "", io.EOF
	}
	cmd := s.Commands[s.next]
	s.next++
	return cmd, nil
}

func describeLocation(loc ast.Location) string {
	switch {
	case loc.Line > 0 && loc.Column > 0:
		return fmt.Sprintf("line %d, column %d", loc.Line, loc.Column)
	case loc.Line > 0:
		return fmt.Sprintf("line %d", loc.Line)
	default:
		return "unknown location"
	}
}

func functionLabel(name string) string {
	if name == "" {
		return "<main>"
	}
	return name
}
