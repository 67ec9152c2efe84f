package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUndefinedVariable
	KindUndefinedFunction
	KindArity
	KindTypeMismatch
	KindDomain
	KindDivisionByZero
	KindDimension
	KindImport
	KindPiecewise
	KindIndex
	KindTerminated
)

func (k ErrorKind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindUndefinedVariable:
		return "UndefinedVariable"
	case KindUndefinedFunction:
		return "UndefinedFunction"
	case KindArity:
		return "Arity"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindDomain:
		return "Domain"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindDimension:
		return "Dimension"
	case KindImport:
		return "Import"
	case KindPiecewise:
		return "Piecewise"
	case KindIndex:
		return "Index"
	case KindTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RuntimeError is the single error type that escapes evaluation. Location is the
// innermost statement or expression that failed; Stack is the call stack at that
// point, innermost first.
type RuntimeError struct {
	Kind     ErrorKind
	Message  string
	Location ast.Location
	Stack    []runtime.Frame
	err      error
	attached bool
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.err
}

func newError(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrTerminated is wrapped by the error returned when a host stops the run.
var ErrTerminated = errors.New("execution terminated")

func terminatedError(cause error) *RuntimeError {
	msg := ErrTerminated.Error()
	if cause != nil && !errors.Is(cause, ErrTerminated) {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &RuntimeError{Kind: KindTerminated, Message: msg, err: ErrTerminated}
}

// IsTerminated reports whether err ended the run because a host asked it to.
func IsTerminated(err error) bool {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Kind == KindTerminated
	}
	return errors.Is(err, ErrTerminated)
}

// asRuntimeError normalizes any error raised during evaluation.
func asRuntimeError(err error) *RuntimeError {
	if err == nil {
		return nil
	}
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr
	}
	switch {
	case errors.Is(err, runtime.ErrUndefinedVariable):
		return &RuntimeError{Kind: KindUndefinedVariable, Message: err.Error(), err: err}
	case errors.Is(err, ErrTerminated):
		return terminatedError(nil)
	default:
		return &RuntimeError{Kind: KindInternal, Message: err.Error(), err: err}
	}
}

// attachRuntimeContext records the failing node and the call stack the first time
// an error passes through a located node.
func (i *Interpreter) attachRuntimeContext(err error, node ast.Node) error {
	if err == nil {
		return nil
	}
	rerr := asRuntimeError(err)
	if !rerr.attached {
		rerr.Stack = i.stack.Frames()
		rerr.attached = true
	}
	if rerr.Location.IsZero() && node != nil {
		rerr.Location = node.Location()
	}
	return rerr
}

type RuntimeDiagnosticNote struct {
	Message  string
	Location ast.Location
}

type RuntimeDiagnostic struct {
	Kind     ErrorKind
	Message  string
	Location ast.Location
	Notes    []RuntimeDiagnosticNote
}

// BuildRuntimeDiagnostic turns an evaluation error into a diagnostic with one
// "called from here" note per active call site.
func BuildRuntimeDiagnostic(err error) RuntimeDiagnostic {
	rerr := asRuntimeError(err)
	if rerr == nil {
		return RuntimeDiagnostic{}
	}
	diag := RuntimeDiagnostic{
		Kind:     rerr.Kind,
		Message:  rerr.Message,
		Location: rerr.Location,
	}
	for _, frame := range rerr.Stack {
		if len(diag.Notes) >= 8 {
			break
		}
		if frame.CallSite.IsZero() || frame.CallSite == diag.Location {
			continue
		}
		diag.Notes = append(diag.Notes, RuntimeDiagnosticNote{
			Message:  "called from here",
			Location: frame.CallSite,
		})
	}
	return diag
}

func DescribeRuntimeDiagnostic(diag RuntimeDiagnostic) string {
	message := strings.TrimSpace(diag.Message)
	message = strings.TrimSpace(strings.TrimPrefix(message, "runtime:"))
	var b strings.Builder
	if location := formatRuntimeLocation(diag.Location); location != "" {
		fmt.Fprintf(&b, "runtime: %s %s", location, message)
	} else {
		fmt.Fprintf(&b, "runtime: %s", message)
	}
	for _, note := range diag.Notes {
		if noteLoc := formatRuntimeLocation(note.Location); noteLoc != "" {
			fmt.Fprintf(&b, "\nnote: %s %s", noteLoc, note.Message)
		} else {
			fmt.Fprintf(&b, "\nnote: %s", note.Message)
		}
	}
	return b.String()
}

func formatRuntimeLocation(loc ast.Location) string {
	switch {
	case loc.Line > 0 && loc.Column > 0:
		return fmt.Sprintf("line %d, column %d", loc.Line, loc.Column)
	case loc.Line > 0:
		return fmt.Sprintf("line %d", loc.Line)
	default:
		return ""
	}
}
