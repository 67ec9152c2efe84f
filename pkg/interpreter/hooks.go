package interpreter

import (
	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

// Event describes one suspension point offered to a Hook. Node is the statement
// for statement events and the call expression for call events. Depth is the
// number of active user calls; top-level code is depth 0.
type Event struct {
	Node     ast.Node
	Location ast.Location
	Env      *runtime.Environment
	Depth    int
	Function string
}

// Hook observes evaluation. A non-nil error aborts the run; hooks return an error
// satisfying IsTerminated to stop it cleanly.
//
// EnterCall fires after the callee frame is pushed and ExitCall before it is
// popped, both at the callee's depth. Returned fires after the pop at the
// caller's depth with the call site as location.
type Hook interface {
	BeforeStatement(ev Event) error
	AfterStatement(ev Event) error
	EnterCall(ev Event) error
	ExitCall(ev Event) error
	Returned(ev Event) error
}

// NopHook implements Hook with no-ops; embed it to override selected methods.
type NopHook struct{}

func (NopHook) BeforeStatement(Event) error { return nil }
func (NopHook) AfterStatement(Event) error  { return nil }
func (NopHook) EnterCall(Event) error       { return nil }
func (NopHook) ExitCall(Event) error        { return nil }
func (NopHook) Returned(Event) error        { return nil }
