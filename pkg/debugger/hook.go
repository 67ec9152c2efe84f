package debugger

import (
	"fmt"

	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/runtime"
)

// debugHook is the suspension check installed on the interpreter for the
// duration of Run.
type debugHook struct {
	d *Debugger
}

func (h *debugHook) BeforeStatement(ev interpreter.Event) error {
	d := h.d
	if d.entry {
		d.entry = false
		return d.pause(ev, ReasonEntry, nil)
	}
	for _, bp := range d.breakpoints.atLine(ev.Location.Line) {
		if d.conditionHolds(bp, ev) {
			return d.hit(bp, ev)
		}
	}
	switch d.state {
	case StepInto:
		return d.pause(ev, ReasonStep, nil)
	case StepOver:
		if ev.Depth <= d.issueDepth {
			return d.pause(ev, ReasonStep, nil)
		}
	}
	return nil
}

func (h *debugHook) AfterStatement(ev interpreter.Event) error {
	return h.d.checkVariables(ev)
}

func (h *debugHook) EnterCall(ev interpreter.Event) error {
	d := h.d
	for _, bp := range d.breakpoints.onFunction(ev.Function) {
		if d.conditionHolds(bp, ev) {
			return d.hit(bp, ev)
		}
	}
	return nil
}

// ExitCall ends a `next` issued inside the finishing frame.
func (h *debugHook) ExitCall(ev interpreter.Event) error {
	d := h.d
	if d.state == StepOver && ev.Depth == d.issueDepth {
		return d.pause(ev, ReasonFrameExit, nil)
	}
	return nil
}

// Returned ends a `finish` once the stack is shallower than where it was issued.
func (h *debugHook) Returned(ev interpreter.Event) error {
	d := h.d
	if d.state == StepOut && ev.Depth < d.issueDepth {
		return d.pause(ev, ReasonStep, nil)
	}
	return nil
}

func (d *Debugger) hit(bp *Breakpoint, ev interpreter.Event) error {
	bp.Hits++
	d.logger.InfoContext(d.ctx, "breakpoint hit", "id", bp.ID, "what", bp.What(), "line", ev.Location.Line, "hits", bp.Hits)
	return d.pause(ev, ReasonBreakpoint, bp)
}

// conditionHolds evaluates a breakpoint condition in the paused scope. A
// condition that fails to evaluate is reported and counts as a match.
func (d *Debugger) conditionHolds(bp *Breakpoint, ev interpreter.Event) bool {
	if bp.Condition == nil {
		return true
	}
	value, err := d.interp.EvaluateExpression(bp.Condition, ev.Env)
	if err != nil {
		fmt.Fprintf(d.out, "error in condition of breakpoint %d: %s\n", bp.ID, err)
		return true
	}
	num, ok := value.(runtime.NumberValue)
	if !ok {
		fmt.Fprintf(d.out, "condition of breakpoint %d is %s, not a number\n", bp.ID, value.Kind())
		return true
	}
	return num.Val != 0
}

// checkVariables compares watched names against their last observed binding.
// A binding that moves to another scope is re-based without reporting; a
// value change within the same scope, or a name becoming bound, is a change.
func (d *Debugger) checkVariables(ev interpreter.Event) error {
	var pauseOn *Breakpoint
	for _, bp := range d.breakpoints.onVariables() {
		last := d.watched[bp.ID]
		cur := observeIn(ev.Env, bp.Name)
		d.watched[bp.ID] = cur

		changed := false
		switch {
		case !cur.present:
		case !last.present:
			changed = true
		case last.owner != cur.owner:
		default:
			changed = !runtime.ValuesEqual(last.value, cur.value)
		}
		if !changed {
			continue
		}

		bp.Hits++
		before := "<undefined>"
		if last.present {
			before = runtime.Format(last.value)
		}
		label := "Breakpoint"
		if bp.Kind == BreakWatch {
			label = "Watchpoint"
		}
		fmt.Fprintf(d.out, "%s %d: %s changed from %s to %s\n", label, bp.ID, bp.Name, before, runtime.Format(cur.value))
		for _, l := range d.listeners {
			l.OnVariableChange(bp.Name, last.value, cur.value)
		}
		if bp.Kind == BreakVariable && pauseOn == nil {
			pauseOn = bp
		}
	}
	if pauseOn != nil {
		d.logger.InfoContext(d.ctx, "variable breakpoint hit", "id", pauseOn.ID, "name", pauseOn.Name, "line", ev.Location.Line)
		return d.pause(ev, ReasonBreakpoint, pauseOn)
	}
	return nil
}
