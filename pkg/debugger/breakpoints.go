package debugger

import (
	"errors"
	"fmt"
	"sort"

	"madola/interpreter-go/pkg/ast"
)

type BreakpointKind int

const (
	BreakLine BreakpointKind = iota
	BreakFunction
	BreakVariable
	// BreakWatch reports variable changes without pausing.
	BreakWatch
)

func (k BreakpointKind) String() string {
	switch k {
	case BreakLine:
		return "line"
	case BreakFunction:
		return "function"
	case BreakVariable:
		return "variable"
	case BreakWatch:
		return "watch"
	default:
		return fmt.Sprintf("unknown_breakpoint_%d", int(k))
	}
}

var ErrUnknownBreakpoint = errors.New("unknown breakpoint")

type Breakpoint struct {
	ID            int
	Kind          BreakpointKind
	Line          int
	Name          string
	Condition     ast.Expression
	ConditionText string
	Enabled       bool
	Hits          int
}

// What describes the breakpoint target the way `info breakpoints` lists it.
func (b *Breakpoint) What() string {
	var what string
	switch b.Kind {
	case BreakLine:
		what = fmt.Sprintf("line %d", b.Line)
	default:
		what = b.Name
	}
	if b.ConditionText != "" {
		what += " if " + b.ConditionText
	}
	return what
}

// Registry holds breakpoints by id. Ids are never reused within a registry.
type Registry struct {
	nextID int
	items  map[int]*Breakpoint
}

func NewRegistry() *Registry {
	return &Registry{nextID: 1, items: make(map[int]*Breakpoint)}
}

func (r *Registry) add(bp *Breakpoint) *Breakpoint {
	bp.ID = r.nextID
	bp.Enabled = true
	r.nextID++
	r.items[bp.ID] = bp
	return bp
}

func (r *Registry) AddLine(line int, cond ast.Expression, condText string) *Breakpoint {
	return r.add(&Breakpoint{Kind: BreakLine, Line: line, Condition: cond, ConditionText: condText})
}

func (r *Registry) AddFunction(name string, cond ast.Expression, condText string) *Breakpoint {
	return r.add(&Breakpoint{Kind: BreakFunction, Name: name, Condition: cond, ConditionText: condText})
}

func (r *Registry) AddVariable(name string) *Breakpoint {
	return r.add(&Breakpoint{Kind: BreakVariable, Name: name})
}

func (r *Registry) AddWatch(name string) *Breakpoint {
	return r.add(&Breakpoint{Kind: BreakWatch, Name: name})
}

func (r *Registry) Get(id int) (*Breakpoint, error) {
	bp, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownBreakpoint, id)
	}
	return bp, nil
}

func (r *Registry) Delete(id int) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	delete(r.items, id)
	return nil
}

func (r *Registry) SetEnabled(id int, enabled bool) error {
	bp, err := r.Get(id)
	if err != nil {
		return err
	}
	bp.Enabled = enabled
	return nil
}

// All returns every breakpoint ordered by id.
func (r *Registry) All() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(r.items))
	for _, bp := range r.items {
		out = append(out, bp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r *Registry) Len() int {
	return len(r.items)
}

// enabled returns the enabled breakpoints accepted by match, ordered by id.
func (r *Registry) enabled(match func(*Breakpoint) bool) []*Breakpoint {
	var out []*Breakpoint
	for _, bp := range r.All() {
		if bp.Enabled && match(bp) {
			out = append(out, bp)
		}
	}
	return out
}

func (r *Registry) atLine(line int) []*Breakpoint {
	return r.enabled(func(bp *Breakpoint) bool { return bp.Kind == BreakLine && bp.Line == line })
}

func (r *Registry) onFunction(name string) []*Breakpoint {
	return r.enabled(func(bp *Breakpoint) bool { return bp.Kind == BreakFunction && bp.Name == name })
}

func (r *Registry) onVariables() []*Breakpoint {
	return r.enabled(func(bp *Breakpoint) bool { return bp.Kind == BreakVariable || bp.Kind == BreakWatch })
}
