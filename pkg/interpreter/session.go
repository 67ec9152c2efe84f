package interpreter

import (
	"errors"
	"strings"

	"madola/interpreter-go/pkg/runtime"
)

// Result reports the outcome of one run.
type Result struct {
	Output     []string           `json:"output"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Diagnostic *RuntimeDiagnostic `json:"diagnostic,omitempty"`
	Files      []GeneratedFile    `json:"files,omitempty"`
	Plots      []PlotDescriptor   `json:"plots,omitempty"`
	OutputName string             `json:"outputName,omitempty"`
	Err        error              `json:"-"`
}

// Text joins the output log with newlines.
func (r *Result) Text() string {
	return strings.Join(r.Output, "\n")
}

// Terminated reports whether the run was stopped by the host.
func (r *Result) Terminated() bool {
	return r != nil && IsTerminated(r.Err)
}

type moduleInstance struct {
	name    string
	exports map[string]runtime.Value
}

// session holds everything one run accumulates.
type session struct {
	output     []string
	files      []GeneratedFile
	plots      []PlotDescriptor
	outputName string
	modules    map[string]*moduleInstance
	loading    []string
}

func newSession(outputName string) *session {
	return &session{
		outputName: outputName,
		modules:    make(map[string]*moduleInstance),
	}
}

func (s *session) isLoading(name string) bool {
	for _, n := range s.loading {
		if n == name {
			return true
		}
	}
	return false
}

func (s *session) result(err error) *Result {
	res := &Result{
		Output:     append([]string(nil), s.output...),
		Files:      append([]GeneratedFile(nil), s.files...),
		Plots:      append([]PlotDescriptor(nil), s.plots...),
		OutputName: s.outputName,
		Success:    err == nil,
	}
	if err != nil {
		rerr := asRuntimeError(err)
		diag := BuildRuntimeDiagnostic(rerr)
		res.Err = rerr
		res.Diagnostic = &diag
		res.Error = DescribeRuntimeDiagnostic(diag)
	}
	return res
}

var errNoResolver = errors.New("no module resolver configured")
