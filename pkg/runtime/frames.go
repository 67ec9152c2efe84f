package runtime

import "madola/interpreter-go/pkg/ast"

// Frame records one active user function call.
type Frame struct {
	Function string
	CallSite ast.Location
	Env      *Environment
}

// CallStack tracks active calls, outermost first.
type CallStack struct {
	frames []Frame
}

func (s *CallStack) Push(frame Frame) {
	s.frames = append(s.frames, frame)
}

func (s *CallStack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

// Depth is the number of active calls; top-level code runs at depth 0.
func (s *CallStack) Depth() int {
	return len(s.frames)
}

// Top returns the innermost frame.
func (s *CallStack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Frames returns a copy of the stack, innermost first.
func (s *CallStack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		out[len(s.frames)-1-i] = f
	}
	return out
}

func (s *CallStack) Reset() {
	s.frames = s.frames[:0]
}
