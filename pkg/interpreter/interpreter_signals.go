package interpreter

import "madola/interpreter-go/pkg/runtime"

type signalKind int

const (
	signalNone signalKind = iota
	signalReturn
	signalBreak
)

// controlSignal carries return/break out of nested blocks. It is threaded through
// statement dispatch as a plain value, never as an error.
type controlSignal struct {
	kind  signalKind
	value runtime.Value
}

var noSignal = controlSignal{}

func returnSignal(value runtime.Value) controlSignal {
	return controlSignal{kind: signalReturn, value: value}
}

func breakSignal() controlSignal {
	return controlSignal{kind: signalBreak}
}

func (s controlSignal) active() bool {
	return s.kind != signalNone
}
