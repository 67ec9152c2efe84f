package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdBreak
	CmdWatch
	CmdDelete
	CmdEnable
	CmdDisable
	CmdInfo
	CmdContinue
	CmdStep
	CmdNext
	CmdFinish
	CmdPrint
	CmdLocals
	CmdBacktrace
	CmdList
	CmdHelp
	CmdQuit
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is one parsed line of debugger input. Target holds the break/watch
// target or the print expression; Condition holds the text after `if`.
type Command struct {
	Kind      CommandKind
	Target    string
	Condition string
	ID        int
}

// resumes reports whether the command hands control back to the evaluator.
func (c Command) resumes() bool {
	switch c.Kind {
	case CmdContinue, CmdStep, CmdNext, CmdFinish, CmdQuit:
		return true
	}
	return false
}

var commandWords = map[string]CommandKind{
	"break":     CmdBreak,
	"b":         CmdBreak,
	"watch":     CmdWatch,
	"delete":    CmdDelete,
	"d":         CmdDelete,
	"enable":    CmdEnable,
	"disable":   CmdDisable,
	"info":      CmdInfo,
	"continue":  CmdContinue,
	"c":         CmdContinue,
	"step":      CmdStep,
	"s":         CmdStep,
	"next":      CmdNext,
	"n":         CmdNext,
	"finish":    CmdFinish,
	"f":         CmdFinish,
	"print":     CmdPrint,
	"p":         CmdPrint,
	"locals":    CmdLocals,
	"backtrace": CmdBacktrace,
	"bt":        CmdBacktrace,
	"list":      CmdList,
	"l":         CmdList,
	"help":      CmdHelp,
	"h":         CmdHelp,
	"quit":      CmdQuit,
	"q":         CmdQuit,
}

// ParseCommand parses one line of the debugger command surface. Blank lines
// parse to CmdNone.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CmdNone}, nil
	}
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	kind, ok := commandWords[word]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, word)
	}
	cmd := Command{Kind: kind}
	switch kind {
	case CmdBreak:
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Command{}, fmt.Errorf("break: missing line, function or variable")
		}
		cmd.Target = fields[0]
		if tail := strings.TrimSpace(strings.TrimPrefix(rest, cmd.Target)); tail != "" {
			cond, ok := strings.CutPrefix(tail, "if")
			if !ok || (cond != "" && cond[0] != ' ' && cond[0] != '\t') {
				return Command{}, fmt.Errorf("break: expected 'if <condition>' after %s", cmd.Target)
			}
			cmd.Condition = strings.TrimSpace(cond)
			if cmd.Condition == "" {
				return Command{}, fmt.Errorf("break: empty condition")
			}
		}
	case CmdWatch:
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return Command{}, fmt.Errorf("watch: expected a variable name")
		}
		cmd.Target = rest
	case CmdDelete, CmdEnable, CmdDisable:
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return Command{}, fmt.Errorf("%s: expected a breakpoint id, got %q", word, rest)
		}
		cmd.ID = id
	case CmdInfo:
		if rest != "breakpoints" && rest != "b" && rest != "break" {
			return Command{}, fmt.Errorf("info: unknown subject %q", rest)
		}
	case CmdPrint:
		if rest == "" {
			return Command{}, fmt.Errorf("print: missing expression")
		}
		cmd.Target = rest
	default:
		if rest != "" {
			return Command{}, fmt.Errorf("%s takes no arguments", word)
		}
	}
	return cmd, nil
}

const helpText = `break <line> [if <expr>]   pause before statements on a line
break <function>           pause when the function is called
break <variable>           pause after a statement changes the variable
watch <variable>           report changes without pausing
delete|enable|disable <id> manage breakpoints
info breakpoints           list breakpoints
continue|c                 run until the next breakpoint
step|s                     run one statement, entering calls
next|n                     run one statement at this depth
finish|f                   run until the current function returns
print|p <expr>             evaluate an expression
locals                     show variables of the innermost frame
backtrace|bt               show the call stack
list                       show source around the current line
quit|q                     stop the program`
