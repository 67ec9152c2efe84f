package debugger

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: CmdNone}},
		{"break 7", Command{Kind: CmdBreak, Target: "7"}},
		{"break 7 if alpha > 0", Command{Kind: CmdBreak, Target: "7", Condition: "alpha > 0"}},
		{"b factorial", Command{Kind: CmdBreak, Target: "factorial"}},
		{"watch total", Command{Kind: CmdWatch, Target: "total"}},
		{"delete 2", Command{Kind: CmdDelete, ID: 2}},
		{"enable 3", Command{Kind: CmdEnable, ID: 3}},
		{"disable 3", Command{Kind: CmdDisable, ID: 3}},
		{"info breakpoints", Command{Kind: CmdInfo}},
		{"c", Command{Kind: CmdContinue}},
		{"continue", Command{Kind: CmdContinue}},
		{"s", Command{Kind: CmdStep}},
		{"n", Command{Kind: CmdNext}},
		{"finish", Command{Kind: CmdFinish}},
		{"print x + 1", Command{Kind: CmdPrint, Target: "x + 1"}},
		{"p x", Command{Kind: CmdPrint, Target: "x"}},
		{"locals", Command{Kind: CmdLocals}},
		{"bt", Command{Kind: CmdBacktrace}},
		{"backtrace", Command{Kind: CmdBacktrace}},
		{"list", Command{Kind: CmdList}},
		{"help", Command{Kind: CmdHelp}},
		{"  q  ", Command{Kind: CmdQuit}},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.line)
		if err != nil {
			t.Fatalf("%q: %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %+v, got %+v", tc.line, tc.want, got)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"break", "break 7 if ", "delete x", "enable 0", "info frames", "print", "continue now", "watch a b"} {
		if _, err := ParseCommand(line); err == nil {
			t.Fatalf("%q: expected error", line)
		}
	}
	if _, err := ParseCommand("jump 4"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
}

func TestRegistryIDsAreNotReused(t *testing.T) {
	r := NewRegistry()
	first := r.AddLine(3, nil, "")
	if err := r.Delete(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second := r.AddFunction("f", nil, "")
	if second.ID == first.ID {
		t.Fatalf("expected a fresh id, got %d twice", first.ID)
	}
	if err := r.SetEnabled(first.ID, true); !errors.Is(err, ErrUnknownBreakpoint) {
		t.Fatalf("expected unknown breakpoint, got %v", err)
	}
	if got := r.atLine(3); len(got) != 0 {
		t.Fatalf("deleted breakpoint still matches: %v", got)
	}
	if got := r.onFunction("f"); len(got) != 1 || got[0].What() != "f" {
		t.Fatalf("expected function breakpoint, got %v", got)
	}
}
