package ir

import (
	"strings"
	"testing"
)

func TestPrintIndentsNestedBodies(t *testing.T) {
	prog := &Program{Body: []Node{
		&Mod{Kind: KindAdd, Amount: 1, Delta: 0},
		&Loop{CondDelta: 0, Body: []Node{
			&Write{Delta: 0},
		}},
	}}
	out := Print(prog)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if strings.HasPrefix(lines[0], " ") {
		t.Errorf("top-level node should not be indented: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "  ") {
		t.Errorf("loop body should be indented: %q", lines[2])
	}
}
