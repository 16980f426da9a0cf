package diag

import (
	"strings"
	"testing"

	"bfopt/internal/token"
)

func TestFormatIncludesFilenameAndPosition(t *testing.T) {
	r := NewReporter("loop.bf", "++[>+<\n-]")
	out := r.Format(Diagnostic{
		Level:   LevelError,
		Message: "'[' is never closed",
		Pos:     token.Position{Line: 1, Column: 3, Offset: 2},
	})

	if !strings.Contains(out, "loop.bf:1:3") {
		t.Fatalf("expected location in output, got:\n%s", out)
	}
	if !strings.Contains(out, "'[' is never closed") {
		t.Fatalf("expected message in output, got:\n%s", out)
	}
}

func TestFormatIncludesHelpText(t *testing.T) {
	r := NewReporter("x.bf", "]")
	out := r.Format(Diagnostic{
		Level:    LevelError,
		Message:  "']' has no matching '['",
		Pos:      token.Position{Line: 1, Column: 1, Offset: 0},
		HelpText: "remove the stray ']' or add a matching '[' before it",
	})

	if !strings.Contains(out, "help:") {
		t.Fatalf("expected help text, got:\n%s", out)
	}
}
