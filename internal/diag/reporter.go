// Package diag renders compiler and runtime diagnostics with the same
// caret-style source framing the rest of the toolchain's CLI output uses.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"bfopt/internal/token"
)

// Level is the diagnostic severity.
type Level string

const (
	LevelError Level = "error"
	LevelNote  Level = "note"
)

// Diagnostic is a single reportable condition: a parse failure, or a
// runtime halt (InfiniteLoop, a failed AssertEquals). The caret always
// marks a single character — every diagnostic in this language points at
// exactly one command character.
type Diagnostic struct {
	Level    Level
	Message  string
	Pos      token.Position
	HelpText string
}

// Reporter formats diagnostics against a held copy of the source so it
// can show the offending line with a caret underneath it.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter for a given source file.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders d as a multi-line, colorized report.
func (r *Reporter) Format(d Diagnostic) string {
	var b strings.Builder

	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	if d.Level == LevelNote {
		levelColor = color.New(color.FgBlue, color.Bold).SprintFunc()
	}
	dim := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(&b, "%s: %s\n", levelColor(string(d.Level)), d.Message)

	width := lineNumberWidth(d.Pos.Line)
	indent := strings.Repeat(" ", width)
	fmt.Fprintf(&b, "%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, d.Pos.Line, d.Pos.Column)
	fmt.Fprintf(&b, "%s %s\n", indent, dim("│"))

	if d.Pos.Line >= 1 && d.Pos.Line <= len(r.lines) {
		line := r.lines[d.Pos.Line-1]
		fmt.Fprintf(&b, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, d.Pos.Line)), dim("│"), line)

		marker := strings.Repeat(" ", max(0, d.Pos.Column-1)) + levelColor("^")
		fmt.Fprintf(&b, "%s %s %s\n", indent, dim("│"), marker)
	}

	if d.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&b, "%s %s %s %s\n", indent, dim("│"), helpColor("help:"), d.HelpText)
	}

	b.WriteString("\n")
	return b.String()
}

func lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
