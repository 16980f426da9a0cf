package ir

import (
	"fmt"
	"strings"
)

// Print renders a program as an indented tree, one node per line. This is
// debug/trace output only — never parsed back in, so its exact format
// isn't part of any contract.
func Print(prog *Program) string {
	var b strings.Builder
	printBody(&b, prog.Body, 0)
	return b.String()
}

func printBody(b *strings.Builder, body []Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range body {
		fmt.Fprintf(b, "%s%s\n", indent, n.String())
		switch v := n.(type) {
		case *Loop:
			printBody(b, v.Body, depth+1)
		case *IfNonZero:
			printBody(b, v.Body, depth+1)
		}
	}
}
