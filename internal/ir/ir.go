package ir

import "io"

// Build wraps a flat node sequence, as produced by the parser, into a
// Program ready for optimization.
func Build(body []Node) *Program {
	return &Program{Body: body}
}

// Optimize drives the standard pipeline to a fixed point over the whole
// tree, including nested loop and conditional bodies, and returns the
// rewritten program. The input program is not mutated in place at the top
// level; nested bodies are replaced as the recursive pass descends.
func Optimize(prog *Program, verbose bool, out io.Writer) *Program {
	p := NewPipeline()
	p.Verbose = verbose
	p.Out = out
	newBody, _ := p.RunRecursive(prog.Body)
	return &Program{Body: newBody}
}
