package ir

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Pass rewrites a node sequence and reports how many changes it made.
// Passes never mutate the slice in place; they return a fresh one so the
// pipeline can tell whether anything changed from the reported counts,
// not by tracking dirty bits through the tree.
type Pass interface {
	Name() string
	Run(body []Node) (out []Node, changes int)
}

// Pipeline runs a fixed ordered list of passes to a fixed point: it keeps
// running full rounds until one round makes zero changes across every
// pass. Order within a round matters (each pass sees the previous pass's
// output) but passes never skip a round once one of their siblings
// changed something.
type Pipeline struct {
	// Passes run on the top-level program body, where the simulator may
	// assume the zeroed-tape entry state.
	Passes []Pass
	// nested runs on loop and branch bodies, which enter with whatever
	// earlier iterations left on the tape — the simulator must not assume
	// untouched cells still hold zero there.
	nested []Pass
	// Verbose enables per-step progress logging to Out.
	Verbose bool
	Out     io.Writer
}

// NewPipeline builds the standard four-pass pipeline in the order the
// optimizer requires: Reorder, Collapse, loop-shape recognition, then the
// abstract simulator.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Passes: []Pass{
			&Reorder{},
			&Collapse{},
			&LoopShape{},
			&Simulate{},
		},
		nested: []Pass{
			&Reorder{},
			&Collapse{},
			&LoopShape{},
			&Simulate{EntryUnknown: true},
		},
	}
}

// Run drives the top-level passes to a fixed point and returns the
// optimized body.
func (p *Pipeline) Run(body []Node) []Node {
	out, _ := p.runLevel(body, p.Passes)
	return out
}

func (p *Pipeline) runLevel(body []Node, passes []Pass) ([]Node, int) {
	step := 0
	applied := 0
	for {
		step++
		total := 0
		for _, pass := range passes {
			var changes int
			body, changes = pass.Run(body)
			total += changes
			if p.Verbose && changes > 0 {
				p.logf("%s: %s\n", color.CyanString(pass.Name()), summarize(pass.Name(), changes))
			}
		}
		if p.Verbose {
			p.logf("Step %d did %d changes\n", step, total)
		}
		applied += total
		if total == 0 {
			return body, applied
		}
	}
}

func summarize(pass string, changes int) string {
	switch pass {
	case "reorder":
		return fmt.Sprintf("Swapped %d commands total", changes)
	case "collapse":
		return fmt.Sprintf("Collapse %d consecutive pure commands total", changes)
	case "loopshape":
		return fmt.Sprintf("Killed %d const loops!", changes)
	default:
		return fmt.Sprintf("%d changes", changes)
	}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Out == nil {
		return
	}
	fmt.Fprintf(p.Out, format, args...)
}

// RunRecursive drives the whole tree to a fixed point: it alternates
// between optimizing the current level and descending into every
// Loop/IfNonZero body, repeating until a full pass top-to-bottom reports
// no change anywhere. A nested body simplifying can change what the level
// above it is able to recognize (and vice versa), so one descent isn't
// enough in general.
func (p *Pipeline) RunRecursive(body []Node) (out []Node, changedAny bool) {
	return p.recurse(body, p.Passes)
}

func (p *Pipeline) recurse(body []Node, passes []Pass) (out []Node, changedAny bool) {
	current := body
	for {
		optimized, applied := p.runLevel(current, passes)
		changedHere := applied > 0

		changedBelow := false
		for _, n := range optimized {
			switch v := n.(type) {
			case *Loop:
				newBody, inner := p.recurse(v.Body, p.nestedPasses())
				v.Body = newBody
				changedBelow = changedBelow || inner
			case *IfNonZero:
				newBody, inner := p.recurse(v.Body, p.nestedPasses())
				v.Body = newBody
				changedBelow = changedBelow || inner
			}
		}

		changedAny = changedAny || changedHere || changedBelow
		if !changedHere && !changedBelow {
			return optimized, changedAny
		}
		current = optimized
	}
}

func (p *Pipeline) nestedPasses() []Pass {
	if p.nested != nil {
		return p.nested
	}
	return p.Passes
}
