// Package difftest runs a program through both interpreter backends and
// reports whether they agree, catching optimizer bugs that would
// otherwise only show up as a wrong answer on somebody's real program.
package difftest

import (
	"bytes"
	"fmt"

	"bfopt/internal/bytecode"
	"bfopt/internal/ir"
	"bfopt/internal/lexer"
	"bfopt/internal/parser"
	"bfopt/internal/vm"
)

// Result captures both backends' observable behavior for one run.
type Result struct {
	ReferenceOutput   []byte
	OptimizedOutput   []byte
	ReferenceHalted   bool
	OptimizedHalted   bool
	ReferenceConsumed int
	OptimizedConsumed int
}

// Match reports whether the two backends produced identical observable
// behavior: same output bytes, the same halt/no-halt outcome, and the
// same count of input bytes consumed. Input consumption matters as much
// as output — an optimizer bug that skips a Read would otherwise pass on
// any fixture whose output happens to agree.
func (r Result) Match() bool {
	return bytes.Equal(r.ReferenceOutput, r.OptimizedOutput) &&
		r.ReferenceHalted == r.OptimizedHalted &&
		r.ReferenceConsumed == r.OptimizedConsumed
}

// Run parses source once, executes it unoptimized on the reference
// interpreter and optimized-then-lowered on the dispatch-loop VM, each
// against its own copy of input, and reports how they compared.
func Run(source string, input []byte) (Result, error) {
	prog, err := parser.Parse(lexer.Lex(source))
	if err != nil {
		return Result{}, fmt.Errorf("difftest: parse failed: %w", err)
	}

	var result Result

	// A step cap the optimizer's own loop-shape analysis would never need
	// for a genuinely terminating program but which bounds the reference
	// backend's otherwise-unchecked re-evaluation of a loop the optimizer
	// proved infinite (e.g. an empty-bodied loop whose condition never
	// changes).
	const refStepBudget = 2_000_000

	refIn := vm.NewFixedInput(input)
	refOut := &vm.RecordingOutput{}
	ref := vm.NewReference(refIn, refOut)
	ref.MaxSteps = refStepBudget
	if err := ref.Run(prog); err != nil {
		switch err.(type) {
		case *vm.HaltError, *vm.StepLimitError:
			result.ReferenceHalted = true
		default:
			return Result{}, fmt.Errorf("difftest: reference backend failed: %w", err)
		}
	}
	result.ReferenceOutput = refOut.Bytes
	result.ReferenceConsumed = refIn.Consumed()

	optimized := ir.Optimize(prog, false, nil)
	ops := bytecode.Lower(optimized)

	optIn := vm.NewFixedInput(input)
	optOut := &vm.RecordingOutput{}
	opt := vm.New(optIn, optOut)
	if err := opt.Run(ops); err != nil {
		if _, ok := err.(*vm.HaltError); !ok {
			return Result{}, fmt.Errorf("difftest: optimized backend failed: %w", err)
		}
		result.OptimizedHalted = true
	}
	result.OptimizedOutput = optOut.Bytes
	result.OptimizedConsumed = optIn.Consumed()

	return result, nil
}
