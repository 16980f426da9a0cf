package vm

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"bfopt/internal/ir"
)

// StepLimitError is returned when a Reference run's MaxSteps budget is
// exhausted. The reference interpreter has no static proof of
// non-termination the way the optimizer's loop-shape recognizer does —
// it can only notice a loop is taking unreasonably long. Used by the
// differential harness to bound runs of source the optimizer proved
// infinite, which the reference would otherwise spin on forever.
type StepLimitError struct{}

func (e *StepLimitError) Error() string {
	return "reference vm: exceeded step budget, presumed non-terminating"
}

// Reference is the naive oracle interpreter: it walks tree IR directly,
// re-checking every loop condition itself rather than trusting any
// optimizer output. It exists purely so the differential test harness
// has a second, independently-implemented backend to compare the
// optimized VM against.
type Reference struct {
	tape [TapeSize]byte
	dp   int

	In  Input
	Out Output

	Warnings io.Writer

	Steps int64

	// MaxSteps bounds the total number of loop-header re-checks this run
	// will perform before giving up with StepLimitError. Zero means
	// unbounded, the right choice for real program execution; the
	// differential harness sets a generous finite cap since it must run
	// to completion within a test.
	MaxSteps   int64
	loopChecks int64
}

// NewReference builds a Reference VM wired to the given I/O.
func NewReference(in Input, out Output) *Reference {
	return &Reference{In: in, Out: out}
}

// Run executes prog to completion or to a halting diagnostic.
func (r *Reference) Run(prog *ir.Program) error {
	return r.runBody(prog.Body)
}

func (r *Reference) runBody(body []ir.Node) error {
	for _, n := range body {
		if err := r.runNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reference) runNode(n ir.Node) error {
	r.Steps++
	switch v := n.(type) {
	case *ir.Shift:
		r.dp = wrapIndex(r.dp + v.Delta)

	case *ir.Mod:
		addr := r.addr(v.Delta)
		if v.Kind == ir.KindSet {
			r.tape[addr] = v.Amount
		} else {
			r.tape[addr] = r.tape[addr] + v.Amount
		}

	case *ir.Combine:
		src := r.tape[r.addr(v.SrcDelta)]
		dst := r.addr(v.DstDelta)
		r.tape[dst] = r.tape[dst] + src*v.Mult

	case *ir.Read:
		b, err := r.In.ReadByte()
		if err != nil {
			return &IOError{Op: "read", Err: err}
		}
		r.tape[r.addr(v.Delta)] = b

	case *ir.Write:
		if err := r.Out.WriteByte(r.tape[r.addr(v.Delta)]); err != nil {
			return &IOError{Op: "write", Err: err}
		}

	case *ir.WriteConst:
		if err := r.Out.WriteByte(v.Byte); err != nil {
			return &IOError{Op: "write", Err: err}
		}

	case *ir.AssertEquals:
		if got := r.tape[r.addr(v.Delta)]; got != v.Value {
			r.warn(v.Delta, v.Value, got)
		}

	case *ir.InfiniteLoop:
		return &HaltError{IP: -1}

	case *ir.IfNonZero:
		if r.tape[r.addr(v.CondDelta)] != 0 {
			return r.runBody(v.Body)
		}

	case *ir.Loop:
		for r.tape[r.addr(v.CondDelta)] != 0 {
			if err := r.checkBudget(); err != nil {
				return err
			}
			if err := r.runBody(v.Body); err != nil {
				return err
			}
		}

	case *ir.ShiftLoop:
		for r.tape[r.addr(v.CondDelta)] != 0 {
			if err := r.checkBudget(); err != nil {
				return err
			}
			r.dp = wrapIndex(r.dp + v.Shift)
		}

	default:
		return fmt.Errorf("reference vm: unhandled node %T", n)
	}
	return nil
}

// checkBudget counts one loop-header re-check and fails once MaxSteps is
// exceeded. This lives outside runNode's per-body-node Steps counter
// because an empty-bodied loop (e.g. "+[]") never runs a body node at
// all, so Steps alone never advances and a genuinely non-terminating
// loop would otherwise spin forever undetected.
func (r *Reference) checkBudget() error {
	r.loopChecks++
	if r.MaxSteps > 0 && r.loopChecks > r.MaxSteps {
		return &StepLimitError{}
	}
	return nil
}

func (r *Reference) addr(delta int) int {
	return wrapIndex(r.dp + delta)
}

func (r *Reference) warn(delta int, want, got byte) {
	if r.Warnings == nil {
		return
	}
	msg := color.YellowString("assertion mismatch (Δ%+d): expected %d, got %d", delta, want, got)
	fmt.Fprintln(r.Warnings, msg)
}
