package vm

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"bfopt/internal/bytecode"
)

// TapeSize is the number of cells on the tape, fixed at 30000 per this
// language's runtime model.
const TapeSize = 30000

// HaltError is returned by Run when execution reaches a proven
// InfiniteLoop marker. It is a diagnostic, not a recoverable condition:
// the caller should report it and exit nonzero.
type HaltError struct {
	IP int
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("program halted: reached a proven infinite loop at instruction %d", e.IP)
}

// VM is the optimized dispatch-loop interpreter. It executes flattened
// bytecode directly, with no tree walking and no per-node allocation: a
// flat instruction array, an explicit instruction pointer, and a switch
// dispatch per op.
type VM struct {
	tape [TapeSize]byte
	dp   int

	In  Input
	Out Output

	// Warnings receives a line for every AssertEquals mismatch observed.
	// These never stop execution — they indicate a compiler bug in an
	// earlier pass, not a fault in the program being run. Nil discards
	// them.
	Warnings io.Writer

	// Steps counts dispatch-loop iterations, for parity with the
	// reference interpreter's instruction counter.
	Steps int64
}

// New builds a VM wired to the given I/O.
func New(in Input, out Output) *VM {
	return &VM{In: in, Out: out}
}

// Run executes ops to completion or to a halting diagnostic.
func (m *VM) Run(ops []bytecode.Op) error {
	ip := 0
	for ip < len(ops) {
		m.Steps++
		switch op := ops[ip].(type) {
		case *bytecode.AddPtr:
			m.dp = wrapIndex(m.dp + op.N)
		case *bytecode.SubPtr:
			m.dp = wrapIndex(m.dp - op.N)
		case *bytecode.AddData:
			addr := m.addr(op.Delta)
			m.tape[addr] = m.tape[addr] + op.Amount
		case *bytecode.SetData:
			m.tape[m.addr(op.Delta)] = op.Amount
		case *bytecode.Combine:
			src := m.tape[m.addr(op.SrcDelta)]
			dst := m.addr(op.DstDelta)
			m.tape[dst] = m.tape[dst] + src*op.Mult
		case *bytecode.Read:
			b, err := m.In.ReadByte()
			if err != nil {
				return &IOError{Op: "read", Err: err}
			}
			m.tape[m.addr(op.Delta)] = b
		case *bytecode.Write:
			if err := m.Out.WriteByte(m.tape[m.addr(op.Delta)]); err != nil {
				return &IOError{Op: "write", Err: err}
			}
		case *bytecode.WriteConst:
			if err := m.Out.WriteByte(op.Byte); err != nil {
				return &IOError{Op: "write", Err: err}
			}
		case *bytecode.JumpIfZero:
			if m.tape[m.addr(op.CondDelta)] == 0 {
				ip = op.Target
				continue
			}
		case *bytecode.JumpIfNonZero:
			if m.tape[m.addr(op.CondDelta)] != 0 {
				ip = op.Target
				continue
			}
		case *bytecode.AssertEquals:
			if got := m.tape[m.addr(op.Delta)]; got != op.Value {
				m.warn(ip, op.Delta, op.Value, got)
			}
		case *bytecode.InfiniteLoop:
			return &HaltError{IP: ip}
		default:
			return fmt.Errorf("vm: unhandled opcode %T at %d", op, ip)
		}
		ip++
	}
	return nil
}

func (m *VM) addr(delta int) int {
	return wrapIndex(m.dp + delta)
}

func wrapIndex(i int) int {
	i %= TapeSize
	if i < 0 {
		i += TapeSize
	}
	return i
}

func (m *VM) warn(ip, delta int, want, got byte) {
	if m.Warnings == nil {
		return
	}
	msg := color.YellowString("assertion mismatch at instruction %d (Δ%+d): expected %d, got %d", ip, delta, want, got)
	fmt.Fprintln(m.Warnings, msg)
}
