// Package bytecode flattens tree IR into a linear instruction sequence
// with explicit jump targets, the form the dispatch-loop VM executes.
//
// Loops and conditionals lower to the classic two-jump shape: a forward
// skip-if-zero at the top and, for loops, a backward jump-if-nonzero at
// the bottom, with jump targets backpatched once the body's instruction
// count is known.
package bytecode

import (
	"fmt"

	"bfopt/internal/ir"
)

// Op is one flat instruction. Unlike tree IR nodes, control flow here is
// expressed as absolute instruction-pointer jumps, not owned child bodies.
type Op interface {
	String() string
	opCode()
}

type AddPtr struct{ N int }
type SubPtr struct{ N int }

type AddData struct {
	Amount byte
	Delta  int
}

type SetData struct {
	Amount byte
	Delta  int
}

type Combine struct {
	SrcDelta int
	DstDelta int
	Mult     byte
}

type Read struct{ Delta int }
type Write struct{ Delta int }
type WriteConst struct{ Byte byte }

// JumpIfZero jumps to Target when the cell at dp+CondDelta is zero.
type JumpIfZero struct {
	CondDelta int
	Target    int
}

// JumpIfNonZero jumps to Target when the cell at dp+CondDelta is nonzero.
type JumpIfNonZero struct {
	CondDelta int
	Target    int
}

type InfiniteLoop struct{}

type AssertEquals struct {
	Delta int
	Value byte
}

func (*AddPtr) opCode()        {}
func (*SubPtr) opCode()        {}
func (*AddData) opCode()       {}
func (*SetData) opCode()       {}
func (*Combine) opCode()       {}
func (*Read) opCode()          {}
func (*Write) opCode()         {}
func (*WriteConst) opCode()    {}
func (*JumpIfZero) opCode()    {}
func (*JumpIfNonZero) opCode() {}
func (*InfiniteLoop) opCode()  {}
func (*AssertEquals) opCode()  {}

func (o *AddPtr) String() string  { return fmt.Sprintf("AddPtr(%d)", o.N) }
func (o *SubPtr) String() string  { return fmt.Sprintf("SubPtr(%d)", o.N) }
func (o *AddData) String() string { return fmt.Sprintf("AddData(%d, Δ%+d)", o.Amount, o.Delta) }
func (o *SetData) String() string { return fmt.Sprintf("SetData(%d, Δ%+d)", o.Amount, o.Delta) }
func (o *Combine) String() string {
	return fmt.Sprintf("Combine(src=Δ%+d, dst=Δ%+d, ×%d)", o.SrcDelta, o.DstDelta, o.Mult)
}
func (o *Read) String() string       { return fmt.Sprintf("Read(Δ%+d)", o.Delta) }
func (o *Write) String() string      { return fmt.Sprintf("Write(Δ%+d)", o.Delta) }
func (o *WriteConst) String() string { return fmt.Sprintf("WriteConst(%d)", o.Byte) }
func (o *JumpIfZero) String() string {
	return fmt.Sprintf("JumpIfZero(Δ%+d -> %d)", o.CondDelta, o.Target)
}
func (o *JumpIfNonZero) String() string {
	return fmt.Sprintf("JumpIfNonZero(Δ%+d -> %d)", o.CondDelta, o.Target)
}
func (o *InfiniteLoop) String() string { return "InfiniteLoop" }
func (o *AssertEquals) String() string {
	return fmt.Sprintf("AssertEquals(Δ%+d == %d)", o.Delta, o.Value)
}

// Lower flattens a tree IR program into a bytecode sequence.
func Lower(prog *ir.Program) []Op {
	var ops []Op
	lowerBody(&ops, prog.Body)
	return ops
}

func lowerBody(ops *[]Op, body []ir.Node) {
	for _, n := range body {
		lowerNode(ops, n)
	}
}

func lowerNode(ops *[]Op, n ir.Node) {
	switch v := n.(type) {
	case *ir.Shift:
		switch {
		case v.Delta > 0:
			*ops = append(*ops, &AddPtr{N: v.Delta})
		case v.Delta < 0:
			*ops = append(*ops, &SubPtr{N: -v.Delta})
		}

	case *ir.Mod:
		if v.Kind == ir.KindSet {
			*ops = append(*ops, &SetData{Amount: v.Amount, Delta: v.Delta})
		} else {
			*ops = append(*ops, &AddData{Amount: v.Amount, Delta: v.Delta})
		}

	case *ir.Combine:
		*ops = append(*ops, &Combine{SrcDelta: v.SrcDelta, DstDelta: v.DstDelta, Mult: v.Mult})

	case *ir.Read:
		*ops = append(*ops, &Read{Delta: v.Delta})

	case *ir.Write:
		*ops = append(*ops, &Write{Delta: v.Delta})

	case *ir.WriteConst:
		*ops = append(*ops, &WriteConst{Byte: v.Byte})

	case *ir.AssertEquals:
		*ops = append(*ops, &AssertEquals{Delta: v.Delta, Value: v.Value})

	case *ir.InfiniteLoop:
		*ops = append(*ops, &InfiniteLoop{})

	case *ir.IfNonZero:
		skip := &JumpIfZero{CondDelta: v.CondDelta}
		*ops = append(*ops, skip)
		lowerBody(ops, v.Body)
		skip.Target = len(*ops)

	case *ir.Loop:
		start := len(*ops)
		skip := &JumpIfZero{CondDelta: v.CondDelta}
		*ops = append(*ops, skip)
		lowerBody(ops, v.Body)
		*ops = append(*ops, &JumpIfNonZero{CondDelta: v.CondDelta, Target: start})
		skip.Target = len(*ops)

	case *ir.ShiftLoop:
		start := len(*ops)
		skip := &JumpIfZero{CondDelta: v.CondDelta}
		*ops = append(*ops, skip)
		if v.Shift > 0 {
			*ops = append(*ops, &AddPtr{N: v.Shift})
		} else if v.Shift < 0 {
			*ops = append(*ops, &SubPtr{N: -v.Shift})
		}
		*ops = append(*ops, &JumpIfNonZero{CondDelta: v.CondDelta, Target: start})
		skip.Target = len(*ops)

	default:
		panic(fmt.Sprintf("bytecode: unhandled node type %T", n))
	}
}
