// Package ir defines the tree intermediate representation and the
// fixed-point optimizer that rewrites it.
//
// The IR is a strict tree: loop and conditional bodies are owned child
// sequences, not back-references. Every node that touches a cell carries a
// signed offset (Δ) from the data pointer at the point where that node
// executes, not an absolute tape address.
package ir

import "fmt"

// Node is one step of the tree IR. Loop/IfNonZero own their body as a
// []Node; there is no shared mutable structure between nodes.
type Node interface {
	String() string
	irNode()
}

// ModKind distinguishes the two cell-mutation forms a Mod node can take.
type ModKind int

const (
	KindAdd ModKind = iota
	KindSet
)

func (k ModKind) String() string {
	if k == KindSet {
		return "Set"
	}
	return "Add"
}

// Shift adds Delta (signed) to the data pointer.
type Shift struct {
	Delta int
}

// Mod modifies the cell at dp+Delta. Add wraps mod 256; Set is absolute.
// Mod{Kind: KindAdd, Amount: 0} is a no-op and forbidden as the output of
// any rewrite; passes must drop it instead of emitting it.
type Mod struct {
	Kind   ModKind
	Amount byte
	Delta  int
}

// Combine performs cell[dp+DstDelta] += cell[dp+SrcDelta] * Mult (mod 256).
type Combine struct {
	SrcDelta int
	DstDelta int
	Mult     byte
}

// Read pulls one input byte into the cell at dp+Delta.
type Read struct {
	Delta int
}

// Write emits the cell at dp+Delta.
type Write struct {
	Delta int
}

// WriteConst emits a literal byte known at compile time.
type WriteConst struct {
	Byte byte
}

// Loop runs Body repeatedly while the cell at dp+CondDelta is nonzero at
// the header. KnownNontrivial is a hint, set once propagation proves the
// body executes at least once; it only ever flips false -> true and never
// changes observable semantics.
type Loop struct {
	CondDelta       int
	Body            []Node
	KnownNontrivial bool
}

// IfNonZero runs Body once if the cell at dp+CondDelta is nonzero.
type IfNonZero struct {
	CondDelta int
	Body      []Node
}

// ShiftLoop is the closed form of a `[>]`/`[<]`-style scan loop: move dp by
// Shift repeatedly until the cell at dp+CondDelta is zero.
type ShiftLoop struct {
	CondDelta int
	Shift     int
}

// InfiniteLoop marks a proven non-terminating empty-effect loop. Reaching
// it at runtime halts the program with a diagnostic.
type InfiniteLoop struct{}

// AssertEquals is an optimizer-internal invariant claim: the compiler
// believes cell dp+Delta equals Value at this point. Advisory only — a
// mismatch at runtime indicates a compiler bug, not a source program bug.
type AssertEquals struct {
	Delta int
	Value byte
}

func (*Shift) irNode()        {}
func (*Mod) irNode()          {}
func (*Combine) irNode()      {}
func (*Read) irNode()         {}
func (*Write) irNode()        {}
func (*WriteConst) irNode()   {}
func (*Loop) irNode()         {}
func (*IfNonZero) irNode()    {}
func (*ShiftLoop) irNode()    {}
func (*InfiniteLoop) irNode() {}
func (*AssertEquals) irNode() {}

func (n *Shift) String() string { return fmt.Sprintf("Shift(%d)", n.Delta) }
func (n *Mod) String() string {
	return fmt.Sprintf("Mod(%s(%d), Δ%+d)", n.Kind, n.Amount, n.Delta)
}
func (n *Combine) String() string {
	return fmt.Sprintf("Combine(src=Δ%+d, dst=Δ%+d, ×%d)", n.SrcDelta, n.DstDelta, n.Mult)
}
func (n *Read) String() string       { return fmt.Sprintf("Read(Δ%+d)", n.Delta) }
func (n *Write) String() string      { return fmt.Sprintf("Write(Δ%+d)", n.Delta) }
func (n *WriteConst) String() string { return fmt.Sprintf("WriteConst(%d)", n.Byte) }
func (n *Loop) String() string {
	return fmt.Sprintf("Loop(cond=Δ%+d, nontrivial=%v, %d nodes)", n.CondDelta, n.KnownNontrivial, len(n.Body))
}
func (n *IfNonZero) String() string {
	return fmt.Sprintf("IfNonZero(cond=Δ%+d, %d nodes)", n.CondDelta, len(n.Body))
}
func (n *ShiftLoop) String() string {
	return fmt.Sprintf("ShiftLoop(cond=Δ%+d, shift=%d)", n.CondDelta, n.Shift)
}
func (n *InfiniteLoop) String() string { return "InfiniteLoop" }
func (n *AssertEquals) String() string {
	return fmt.Sprintf("AssertEquals(Δ%+d == %d)", n.Delta, n.Value)
}

// Program is the top-level compiled unit: a flat sequence of tree IR
// nodes, executed in order starting with dp = 0.
type Program struct {
	Body []Node
}
