package ir

// Reorder is the commutation pass. It bubbles each Shift node as far
// right as it can go, absorbing it into the Delta fields of the simple
// cell/IO nodes it passes over, and sorts adjacent independent simple
// nodes into a canonical order by cell address. Neither move changes
// observable behavior: a Shift moving past a node just means that node's
// effect is now expressed relative to the dp value *before* the shift
// instead of after, which Delta absorption accounts for exactly.
//
// Reorder never looks inside Loop/IfNonZero bodies and never moves a node
// across one — those are opaque barriers for this pass, descended into
// separately by the pipeline driver. It works as a bubble pass: repeated
// single scans that keep swapping adjacent pairs until a full scan makes
// no change.
type Reorder struct{}

func (*Reorder) Name() string { return "reorder" }

func (*Reorder) Run(body []Node) ([]Node, int) {
	out := append([]Node(nil), body...)
	changes := 0

	for {
		swappedThisScan := false
		for i := 0; i+1 < len(out); i++ {
			a, b := out[i], out[i+1]
			if isBarrier(a) || isBarrier(b) {
				continue
			}

			if shiftA, ok := a.(*Shift); ok {
				if absorbed, ok2 := absorbShift(shiftA.Delta, b); ok2 {
					out[i], out[i+1] = absorbed, shiftA
					changes++
					swappedThisScan = true
				}
				continue
			}
			if _, ok := b.(*Shift); ok {
				continue
			}

			if canSwap(a, b) && sortKey(b) < sortKey(a) {
				out[i], out[i+1] = b, a
				changes++
				swappedThisScan = true
			}
		}
		if !swappedThisScan {
			break
		}
	}

	return out, changes
}

// isBarrier reports whether n blocks a Shift from bubbling past it.
// Control nodes never move, and WriteConst carries no Δ field for
// absorbShift to rewrite, so crossing it would silently drop the shift's
// effect instead of re-expressing it.
func isBarrier(n Node) bool {
	switch n.(type) {
	case *Loop, *IfNonZero, *ShiftLoop, *InfiniteLoop, *AssertEquals, *WriteConst:
		return true
	default:
		return false
	}
}

func isIO(n Node) bool {
	switch n.(type) {
	case *Read, *Write, *WriteConst:
		return true
	default:
		return false
	}
}

// cellsOf returns every absolute-relative delta a node reads or writes,
// for conflict detection between two adjacent nodes with no shift
// between them (so their deltas share one dp reference and are directly
// comparable).
func cellsOf(n Node) []int {
	switch v := n.(type) {
	case *Mod:
		return []int{v.Delta}
	case *Combine:
		return []int{v.SrcDelta, v.DstDelta}
	case *Read:
		return []int{v.Delta}
	case *Write:
		return []int{v.Delta}
	case *WriteConst:
		return nil
	default:
		return nil
	}
}

// canSwap reports whether two adjacent non-Shift, non-barrier nodes can
// trade places without changing behavior: they must not both be I/O
// (stdin/stdout ordering is externally observable) and must not touch any
// cell in common.
func canSwap(a, b Node) bool {
	if isIO(a) && isIO(b) {
		return false
	}
	for _, ca := range cellsOf(a) {
		for _, cb := range cellsOf(b) {
			if ca == cb {
				return false
			}
		}
	}
	return true
}

// sortKey gives simple nodes a canonical ordering key so independent ops
// on nearby cells end up adjacent, which is what lets Collapse merge
// repeated touches of the same cell.
func sortKey(n Node) int {
	cells := cellsOf(n)
	if len(cells) == 0 {
		return 0
	}
	min := cells[0]
	for _, c := range cells[1:] {
		if c < min {
			min = c
		}
	}
	return min
}

// absorbShift returns a copy of n with every Delta field shifted by d, for
// the case where a Shift(d) that used to precede n is moving to follow it
// instead. WriteConst is never passed here — it has no Delta field to
// rewrite, so isBarrier stops a Shift from reaching it in the first place.
func absorbShift(d int, n Node) (Node, bool) {
	switch v := n.(type) {
	case *Mod:
		return &Mod{Kind: v.Kind, Amount: v.Amount, Delta: v.Delta + d}, true
	case *Combine:
		return &Combine{SrcDelta: v.SrcDelta + d, DstDelta: v.DstDelta + d, Mult: v.Mult}, true
	case *Read:
		return &Read{Delta: v.Delta + d}, true
	case *Write:
		return &Write{Delta: v.Delta + d}, true
	default:
		return nil, false
	}
}
