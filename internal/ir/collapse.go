package ir

// Collapse is the peephole merge pass: it folds adjacent nodes that touch
// the same cell (or are both plain Shifts) into a single node, repeating
// until a full scan makes no change. This is the pass that turns `+++`
// into one Mod(Add(3)) and `><` into nothing.
type Collapse struct{}

func (*Collapse) Name() string { return "collapse" }

func (*Collapse) Run(body []Node) ([]Node, int) {
	out := append([]Node(nil), body...)
	changes := 0

	for {
		mergedThisScan := false
		next := out[:0:0]
		i := 0
		for i < len(out) {
			if _, ok := out[i].(*InfiniteLoop); ok && i+1 < len(out) {
				// Everything after a proven-infinite loop is unreachable.
				next = append(next, out[i])
				changes += len(out) - i - 1
				i = len(out)
				mergedThisScan = true
				break
			}
			if i+1 < len(out) {
				if merged, ok := merge(out[i], out[i+1]); ok {
					if merged == nil {
						// Both nodes canceled out entirely (e.g. opposite shifts).
					} else {
						next = append(next, merged)
					}
					changes++
					mergedThisScan = true
					i += 2
					continue
				}
				if isDeadRepeatLoop(out[i], out[i+1]) {
					// out[i] already drove its condition cell to zero; a
					// second identical loop/scan right after it can't run.
					next = append(next, out[i])
					changes++
					mergedThisScan = true
					i += 2
					continue
				}
			}
			next = append(next, out[i])
			i++
		}
		out = next
		if !mergedThisScan {
			break
		}
	}

	return out, changes
}

// isDeadRepeatLoop reports whether b is a Loop or ShiftLoop identical to
// a and immediately follows it: after a runs to completion, its condition
// cell reads zero, so an identical loop right after can never execute.
func isDeadRepeatLoop(a, b Node) bool {
	switch av := a.(type) {
	case *Loop:
		bv, ok := b.(*Loop)
		return ok && bv.CondDelta == av.CondDelta && sameNodes(av.Body, bv.Body)
	case *ShiftLoop:
		bv, ok := b.(*ShiftLoop)
		return ok && bv.CondDelta == av.CondDelta && bv.Shift == av.Shift
	default:
		return false
	}
}

func sameNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}

// merge attempts to fold two adjacent nodes into one. The bool result
// reports whether a merge happened at all; the Node result is nil when
// the pair cancels out to nothing.
func merge(a, b Node) (Node, bool) {
	if sa, ok := a.(*Shift); ok {
		if sb, ok := b.(*Shift); ok {
			total := sa.Delta + sb.Delta
			if total == 0 {
				return nil, true
			}
			return &Shift{Delta: total}, true
		}
		return nil, false
	}

	if ca, ok := a.(*Combine); ok {
		cb, ok := b.(*Combine)
		if !ok || cb.SrcDelta != ca.SrcDelta || cb.DstDelta != ca.DstDelta {
			return nil, false
		}
		sum := byte((int(ca.Mult) + int(cb.Mult)) % 256)
		if sum == 0 {
			return nil, true
		}
		return &Combine{SrcDelta: ca.SrcDelta, DstDelta: ca.DstDelta, Mult: sum}, true
	}

	ma, ok := a.(*Mod)
	if !ok {
		return nil, false
	}
	if rb, ok := b.(*Read); ok && rb.Delta == ma.Delta {
		// Whatever the Mod wrote is immediately overwritten by the Read.
		return &Read{Delta: rb.Delta}, true
	}
	mb, ok := b.(*Mod)
	if !ok || mb.Delta != ma.Delta {
		return nil, false
	}

	if mb.Kind == KindSet {
		// Whatever `a` did, `b`'s unconditional Set(v) is all that's left
		// observable at this cell.
		return &Mod{Kind: KindSet, Amount: mb.Amount, Delta: ma.Delta}, true
	}

	// mb is Add; fold its delta into a's result regardless of a's kind.
	sum := byte((int(ma.Amount) + int(mb.Amount)) % 256)
	if ma.Kind == KindSet {
		return &Mod{Kind: KindSet, Amount: sum, Delta: ma.Delta}, true
	}
	if sum == 0 {
		return nil, true
	}
	return &Mod{Kind: KindAdd, Amount: sum, Delta: ma.Delta}, true
}
