package ir

import "sort"

// LoopShape recognizes loops whose iteration count is knowable at compile
// time and rewrites them into a closed form with no runtime loop at all.
// It only looks at "simple" loop bodies — flat sequences of Shift and Mod
// nodes, no nested control flow, no I/O, no Combine (a Combine in the
// body means some earlier round already specialized it; re-specializing
// is left alone rather than re-derived). Anything else is left untouched
// for this round.
type LoopShape struct{}

func (*LoopShape) Name() string { return "loopshape" }

func (ls *LoopShape) Run(body []Node) ([]Node, int) {
	out := make([]Node, 0, len(body))
	changes := 0

	for _, n := range body {
		loop, ok := n.(*Loop)
		if !ok {
			out = append(out, n)
			continue
		}
		if replacement, ok := ls.recognize(loop); ok {
			out = append(out, replacement...)
			changes++
			continue
		}
		out = append(out, loop)
	}

	return out, changes
}

type cellEffect struct {
	kind   ModKind
	amount byte
}

func (ls *LoopShape) recognize(loop *Loop) ([]Node, bool) {
	body := loop.Body

	// A single Mod touching the condition cell, of any kind or amount,
	// always collapses to an unconditional Set(0): iterating it either
	// converges to zero or the loop was never entered to begin with, and
	// in both cases the end state at the condition cell is zero.
	if len(body) == 1 {
		if m, ok := body[0].(*Mod); ok && m.Delta == loop.CondDelta {
			return []Node{&Mod{Kind: KindSet, Amount: 0, Delta: loop.CondDelta}}, true
		}
		if s, ok := body[0].(*Shift); ok {
			return []Node{&ShiftLoop{CondDelta: loop.CondDelta, Shift: s.Delta}}, true
		}
	}

	effects, netShift, ok := analyzeSimpleBody(body)
	if !ok || netShift != 0 {
		return nil, false
	}

	condEffect, hasCond := effects[loop.CondDelta]
	delete(effects, loop.CondDelta)

	switch {
	case hasCond && condEffect.kind == KindAdd && condEffect.amount == 255:
		return multiplyForm(loop.CondDelta, effects, 1)
	case hasCond && condEffect.kind == KindAdd && condEffect.amount == 1:
		return multiplyForm(loop.CondDelta, effects, -1)
	case hasCond && condEffect.kind == KindSet && condEffect.amount == 0:
		nodes := append(effectsToNodes(effects), &Mod{Kind: KindSet, Amount: 0, Delta: loop.CondDelta})
		return []Node{&IfNonZero{CondDelta: loop.CondDelta, Body: nodes}}, true
	case hasCond && condEffect.kind == KindSet:
		nodes := append(effectsToNodes(effects),
			&Mod{Kind: KindSet, Amount: condEffect.amount, Delta: loop.CondDelta},
			&InfiniteLoop{})
		return []Node{&IfNonZero{CondDelta: loop.CondDelta, Body: nodes}}, true
	case !hasCond:
		nodes := append(effectsToNodes(effects), &InfiniteLoop{})
		if loop.KnownNontrivial {
			return nodes, true
		}
		return []Node{&IfNonZero{CondDelta: loop.CondDelta, Body: nodes}}, true
	default:
		return nil, false
	}
}

// analyzeSimpleBody walks a flat Shift/Mod-only body and accumulates the
// net per-iteration effect at every address touched, addressed relative
// to the dp value at loop entry. It returns ok=false the moment it sees
// anything it can't reason about in closed form: a Combine, any control
// node, or I/O.
func analyzeSimpleBody(body []Node) (map[int]cellEffect, int, bool) {
	effects := map[int]cellEffect{}
	shift := 0

	for _, n := range body {
		switch v := n.(type) {
		case *Shift:
			shift += v.Delta
		case *Mod:
			addr := v.Delta + shift
			existing, has := effects[addr]
			switch {
			case v.Kind == KindSet:
				effects[addr] = cellEffect{kind: KindSet, amount: v.Amount}
			case !has:
				effects[addr] = cellEffect{kind: KindAdd, amount: v.Amount}
			case existing.kind == KindAdd:
				sum := byte((int(existing.amount) + int(v.Amount)) % 256)
				if sum == 0 {
					delete(effects, addr)
				} else {
					effects[addr] = cellEffect{kind: KindAdd, amount: sum}
				}
			case existing.kind == KindSet:
				effects[addr] = cellEffect{kind: KindSet, amount: byte((int(existing.amount) + int(v.Amount)) % 256)}
			}
		default:
			return nil, 0, false
		}
	}

	return effects, shift, true
}

// multiplyForm expresses a terminating counted loop as one Combine per
// accumulated cell plus a final Set(0) on the counter. sign is 1 when the
// counter decrements by one each iteration (v = entry value) and -1 when
// it increments by one each iteration (v = 256 - entry value): in the
// latter case each accumulated multiplier is negated mod 256, since
// dst += amount*(256-entry) == dst + (-amount*entry) in the byte ring.
func multiplyForm(condDelta int, effects map[int]cellEffect, sign int) ([]Node, bool) {
	addrs := make([]int, 0, len(effects))
	for addr, eff := range effects {
		if eff.kind != KindAdd {
			// A Set on a non-condition cell isn't a linear accumulation;
			// it can't be expressed as a single scaled Combine.
			return nil, false
		}
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)

	nodes := make([]Node, 0, len(addrs)+1)
	for _, addr := range addrs {
		amount := effects[addr].amount
		mult := amount
		if sign < 0 {
			mult = byte((256 - int(amount)) % 256)
		}
		nodes = append(nodes, &Combine{SrcDelta: condDelta, DstDelta: addr, Mult: mult})
	}
	nodes = append(nodes, &Mod{Kind: KindSet, Amount: 0, Delta: condDelta})
	return nodes, true
}

func effectsToNodes(effects map[int]cellEffect) []Node {
	addrs := make([]int, 0, len(effects))
	for addr := range effects {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)

	nodes := make([]Node, 0, len(addrs))
	for _, addr := range addrs {
		eff := effects[addr]
		nodes = append(nodes, &Mod{Kind: eff.kind, Amount: eff.amount, Delta: addr})
	}
	return nodes
}
