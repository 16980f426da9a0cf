package ir

// cellLattice is the three-point lattice the abstract simulator tracks
// per cell: a cell is either fully unknown, a known constant, or known to
// be nonzero without knowing which nonzero value. There is no bottom
// element — an untracked cell reads Known(0) while the state is pristine
// (the tape starts zeroed) and Unknown afterwards; see simState.
type cellLattice int

const (
	latticeKnown cellLattice = iota
	latticeUnknownNonzero
	latticeUnknown
)

type cellState struct {
	lattice cellLattice
	value   byte
}

// simState is the abstract machine state threaded through one flat node
// sequence: known values per address (addresses are relative to the dp
// value the sequence started with) plus the running shift accumulator
// that translates each node's own Δ into that shared address space.
//
// pristine is true until the first invalidate(): while it holds, an
// address absent from cells defaults to Known(0), since the real tape
// starts zeroed and nothing has yet happened that this state failed to
// track. Once something has been invalidated, an absent address can no
// longer be assumed zero — the untracked operation might have touched
// it — so it defaults to Unknown instead, permanently.
//
// wipes counts how many times invalidate has cleared this state's
// knowledge. A branch snapshots it at fork time so mergeDivergent can
// tell whether the branch it just simulated lost all knowledge partway
// through.
type simState struct {
	cells    map[int]cellState
	shift    int
	wipes    int
	pristine bool
}

func newSimState() *simState {
	return &simState{cells: map[int]cellState{}, pristine: true}
}

// clone makes an independent copy for speculative (branch) simulation;
// mutating the clone never affects the original.
func (s *simState) clone() *simState {
	cells := make(map[int]cellState, len(s.cells))
	for k, v := range s.cells {
		cells[k] = v
	}
	return &simState{cells: cells, shift: s.shift, wipes: s.wipes, pristine: s.pristine}
}

func (s *simState) addr(delta int) int { return delta + s.shift }

// get returns the tracked fact for dp+delta.
func (s *simState) get(delta int) cellState {
	if st, ok := s.cells[s.addr(delta)]; ok {
		return st
	}
	if s.pristine {
		return cellState{lattice: latticeKnown, value: 0}
	}
	return cellState{lattice: latticeUnknown}
}

func (s *simState) setKnown(delta int, v byte) {
	s.cells[s.addr(delta)] = cellState{lattice: latticeKnown, value: v}
}

func (s *simState) setUnknownNonzero(delta int) {
	s.cells[s.addr(delta)] = cellState{lattice: latticeUnknownNonzero}
}

func (s *simState) setUnknown(delta int) {
	s.cells[s.addr(delta)] = cellState{lattice: latticeUnknown}
}

// forget marks the given absolute address (already shift-adjusted) as
// Unknown, used when merging branch facts cell-by-cell or clearing the
// specific cells a loop body may have touched. This writes an explicit
// Unknown entry rather than deleting the map key — deleting would let a
// previously-known cell fall back to the pristine Known(0) default,
// which is only sound for addresses that were never touched at all.
func (s *simState) forget(addr int) {
	s.cells[addr] = cellState{lattice: latticeUnknown}
}

// invalidate forgets every tracked cell and restarts addressing from the
// current point. Used whenever we pass through a node whose internal
// effect on dp and on cell contents we can't predict statically — a
// dp-losing loop/branch, a ShiftLoop, or a merge whose branch itself
// lost all knowledge.
func (s *simState) invalidate() {
	s.cells = map[int]cellState{}
	s.shift = 0
	s.wipes++
	s.pristine = false
}

// Simulate is the abstract interpreter pass: constant/nonzero propagation
// across straight-line code and branches. It consumes each node sequence
// into a freshly built one rather than mutating in place, so indices stay
// stable within a run and no pass ever observes a half-rewritten body.
type Simulate struct {
	// EntryUnknown drops the zeroed-tape assumption at sequence entry.
	// The zero value is right for the top-level program body, which the
	// VM genuinely starts on an all-zero tape; the pipeline sets this for
	// loop and branch bodies, which enter with whatever earlier
	// iterations left behind.
	EntryUnknown bool
}

func (*Simulate) Name() string { return "simulate" }

func (sim *Simulate) Run(body []Node) ([]Node, int) {
	state := newSimState()
	if sim.EntryUnknown {
		state.pristine = false
	}
	return sim.runWithState(body, state)
}

// runWithState folds body through an already-populated abstract state,
// mutating state in place as it goes and returning the rewritten body
// plus the count of rewrites/deletions performed. Sharing the caller's
// state (rather than starting fresh) is what lets an IfNonZero known to
// execute, or a one-step loop body, simulate as a true continuation of
// the surrounding code instead of an isolated fragment.
func (sim *Simulate) runWithState(body []Node, state *simState) ([]Node, int) {
	out := make([]Node, 0, len(body))
	changes := 0

	for idx, n := range body {
		switch v := n.(type) {
		case *Shift:
			state.shift += v.Delta
			out = append(out, v)

		case *Mod:
			if v.Kind == KindSet {
				if cur := state.get(v.Delta); cur.lattice == latticeKnown && cur.value == v.Amount {
					changes++
					continue
				}
				state.setKnown(v.Delta, v.Amount)
				out = append(out, v)
				continue
			}
			if v.Amount == 0 {
				changes++
				continue
			}
			cur := state.get(v.Delta)
			if cur.lattice == latticeKnown {
				folded := byte((int(cur.value) + int(v.Amount)) % 256)
				state.setKnown(v.Delta, folded)
				out = append(out, &Mod{Kind: KindSet, Amount: folded, Delta: v.Delta})
				changes++
				continue
			}
			// Adding a nonzero constant to an unknown byte can still land
			// on zero (255+1 wraps), so the result is fully Unknown even
			// when the old value was known nonzero.
			state.setUnknown(v.Delta)
			out = append(out, v)

		case *Combine:
			src := state.get(v.SrcDelta)
			dst := state.get(v.DstDelta)
			if src.lattice == latticeKnown {
				add := byte((int(src.value) * int(v.Mult)) % 256)
				if add == 0 {
					// dst += 0: the destination cell is untouched.
					changes++
					continue
				}
				if dst.lattice == latticeKnown {
					result := byte((int(dst.value) + int(add)) % 256)
					state.setKnown(v.DstDelta, result)
					out = append(out, &Mod{Kind: KindSet, Amount: result, Delta: v.DstDelta})
				} else {
					state.setUnknown(v.DstDelta)
					out = append(out, &Mod{Kind: KindAdd, Amount: add, Delta: v.DstDelta})
				}
				changes++
				continue
			}
			state.setUnknown(v.DstDelta)
			out = append(out, v)

		case *Read:
			state.setUnknown(v.Delta)
			out = append(out, v)

		case *Write:
			if cur := state.get(v.Delta); cur.lattice == latticeKnown {
				out = append(out, &WriteConst{Byte: cur.value})
				changes++
				continue
			}
			out = append(out, v)

		case *WriteConst:
			out = append(out, v)

		case *AssertEquals:
			// The assertion is the compiler's own claim, so the simulator
			// may take it as fact. One already implied by the current
			// state is dropped silently — in particular, re-simulating a
			// loop that emits its post-loop assertion must absorb the
			// assertion from the previous round instead of stacking a
			// duplicate behind it.
			cur := state.get(v.Delta)
			if cur.lattice == latticeKnown && cur.value == v.Value {
				continue
			}
			if cur.lattice == latticeUnknown {
				state.setKnown(v.Delta, v.Value)
			}
			out = append(out, v)

		case *Loop:
			rewritten, n := sim.simulateLoop(v, state)
			changes += n
			out = append(out, rewritten...)

		case *ShiftLoop:
			out = append(out, v)
			state.invalidate()
			state.setKnown(v.CondDelta, 0)
			out = append(out, &AssertEquals{Delta: v.CondDelta, Value: 0})

		case *IfNonZero:
			rewritten, n := sim.simulateIf(v, state)
			changes += n
			out = append(out, rewritten...)

		case *InfiniteLoop:
			out = append(out, v)
			if rest := len(body) - idx - 1; rest > 0 {
				changes += rest
			}
			return out, changes

		default:
			out = append(out, n)
			state.invalidate()
		}
	}

	return out, changes
}

// simulateIf resolves an IfNonZero against the current state: drops it
// when the condition is provably zero, inlines the body when it provably
// runs, and otherwise forks the state to simulate both outcomes.
func (sim *Simulate) simulateIf(v *IfNonZero, state *simState) ([]Node, int) {
	cond := state.get(v.CondDelta)

	switch cond.lattice {
	case latticeKnown:
		if cond.value == 0 {
			return nil, 1
		}
		// Known nonzero: the branch always runs. Inline it as a direct
		// continuation of the current state.
		body, n := sim.runWithState(v.Body, state)
		return body, n + 1

	case latticeUnknownNonzero:
		body, n := sim.runWithState(v.Body, state)
		return body, n + 1
	}

	// Unknown: condition may or may not hold at runtime. Fork the state,
	// simulate the body into the fork, and keep only the facts that hold
	// on both paths.
	usage := analyzeUsage(v.Body)
	if usage.dpLost {
		state.invalidate()
		return []Node{v}, 0
	}

	branch := state.clone()
	branch.setUnknownNonzero(v.CondDelta)
	newBody, _ := sim.runWithState(v.Body, branch)
	mergeDivergent(state, branch)

	result := &IfNonZero{CondDelta: v.CondDelta, Body: newBody}
	return []Node{result}, 0
}

// simulateOneShot rewrites a Loop already proven (by simulateLoop's probe)
// to run at most once into an IfNonZero (or, when the condition is
// already known nonzero, into the inlined body), with the guaranteed post-fact
// that the condition cell is 0 afterward regardless of which path ran:
// either it started at 0 (body skipped), or the body drove it to 0 (the
// probe proved this for any nonzero entry value).
func (sim *Simulate) simulateOneShot(v *Loop, state *simState) ([]Node, int) {
	cond := state.get(v.CondDelta)

	var out []Node
	var changes int
	switch cond.lattice {
	case latticeKnown, latticeUnknownNonzero:
		body, n := sim.runWithState(v.Body, state)
		out, changes = body, n
	default:
		branch := state.clone()
		branch.setUnknownNonzero(v.CondDelta)
		newBody, _ := sim.runWithState(v.Body, branch)
		mergeDivergent(state, branch)
		out = []Node{&IfNonZero{CondDelta: v.CondDelta, Body: newBody}}
	}

	state.setKnown(v.CondDelta, 0)
	out = append(out, &AssertEquals{Delta: v.CondDelta, Value: 0})
	return out, changes + 1
}

// simulateLoop folds a generic Loop into the state: a provably-dead loop
// is dropped, a provably-entered one strengthens the KnownNontrivial
// hint, and a probe run of the body from an assumed UnknownNonzero
// condition detects loops that always terminate after exactly one pass.
func (sim *Simulate) simulateLoop(v *Loop, state *simState) ([]Node, int) {
	cond := state.get(v.CondDelta)
	if cond.lattice == latticeKnown && cond.value == 0 {
		return nil, 1
	}

	changes := 0
	provenNonzero := cond.lattice == latticeUnknownNonzero ||
		(cond.lattice == latticeKnown && cond.value != 0)
	if !v.KnownNontrivial && provenNonzero {
		v.KnownNontrivial = true
		changes++
	}

	usage := analyzeUsage(v.Body)
	if !usage.dpLost {
		probe := state.clone()
		probe.setUnknownNonzero(v.CondDelta)
		_, _ = sim.runWithState(v.Body, probe)
		exitKnown := probe.get(v.CondDelta)
		if probe.wipes == state.wipes && exitKnown.lattice == latticeKnown && exitKnown.value == 0 {
			// Exactly one iteration, regardless of the entering value,
			// whenever the loop runs at all.
			rewritten, n := sim.simulateOneShot(v, state)
			return rewritten, changes + n
		}
	}

	out := []Node{v}
	if usage.dpLost {
		state.invalidate()
	} else {
		for addr := range usage.written {
			state.forget(addr + state.shift)
		}
	}
	state.setKnown(v.CondDelta, 0)
	out = append(out, &AssertEquals{Delta: v.CondDelta, Value: 0})
	return out, changes
}

// factAt returns the fact recorded at an already-absolute address (no
// shift adjustment, unlike get), applying the same pristine-default rule.
func (s *simState) factAt(addr int) cellState {
	if st, ok := s.cells[addr]; ok {
		return st
	}
	if s.pristine {
		return cellState{lattice: latticeKnown, value: 0}
	}
	return cellState{lattice: latticeUnknown}
}

// mergeDivergent intersects the post-branch state into the pre-branch
// state in place: a fact survives only if it holds whether or not the
// branch ran. If the branch lost all knowledge (its wipes counter moved),
// the merge conservatively forgets everything. Equal wipes counters
// guarantee equal pristine flags (invalidate is the only thing that
// changes either, and it moves both together), so every address —
// including ones neither side ever wrote, which still carry the shared
// pristine default — compares soundly here.
func mergeDivergent(pre, post *simState) {
	if post.wipes != pre.wipes {
		pre.invalidate()
		return
	}
	addrs := make(map[int]bool, len(pre.cells)+len(post.cells))
	for addr := range pre.cells {
		addrs[addr] = true
	}
	for addr := range post.cells {
		addrs[addr] = true
	}
	for addr := range addrs {
		if pre.factAt(addr) != post.factAt(addr) {
			pre.forget(addr)
		}
	}
}

// usageInfo is the result of analyzeUsage over a nested body.
type usageInfo struct {
	dpLost  bool
	written map[int]bool
}

// analyzeUsage walks a Loop/IfNonZero body and reports either DpLost (a
// net nonzero dp shift, or an inner ShiftLoop whose scan distance isn't
// known) or the set of addresses — relative to dp at body entry — the
// body might write, so the simulator can clear only those cells rather
// than every cell it knows about.
func analyzeUsage(body []Node) usageInfo {
	written := map[int]bool{}
	shift := 0
	lost := false

	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			if lost {
				return
			}
			switch v := n.(type) {
			case *Shift:
				shift += v.Delta
			case *Mod:
				written[shift+v.Delta] = true
			case *Combine:
				written[shift+v.DstDelta] = true
			case *Read:
				written[shift+v.Delta] = true
			case *Write, *WriteConst, *AssertEquals, *InfiniteLoop:
				// no cell write
			case *Loop:
				sub := analyzeUsage(v.Body)
				if sub.dpLost {
					lost = true
					return
				}
				for addr := range sub.written {
					written[shift+addr] = true
				}
				written[shift+v.CondDelta] = true
			case *IfNonZero:
				sub := analyzeUsage(v.Body)
				if sub.dpLost {
					lost = true
					return
				}
				for addr := range sub.written {
					written[shift+addr] = true
				}
			case *ShiftLoop:
				lost = true
				return
			default:
				lost = true
				return
			}
		}
	}
	walk(body)

	if lost || shift != 0 {
		return usageInfo{dpLost: true}
	}
	return usageInfo{written: written}
}
