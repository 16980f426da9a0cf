package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopShapeSingleDecrementBecomesSetZero(t *testing.T) {
	loop := &Loop{CondDelta: 0, Body: []Node{&Mod{Kind: KindAdd, Amount: 255, Delta: 0}}}
	out, changes := (&LoopShape{}).Run([]Node{loop})
	require.Equal(t, 1, changes)
	require.Len(t, out, 1)
	m := out[0].(*Mod)
	assert.Equal(t, KindSet, m.Kind)
	assert.Equal(t, byte(0), m.Amount)
}

func TestLoopShapeScanLoopBecomesShiftLoop(t *testing.T) {
	loop := &Loop{CondDelta: 0, Body: []Node{&Shift{Delta: 1}}}
	out, changes := (&LoopShape{}).Run([]Node{loop})
	require.Equal(t, 1, changes)
	require.Len(t, out, 1)
	sl := out[0].(*ShiftLoop)
	assert.Equal(t, 1, sl.Shift)
}

func TestLoopShapeClassicMultiplyLoop(t *testing.T) {
	// [->+<] at cond delta 0: decrement cond, add 1 to cell at Δ1.
	loop := &Loop{CondDelta: 0, Body: []Node{
		&Mod{Kind: KindAdd, Amount: 255, Delta: 0},
		&Mod{Kind: KindAdd, Amount: 1, Delta: 1},
	}}
	out, changes := (&LoopShape{}).Run([]Node{loop})
	require.Equal(t, 1, changes)
	require.Len(t, out, 2)

	c := out[0].(*Combine)
	assert.Equal(t, 0, c.SrcDelta)
	assert.Equal(t, 1, c.DstDelta)
	assert.Equal(t, byte(1), c.Mult)

	z := out[1].(*Mod)
	assert.Equal(t, KindSet, z.Kind)
	assert.Equal(t, byte(0), z.Amount)
}

func TestLoopShapeLeavesUnbalancedBodyAlone(t *testing.T) {
	loop := &Loop{CondDelta: 0, Body: []Node{
		&Mod{Kind: KindAdd, Amount: 255, Delta: 0},
		&Shift{Delta: 2},
	}}
	out, changes := (&LoopShape{}).Run([]Node{loop})
	require.Equal(t, 0, changes)
	require.Len(t, out, 1)
	_, ok := out[0].(*Loop)
	assert.True(t, ok)
}

func TestLoopShapeMissingConditionBecomesInfiniteLoop(t *testing.T) {
	loop := &Loop{CondDelta: 0, Body: []Node{&Mod{Kind: KindAdd, Amount: 1, Delta: 1}}, KnownNontrivial: true}
	out, changes := (&LoopShape{}).Run([]Node{loop})
	require.Equal(t, 1, changes)
	require.Len(t, out, 2)
	_, ok := out[1].(*InfiniteLoop)
	assert.True(t, ok)
}
