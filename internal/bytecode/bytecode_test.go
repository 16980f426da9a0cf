package bytecode

import (
	"testing"

	"bfopt/internal/ir"
)

func TestLowerFlatSequence(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.Mod{Kind: ir.KindAdd, Amount: 1, Delta: 0},
		&ir.Shift{Delta: 1},
		&ir.Write{Delta: 0},
	}}
	ops := Lower(prog)
	if len(ops) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(ops))
	}
	if _, ok := ops[0].(*AddData); !ok {
		t.Errorf("op 0: expected AddData, got %T", ops[0])
	}
	if _, ok := ops[1].(*AddPtr); !ok {
		t.Errorf("op 1: expected AddPtr, got %T", ops[1])
	}
}

func TestLowerLoopBackpatchesBothJumps(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.Loop{CondDelta: 0, Body: []ir.Node{
			&ir.Mod{Kind: ir.KindAdd, Amount: 255, Delta: 0},
		}},
		&ir.Write{Delta: 0},
	}}
	ops := Lower(prog)
	// JumpIfZero, AddData, JumpIfNonZero, Write
	if len(ops) != 4 {
		t.Fatalf("expected 4 ops, got %d", len(ops))
	}
	jz, ok := ops[0].(*JumpIfZero)
	if !ok {
		t.Fatalf("op 0: expected JumpIfZero, got %T", ops[0])
	}
	if jz.Target != 3 {
		t.Errorf("expected JumpIfZero target 3 (past the loop), got %d", jz.Target)
	}
	jnz, ok := ops[2].(*JumpIfNonZero)
	if !ok {
		t.Fatalf("op 2: expected JumpIfNonZero, got %T", ops[2])
	}
	if jnz.Target != 0 {
		t.Errorf("expected JumpIfNonZero target 0 (loop start), got %d", jnz.Target)
	}
}

func TestLowerIfNonZeroHasNoBackJump(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.IfNonZero{CondDelta: 0, Body: []ir.Node{&ir.Mod{Kind: ir.KindSet, Amount: 0, Delta: 0}}},
	}}
	ops := Lower(prog)
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	jz := ops[0].(*JumpIfZero)
	if jz.Target != 2 {
		t.Errorf("expected target 2, got %d", jz.Target)
	}
}

func TestLowerJumpTargetsStayInBounds(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.Mod{Kind: ir.KindAdd, Amount: 2, Delta: 0},
		&ir.Loop{CondDelta: 0, Body: []ir.Node{
			&ir.IfNonZero{CondDelta: 1, Body: []ir.Node{
				&ir.Loop{CondDelta: 1, Body: []ir.Node{
					&ir.Mod{Kind: ir.KindAdd, Amount: 255, Delta: 1},
				}},
			}},
			&ir.Mod{Kind: ir.KindAdd, Amount: 255, Delta: 0},
		}},
		&ir.ShiftLoop{CondDelta: 0, Shift: -1},
	}}
	ops := Lower(prog)

	forward, backward := 0, 0
	for i, op := range ops {
		switch j := op.(type) {
		case *JumpIfZero:
			forward++
			if j.Target < 0 || j.Target > len(ops) {
				t.Errorf("op %d: JumpIfZero target %d out of [0, %d]", i, j.Target, len(ops))
			}
		case *JumpIfNonZero:
			backward++
			if j.Target < 0 || j.Target > len(ops) {
				t.Errorf("op %d: JumpIfNonZero target %d out of [0, %d]", i, j.Target, len(ops))
			}
		}
	}
	// Two loops and one scan loop carry a back jump each; the IfNonZero
	// adds a forward skip with no back jump.
	if backward != 3 {
		t.Errorf("expected 3 back jumps, got %d", backward)
	}
	if forward != 4 {
		t.Errorf("expected 4 forward skips, got %d", forward)
	}
}

func TestLowerShiftLoop(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{&ir.ShiftLoop{CondDelta: 0, Shift: 1}}}
	ops := Lower(prog)
	if len(ops) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(ops))
	}
	if _, ok := ops[1].(*AddPtr); !ok {
		t.Errorf("expected AddPtr in the middle, got %T", ops[1])
	}
}
