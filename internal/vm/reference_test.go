package vm

import (
	"testing"

	"bfopt/internal/ir"
)

func TestReferenceRunsLoop(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.Mod{Kind: ir.KindAdd, Amount: 3, Delta: 0},
		&ir.Loop{CondDelta: 0, Body: []ir.Node{
			&ir.Mod{Kind: ir.KindAdd, Amount: 255, Delta: 0},
			&ir.Mod{Kind: ir.KindAdd, Amount: 1, Delta: 1},
		}},
		&ir.Shift{Delta: 1},
		&ir.Write{Delta: 0},
	}}
	out := &RecordingOutput{}
	r := NewReference(NewFixedInput(nil), out)
	if err := r.Run(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Bytes) != 1 || out.Bytes[0] != 3 {
		t.Fatalf("expected [3], got %v", out.Bytes)
	}
}

func TestReferenceHaltsOnInfiniteLoop(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{&ir.InfiniteLoop{}}}
	r := NewReference(NewFixedInput(nil), &RecordingOutput{})
	if err := r.Run(prog); err == nil {
		t.Fatal("expected halt error")
	}
}

func TestReferenceReadsFixedInput(t *testing.T) {
	prog := &ir.Program{Body: []ir.Node{
		&ir.Read{Delta: 0},
		&ir.Write{Delta: 0},
	}}
	out := &RecordingOutput{}
	r := NewReference(NewFixedInput([]byte("Z")), out)
	if err := r.Run(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Bytes) != "Z" {
		t.Fatalf("expected Z, got %q", out.Bytes)
	}
}
