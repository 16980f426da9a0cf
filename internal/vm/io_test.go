package vm

import (
	"errors"
	"strings"
	"testing"
)

func TestLineInputReturnsNewlineVerbatim(t *testing.T) {
	in := NewLineInput(strings.NewReader("hi\n"))
	var got []byte
	for i := 0; i < 3; i++ {
		b, err := in.ReadByte()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, b)
	}
	if string(got) != "hi\n" {
		t.Fatalf("expected %q, got %q", "hi\n", got)
	}
}

func TestLineInputReturnsZeroAfterEOF(t *testing.T) {
	in := NewLineInput(strings.NewReader("a"))
	in.ReadByte() // 'a'
	for i := 0; i < 5; i++ {
		b, err := in.ReadByte()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b != 0 {
			t.Fatalf("expected 0 after EOF, got %d", b)
		}
	}
}

func TestFixedInputExhaustsToZero(t *testing.T) {
	in := NewFixedInput([]byte{9})
	if b, err := in.ReadByte(); err != nil || b != 9 {
		t.Fatalf("expected 9, got %d (err %v)", b, err)
	}
	if b, err := in.ReadByte(); err != nil || b != 0 {
		t.Fatalf("expected 0 past end, got %d (err %v)", b, err)
	}
}

func TestFixedInputTracksConsumedBytes(t *testing.T) {
	in := NewFixedInput([]byte{1, 2, 3})
	in.ReadByte()
	in.ReadByte()
	if got := in.Consumed(); got != 2 {
		t.Fatalf("expected 2 consumed, got %d", got)
	}
	// Reading past the end doesn't count as consuming more input.
	for i := 0; i < 5; i++ {
		in.ReadByte()
	}
	if got := in.Consumed(); got != 3 {
		t.Fatalf("expected consumed to stop at 3, got %d", got)
	}
}

func TestByteOutputWritesImmediately(t *testing.T) {
	var sb strings.Builder
	out := NewByteOutput(&sb)
	if err := out.WriteByte('h'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := out.WriteByte('i'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.String() != "hi" {
		t.Fatalf("expected hi, got %q", sb.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("simulated write failure")
}

func TestByteOutputPropagatesWriteError(t *testing.T) {
	out := NewByteOutput(failingWriter{})
	if err := out.WriteByte('x'); err == nil {
		t.Fatal("expected write error to propagate")
	}
}
