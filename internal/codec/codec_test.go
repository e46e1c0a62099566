package codec

import (
	"bytes"
	"testing"

	"github.com/ihh/dnastore/internal/transducer"
)

// twoBaseMachine is a minimal degree-2 machine: bit 0 emits A and loops,
// bit 1 emits G and loops. It exercises the encoder/decoder without
// needing a full graph build.
func twoBaseMachine() *transducer.Machine {
	return &transducer.Machine{
		Len: 1,
		State: []transducer.MachineState{
			{
				Type: transducer.CodeState,
				Trans: []transducer.Transition{
					{In: "0", Out: "A", To: 0},
					{In: "1", Out: "G", To: 0},
				},
			},
		},
	}
}

func TestEncodeDecodeBitRoundTrip(t *testing.T) {
	m := twoBaseMachine()
	var seq bytes.Buffer
	enc := NewEncoder(m, &seq)
	bits := []int{0, 1, 1, 0, 1}
	for _, b := range bits {
		if err := enc.EncodeBit(b); err != nil {
			t.Fatalf("EncodeBit(%d) failed: %v", b, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var decodedBits []byte
	dec := NewDecoder(m, func(s string) error {
		decodedBits = append(decodedBits, s...)
		return nil
	})
	if err := dec.DecodeString(seq.String()); err != nil {
		t.Fatalf("DecodeString failed: %v", err)
	}
	dec.Close()

	got := string(decodedBits)
	want := "01101"
	if got != want {
		t.Errorf("decoded bits = %q, want %q", got, want)
	}
}

func TestBinaryWriterPacksLSBFirst(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf, false)
	if err := bw.WriteSymbols("10000000"); err != nil {
		t.Fatalf("WriteSymbols failed: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := buf.Bytes(); len(got) != 1 || got[0] != 1 {
		t.Errorf("packed byte = %v, want [1] (LSB-first '1' in bit 0)", got)
	}
}

func TestBinaryWriterIgnoresControlChars(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf, false)
	if err := bw.WriteSymbols("X1111111Y1"); err != nil {
		t.Fatalf("WriteSymbols failed: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buf.Len() != 1 {
		t.Errorf("expected exactly 1 packed byte, got %d", buf.Len())
	}
}
