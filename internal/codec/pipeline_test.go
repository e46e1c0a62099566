package codec

import (
	"strings"
	"testing"

	"github.com/ihh/dnastore/internal/control"
	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/pattern"
	"github.com/ihh/dnastore/internal/transducer"
)

// TestFullPipelineEncodeDecodeRoundTrip exercises the real pipeline this
// package is built for, end to end: a de Bruijn graph is built, control
// words are planned against it, a transducer is assembled over the
// result, and a payload is encoded then decoded through that transducer.
// The decoded bits must equal the original payload exactly.
func TestFullPipelineEncodeDecodeRoundTrip(t *testing.T) {
	length := kmer.Pos(5)
	b := graph.NewBuilder(length)
	b.Filters = pattern.DefaultFilters(length)
	b.Build()

	controls, err := control.Plan(b, 2, control.DefaultMaxSteps)
	if err != nil {
		t.Fatalf("control.Plan failed: %v", err)
	}

	m, err := transducer.Assemble(b, controls, transducer.Options{StartFraming: true, EndFraming: true})
	if err != nil {
		t.Fatalf("transducer.Assemble failed: %v", err)
	}

	payload := "0110100111010010"
	var seq strings.Builder
	enc := NewEncoder(m, &seq)
	for _, c := range payload {
		bit := 0
		if c == '1' {
			bit = 1
		}
		if err := enc.EncodeBit(bit); err != nil {
			t.Fatalf("EncodeBit failed: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Encoder.Close failed: %v", err)
	}

	var decoded strings.Builder
	dec := NewDecoder(m, func(s string) error {
		decoded.WriteString(s)
		return nil
	})
	if err := dec.DecodeString(seq.String()); err != nil {
		t.Fatalf("DecodeString failed: %v", err)
	}
	dec.Close()

	if got := decoded.String(); got != payload {
		t.Errorf("decoded payload = %q, want %q (encoded DNA: %s)", got, payload, seq.String())
	}
}
