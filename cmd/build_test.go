package cmd

import (
	"strings"
	"testing"

	"github.com/ihh/dnastore/internal/codec"
)

// TestBuildMachineEncodeDecodeRoundTrip exercises buildMachine, the
// pipeline shared by the build/encode/decode commands (graph build ->
// control-word planning -> transducer assembly), then round-trips a
// payload through the result via internal/codec, mirroring the
// e2e_test.go convention of _examples/jjti-repp's cmd/internal packages.
func TestBuildMachineEncodeDecodeRoundTrip(t *testing.T) {
	buildLength = 4
	buildTandem = -1
	buildInvRep = -1
	buildExclude = nil
	buildSource = nil
	buildControls = 2
	buildControlSteps = 64
	buildNoStart = false
	buildNoEnd = false

	m, err := buildMachine()
	if err != nil {
		t.Fatalf("buildMachine failed: %v", err)
	}

	payload := "0110100111010"
	var seq strings.Builder
	enc := codec.NewEncoder(m, &seq)
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
	dec := codec.NewDecoder(m, func(s string) error {
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

func TestBuildMachineRejectsBadMotif(t *testing.T) {
	buildLength = 4
	buildTandem = -1
	buildInvRep = -1
	buildExclude = []string{"NOTDNA"}
	buildSource = nil
	buildControls = 0
	buildControlSteps = 64
	buildNoStart = false
	buildNoEnd = false

	if _, err := buildMachine(); err == nil {
		t.Error("expected an error for an exclude motif containing non-DNA characters")
	}
}
