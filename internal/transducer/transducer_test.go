package transducer

import (
	"testing"

	"github.com/ihh/dnastore/internal/control"
	"github.com/ihh/dnastore/internal/graph"
)

func TestAssembleNoControlsNoFraming(t *testing.T) {
	b := graph.NewBuilder(6)
	b.Build()

	m, err := Assemble(b, nil, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if int(m.NStates()) < len(b.Kmers) {
		t.Errorf("machine has %d states, want at least %d (one per live k-mer)", m.NStates(), len(b.Kmers))
	}
	var edgeCount int
	for _, k := range b.Kmers {
		edgeCount += b.CountOutgoing(k)
	}
	var transCount int
	for _, ms := range m.State {
		if ms.Type == CodeState || ms.Type == SplitState {
			transCount += len(ms.Trans)
		}
	}
	if transCount < edgeCount {
		t.Errorf("machine has %d coding transitions, want at least %d", transCount, edgeCount)
	}
}

func TestAssembleWithControlsAndFraming(t *testing.T) {
	b := graph.NewBuilder(8)
	b.Build()

	words, err := control.Plan(b, 2, control.DefaultMaxSteps)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	m, err := Assemble(b, words, Options{StartFraming: true, EndFraming: true})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if m.NStates() == 0 {
		t.Fatal("expected a non-empty machine")
	}

	foundEnd := false
	for _, ms := range m.State {
		if ms.Type == EndState {
			foundEnd = true
		}
	}
	if !foundEnd {
		t.Error("expected an End state when end framing is enabled")
	}

	foundStart := false
	for _, ms := range m.State {
		if ms.Type == StartState {
			foundStart = true
		}
	}
	if !foundStart {
		t.Error("expected Start load states when start framing is enabled")
	}
}

func TestExpectedBasesPerBitPositive(t *testing.T) {
	b := graph.NewBuilder(6)
	b.Build()
	m, err := Assemble(b, nil, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if rate := m.ExpectedBasesPerBit(); rate <= 0 {
		t.Errorf("ExpectedBasesPerBit() = %v, want > 0", rate)
	}
}

func TestWriteTextDoesNotPanic(t *testing.T) {
	b := graph.NewBuilder(5)
	b.Build()
	m, err := Assemble(b, nil, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if m.String() == "" {
		t.Error("expected non-empty text rendering")
	}
}
