package control

import (
	"testing"

	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
)

func TestPlanProducesDistinctUnreachableRevComps(t *testing.T) {
	b := graph.NewBuilder(6)
	b.Build()

	words, err := Plan(b, 2, DefaultMaxSteps)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 control words, got %d", len(words))
	}
	seen := make(map[kmer.Kmer]bool)
	for _, w := range words {
		if seen[w.Kmer] {
			t.Errorf("control word %s chosen twice", kmer.String(w.Kmer, w.Len))
		}
		seen[w.Kmer] = true
		rc := kmer.RevComp(w.Kmer, w.Len)
		if b.Valid[rc] {
			t.Errorf("reverse complement of control word %s should not be live", kmer.String(w.Kmer, w.Len))
		}
		if w.Steps < 0 {
			t.Errorf("control word %s has no recorded stepsToReach", kmer.String(w.Kmer, w.Len))
		}
	}
}

func TestPlanBridgePathsReachControlWord(t *testing.T) {
	b := graph.NewBuilder(5)
	b.Build()

	words, err := Plan(b, 1, DefaultMaxSteps)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	w := words[0]
	for s, path := range w.BridgePaths {
		if len(path) != w.Steps {
			t.Errorf("bridge path from %s has length %d, want %d", kmer.String(s, w.Len), len(path), w.Steps)
			continue
		}
		if len(path) > 0 && path[len(path)-1] != w.Kmer {
			t.Errorf("bridge path from %s does not end at control word %s", kmer.String(s, w.Len), kmer.String(w.Kmer, w.Len))
		}
	}
	if len(w.BridgeIntermediates) != w.Steps {
		t.Errorf("bridgeIntermediates has %d steps, want %d", len(w.BridgeIntermediates), w.Steps)
	}
}

func TestPlanRejectsPalindromicFirstCandidateGracefully(t *testing.T) {
	b := graph.NewBuilder(4)
	b.Build()
	if len(b.Kmers) == 0 {
		t.Skip("no surviving 4-mers to test with")
	}
	words, err := Plan(b, 1, DefaultMaxSteps)
	if err != nil || len(words) == 0 {
		t.Fatalf("Plan should find at least one control word among 4-mers: %v", err)
	}
	if isPalindrome(words[0].Kmer, b.Len) {
		t.Errorf("Plan chose palindromic control word %s", kmer.String(words[0].Kmer, b.Len))
	}
}
