package viterbi

import (
	"strings"
	"testing"

	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/mutator"
	"github.com/ihh/dnastore/internal/pattern"
	"github.com/ihh/dnastore/internal/transducer"
)

func smallMachine(t *testing.T) *transducer.Machine {
	b := graph.NewBuilder(kmer.Pos(3))
	b.Filters = pattern.Filters{}
	b.Build()
	m, err := transducer.Assemble(b, nil, transducer.Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return m
}

func TestForwardBackwardAgreeOnLogLikelihood(t *testing.T) {
	ref := []kmer.Base{0, 1, 2, 3, 0, 1}
	obs := []kmer.Base{0, 1, 2, 3, 0, 1}
	scores := mutator.NewScores(mutator.DefaultParams(4))
	pair := TrainingPair{Ref: ref, Obs: obs}
	fm := NewForwardMatrix(pair, scores)
	bm := NewBackwardMatrix(pair, scores)
	fl, bl := fm.LogLikelihood(), bm.LogLikelihood()
	if fl == mutator.NegInf || bl == mutator.NegInf {
		t.Fatalf("expected finite log-likelihoods, got fwd=%v bwd=%v", fl, bl)
	}
	diff := fl - bl
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-3 {
		t.Errorf("forward/backward log-likelihoods disagree: %v vs %v", fl, bl)
	}
}

func TestBaumWelchImprovesOrHoldsLogLikelihood(t *testing.T) {
	pairs := []TrainingPair{
		{Ref: []kmer.Base{0, 1, 2, 3}, Obs: []kmer.Base{0, 1, 2, 3}},
		{Ref: []kmer.Base{0, 0, 1, 1}, Obs: []kmer.Base{0, 0, 1, 1}},
	}
	res := BaumWelch(pairs, mutator.DefaultParams(4), 10, 1e-3)
	if len(res.LogLik) < 1 {
		t.Fatal("expected at least one recorded log-likelihood")
	}
	if res.LogLik[len(res.LogLik)-1] < res.LogLik[0]-1e-6 {
		t.Errorf("log-likelihood decreased: %v -> %v", res.LogLik[0], res.LogLik[len(res.LogLik)-1])
	}
}

func TestViterbiMatrixDecodesExactMatch(t *testing.T) {
	m := smallMachine(t)
	scores := mutator.NewScores(mutator.DefaultParams(4))

	enc := []kmer.Base{}
	var wantIn strings.Builder
	q := m.StartStateIndex()
	for i := 0; i < 4; i++ {
		ms := m.State[q]
		var next *transducer.Transition
		for _, tr := range ms.Trans {
			if tr.Out != "" {
				found := tr
				next = &found
				break
			}
		}
		if next == nil {
			break
		}
		b, err := kmer.CharToBase(next.Out[0])
		if err != nil {
			t.Fatalf("CharToBase(%q) failed: %v", next.Out[0], err)
		}
		enc = append(enc, b)
		wantIn.WriteString(next.In)
		q = next.To
	}
	if len(enc) == 0 {
		t.Skip("start state has no base-emitting transition to build a test observation from")
	}

	mx := NewMatrix(m, scores, enc)
	mx.Fill()
	score, key, found := mx.BestScore()
	if !found {
		t.Fatal("expected a reachable best-score cell")
	}
	if score == mutator.NegInf {
		t.Fatal("expected a finite best score for an exact-match observation")
	}
	if key.sub != subS {
		t.Errorf("best-score cell sub-state = %v, want subS (a closed path)", key.sub)
	}
	bits, err := mx.Traceback(len(enc), key)
	if err != nil {
		t.Fatalf("Traceback failed: %v", err)
	}
	if bits != wantIn.String() {
		t.Errorf("Traceback recovered %q, want %q", bits, wantIn.String())
	}
}
