package mutator

import (
	"math"
	"testing"

	"github.com/ihh/dnastore/internal/kmer"
)

func TestLogSumExpMatchesDirectComputation(t *testing.T) {
	tests := []struct{ a, b float64 }{
		{-1, -2}, {-5, -5}, {0, -10}, {-0.5, -0.5}, {-100, -1},
	}
	for _, tt := range tests {
		got := LogSumExp(tt.a, tt.b)
		want := math.Log(math.Exp(tt.a) + math.Exp(tt.b))
		if math.Abs(got-want) > 1e-3 {
			t.Errorf("LogSumExp(%v,%v) = %v, want ~%v", tt.a, tt.b, got, want)
		}
	}
}

func TestLogSumExpEqualArgsNoNaN(t *testing.T) {
	got := LogSumExp(NegInf, NegInf)
	if !math.IsInf(got, -1) {
		t.Errorf("LogSumExp(-Inf,-Inf) = %v, want -Inf", got)
	}
	if got2 := LogSumExp(-3.2, -3.2); math.IsNaN(got2) {
		t.Error("LogSumExp(a,a) produced NaN")
	}
}

func TestMLParamsLaplaceSmoothing(t *testing.T) {
	// Baum-Welch on a single alignment of two identical length-100
	// sequences, one iteration, Laplace prior.
	c := NewCounts(DefaultParams(4))
	c.NNoGap = 100
	prior := NewCounts(DefaultParams(4)).InitLaplace(1)
	params := c.MLParamsWithPrior(prior)
	wantDelOpen := 1.0 / (100 + 3)
	if math.Abs(params.PDelOpen-wantDelOpen) > 1e-6 {
		t.Errorf("pDelOpen = %v, want ~%v", params.PDelOpen, wantDelOpen)
	}
}

func TestParamsFromJSONRejectsNonzeroPFwdDup(t *testing.T) {
	data := []byte(`{"pDelOpen":0.01,"pDelExtend":0.3,"pTanDup":0.01,"pTransition":0.02,"pTransversion":0.01,"pLen":[1],"local":false,"pFwdDup":0.5}`)
	if _, err := ParamsFromJSON(data); err == nil {
		t.Error("expected an error for nonzero pFwdDup")
	}
}

func TestParamsFromJSONAcceptsZeroPFwdDup(t *testing.T) {
	data := []byte(`{"pDelOpen":0.01,"pDelExtend":0.3,"pTanDup":0.01,"pTransition":0.02,"pTransversion":0.01,"pLen":[1],"local":false,"pFwdDup":0}`)
	if _, err := ParamsFromJSON(data); err != nil {
		t.Errorf("unexpected error for zero pFwdDup: %v", err)
	}
}

func TestPSubCategories(t *testing.T) {
	p := DefaultParams(4)
	a, g, c2 := kmer.Base(0), kmer.Base(1), kmer.Base(3)
	if p.PSub(a, a) != p.PMatch() {
		t.Error("PSub(x,x) should equal PMatch()")
	}
	if p.PSub(a, g) != p.PTransition {
		t.Error("PSub(A,G) should equal PTransition")
	}
	if p.PSub(a, c2) != p.PTransversion/2 {
		t.Error("PSub(A,C) should equal PTransversion/2")
	}
}
