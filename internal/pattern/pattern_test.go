package pattern

import (
	"testing"

	"github.com/ihh/dnastore/internal/kmer"
)

func TestHasExactTandemRepeat(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		max  kmer.Pos
		want bool
	}{
		{"contains ACGACG", "ACGACG", 3, true},
		{"no repeat", "ACGACT", 3, false},
		{"repeated base", "AAGT", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := kmer.Parse(tt.seq)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.seq, err)
			}
			got := HasExactTandemRepeat(k, kmer.Pos(len(tt.seq)), tt.max)
			if got != tt.want {
				t.Errorf("HasExactTandemRepeat(%s, %d) = %v, want %v", tt.seq, tt.max, got, tt.want)
			}
		})
	}
}

func TestHasExactLocalInvertedRepeat(t *testing.T) {
	// ACGCGT is a palindrome: ACG / CGT, and revcomp(ACG) = CGT.
	k, err := kmer.Parse("ACGCGT")
	if err != nil {
		t.Fatal(err)
	}
	if !HasExactLocalInvertedRepeat(k, 6, 3, 4) {
		t.Errorf("ACGCGT should contain a local inverted repeat of length 3")
	}
}

func TestHasExactLocalInvertedRepeatNegative(t *testing.T) {
	k, err := kmer.Parse("ACGTAC")
	if err != nil {
		t.Fatal(err)
	}
	if HasExactLocalInvertedRepeat(k, 6, 3, 3) {
		t.Errorf("ACGTAC should not contain a local inverted repeat of length 3")
	}
}

func TestEndsWithMotif(t *testing.T) {
	motif, err := ParseMotif("CG")
	if err != nil {
		t.Fatal(err)
	}
	k, err := kmer.Parse("ACGTCG")
	if err != nil {
		t.Fatal(err)
	}
	if !EndsWithMotif(k, 6, []kmer.KmerLen{motif}, "") {
		t.Errorf("ACGTCG should end with motif CG")
	}
	k2, err := kmer.Parse("ACGTGC")
	if err != nil {
		t.Fatal(err)
	}
	if EndsWithMotif(k2, 6, []kmer.KmerLen{motif}, "") {
		t.Errorf("ACGTGC should not end with motif CG")
	}
}

func TestFiltersReject(t *testing.T) {
	f := DefaultFilters(6)
	k, err := kmer.Parse("ACGACG")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Reject(k, 6) {
		t.Errorf("ACGACG should be rejected as a tandem repeat")
	}
}
