// Package pattern implements the pattern filters deciding whether a
// k-mer contains a forbidden motif, tandem repeat, or inverted repeat.
// Each filter is grounded on original_source/src/pattern.h and shares
// its early-exit, suffix-match structure; reporting goes through
// internal/xlog rather than an exception.
package pattern

import (
	"fmt"

	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/xlog"
)

// EndsWithMotif reports whether seq (a k-mer of length seqLen) ends with
// one of the motifs in the set, i.e. whether the last len(motif) bases of
// seq equal the motif. desc, if non-empty, is logged alongside a rejection.
func EndsWithMotif(seq kmer.Kmer, seqLen kmer.Pos, motifs []kmer.KmerLen, desc string) bool {
	for _, kl := range motifs {
		if kmer.Sub(seq, 1, kl.Len) == kl.Kmer {
			if desc != "" {
				xlog.At(4, "Rejecting %s because it ends with %s (%s)", kmer.String(seq, seqLen), kl.String(), desc)
			}
			return true
		}
	}
	return false
}

// HasExactTandemRepeat reports whether seq contains an exact tandem
// repeat of any length from 1 to maxRepeatLen: some substring immediately
// followed by an identical copy of itself.
func HasExactTandemRepeat(seq kmer.Kmer, seqLen kmer.Pos, maxRepeatLen kmer.Pos) bool {
	for repeatLen := kmer.Pos(1); repeatLen <= maxRepeatLen; repeatLen++ {
		for i := seqLen - 2*repeatLen + 1; i >= 1; i-- {
			if kmer.Sub(seq, i, repeatLen) == kmer.Sub(seq, i+repeatLen, repeatLen) {
				logLevel := 8 - int(repeatLen)
				if logLevel < 5 {
					logLevel = 5
				}
				what := "exact tandem repeat"
				if repeatLen == 1 {
					what = "repeated base"
				}
				xlog.At(logLevel, "Rejecting %s because of a %s at position %d (length %d)", kmer.String(seq, seqLen), what, i, repeatLen)
				return true
			}
		}
	}
	return false
}

// HasExactLocalInvertedRepeat reports whether seq contains an exact
// hairpin: a substring whose reverse complement appears immediately
// after it, for some repeat length in [minRepeatLen, maxRepeatLen].
func HasExactLocalInvertedRepeat(seq kmer.Kmer, seqLen, minRepeatLen, maxRepeatLen kmer.Pos) bool {
	if minRepeatLen < 1 {
		minRepeatLen = 1
	}
	rc := kmer.RevComp(seq, seqLen)
	for repeatLen := minRepeatLen; repeatLen <= maxRepeatLen; repeatLen++ {
		for i := seqLen - 2*repeatLen + 1; i >= 1; i-- {
			invRep := kmer.Sub(rc, seqLen-i-repeatLen+2, repeatLen)
			if invRep == kmer.Sub(seq, i+repeatLen, repeatLen) {
				logLevel := 8 - int(repeatLen)
				if logLevel < 5 {
					logLevel = 5
				}
				xlog.At(logLevel, "Rejecting %s because of a local inverted repeat (palindrome) at position %d (length %d)", kmer.String(seq, seqLen), i, repeatLen)
				return true
			}
		}
	}
	return false
}

// HasExactNonlocalInvertedRepeat reports whether seq contains two
// occurrences, separated by at least minSeparation bases, of a repeatLen
// substring and its reverse complement.
func HasExactNonlocalInvertedRepeat(seq kmer.Kmer, seqLen, repeatLen, minSeparation kmer.Pos) bool {
	if repeatLen <= 0 {
		return false
	}
	rc := kmer.RevComp(seq, seqLen)
	for i := seqLen - repeatLen*2 - minSeparation; i > 0; i-- {
		invRep := kmer.Sub(rc, seqLen-i-repeatLen+2, repeatLen)
		jMin := i + repeatLen + minSeparation
		for j := seqLen - repeatLen + 1; j >= jMin; j-- {
			if invRep == kmer.Sub(seq, j, repeatLen) {
				xlog.At(4, "Rejecting %s because of a non-local inverted repeat between positions %d and %d (length %d)", kmer.String(seq, seqLen), i, j, repeatLen)
				return true
			}
		}
	}
	return false
}

// Filters bundles the per-k-mer-length configuration used by
// findCandidates (internal/graph) and exposes a single Reject entry point
// combining all four checks, matching the early-exit composition in
// original_source/src/builder.cpp: TransBuilder::findCandidates.
type Filters struct {
	MaxTandemRepeatLen    kmer.Pos
	MinInvertedRepeatLen  kmer.Pos
	MaxInvertedRepeatLen  kmer.Pos
	NonlocalInvRepLen     kmer.Pos
	NonlocalInvRepMinSep  kmer.Pos
	ExcludedMotif         []kmer.KmerLen
	ExcludedMotifRevComp  []kmer.KmerLen
}

// DefaultFilters returns the filter configuration the CLI uses when the
// user does not override tandem/inverted-repeat bounds: maxTandem = L/2,
// local inverted repeats from length 3 up to maxTandem, and non-local
// inverted repeats disabled (length 0), matching
// original_source/src/builder.cpp: TransBuilder::TransBuilder.
func DefaultFilters(length kmer.Pos) Filters {
	return Filters{
		MaxTandemRepeatLen:   length / 2,
		MinInvertedRepeatLen: 3,
		MaxInvertedRepeatLen: length / 2,
		NonlocalInvRepLen:    0,
		NonlocalInvRepMinSep: 2,
	}
}

// Reject reports whether seq should be excluded as a candidate k-mer,
// checking excluded motifs (and their reverse complements), tandem
// repeats, local inverted repeats, and non-local inverted repeats in that
// order, short-circuiting on the first match.
func (f Filters) Reject(seq kmer.Kmer, seqLen kmer.Pos) bool {
	return EndsWithMotif(seq, seqLen, f.ExcludedMotif, "excluded motif") ||
		EndsWithMotif(seq, seqLen, f.ExcludedMotifRevComp, "revcomp of excluded motif") ||
		HasExactTandemRepeat(seq, seqLen, f.MaxTandemRepeatLen) ||
		HasExactLocalInvertedRepeat(seq, seqLen, f.MinInvertedRepeatLen, f.MaxInvertedRepeatLen) ||
		HasExactNonlocalInvertedRepeat(seq, seqLen, f.NonlocalInvRepLen, f.NonlocalInvRepMinSep)
}

// ParseMotif parses a nucleotide string into a KmerLen usable in an
// excluded- or source-motif set, returning a descriptive error on failure
// (mirrors the CLI's "--exclude MOTIF" / "--source MOTIF" parsing).
func ParseMotif(s string) (kmer.KmerLen, error) {
	k, err := kmer.Parse(s)
	if err != nil {
		return kmer.KmerLen{}, fmt.Errorf("pattern: invalid motif %q: %w", s, err)
	}
	return kmer.KmerLen{Kmer: k, Len: kmer.Pos(len(s))}, nil
}
