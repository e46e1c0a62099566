// Package control implements a control-word planner: it selects a set
// of k-mers to serve as control symbols (framing/escape meta-symbols in
// the transducer built by internal/transducer) and computes the
// deterministic bridge paths that reach each one from every live
// k-mer. It is grounded on
// original_source/src/builder.cpp's getNextControlWord / getControlWords
// / pathsTo, reworked around a single "build context" value (the
// *graph.Builder itself, passed explicitly) with snapshot/restore for
// backtracking, rather than method-level recursion into implicitly
// shared state.
package control

import (
	"fmt"
	"sort"

	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/xlog"
)

// DefaultMaxSteps is the default cap on stepsToReach used by the
// planner: a configurable cap, default 64.
const DefaultMaxSteps = 64

// ControlWord is one planner-committed control symbol, with the bridge
// paths that lead every live k-mer to it.
type ControlWord struct {
	Kmer  kmer.Kmer
	Len   kmer.Pos
	Steps int

	// BridgePaths[s] is the shortest path of exactly Steps edges from s to
	// Kmer, as an ordered list of intermediate k-mers excluding s and
	// including Kmer itself (first hop first).
	BridgePaths map[kmer.Kmer][]kmer.Kmer

	// BridgeIntermediates[step] is the set of distinct k-mers that must be
	// realized as bridge states at that step (0-indexed; step Steps-1 is
	// always exactly {Kmer}).
	BridgeIntermediates []map[kmer.Kmer]bool
}

// isPalindrome reports whether k is its own reverse complement, which
// disqualifies it as a control word candidate: no control word may be
// its own reverse complement.
func isPalindrome(k kmer.Kmer, length kmer.Pos) bool {
	return k == kmer.RevComp(k, length)
}

// candidateScore is the minimum Hamming distance from k to every already
// chosen control word and its reverse complement; an empty chosen set
// scores as length, since the very first candidate is scored against
// nothing.
func candidateScore(k kmer.Kmer, length kmer.Pos, chosen []ControlWord) int {
	if len(chosen) == 0 {
		return int(length)
	}
	best := int(length) + 1
	for _, c := range chosen {
		if d := kmer.HammingDistance(k, c.Kmer, length); d < best {
			best = d
		}
		rc := kmer.RevComp(c.Kmer, length)
		if d := kmer.HammingDistance(k, rc, length); d < best {
			best = d
		}
	}
	return best
}

// Plan runs a backtracking search to select count control words from
// b's currently-live k-mers, perturbing b in the process (committed
// control words become source motifs, and their reverse complements
// are invalidated). It returns the committed words with their bridge
// paths, or an error if the search tree is exhausted before count
// words are placed.
func Plan(b *graph.Builder, count int, maxSteps int) ([]ControlWord, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	chosen, ok := planRecursive(b, nil, maxSteps, count)
	if !ok {
		return nil, fmt.Errorf("control: exhausted search tree before placing %d control words", count)
	}
	for i := range chosen {
		chosen[i].Steps = b.StepsToReach(kmer.KmerLen{Kmer: chosen[i].Kmer, Len: chosen[i].Len}, maxSteps)
		chosen[i].BridgePaths = b.PathsTo(chosen[i].Kmer, chosen[i].Steps)
		chosen[i].BridgeIntermediates = bridgeIntermediates(chosen[i].BridgePaths, chosen[i].Steps)
	}
	return chosen, nil
}

// bridgeIntermediates collapses per-source bridge paths into, for each
// step, the distinct set of k-mers that must be realized as bridge
// states.
func bridgeIntermediates(paths map[kmer.Kmer][]kmer.Kmer, steps int) []map[kmer.Kmer]bool {
	sets := make([]map[kmer.Kmer]bool, steps)
	for i := range sets {
		sets[i] = make(map[kmer.Kmer]bool)
	}
	for _, path := range paths {
		for i, k := range path {
			if i < steps {
				sets[i][k] = true
			}
		}
	}
	return sets
}

// planRecursive picks the next control word given the words already
// chosen, trying candidates in score order and backtracking via
// snapshot/restore on failure. Recursion depth is bounded by the
// remaining target count, so this does not risk the unbounded recursion
// the pruning visitor in internal/graph avoids with an explicit
// worklist.
func planRecursive(b *graph.Builder, chosen []ControlWord, maxSteps, target int) ([]ControlWord, bool) {
	if len(chosen) == target {
		return chosen, true
	}

	candidates := make([]kmer.Kmer, 0, len(b.Kmers))
	for _, k := range b.Kmers {
		if isPalindrome(k, b.Len) {
			continue
		}
		if len(chosen) > 0 && candidateScore(k, b.Len, chosen) == 0 {
			continue // distance 0 from an already-chosen control word (or its revcomp)
		}
		candidates = append(candidates, k)
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := candidateScore(candidates[i], b.Len, chosen), candidateScore(candidates[j], b.Len, chosen)
		if si != sj {
			return si > sj
		}
		return candidates[i] < candidates[j]
	})

	for _, c := range candidates {
		validSnap := b.SnapshotValid()
		motifSnap := append([]kmer.KmerLen(nil), b.SourceMotif...)

		b.SourceMotif = append(b.SourceMotif, kmer.KmerLen{Kmer: c, Len: b.Len})
		rc := kmer.RevComp(c, b.Len)
		b.Valid[rc] = false
		b.PruneDeadEnds()
		b.PruneUnreachable()

		ok := stillLive(b, c) && reachableWithinCap(b, c, maxSteps) && allPreviousReachable(b, chosen, maxSteps)
		if ok {
			next, success := planRecursive(b, append(chosen, ControlWord{Kmer: c, Len: b.Len}), maxSteps, target)
			if success {
				return next, true
			}
		}

		xlog.At(6, "Rejecting control word candidate %s", kmer.String(c, b.Len))
		b.RestoreValid(validSnap)
		b.SourceMotif = motifSnap
	}
	return nil, false
}

func stillLive(b *graph.Builder, k kmer.Kmer) bool {
	return b.Valid[k]
}

func reachableWithinCap(b *graph.Builder, k kmer.Kmer, maxSteps int) bool {
	return b.StepsToReach(kmer.KmerLen{Kmer: k, Len: b.Len}, maxSteps) >= 0
}

func allPreviousReachable(b *graph.Builder, chosen []ControlWord, maxSteps int) bool {
	for _, c := range chosen {
		if b.StepsToReach(kmer.KmerLen{Kmer: c.Kmer, Len: c.Len}, maxSteps) < 0 {
			return false
		}
	}
	return true
}
