// Package graph builds a constrained de Bruijn sub-graph: candidate
// generation over all 4^L k-mers, dead-end pruning to a fixpoint,
// single-pass reachability pruning from the source motifs, and optional
// degenerate-edge elimination. It is grounded on
// original_source/src/builder.cpp (TransBuilder), adapted into an
// explicit-worklist form (dead-end cascades are pruned by a worklist
// rather than an unbounded recursive visitor) around a single
// build-context value with snapshot/restore, used by internal/control
// for its backtracking search.
package graph

import (
	"math/bits"

	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/pattern"
	"github.com/ihh/dnastore/internal/xlog"
)

// EdgeFlags packs which of the four outgoing (or incoming) neighbors of a
// k-mer are currently live, one bit per base in kmer.Alphabet order.
type EdgeFlags byte

// edgeKey identifies a directed edge for the dropped-edge set consulted
// by buildEdges and never re-added afterwards.
type edgeKey struct {
	src, dst kmer.Kmer
}

// Builder owns the mutable state of a graph construction: the k-mer
// validity bit vector and the working k-mer list, exclusively; no
// interior references escape to callers.
type Builder struct {
	Len     kmer.Pos
	MaxKmer kmer.Kmer

	Filters         pattern.Filters
	SourceMotif     []kmer.KmerLen
	KeepDegenerates bool

	Valid []bool
	Kmers []kmer.Kmer

	DroppedEdge map[edgeKey]bool
}

// NewBuilder allocates a Builder for k-mers of the given length. The
// caller configures Filters and SourceMotif before calling FindCandidates.
func NewBuilder(length kmer.Pos) *Builder {
	return &Builder{
		Len:         length,
		MaxKmer:     kmer.Mask(length),
		Filters:     pattern.DefaultFilters(length),
		DroppedEdge: make(map[edgeKey]bool),
	}
}

// endsWithSourceMotif reports whether kmer k ends with one of the
// configured source motifs. No live edge leads into such a k-mer (see
// OutgoingEdgeFlags); its own outgoing edges stay live in the graph.
func (b *Builder) endsWithSourceMotif(k kmer.Kmer) bool {
	return pattern.EndsWithMotif(k, b.Len, b.SourceMotif, "")
}

// FindCandidates runs the pattern filters over every k-mer of length Len
// and retains the survivors, populating both Valid and Kmers. This
// dominates the builder's overall O(4^L * L) complexity.
func (b *Builder) FindCandidates() {
	b.Valid = make([]bool, b.MaxKmer+1)
	b.Kmers = b.Kmers[:0]
	for k := kmer.Kmer(0); k <= b.MaxKmer; k++ {
		if !b.Filters.Reject(k, b.Len) {
			b.Valid[k] = true
			b.Kmers = append(b.Kmers, k)
		}
		if k == b.MaxKmer {
			break // avoid overflow when MaxKmer == ^Kmer(0)
		}
	}
	xlog.At(2, "Found %d candidate %d-mers without repeats (%.2f%%)", len(b.Kmers), b.Len, 100*float64(len(b.Kmers))/float64(b.MaxKmer+1))
}

// Outgoing returns the four k-mers reachable from k by shifting in one
// base, in kmer.Alphabet order, regardless of liveness.
func (b *Builder) Outgoing(k kmer.Kmer) [4]kmer.Kmer {
	var out [4]kmer.Kmer
	for base := kmer.Base(0); base < 4; base++ {
		out[base] = kmer.ShiftIn(k, b.Len, base)
	}
	return out
}

// Incoming returns the four k-mers that reach k by shifting in k's last
// base, indexed by the base that would have been shifted out.
func (b *Builder) Incoming(k kmer.Kmer) [4]kmer.Kmer {
	var in [4]kmer.Kmer
	prefix := k >> 2
	shift := uint((b.Len - 1) << 1)
	for base := kmer.Base(0); base < 4; base++ {
		in[base] = prefix | (kmer.Kmer(base) << shift)
	}
	return in
}

// OutgoingEdgeFlags reports which outgoing edges of k are currently live:
// the destination must be valid, must not end with a source motif (no
// edge leads into a source state), and must not have been dropped by
// degenerate-edge elimination.
func (b *Builder) OutgoingEdgeFlags(k kmer.Kmer) (EdgeFlags, [4]kmer.Kmer) {
	out := b.Outgoing(k)
	var f EdgeFlags
	for n := 0; n < 4; n++ {
		if b.Valid[out[n]] && !b.endsWithSourceMotif(out[n]) && !b.DroppedEdge[edgeKey{k, out[n]}] {
			f |= 1 << n
		}
	}
	return f, out
}

// IncomingEdgeFlags reports which incoming edges of k are currently live.
func (b *Builder) IncomingEdgeFlags(k kmer.Kmer) (EdgeFlags, [4]kmer.Kmer) {
	in := b.Incoming(k)
	var f EdgeFlags
	for n := 0; n < 4; n++ {
		if b.Valid[in[n]] && !b.DroppedEdge[edgeKey{in[n], k}] {
			f |= 1 << n
		}
	}
	return f, in
}

// CountOutgoing returns the number of live outgoing edges from k.
func (b *Builder) CountOutgoing(k kmer.Kmer) int {
	f, _ := b.OutgoingEdgeFlags(k)
	return bits.OnesCount8(byte(f))
}

// CountIncoming returns the number of live incoming edges to k.
func (b *Builder) CountIncoming(k kmer.Kmer) int {
	f, _ := b.IncomingEdgeFlags(k)
	return bits.OnesCount8(byte(f))
}

// pruneQueue is a small explicit worklist used by PruneDeadEnds, replacing
// the original C++ implementation's unbounded recursive visitor: a
// removed k-mer's neighbors cascade onto the queue instead of the call
// stack.
type pruneQueue struct {
	items []kmer.Kmer
}

func (q *pruneQueue) push(k kmer.Kmer) { q.items = append(q.items, k) }
func (q *pruneQueue) empty() bool      { return len(q.items) == 0 }
func (q *pruneQueue) pop() kmer.Kmer {
	n := len(q.items) - 1
	k := q.items[n]
	q.items = q.items[:n]
	return k
}

// PruneDeadEnds removes, to a fixpoint, every live non-source k-mer with
// zero live incoming or zero live outgoing edges. Pruning a k-mer can
// strand its neighbors, so each removal re-examines the k-mer's live
// neighbors via an explicit worklist rather than recursion.
func (b *Builder) PruneDeadEnds() {
	q := &pruneQueue{}
	for _, k := range b.Kmers {
		q.push(k)
	}
	seen := make(map[kmer.Kmer]bool, len(b.Kmers))
	for !q.empty() {
		k := q.pop()
		if seen[k] {
			continue
		}
		seen[k] = true
		if !b.Valid[k] || b.endsWithSourceMotif(k) {
			continue
		}
		inCount := b.CountIncoming(k)
		outCount := b.CountOutgoing(k)
		if inCount == 0 || outCount == 0 {
			xlog.At(9, "Pruning %s with %d incoming and %d outgoing edges", kmer.String(k, b.Len), inCount, outCount)
			b.Valid[k] = false
			in := b.Incoming(k)
			out := b.Outgoing(k)
			for _, nb := range in {
				if b.Valid[nb] {
					seen[nb] = false
					q.push(nb)
				}
			}
			for _, nb := range out {
				if b.Valid[nb] {
					seen[nb] = false
					q.push(nb)
				}
			}
		}
	}

	pruned := 0
	kept := b.Kmers[:0]
	for _, k := range b.Kmers {
		if b.Valid[k] {
			kept = append(kept, k)
		} else {
			pruned++
		}
	}
	b.Kmers = kept
	xlog.At(2, "Dead-end pruning removed %d %d-mers, leaving %d", pruned, b.Len, len(b.Kmers))
}

// dfsDistance runs an iterative depth-first search from start over live
// outgoing edges, returning the set of reached k-mers with their step
// distance from start. This mirrors
// original_source/src/builder.cpp: TransBuilder::doDFS, which already
// uses an explicit stack rather than recursion.
func (b *Builder) dfsDistance(start kmer.Kmer) map[kmer.Kmer]int {
	distance := make(map[kmer.Kmer]int)
	type frame struct {
		k kmer.Kmer
		d int
	}
	stack := []frame{{start, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := distance[top.k]; ok {
			continue
		}
		distance[top.k] = top.d
		out := b.Outgoing(top.k)
		for _, n := range out {
			if b.Valid[n] {
				if _, ok := distance[n]; !ok {
					stack = append(stack, frame{n, top.d + 1})
				}
			}
		}
	}
	return distance
}

// PruneUnreachable runs a depth-first search from each source motif whose
// length equals Len and which is itself a live k-mer (or, if no motif
// qualifies, from an arbitrary live k-mer) and invalidates every live
// k-mer not reached, then re-runs PruneDeadEnds. Source motifs shorter
// than Len do not seed the search.
func (b *Builder) PruneUnreachable() {
	dist := make(map[kmer.Kmer]int)
	for _, kl := range b.SourceMotif {
		if kl.Len == b.Len && b.Valid[kl.Kmer] {
			for k, d := range b.dfsDistance(kl.Kmer) {
				if _, ok := dist[k]; !ok {
					dist[k] = d
				}
			}
		}
	}
	if len(b.Kmers) > 0 && len(dist) == 0 {
		dist = b.dfsDistance(b.Kmers[0])
	}

	dropped := 0
	for _, k := range b.Kmers {
		if _, ok := dist[k]; !ok {
			xlog.At(6, "Dropping %s as it was not seen in depth-first search", kmer.String(k, b.Len))
			b.Valid[k] = false
			dropped++
		}
	}
	if dropped > 0 {
		xlog.At(2, "Dropped %d %d-mers that were unreachable in depth-first search", dropped, b.Len)
		kept := b.Kmers[:0]
		for k := range dist {
			kept = append(kept, k)
		}
		b.Kmers = kept
		b.PruneDeadEnds()
	} else {
		xlog.At(2, "All %d %d-mers were reached in depth-first search", len(b.Kmers), b.Len)
	}
}

// betterDest reports whether x is preferred over y as the surviving
// target of a degenerate edge: fewer incoming edges wins, then smaller
// GC-nonuniformity, then higher entropy.
func (b *Builder) betterDest(x, y kmer.Kmer) bool {
	xi, yi := b.CountIncoming(x), b.CountIncoming(y)
	if xi != yi {
		return xi < yi
	}
	return kmer.EqualOrBetter(x, y, b.Len)
}

// dropWorseEdge removes the less-preferred of the two candidate edges
// out[e1] and out[e2] from src, recording it in DroppedEdge, and returns
// the updated flag set.
func (b *Builder) dropWorseEdge(src kmer.Kmer, flags EdgeFlags, out [4]kmer.Kmer, e1, e2 int) EdgeFlags {
	e := e2
	if !b.betterDest(out[e1], out[e2]) {
		e = e1
	}
	xlog.At(4, "Dropping edge to %s from %s", kmer.String(out[e], b.Len), kmer.String(src, b.Len))
	b.DroppedEdge[edgeKey{src, out[e]}] = true
	return flags &^ (1 << e)
}

// BuildEdges finalizes the edge set: for each live k-mer with out-degree
// 4, if it has both live purine targets (A,G) it keeps the preferred one
// and drops the other, likewise for the pyrimidines (C,T); this is
// skipped when KeepDegenerates is set. It then re-runs PruneDeadEnds,
// since dropping edges can create new dead ends.
func (b *Builder) BuildEdges() {
	if !b.KeepDegenerates {
		dropped := 0
		for _, k := range b.Kmers {
			flags, out := b.OutgoingEdgeFlags(k)
			if flags&3 == 3 { // A (bit 0) and G (bit 1) both live
				flags = b.dropWorseEdge(k, flags, out, 0, 1)
				dropped++
			}
			flags, out = b.OutgoingEdgeFlags(k)
			if flags&12 == 12 { // T (bit 2) and C (bit 3) both live
				b.dropWorseEdge(k, flags, out, 2, 3)
				dropped++
			}
		}
		xlog.At(2, "Dropped %d degenerate edges", dropped)
	}
	b.PruneDeadEnds()
}

// Build runs the full construction pipeline: candidate generation, dead-end
// pruning, reachability pruning, and degenerate-edge elimination, in
// that order.
func (b *Builder) Build() {
	b.FindCandidates()
	b.PruneDeadEnds()
	b.PruneUnreachable()
	b.BuildEdges()
}

// SnapshotValid returns a copy of the current validity bit vector, for
// use by internal/control's backtracking control-word search: copy the
// validity bit vector before each tentative commit, restore on reject.
func (b *Builder) SnapshotValid() []bool {
	snap := make([]bool, len(b.Valid))
	copy(snap, b.Valid)
	return snap
}

// RestoreValid replaces the validity bit vector with a previously taken
// snapshot and rebuilds the Kmers list to match.
func (b *Builder) RestoreValid(snap []bool) {
	b.Valid = make([]bool, len(snap))
	copy(b.Valid, snap)
	b.Kmers = b.Kmers[:0]
	for k, ok := range b.Valid {
		if ok {
			b.Kmers = append(b.Kmers, kmer.Kmer(k))
		}
	}
}

// StepsToReach implements the *excluding* variant of
// original_source/src/builder.cpp: TransBuilder::stepsToReach: from the
// neighbor frontier, never expand through a node that ends with a source
// motif unless it is in the starting frontier. maxSteps bounds the
// search; StepsToReach returns -1 if motif is not reached within
// maxSteps steps.
func (b *Builder) StepsToReach(motif kmer.KmerLen, maxSteps int) int {
	frontier := b.kmersEndingWith(motif)
	total := len(b.Kmers)
	for steps := 0; steps < maxSteps; steps++ {
		if len(frontier) == total {
			return steps
		}
		prev := make(map[kmer.Kmer]bool)
		for k := range frontier {
			// The starting frontier (steps == 0) is exempt from the
			// source-motif exclusion; every later frontier is not.
			if steps == 0 || !(b.endsWithSourceMotif(k) || pattern.EndsWithMotif(k, b.Len, []kmer.KmerLen{motif}, "")) {
				in := b.Incoming(k)
				for _, p := range in {
					if b.Valid[p] {
						prev[p] = true
					}
				}
			}
		}
		frontier = prev
	}
	return -1
}

func (b *Builder) kmersEndingWith(motif kmer.KmerLen) map[kmer.Kmer]bool {
	result := make(map[kmer.Kmer]bool)
	for _, k := range b.Kmers {
		if pattern.EndsWithMotif(k, b.Len, []kmer.KmerLen{motif}, "") {
			result[k] = true
		}
	}
	return result
}

// PathsTo computes, for every live k-mer s, the shortest path s -> ... ->
// dest of exactly steps edges, as an ordered list of intermediate k-mers
// (excluding s, including dest). Grounded on
// original_source/src/builder.cpp: TransBuilder::pathsTo.
func (b *Builder) PathsTo(dest kmer.Kmer, steps int) map[kmer.Kmer][]kmer.Kmer {
	pathFrom := map[kmer.Kmer][]kmer.Kmer{dest: nil}
	for step := steps - 1; step >= 0; step-- {
		longer := make(map[kmer.Kmer][]kmer.Kmer)
		for inter, tail := range pathFrom {
			in := b.Incoming(inter)
			for _, src := range in {
				if !b.Valid[src] {
					continue
				}
				exempt := step == 0
				if exempt || !(b.endsWithSourceMotif(src) || src == dest) {
					path := make([]kmer.Kmer, 0, len(tail)+1)
					path = append(path, inter)
					path = append(path, tail...)
					longer[src] = path
				}
			}
		}
		pathFrom = longer
	}
	return pathFrom
}
