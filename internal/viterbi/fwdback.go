package viterbi

import (
	"math"

	"github.com/ihh/dnastore/internal/align"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/mutator"
)

// TrainingPair is one row-pair of a guide alignment database: ref is the
// noise-free reference sequence (e.g. a control word's intended k-mer
// run or a decoded codeword), obs is the noisy observed sequence it
// aligns against.
type TrainingPair struct {
	Ref, Obs []kmer.Base
	Guide    *align.GuideAlignmentEnvelope // nil disables banding
}

// pairCell holds the S/D/T[d] triple for one (i,j) cell of the
// two-sequence forward or backward matrix, matching the cell model of
// original_source/src/fwdback.h.
type pairCell struct {
	s, d float64
	t    []float64
}

func newPairCell(maxDupLen int) pairCell {
	c := pairCell{s: mutator.NegInf, d: mutator.NegInf, t: make([]float64, maxDupLen)}
	for i := range c.t {
		c.t[i] = mutator.NegInf
	}
	return c
}

// ForwardMatrix computes the pairwise (non-machine) forward DP over a
// single training pair, used by Baum-Welch to accumulate expected
// counts. This variant has no automaton dimension:
// i indexes the reference sequence, j the observed sequence.
type ForwardMatrix struct {
	pair   TrainingPair
	scores mutator.Scores
	cell   [][]pairCell // cell[i][j]
}

func NewForwardMatrix(pair TrainingPair, scores mutator.Scores) *ForwardMatrix {
	I, O := len(pair.Ref), len(pair.Obs)
	fm := &ForwardMatrix{pair: pair, scores: scores}
	fm.cell = make([][]pairCell, I+1)
	for i := range fm.cell {
		fm.cell[i] = make([]pairCell, O+1)
		for j := range fm.cell[i] {
			fm.cell[i][j] = newPairCell(len(scores.Len))
		}
	}
	fm.fill()
	return fm
}

func (fm *ForwardMatrix) inRange(i, j int) bool {
	if fm.pair.Guide == nil {
		return true
	}
	return fm.pair.Guide.InRange(i, j)
}

// fill runs the forward recurrences:
//
//	S(i,j) = logSumExp(S(i-1,j-1)+logNoGap+logSub[ref(i)][obs(j)],
//	                    T(i,j-1,0)+logSub[dupBase(i,0)][obs(j)],
//	                    D(i,j)+logDelEnd)
//	D(i,j) = logSumExp(S(i-1,j)+logDelOpen, D(i-1,j)+logDelExtend)
//	T(i,j,d) = logSumExp(T(i,j-1,d+1)+logSub[dupBase(i,d+1)][obs(j)],
//	                      S(i,j)+logTanDup+logPLen[d])
//
// In local mode S(i,0) and S(0,j) are free (0 cost) for every i,j.
func (fm *ForwardMatrix) fill() {
	p := fm.scores.Params
	ref, obs := fm.pair.Ref, fm.pair.Obs
	fm.cell[0][0].s = 0
	for i := 0; i <= len(ref); i++ {
		for j := 0; j <= len(obs); j++ {
			if i == 0 && j == 0 {
				continue
			}
			if !fm.inRange(i, j) {
				continue
			}
			cur := &fm.cell[i][j]
			if p.Local && (i == 0 || j == 0) {
				cur.s = 0
				continue
			}

			// D(i,j)
			if i > 0 {
				cur.d = mutator.LogSumExp(fm.cell[i-1][j].s+fm.scores.DelOpen, fm.cell[i-1][j].d+fm.scores.DelExtend)
			}

			// S(i,j)
			var sTerms []float64
			if i > 0 && j > 0 {
				sub := fm.scores.Sub[ref[i-1]][obs[j-1]]
				sTerms = append(sTerms, fm.cell[i-1][j-1].s+fm.scores.NoGap+sub)
			}
			if i > 0 && j > 0 && len(fm.scores.Len) > 0 {
				dup := dupBaseRef(ref, i, 0)
				sTerms = append(sTerms, fm.cell[i][j-1].t[0]+fm.scores.Sub[dup][obs[j-1]])
			}
			if i > 0 {
				sTerms = append(sTerms, cur.d+fm.scores.DelEnd)
			}
			cur.s = logSumExpAll(sTerms)

			// T(i,j,d), from high d (no dependency on lower d this column) down to 0.
			for d := len(fm.scores.Len) - 1; d >= 0; d-- {
				var tTerms []float64
				if i > 0 {
					tTerms = append(tTerms, cur.s+fm.scores.TanDup+fm.scores.Len[d])
				}
				if j > 0 && d+1 < len(fm.scores.Len) {
					dup := dupBaseRef(ref, i, d+1)
					tTerms = append(tTerms, fm.cell[i][j-1].t[d+1]+fm.scores.Sub[dup][obs[j-1]])
				}
				cur.t[d] = logSumExpAll(tTerms)
			}
		}
	}
}

// dupBaseRef returns ref[i-1-d], the base d positions upstream of ref[i-1]
// (d = 0 is ref[i-1] itself) within the reference sequence itself (the
// pairwise, non-machine-composed analogue of dupBase in viterbi.go).
func dupBaseRef(ref []kmer.Base, i, d int) kmer.Base {
	pos := i - 1 - d
	if pos < 0 {
		pos = 0
	}
	return ref[pos]
}

func logSumExpAll(xs []float64) float64 {
	if len(xs) == 0 {
		return mutator.NegInf
	}
	acc := xs[0]
	for _, x := range xs[1:] {
		acc = mutator.LogSumExp(acc, x)
	}
	return acc
}

// LogLikelihood returns the total forward log-probability of the pair:
// S at the final cell, which already includes deletion runs closed there
// by DelEnd. Paths still inside a deletion or duplication run are not
// counted as complete.
func (fm *ForwardMatrix) LogLikelihood() float64 {
	I, O := len(fm.pair.Ref), len(fm.pair.Obs)
	return fm.cell[I][O].s
}

// BackwardMatrix computes the time-reversed companion of ForwardMatrix,
// needed to form posterior (forward-backward) expected counts.
type BackwardMatrix struct {
	pair   TrainingPair
	scores mutator.Scores
	cell   [][]pairCell
}

func NewBackwardMatrix(pair TrainingPair, scores mutator.Scores) *BackwardMatrix {
	I, O := len(pair.Ref), len(pair.Obs)
	bm := &BackwardMatrix{pair: pair, scores: scores}
	bm.cell = make([][]pairCell, I+1)
	for i := range bm.cell {
		bm.cell[i] = make([]pairCell, O+1)
		for j := range bm.cell[i] {
			bm.cell[i][j] = newPairCell(len(scores.Len))
		}
	}
	bm.fill()
	return bm
}

// fill runs the time-reversed companion of ForwardMatrix.fill: at each
// cell, B_T depends only on later j (already computed), B_S depends on
// B_T at the same cell plus B_S/B_D one step ahead, and B_D depends on
// B_S at the same cell plus B_D one step ahead — an acyclic order within
// each cell with no fixpoint iteration required.
func (bm *BackwardMatrix) fill() {
	p := bm.scores.Params
	ref, obs := bm.pair.Ref, bm.pair.Obs
	I, O := len(ref), len(obs)
	bm.cell[I][O].s = 0
	if I > 0 {
		bm.cell[I][O].d = bm.scores.DelEnd
	}
	for i := I; i >= 0; i-- {
		for j := O; j >= 0; j-- {
			if i == I && j == O {
				continue
			}
			cur := &bm.cell[i][j]
			if p.Local && (i == I || j == O) {
				cur.s = 0
				cur.d = bm.cell[minInt(i+1, I)][j].d
				continue
			}

			for d := 0; d < len(bm.scores.Len); d++ {
				if j >= O || i == 0 {
					cur.t[d] = mutator.NegInf
					continue
				}
				dup := dupBaseRef(ref, i, d)
				if d == 0 {
					cur.t[d] = bm.cell[i][j+1].s + bm.scores.Sub[dup][obs[j]]
				} else {
					cur.t[d] = bm.cell[i][j+1].t[d-1] + bm.scores.Sub[dup][obs[j]]
				}
			}

			var sTerms []float64
			if i < I && j < O {
				sub := bm.scores.Sub[ref[i]][obs[j]]
				sTerms = append(sTerms, bm.cell[i+1][j+1].s+bm.scores.NoGap+sub)
			}
			if i < I {
				sTerms = append(sTerms, bm.cell[i+1][j].d+bm.scores.DelOpen)
			}
			for d := 0; d < len(bm.scores.Len); d++ {
				sTerms = append(sTerms, cur.t[d]+bm.scores.TanDup+bm.scores.Len[d])
			}
			cur.s = logSumExpAll(sTerms)

			cur.d = mutator.NegInf
			if i > 0 {
				cur.d = cur.s + bm.scores.DelEnd
			}
			if i < I {
				cur.d = mutator.LogSumExp(bm.cell[i+1][j].d+bm.scores.DelExtend, cur.d)
			}
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (c pairCell) tAt(d int) float64 {
	if d < 0 || d >= len(c.t) {
		return mutator.NegInf
	}
	return c.t[d]
}

// LogLikelihood returns the backward matrix's estimate of the total
// sequence log-probability (should match ForwardMatrix.LogLikelihood up
// to numerical error), read off cell (0,0).
func (bm *BackwardMatrix) LogLikelihood() float64 { return bm.cell[0][0].s }

// ExpectedCounts runs Forward and Backward together and accumulates the
// posterior-weighted expected sufficient statistics for one training
// pair: the Baum-Welch E-step. Every edge of the fill() recurrences in
// both matrices gets its own posterior weight
// exp(fwd(source) + edgeScore + bwd(dest) - total), following the
// standard forward-backward expected-count construction.
func ExpectedCounts(pair TrainingPair, scores mutator.Scores) mutator.Counts {
	fm := NewForwardMatrix(pair, scores)
	bm := NewBackwardMatrix(pair, scores)
	total := fm.LogLikelihood()
	counts := mutator.NewCounts(scores.Params)
	if total == mutator.NegInf {
		return counts
	}

	ref, obs := pair.Ref, pair.Obs
	maxDupLen := len(scores.Len)
	for i := 0; i <= len(ref); i++ {
		for j := 0; j <= len(obs); j++ {
			// S(i-1,j-1) + pNoGap + sub -> S(i,j)
			if i > 0 && j > 0 {
				post := fm.cell[i-1][j-1].s + scores.NoGap + scores.Sub[ref[i-1]][obs[j-1]] + bm.cell[i][j].s - total
				w := expClamped(post)
				counts.NNoGap += w
				accumSub(&counts, ref[i-1], obs[j-1], w)
			}
			// T(i,j-1,0) + sub(dupBase(i,0)) -> S(i,j): closes a duplication run.
			if i > 0 && j > 0 && maxDupLen > 0 {
				dup := dupBaseRef(ref, i, 0)
				post := fm.cell[i][j-1].t[0] + scores.Sub[dup][obs[j-1]] + bm.cell[i][j].s - total
				accumSub(&counts, dup, obs[j-1], expClamped(post))
			}
			// S(i-1,j) + pDelOpen -> D(i,j)
			if i > 0 {
				post := fm.cell[i-1][j].s + scores.DelOpen + bm.cell[i][j].d - total
				counts.NDelOpen += expClamped(post)
			}
			// D(i-1,j) + pDelExtend -> D(i,j)
			if i > 0 {
				post := fm.cell[i-1][j].d + scores.DelExtend + bm.cell[i][j].d - total
				counts.NDelExtend += expClamped(post)
			}
			// D(i,j) + pDelEnd -> S(i,j)
			post := fm.cell[i][j].d + scores.DelEnd + bm.cell[i][j].s - total
			counts.NDelEnd += expClamped(post)
			// S(i,j) + pTanDup + pLen[d] -> T(i,j,d): opens a duplication run.
			for d := 0; d < maxDupLen; d++ {
				post := fm.cell[i][j].s + scores.TanDup + scores.Len[d] + bm.cell[i][j].tAt(d) - total
				w := expClamped(post)
				counts.NTanDup += w
				counts.NLen[d] += w
			}
			// T(i,j-1,d+1) + sub(dupBase(i,d+1)) -> T(i,j,d): continues a duplication run.
			if i > 0 && j > 0 {
				for d := 0; d < maxDupLen-1; d++ {
					dup := dupBaseRef(ref, i, d+1)
					post := fm.cell[i][j-1].t[d+1] + scores.Sub[dup][obs[j-1]] + bm.cell[i][j].tAt(d) - total
					accumSub(&counts, dup, obs[j-1], expClamped(post))
				}
			}
		}
	}
	return counts
}

func accumSub(c *mutator.Counts, x, y kmer.Base, w float64) {
	c.NSub[x][y] += w
}

func expClamped(logp float64) float64 {
	if logp > 0 {
		logp = 0
	}
	if logp == mutator.NegInf {
		return 0
	}
	return math.Exp(logp)
}
