// Package viterbi implements the error-aware dynamic-programming layer:
// a Viterbi decoder that aligns a noisy DNA observation against the
// assembled transducer under a mutator.Scores model, and a
// Forward/Backward/Baum-Welch trainer that refits mutator.Params from a
// database of guide alignments. Grounded on original_source/src/viterbi.h
// and viterbi.cpp (cell-indexing and the dCell/sCell/tCell recurrences)
// and original_source/src/fwdback.h (posterior/EM cell layout);
// fwdback.cpp's own fill logic is a stub ("WRITE ME"), so its
// recurrences are reconstructed from the header declaration and
// viterbi.cpp's analogous recurrence directly.
package viterbi

import (
	"fmt"

	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/mutator"
	"github.com/ihh/dnastore/internal/transducer"
)

// subKind discriminates the three DP sub-states of the cell model: S
// (substitution/in-phase), D (in a deletion run), and T[d]
// (mid-tandem-duplication with d remaining bases to copy).
type subKind int

const (
	subS subKind = -2
	subD subKind = -1
	// subKind >= 0 denotes T[d] with d == int(subKind).
)

func subT(d int) subKind { return subKind(d) }

type cellKey struct {
	q   transducer.State
	sub subKind
}

type backPointer struct {
	from      cellKey
	fromI     int
	inSymbol  string // non-empty if this step consumed an input symbol worth recording
	valid     bool
}

// Matrix is a Viterbi DP matrix composed with a Machine: the DP runs
// over (q, i, sub), the machine state, observed position, and cell
// sub-state.
type Matrix struct {
	m       *transducer.Machine
	scores  mutator.Scores
	obs     []kmer.Base
	local   bool
	cells   []map[cellKey]float64
	back    []map[cellKey]backPointer
}

// NewMatrix prepares a Viterbi matrix for decoding obs (a noisy DNA
// sequence) against m under scores.
func NewMatrix(m *transducer.Machine, scores mutator.Scores, obs []kmer.Base) *Matrix {
	n := len(obs) + 1
	mx := &Matrix{
		m:      m,
		scores: scores,
		obs:    obs,
		local:  scores.Params.Local,
		cells:  make([]map[cellKey]float64, n),
		back:   make([]map[cellKey]backPointer, n),
	}
	for i := range mx.cells {
		mx.cells[i] = make(map[cellKey]float64)
		mx.back[i] = make(map[cellKey]backPointer)
	}
	return mx
}

// Fill runs the DP forward over observed positions 0..len(obs), relaxing
// each position's q-only moves (deletions and ε-transitions, which do not
// consume an observed base) to a fixpoint before advancing, since the
// underlying graph's cycles never improve a Viterbi score and a bounded
// number of relaxation passes therefore suffices — the same
// explicit-worklist discipline internal/graph applies to dead-end
// pruning, applied here to the DP layer.
func (mx *Matrix) Fill() {
	start := cellKey{q: mx.m.StartStateIndex(), sub: subS}
	mx.cells[0][start] = 0
	if mx.local {
		for q := range mx.m.State {
			mx.relaxSet(0, cellKey{q: transducer.State(q), sub: subS}, 0, cellKey{}, 0, "", false)
		}
	}
	mx.relaxWithinColumn(0)

	for i := 1; i <= len(mx.obs); i++ {
		mx.advance(i)
		mx.relaxWithinColumn(i)
	}
}

// relaxSet installs score at key in column i if it improves on the
// current best, recording a backpointer (unless isStart, the sentinel
// initial cell).
func (mx *Matrix) relaxSet(i int, key cellKey, score float64, fromKey cellKey, fromI int, inSymbol string, isStart bool) bool {
	if cur, ok := mx.cells[i][key]; ok && cur >= score {
		return false
	}
	mx.cells[i][key] = score
	if !isStart {
		mx.back[i][key] = backPointer{from: fromKey, fromI: fromI, inSymbol: inSymbol, valid: true}
	}
	return true
}

// relaxWithinColumn propagates pure-epsilon moves and the deletion
// sub-state's moves, none of which consume an observed base, to a
// fixpoint. A deletion still walks a real base-emitting Trans edge (the
// machine state advances through the edge that would have emitted a
// base, and its input symbol is still recorded for traceback) but pays
// only DelOpen/DelExtend, never a substitution score, since the emitted
// base never reaches the observation; DelEnd then closes the run back
// into S at the same state. Grounded on original_source/src/viterbi.cpp's
// dCell/sCell recurrence (dCell from incoming emit edges plus
// delOpen/delExtend, sCell from dCell plus delEnd).
func (mx *Matrix) relaxWithinColumn(i int) {
	for pass := 0; pass < len(mx.m.State)+1; pass++ {
		changed := false
		for key, score := range snapshot(mx.cells[i]) {
			ms := mx.m.State[key.q]
			for _, t := range ms.Trans {
				if t.In != "" {
					continue // consumes a payload/control symbol, handled in advance()
				}
				if t.Out != "" {
					continue // consumes an observed base, handled in advance()
				}
				dest := cellKey{q: t.To, sub: key.sub}
				if mx.relaxSet(i, dest, score, key, i, t.In, false) {
					changed = true
				}
			}
			switch key.sub {
			case subS:
				for _, t := range ms.Trans {
					if t.Out == "" {
						continue
					}
					dest := cellKey{q: t.To, sub: subD}
					if mx.relaxSet(i, dest, score+mx.scores.DelOpen, key, i, t.In, false) {
						changed = true
					}
				}
			case subD:
				for _, t := range ms.Trans {
					if t.Out == "" {
						continue
					}
					dest := cellKey{q: t.To, sub: subD}
					if mx.relaxSet(i, dest, score+mx.scores.DelExtend, key, i, t.In, false) {
						changed = true
					}
				}
				dest := cellKey{q: key.q, sub: subS}
				if mx.relaxSet(i, dest, score+mx.scores.DelEnd, key, i, "", false) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
}

func snapshot(m map[cellKey]float64) map[cellKey]float64 {
	out := make(map[cellKey]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// advance fills column i from column i-1 by consuming one observed base:
// S-to-S edges that emit a base, and tandem-duplication continuations
// that consume a base while holding q fixed. Deletion moves (S->D,
// D->D, D->S) never consume an observed base and are handled entirely
// by relaxWithinColumn.
func (mx *Matrix) advance(i int) {
	obsBase := mx.obs[i-1]
	for key, score := range mx.cells[i-1] {
		ms := mx.m.State[key.q]
		switch {
		case key.sub == subS:
			for _, t := range ms.Trans {
				if t.Out == "" || len(t.Out) != 1 {
					continue
				}
				expected, err := kmer.CharToBase(t.Out[0])
				if err != nil {
					continue
				}
				ns := score + mx.scores.NoGap + mx.scores.Sub[expected][obsBase]
				mx.relaxSet(i, cellKey{q: t.To, sub: subS}, ns, key, i-1, t.In, false)
			}
			for d := 0; d < len(mx.scores.Len); d++ {
				ns := score + mx.scores.TanDup + mx.scores.Len[d]
				dup := dupBase(ms.Context, int(ms.ContextLen), 0)
				ns += mx.scores.Sub[dup][obsBase]
				mx.relaxSet(i, cellKey{q: key.q, sub: subT(d)}, ns, key, i-1, "", false)
			}
		case key.sub >= 0:
			d := int(key.sub)
			dup := dupBase(ms.Context, int(ms.ContextLen), d)
			ns := score + mx.scores.Sub[dup][obsBase]
			if d == 0 {
				mx.relaxSet(i, cellKey{q: key.q, sub: subS}, ns, key, i-1, "", false)
			} else {
				mx.relaxSet(i, cellKey{q: key.q, sub: subT(d - 1)}, ns, key, i-1, "", false)
			}
		}
	}
}

// dupBase returns the base d+1 positions upstream of context (the
// duplicated residue); the k-mer context directly encodes recent
// history, so no separate trace is kept.
func dupBase(context kmer.Kmer, length, d int) kmer.Base {
	pos := kmer.Pos(d + 1)
	if kmer.Pos(pos) > kmer.Pos(length) {
		pos = kmer.Pos(length)
	}
	return kmer.GetBase(context, pos)
}

// BestScore returns the best (maximum log-probability) score reaching
// the final observed position, across all states and sub-states, which
// is the Viterbi path's total log-likelihood.
func (mx *Matrix) BestScore() (float64, cellKey, bool) {
	last := len(mx.obs)
	best := mutator.NegInf
	var bestKey cellKey
	found := false
	for key, score := range mx.cells[last] {
		if key.sub != subS {
			continue // an unclosed deletion or duplication run is not a valid endpoint
		}
		if mx.local || isTerminalState(mx.m, key.q) {
			if score > best {
				best, bestKey, found = score, key, true
			}
		}
	}
	if !found {
		for key, score := range mx.cells[last] {
			if key.sub != subS {
				continue
			}
			if score > best {
				best, bestKey, found = score, key, true
			}
		}
	}
	return best, bestKey, found
}

func isTerminalState(m *transducer.Machine, q transducer.State) bool {
	return m.State[q].Type == transducer.EndState || m.State[q].Type == transducer.ControlState
}

// Traceback recovers the input-symbol string (the source bits and
// control characters) of the best path ending at (i,key).
func (mx *Matrix) Traceback(i int, key cellKey) (string, error) {
	var symbols []byte
	for {
		bp, ok := mx.back[i][key]
		if !ok {
			if i == 0 && key == (cellKey{q: mx.m.StartStateIndex(), sub: subS}) {
				break
			}
			if mx.local && key.sub == subS {
				break
			}
			return "", fmt.Errorf("viterbi: traceback lost at i=%d state=%d sub=%d", i, key.q, key.sub)
		}
		if bp.inSymbol != "" {
			symbols = append(symbols, []byte(bp.inSymbol)...)
		}
		if !bp.valid {
			break
		}
		key, i = bp.from, bp.fromI
		if i == 0 && key == (cellKey{q: mx.m.StartStateIndex(), sub: subS}) {
			break
		}
	}
	// reverse
	for l, r := 0, len(symbols)-1; l < r; l, r = l+1, r-1 {
		symbols[l], symbols[r] = symbols[r], symbols[l]
	}
	return string(symbols), nil
}
