package mutator

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ihh/dnastore/internal/kmer"
)

// Params holds the error-model parameters, grounded on
// original_source/src/mutator.h: MutatorParams. pFwdDup and pRevDup are
// deliberately absent as fields: the original source hard-codes both to
// zero, so loaded JSON with either one set to a nonzero value is
// rejected as an error, and there is nothing for a field to vary.
type Params struct {
	PDelOpen     float64   `json:"pDelOpen"`
	PDelExtend   float64   `json:"pDelExtend"`
	PTanDup      float64   `json:"pTanDup"`
	PTransition  float64   `json:"pTransition"`
	PTransversion float64  `json:"pTransversion"`
	PLen         []float64 `json:"pLen"`
	Local        bool      `json:"local"`
}

// PMatch is the probability of an exact substitution match.
func (p Params) PMatch() float64 { return 1 - p.PTransition - p.PTransversion }

// PSub returns the substitution probability from base x to observed base y.
func (p Params) PSub(x, y kmer.Base) float64 {
	switch {
	case x == y:
		return p.PMatch()
	case kmer.IsTransition(x, y):
		return p.PTransition
	default:
		return p.PTransversion / 2
	}
}

// PNoGap is the probability of neither opening a deletion nor a tandem
// duplication at a given position.
func (p Params) PNoGap() float64 { return 1 - p.PDelOpen - p.PTanDup }

// PDelEnd is the probability of ending a deletion run at this step.
func (p Params) PDelEnd() float64 { return 1 - p.PDelExtend }

// MaxDupLen is the number of tandem-duplication lengths modeled.
func (p Params) MaxDupLen() int { return len(p.PLen) }

// legacyJSON mirrors the wire-compatible field set used by readJSON in
// original_source/src/mutator.cpp, including the two hard-coded-zero
// fields that must be rejected if present and nonzero.
type legacyJSON struct {
	PDelOpen      float64   `json:"pDelOpen"`
	PDelExtend    float64   `json:"pDelExtend"`
	PTanDup       float64   `json:"pTanDup"`
	PTransition   float64   `json:"pTransition"`
	PTransversion float64   `json:"pTransversion"`
	PLen          []float64 `json:"pLen"`
	Local         bool      `json:"local"`
	PFwdDup       *float64  `json:"pFwdDup,omitempty"`
	PRevDup       *float64  `json:"pRevDup,omitempty"`
}

// ParamsFromJSON parses a MutatorParams JSON document, rejecting a
// nonzero pFwdDup/pRevDup as a fatal malformed-input condition, since
// both are hard-coded to 0 in this model.
func ParamsFromJSON(data []byte) (Params, error) {
	var lj legacyJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return Params{}, fmt.Errorf("mutator: malformed params JSON: %w", err)
	}
	if lj.PFwdDup != nil && *lj.PFwdDup != 0 {
		return Params{}, fmt.Errorf("mutator: pFwdDup must be 0, got %v", *lj.PFwdDup)
	}
	if lj.PRevDup != nil && *lj.PRevDup != 0 {
		return Params{}, fmt.Errorf("mutator: pRevDup must be 0, got %v", *lj.PRevDup)
	}
	return Params{
		PDelOpen:      lj.PDelOpen,
		PDelExtend:    lj.PDelExtend,
		PTanDup:       lj.PTanDup,
		PTransition:   lj.PTransition,
		PTransversion: lj.PTransversion,
		PLen:          lj.PLen,
		Local:         lj.Local,
	}, nil
}

// ToJSON renders p the way original_source/src/mutator.cpp:
// MutatorParams::writeJSON does.
func (p Params) ToJSON() ([]byte, error) {
	return json.MarshalIndent(Params{
		PDelOpen: p.PDelOpen, PDelExtend: p.PDelExtend, PTanDup: p.PTanDup,
		PTransition: p.PTransition, PTransversion: p.PTransversion,
		PLen: p.PLen, Local: p.Local,
	}, "", " ")
}

// DefaultParams returns a modest, well-formed starting point for
// Baum-Welch training or error-free simulation.
func DefaultParams(maxDupLen int) Params {
	pLen := make([]float64, maxDupLen)
	if maxDupLen > 0 {
		rem := 1.0
		for i := 0; i < maxDupLen; i++ {
			if i == maxDupLen-1 {
				pLen[i] = rem
			} else {
				pLen[i] = rem / 2
				rem -= pLen[i]
			}
		}
	}
	return Params{
		PDelOpen: 0.01, PDelExtend: 0.3, PTanDup: 0.01,
		PTransition: 0.02, PTransversion: 0.01, PLen: pLen, Local: false,
	}
}

// Scores is the log-transform of Params, matching
// original_source/src/mutator.h: MutatorScores.
type Scores struct {
	DelOpen, TanDup, NoGap     float64
	DelExtend, DelEnd          float64
	Sub                        [4][4]float64 // Sub[x][y] = log P(observe y | true base x)
	Len                        []float64
	Params                     Params
}

// NewScores log-transforms p.
func NewScores(p Params) Scores {
	s := Scores{
		DelOpen:    math.Log(p.PDelOpen),
		TanDup:     math.Log(p.PTanDup),
		NoGap:      math.Log(p.PNoGap()),
		DelExtend:  math.Log(p.PDelExtend),
		DelEnd:     math.Log(p.PDelEnd()),
		Len:        make([]float64, len(p.PLen)),
		Params:     p,
	}
	for x := kmer.Base(0); x < 4; x++ {
		for y := kmer.Base(0); y < 4; y++ {
			s.Sub[x][y] = math.Log(p.PSub(x, y))
		}
	}
	for i, pl := range p.PLen {
		s.Len[i] = math.Log(pl)
	}
	return s
}

// Counts is the dual bag of expected sufficient statistics accumulated
// by Forward-Backward, matching original_source/src/mutator.h:
// MutatorCounts.
type Counts struct {
	NDelOpen, NTanDup, NNoGap float64
	NDelExtend, NDelEnd       float64
	NSub                      [4][4]float64
	NLen                      []float64
}

// NewCounts returns a zeroed Counts sized to match p's duplication-length range.
func NewCounts(p Params) Counts {
	return Counts{NLen: make([]float64, len(p.PLen))}
}

// InitLaplace adds n pseudo-counts to every categorical outcome, the
// Laplace smoothing the mlParams formula relies on.
func (c Counts) InitLaplace(n float64) Counts {
	c.NDelOpen += n
	c.NTanDup += n
	c.NNoGap += n
	c.NDelExtend += n
	c.NDelEnd += n
	for i := range c.NSub {
		for j := range c.NSub[i] {
			c.NSub[i][j] += n
		}
	}
	for i := range c.NLen {
		c.NLen[i] += n
	}
	return c
}

// Add returns the element-wise sum of c and other.
func (c Counts) Add(other Counts) Counts {
	sum := c
	sum.NDelOpen += other.NDelOpen
	sum.NTanDup += other.NTanDup
	sum.NNoGap += other.NNoGap
	sum.NDelExtend += other.NDelExtend
	sum.NDelEnd += other.NDelEnd
	for i := range sum.NSub {
		for j := range sum.NSub[i] {
			sum.NSub[i][j] += other.NSub[i][j]
		}
	}
	sum.NLen = append([]float64(nil), c.NLen...)
	for i := range sum.NLen {
		if i < len(other.NLen) {
			sum.NLen[i] += other.NLen[i]
		}
	}
	return sum
}

// NMatch, NTransition, NTransversion sum the substitution counts by
// category, used by mlParams's ratio-of-sums normalisation.
func (c Counts) NMatch() float64 {
	var n float64
	for b := kmer.Base(0); b < 4; b++ {
		n += c.NSub[b][b]
	}
	return n
}

func (c Counts) NTransition() float64 {
	var n float64
	for x := kmer.Base(0); x < 4; x++ {
		for y := kmer.Base(0); y < 4; y++ {
			if kmer.IsTransition(x, y) {
				n += c.NSub[x][y]
			}
		}
	}
	return n
}

func (c Counts) NTransversion() float64 {
	var n float64
	for x := kmer.Base(0); x < 4; x++ {
		for y := kmer.Base(0); y < 4; y++ {
			if kmer.IsTransversion(x, y) {
				n += c.NSub[x][y]
			}
		}
	}
	return n
}

// MLParams computes the closed-form maximum-likelihood MutatorParams
// from c alone, with no prior.
func (c Counts) MLParams() Params {
	return c.mlParamsWithPrior(Counts{NLen: make([]float64, len(c.NLen))})
}

// MLParamsWithPrior adds prior's pseudo-counts to c before normalising,
// matching original_source/src/mutator.h: MutatorCounts::mlParams(prior).
func (c Counts) MLParamsWithPrior(prior Counts) Params {
	return c.mlParamsWithPrior(prior)
}

func (c Counts) mlParamsWithPrior(prior Counts) Params {
	total := c.Add(prior)

	gapTotal := total.NDelOpen + total.NTanDup + total.NNoGap
	pDelOpen := safeDiv(total.NDelOpen, gapTotal)
	pTanDup := safeDiv(total.NTanDup, gapTotal)

	subTotal := total.NMatch() + total.NTransition() + total.NTransversion()
	pTransition := safeDiv(total.NTransition(), subTotal)
	pTransversion := safeDiv(total.NTransversion(), subTotal)

	delExtendTotal := total.NDelExtend + total.NDelEnd
	pDelExtend := safeDiv(total.NDelExtend, delExtendTotal)

	pLen := make([]float64, len(total.NLen))
	var lenTotal float64
	for _, n := range total.NLen {
		lenTotal += n
	}
	for i, n := range total.NLen {
		pLen[i] = safeDiv(n, lenTotal)
	}

	return Params{
		PDelOpen: pDelOpen, PDelExtend: pDelExtend, PTanDup: pTanDup,
		PTransition: pTransition, PTransversion: pTransversion, PLen: pLen,
	}
}

func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

// LogPrior returns the Dirichlet-style log-prior density of params under
// c treated as pseudo-counts, used by the Baum-Welch convergence check.
func (c Counts) LogPrior(params Params) float64 {
	lp := logDirichletPdfCounts([]float64{params.PDelOpen, params.PTanDup, params.PNoGap()},
		[]float64{c.NDelOpen, c.NTanDup, c.NNoGap})
	lp += logBetaPdfCounts(params.PDelExtend, c.NDelExtend, c.NDelEnd)
	lp += logDirichletPdfCounts([]float64{params.PMatch(), params.PTransition, params.PTransversion},
		[]float64{c.NMatch(), c.NTransition(), c.NTransversion()})
	if len(params.PLen) > 0 {
		lp += logDirichletPdfCounts(params.PLen, c.NLen)
	}
	return lp
}

// LogLikelihood returns Σ_i c.NSub-weighted log P(observation | params),
// the data term of the Baum-Welch objective (the posterior counts times
// their generating log-probabilities).
func (c Counts) LogLikelihood(params Params) float64 {
	s := NewScores(params)
	var ll float64
	ll += c.NDelOpen * s.DelOpen
	ll += c.NTanDup * s.TanDup
	ll += c.NNoGap * s.NoGap
	ll += c.NDelExtend * s.DelExtend
	ll += c.NDelEnd * s.DelEnd
	for x := kmer.Base(0); x < 4; x++ {
		for y := kmer.Base(0); y < 4; y++ {
			ll += c.NSub[x][y] * s.Sub[x][y]
		}
	}
	for i, n := range c.NLen {
		if i < len(s.Len) {
			ll += n * s.Len[i]
		}
	}
	return ll
}

// logBetaPdfCounts and logDirichletPdfCounts are the counts-parameterized
// conjugate-prior densities named in original_source/src/logsumexp.h.
func logBetaPdfCounts(prob, yesCount, noCount float64) float64 {
	if prob <= 0 || prob >= 1 {
		return NegInf
	}
	return yesCount*math.Log(prob) + noCount*math.Log(1-prob)
}

func logDirichletPdfCounts(prob, count []float64) float64 {
	var lp float64
	for i, p := range prob {
		if i >= len(count) {
			break
		}
		if p <= 0 {
			if count[i] == 0 {
				continue
			}
			return NegInf
		}
		lp += count[i] * math.Log(p)
	}
	return lp
}
