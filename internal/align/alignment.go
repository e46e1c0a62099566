package align

import "strings"

// GapChar and WildcardChar match original_source/src/alignpath.h's
// Alignment::gapChar/wildcardChar.
const (
	GapChar      = '-'
	WildcardChar = '*'
)

// IsGap reports whether c denotes a gap in a gapped sequence string.
func IsGap(c byte) bool { return c == '-' || c == '.' }

// Sequence is an ungapped row plus its name, the alignment-package
// analogue of FastSeq in original_source/src/alignpath.h.
type Sequence struct {
	Name     string
	Residues string
}

// Alignment pairs a set of ungapped sequences with the Path describing
// how they align, matching original_source/src/alignpath.h: Alignment.
type Alignment struct {
	Ungapped []Sequence
	Path     Path
}

// FromGapped builds an Alignment from a set of equal-length gapped
// sequence strings (e.g. rows of a Stockholm block), recovering both the
// ungapped residues and the Path.
func FromGapped(gapped []Sequence) Alignment {
	a := Alignment{Ungapped: make([]Sequence, len(gapped)), Path: make(Path, len(gapped))}
	for i, seq := range gapped {
		var residues strings.Builder
		row := make(RowPath, len(seq.Residues))
		for col := 0; col < len(seq.Residues); col++ {
			c := seq.Residues[col]
			if !IsGap(c) {
				residues.WriteByte(c)
				row[col] = true
			}
		}
		a.Ungapped[i] = Sequence{Name: seq.Name, Residues: residues.String()}
		a.Path[RowIndex(i)] = row
	}
	return a
}

// Gapped reconstructs the gapped sequence strings from a.Ungapped and a.Path.
func (a Alignment) Gapped() []Sequence {
	out := make([]Sequence, len(a.Ungapped))
	for i, seq := range a.Ungapped {
		row := a.Path[RowIndex(i)]
		var b strings.Builder
		pos := 0
		for _, present := range row {
			if present {
				b.WriteByte(seq.Residues[pos])
				pos++
			} else {
				b.WriteByte(GapChar)
			}
		}
		out[i] = Sequence{Name: seq.Name, Residues: b.String()}
	}
	return out
}

// GuideAlignmentEnvelope precomputes, from a two-row guide alignment,
// the data needed to band a DP matrix: for each row, the
// cumulative count of aligned (non-gap) columns seen up to
// and including each column, and the reverse mapping from sequence
// position back to column.
type GuideAlignmentEnvelope struct {
	cumulativeMatches [2][]int // cumulativeMatches[row][col]
	posToCol          [2][]int // posToCol[row][pos] (1-indexed pos)
	maxDistance        int
}

// NewGuideAlignmentEnvelope builds the envelope from a two-row Alignment,
// banding the DP to maxDistance columns of cumulative-match drift.
func NewGuideAlignmentEnvelope(a Alignment, maxDistance int) *GuideAlignmentEnvelope {
	env := &GuideAlignmentEnvelope{maxDistance: maxDistance}
	cols := a.Path.Columns()
	for r := 0; r < 2; r++ {
		row := a.Path[RowIndex(r)]
		cum := make([]int, cols+1)
		posToCol := []int{0} // posToCol[0] is a sentinel for position 0
		count := 0
		for col := 0; col < cols; col++ {
			if col < len(row) && row[col] {
				count++
				posToCol = append(posToCol, col+1)
			}
			cum[col+1] = count
		}
		env.cumulativeMatches[r] = cum
		env.posToCol[r] = posToCol
	}
	return env
}

// InRange reports whether cell (i,j), i a position in row 0 and j a
// position in row 1, is within the envelope's band: the difference of
// the guide's cumulative-match counts at the two positions is at most
// maxDistance.
func (env *GuideAlignmentEnvelope) InRange(i, j int) bool {
	colI := env.colForPos(0, i)
	colJ := env.colForPos(1, j)
	mi := env.cumulativeMatches[0][clampIdx(colI, len(env.cumulativeMatches[0]))]
	mj := env.cumulativeMatches[1][clampIdx(colJ, len(env.cumulativeMatches[1]))]
	d := mi - mj
	if d < 0 {
		d = -d
	}
	return d <= env.maxDistance
}

func (env *GuideAlignmentEnvelope) colForPos(row, pos int) int {
	p := env.posToCol[row]
	if pos < 0 || pos >= len(p) {
		if len(p) == 0 {
			return 0
		}
		return p[len(p)-1]
	}
	return p[pos]
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
