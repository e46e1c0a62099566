// Package align implements alignment-path support, grounded on
// original_source/src/alignpath.h: AlignPath/Alignment and
// their union/concat/merge operations, plus the guide-alignment envelope
// that internal/viterbi uses to band its dynamic-programming matrices.
package align

import "fmt"

// RowIndex identifies a row (sequence) within an alignment.
type RowIndex int

// RowPath is one row's presence/absence bit vector across the
// alignment's columns: true at column c means this row has a residue
// (not a gap) at c.
type RowPath []bool

// Path maps row index to that row's RowPath, mirroring
// original_source/src/alignpath.h: AlignPath (a map, not a slice, since
// row indices need not be contiguous after Union).
type Path map[RowIndex]RowPath

// Columns returns the number of columns spanned by p (the length of its
// longest row path).
func (p Path) Columns() int {
	n := 0
	for _, row := range p {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// ResiduesInRow counts the non-gap positions in a row path.
func ResiduesInRow(row RowPath) int {
	n := 0
	for _, present := range row {
		if present {
			n++
		}
	}
	return n
}

// Union combines two alignments that share no row indices, matching
// original_source/src/alignpath.h: alignPathUnion. Both inputs must
// already have the same column count.
func Union(a, b Path) (Path, error) {
	cols := a.Columns()
	if b.Columns() != 0 && cols != 0 && b.Columns() != cols {
		return nil, fmt.Errorf("align: Union requires equal column counts, got %d and %d", cols, b.Columns())
	}
	out := make(Path, len(a)+len(b))
	for row, path := range a {
		if _, dup := b[row]; dup {
			return nil, fmt.Errorf("align: Union requires disjoint row sets, row %d appears in both", row)
		}
		out[row] = path
	}
	for row, path := range b {
		out[row] = path
	}
	return out, nil
}

// Concat performs a length-wise concatenation of a followed by b: rows
// present in only one operand are padded with gaps over the other's
// span, matching original_source/src/alignpath.h: alignPathConcat.
func Concat(a, b Path) Path {
	aCols, bCols := a.Columns(), b.Columns()
	rows := make(map[RowIndex]bool)
	for row := range a {
		rows[row] = true
	}
	for row := range b {
		rows[row] = true
	}
	out := make(Path, len(rows))
	for row := range rows {
		combined := make(RowPath, 0, aCols+bCols)
		if ra, ok := a[row]; ok {
			combined = append(combined, ra...)
		} else {
			combined = append(combined, make(RowPath, aCols)...)
		}
		if rb, ok := b[row]; ok {
			combined = append(combined, rb...)
		} else {
			combined = append(combined, make(RowPath, bCols)...)
		}
		out[row] = combined
	}
	return out
}

// Concat3 concatenates three alignments in order, matching
// original_source/src/alignpath.h's three-argument alignPathConcat.
func Concat3(a, b, c Path) Path { return Concat(Concat(a, b), c) }

// Merge performs the synchronized multi-alignment merge: alignments is a
// list of Paths that share some rows; rows common to several alignments
// are used to synchronize columns across them, matching
// original_source/src/alignpath.h: alignPathMerge. Columns from
// different source alignments that align to the same synchronizing
// position are interleaved in input order; this is the classical
// profile-merge algorithm, implemented here by walking each alignment's
// columns in lock-step on their shared rows.
func Merge(alignments []Path) (Path, error) {
	if len(alignments) == 0 {
		return Path{}, nil
	}
	merged := alignments[0]
	for _, next := range alignments[1:] {
		m, err := mergeTwo(merged, next)
		if err != nil {
			return nil, err
		}
		merged = m
	}
	return merged, nil
}

// mergeTwo merges two alignments sharing zero or more rows, by scanning
// columns of both simultaneously and advancing whichever has not yet
// placed all residues of the shared rows, inserting gap columns in the
// other for any column that one alignment has but the other lacks.
func mergeTwo(a, b Path) (Path, error) {
	shared := sharedRows(a, b)
	if len(shared) == 0 {
		return Union(a, b)
	}

	ai, bi := 0, 0
	aCols, bCols := a.Columns(), b.Columns()
	out := make(Path)
	for row := range a {
		out[row] = RowPath{}
	}
	for row := range b {
		if _, ok := out[row]; !ok {
			out[row] = RowPath{}
		}
	}

	for ai < aCols || bi < bCols {
		aHasResidue := ai < aCols && anyPresent(a, shared, ai)
		bHasResidue := bi < bCols && anyPresent(b, shared, bi)
		switch {
		case ai < aCols && (!bHasResidue || bi >= bCols):
			appendColumn(out, a, ai, b)
			ai++
		case bi < bCols && (!aHasResidue || ai >= aCols):
			appendColumn(out, b, bi, a)
			bi++
		default:
			appendSyncedColumn(out, a, ai, b, bi, shared)
			ai++
			bi++
		}
	}
	return out, nil
}

func sharedRows(a, b Path) []RowIndex {
	var shared []RowIndex
	for row := range a {
		if _, ok := b[row]; ok {
			shared = append(shared, row)
		}
	}
	return shared
}

func anyPresent(p Path, rows []RowIndex, col int) bool {
	for _, row := range rows {
		if rp, ok := p[row]; ok && col < len(rp) && rp[col] {
			return true
		}
	}
	return false
}

func appendColumn(out Path, src Path, col int, other Path) {
	for row, rp := range src {
		present := col < len(rp) && rp[col]
		out[row] = append(out[row], present)
	}
	for row := range other {
		if _, ok := src[row]; !ok {
			out[row] = append(out[row], false)
		}
	}
}

func appendSyncedColumn(out Path, a Path, aCol int, b Path, bCol int, shared []RowIndex) {
	for row, rp := range a {
		present := aCol < len(rp) && rp[aCol]
		out[row] = append(out[row], present)
	}
	for row, rp := range b {
		if _, ok := a[row]; ok {
			continue // already written from a's pass, shared rows agree by construction
		}
		present := bCol < len(rp) && rp[bCol]
		out[row] = append(out[row], present)
	}
}
