package align

import "testing"

func TestUnionDisjointRows(t *testing.T) {
	a := Path{0: RowPath{true, false, true}}
	b := Path{1: RowPath{true, true, false}}
	u, err := Union(a, b)
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	if len(u) != 2 {
		t.Errorf("expected 2 rows, got %d", len(u))
	}
}

func TestUnionRejectsSharedRow(t *testing.T) {
	a := Path{0: RowPath{true}}
	b := Path{0: RowPath{false}}
	if _, err := Union(a, b); err == nil {
		t.Error("expected an error for overlapping row indices")
	}
}

func TestConcatPadsMissingRows(t *testing.T) {
	a := Path{0: RowPath{true, true}, 1: RowPath{true, false}}
	b := Path{0: RowPath{true}}
	out := Concat(a, b)
	if len(out[1]) != 3 {
		t.Errorf("row 1 should be padded to length 3, got %d", len(out[1]))
	}
	if out[1][2] {
		t.Error("padded column should be a gap (false)")
	}
}

func TestFromGappedRoundTrip(t *testing.T) {
	gapped := []Sequence{
		{Name: "a", Residues: "AC-GT"},
		{Name: "b", Residues: "ACTG-"},
	}
	a := FromGapped(gapped)
	if a.Ungapped[0].Residues != "ACGT" {
		t.Errorf("ungapped row 0 = %q, want ACGT", a.Ungapped[0].Residues)
	}
	back := a.Gapped()
	if back[0].Residues != "AC-GT" {
		t.Errorf("re-gapped row 0 = %q, want AC-GT", back[0].Residues)
	}
}

func TestGuideAlignmentEnvelopeInRange(t *testing.T) {
	a := FromGapped([]Sequence{
		{Name: "ref", Residues: "ACGTACGT"},
		{Name: "obs", Residues: "ACGTACGT"},
	})
	env := NewGuideAlignmentEnvelope(a, 1)
	if !env.InRange(4, 4) {
		t.Error("identical positions should be in range")
	}
	if env.InRange(0, 8) {
		t.Error("far-apart positions should not be in range with maxDistance=1")
	}
}
