package kmer

import "testing"

func TestRevCompInvolution(t *testing.T) {
	tests := []struct {
		name string
		seq  string
	}{
		{"short", "ACGT"},
		{"poly-A", "AAAAAA"},
		{"mixed", "ACGTACGTAC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Parse(tt.seq)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.seq, err)
			}
			length := Pos(len(tt.seq))
			rc := RevComp(k, length)
			rc2 := RevComp(rc, length)
			if rc2 != k {
				t.Errorf("RevComp(RevComp(%s)) = %s, want %s", tt.seq, String(rc2, length), tt.seq)
			}
		})
	}
}

func TestComplementInvolution(t *testing.T) {
	for b := Base(0); b < 4; b++ {
		if got := ComplementBase(ComplementBase(b)); got != b {
			t.Errorf("ComplementBase(ComplementBase(%c)) = %c, want %c", BaseToChar(b), BaseToChar(got), BaseToChar(b))
		}
	}
}

func TestTransitionTransversion(t *testing.T) {
	a, _ := CharToBase('A')
	g, _ := CharToBase('G')
	c, _ := CharToBase('C')
	t_, _ := CharToBase('T')

	if !IsTransition(a, g) {
		t.Error("A,G should be a transition pair")
	}
	if !IsTransition(t_, c) {
		t.Error("T,C should be a transition pair")
	}
	if IsTransition(a, c) {
		t.Error("A,C should not be a transition pair")
	}
	if !IsTransversion(a, c) {
		t.Error("A,C should be a transversion pair")
	}
	if IsTransversion(a, g) {
		t.Error("A,G should not be a transversion pair")
	}
}

func TestIsGC(t *testing.T) {
	g, _ := CharToBase('G')
	c, _ := CharToBase('C')
	a, _ := CharToBase('A')
	t_, _ := CharToBase('T')
	for _, b := range []Base{g, c} {
		if !IsGC(b) {
			t.Errorf("%c should be GC", BaseToChar(b))
		}
	}
	for _, b := range []Base{a, t_} {
		if IsGC(b) {
			t.Errorf("%c should not be GC", BaseToChar(b))
		}
	}
}

func TestShiftIn(t *testing.T) {
	k, _ := Parse("ACGT")
	b, _ := CharToBase('A')
	shifted := ShiftIn(k, 4, b)
	if got := String(shifted, 4); got != "CGTA" {
		t.Errorf("ShiftIn(ACGT, A) = %s, want CGTA", got)
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	seqs := []string{"A", "AC", "ACGT", "TTTTTTTT", "GATTACA"}
	for _, s := range seqs {
		k, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := String(k, Pos(len(s))); got != s {
			t.Errorf("String(Parse(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestHammingDistance(t *testing.T) {
	x, _ := Parse("ACGT")
	y, _ := Parse("ACGA")
	if d := HammingDistance(x, y, 4); d != 1 {
		t.Errorf("HammingDistance(ACGT,ACGA) = %d, want 1", d)
	}
}

func TestMaskAndSub(t *testing.T) {
	k, _ := Parse("ACGTAC")
	sub := Sub(k, 1, 3)
	if got := String(sub, 3); got != "TAC" {
		t.Errorf("Sub(ACGTAC,1,3) = %s, want TAC", got)
	}
}
