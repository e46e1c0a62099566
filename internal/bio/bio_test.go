package bio

import (
	"bytes"
	"strings"
	"testing"
)

func TestFastaRoundTrip(t *testing.T) {
	seqs := []Seq{{Name: "SEQ", Seq: strings.Repeat("ACGT", 20)}}
	var buf bytes.Buffer
	if err := WriteSeqs(&buf, seqs, 50); err != nil {
		t.Fatalf("WriteSeqs: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != ">SEQ" {
		t.Errorf("header = %q, want >SEQ", lines[0])
	}
	if len(lines[1]) != 50 {
		t.Errorf("first line length = %d, want 50", len(lines[1]))
	}

	got, err := ReadSeqs(&buf)
	if err != nil {
		t.Fatalf("ReadSeqs: %v", err)
	}
	if len(got) != 1 || got[0].Seq != seqs[0].Seq {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestStockholmRoundTrip(t *testing.T) {
	s := NewStockholm()
	s.Gapped = []Seq{
		{Name: "ref", Seq: "ACGT-ACGT"},
		{Name: "obs", Seq: "ACGTAACGT"},
	}
	s.GF["ID"] = []string{"test-alignment"}

	var buf bytes.Buffer
	if err := WriteStockholm(&buf, s, 80); err != nil {
		t.Fatalf("WriteStockholm: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# STOCKHOLM 1.0\n") {
		t.Errorf("missing Stockholm header: %q", buf.String()[:20])
	}

	got, err := ReadStockholm(&buf)
	if err != nil {
		t.Fatalf("ReadStockholm: %v", err)
	}
	if got.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", got.Rows())
	}
	if got.Gapped[0].Seq != "ACGT-ACGT" {
		t.Errorf("row 0 = %q, want ACGT-ACGT", got.Gapped[0].Seq)
	}
	if len(got.GF["ID"]) != 1 || got.GF["ID"][0] != "test-alignment" {
		t.Errorf("GF[ID] = %v, want [test-alignment]", got.GF["ID"])
	}
}

func TestStockholmPathMatchesGaps(t *testing.T) {
	s := NewStockholm()
	s.Gapped = []Seq{{Name: "a", Seq: "AC-G"}}
	p := s.Path()
	row := p[0]
	want := []bool{true, true, false, true}
	for i, w := range want {
		if row[i] != w {
			t.Errorf("row[%d] = %v, want %v", i, row[i], w)
		}
	}
}
