package graph

import (
	"testing"

	"github.com/ihh/dnastore/internal/kmer"
)

func TestFindCandidatesExcludesTandemRepeats(t *testing.T) {
	b := NewBuilder(4)
	b.FindCandidates()
	acgt, _ := kmer.Parse("ACGT")
	if !b.Valid[acgt] {
		t.Errorf("ACGT should survive the default filters")
	}
	aaaa, _ := kmer.Parse("AAAA")
	if b.Valid[aaaa] {
		t.Errorf("AAAA should be rejected as a repeated base")
	}
}

func TestOutgoingIncomingInverses(t *testing.T) {
	b := NewBuilder(4)
	k, _ := kmer.Parse("ACGT")
	out := b.Outgoing(k)
	for _, o := range out {
		in := b.Incoming(o)
		found := false
		for _, i := range in {
			if i == k {
				found = true
			}
		}
		if !found {
			t.Errorf("Incoming(Outgoing(%s)) should include %s", kmer.String(k, 4), kmer.String(k, 4))
		}
	}
}

func TestPruneDeadEndsRemovesStrandedKmers(t *testing.T) {
	b := NewBuilder(4)
	b.FindCandidates()
	before := len(b.Kmers)
	b.PruneDeadEnds()
	if len(b.Kmers) > before {
		t.Errorf("PruneDeadEnds should never increase the live set")
	}
	for _, k := range b.Kmers {
		if b.CountIncoming(k) == 0 || b.CountOutgoing(k) == 0 {
			t.Errorf("%s survived pruning with a zero-degree edge", kmer.String(k, 4))
		}
	}
}

func TestPruneUnreachableKeepsSourceComponent(t *testing.T) {
	b := NewBuilder(4)
	src, perr := kmer.Parse("AC")
	if perr != nil {
		t.Fatal(perr)
	}
	b.SourceMotif = []kmer.KmerLen{{Kmer: src, Len: 2}}
	b.Build()
	if len(b.Kmers) == 0 {
		t.Fatal("expected a non-empty surviving graph")
	}
	for _, k := range b.Kmers {
		if b.CountIncoming(k) == 0 || b.CountOutgoing(k) == 0 {
			t.Errorf("%s survived Build with a zero-degree edge", kmer.String(k, 4))
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	b := NewBuilder(4)
	b.FindCandidates()
	snap := b.SnapshotValid()
	k := b.Kmers[0]
	b.Valid[k] = false
	b.RestoreValid(snap)
	found := false
	for _, x := range b.Kmers {
		if x == k {
			found = true
		}
	}
	if !found {
		t.Errorf("RestoreValid should bring back %s", kmer.String(k, 4))
	}
}

func TestBuildEdgesDropsDegenerates(t *testing.T) {
	b := NewBuilder(5)
	b.KeepDegenerates = false
	b.Build()
	for _, k := range b.Kmers {
		flags, _ := b.OutgoingEdgeFlags(k)
		if flags&3 == 3 {
			t.Errorf("%s retained both purine outgoing edges", kmer.String(k, 5))
		}
		if flags&12 == 12 {
			t.Errorf("%s retained both pyrimidine outgoing edges", kmer.String(k, 5))
		}
	}
}
