// Package kmer implements k-mer arithmetic: packing a length-L DNA
// sequence into an unsigned integer, and the bit-level operations
// (complement, transition/transversion, GC content, entropy, reverse
// complement, substrings) that every other package in this module
// builds on.
//
// Position 1 is the rightmost base (least-significant bit pair), matching
// original_source/src/kmer.h. The alphabet order "AGTC" and the
// complement-by-xor-2 trick are both taken from that source: complement
// flips bit 1 only (A<->T, G<->C), and a transition pair shares bit 1 but
// differs in bit 0 (A<->G, T<->C). Complement differing in bit 0 instead
// is an equally valid bit assignment; what matters is that the three
// predicates (isTransition, isTransversion, isGC) stay derivable by bit
// arithmetic, which they are here.
package kmer

import (
	"fmt"
	"math"
	"strings"
)

// Base is a single nucleotide, encoded as a 2-bit value.
type Base byte

// Kmer is a length-L sequence of bases packed into a 64-bit integer.
// L is bounded to 31 so that 2*L bits fit comfortably within a uint64
// with a sign bit to spare.
type Kmer uint64

// Pos indexes a base within a Kmer; Pos 1 is the rightmost (newest) base.
type Pos int

// MaxLen is the largest k-mer length this module supports: L <= 31.
const MaxLen Pos = 31

// Alphabet is the base order underlying the 2-bit encoding: A=0, G=1, T=2, C=3.
const Alphabet = "AGTC"

// BaseToChar renders a Base as its nucleotide character.
func BaseToChar(b Base) byte {
	return Alphabet[b&3]
}

// CharToBase parses a nucleotide character (case-insensitive) into a Base.
func CharToBase(c byte) (Base, error) {
	idx := strings.IndexByte(Alphabet, upper(c))
	if idx < 0 {
		return 0, fmt.Errorf("kmer: %q is not a nucleotide character", c)
	}
	return Base(idx), nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// GetBase returns the base at position pos (1-indexed from the right).
func GetBase(k Kmer, pos Pos) Base {
	return Base((k >> uint((pos - 1) << 1)) & 3)
}

// SetBase returns k with the base at position pos replaced by b.
func SetBase(k Kmer, pos Pos, b Base) Kmer {
	shift := uint((pos - 1) << 1)
	return (k &^ (Kmer(3) << shift)) | (Kmer(b) << shift)
}

// ComplementBase returns the Watson-Crick complement of b.
func ComplementBase(b Base) Base {
	return b ^ 2
}

// MakeTransition returns k with the base at position pos replaced by its
// transition partner (the other purine or the other pyrimidine).
func MakeTransition(k Kmer, pos Pos) Kmer {
	return k ^ (Kmer(1) << uint((pos-1)<<1))
}

// IsTransition reports whether x and y are a transition pair (A<->G or T<->C).
func IsTransition(x, y Base) bool {
	return x != y && (x&2) == (y&2)
}

// IsTransversion reports whether x and y are a transversion pair.
func IsTransversion(x, y Base) bool {
	return x != y && (x&2) != (y&2)
}

// IsComplement reports whether y is the Watson-Crick complement of x.
func IsComplement(x, y Base) bool {
	return y == ComplementBase(x)
}

// IsGC reports whether b is G or C.
func IsGC(b Base) bool {
	return (b & 1) == 1
}

// String renders a length-len k-mer as a nucleotide string, most-recent
// base last (position 1 at the end of the string).
func String(k Kmer, length Pos) string {
	s := make([]byte, length)
	for i := Pos(1); i <= length; i++ {
		s[length-i] = BaseToChar(GetBase(k, i))
	}
	return string(s)
}

// Parse converts a nucleotide string into a Kmer of the implied length.
func Parse(s string) (Kmer, error) {
	var k Kmer
	for i := 0; i < len(s); i++ {
		b, err := CharToBase(s[i])
		if err != nil {
			return 0, err
		}
		k = (k << 2) | Kmer(b)
	}
	return k, nil
}

// Mask returns a bitmask covering exactly the low 2*length bits, i.e. the
// set of bits that a valid k-mer of this length can occupy. 4^length - 1.
func Mask(length Pos) Kmer {
	return (Kmer(1) << uint(length<<1)) - 1
}

// Sub extracts the length-len substring of k starting at position start
// (1-indexed from the right).
func Sub(k Kmer, start, length Pos) Kmer {
	return (k >> uint((start-1)<<1)) & Mask(length)
}

// Substring renders Sub(k, start, length) as a nucleotide string.
func Substring(k Kmer, start, length Pos) string {
	return String(Sub(k, start, length), length)
}

// ShiftIn advances a k-mer of the given length by one base, dropping the
// oldest (leftmost) base and appending b as the new rightmost base. This
// realizes the de Bruijn graph edge "k -> shift-in(k,b)".
func ShiftIn(k Kmer, length Pos, b Base) Kmer {
	return ((k << 2) | Kmer(b)) & Mask(length)
}

// RevComp returns the reverse complement of a length-len k-mer, in O(len).
func RevComp(k Kmer, length Pos) Kmer {
	var rc Kmer
	for i := Pos(1); i <= length; i++ {
		rc = (rc << 2) | Kmer(ComplementBase(GetBase(k, i)))
	}
	return rc
}

// HammingDistance counts the number of differing bases between two
// length-len k-mers.
func HammingDistance(x, y Kmer, length Pos) int {
	d := 0
	for i := Pos(1); i <= length; i++ {
		if GetBase(x, i) != GetBase(y, i) {
			d++
		}
	}
	return d
}

// GCContent returns the fraction of G/C bases in a length-len k-mer.
func GCContent(k Kmer, length Pos) float64 {
	gc := 0
	for i := Pos(1); i <= length; i++ {
		if IsGC(GetBase(k, i)) {
			gc++
		}
	}
	return float64(gc) / float64(length)
}

// GCNonuniformity is |gcContent - 0.5|, used by the graph builder and
// control-word planner to break ties among otherwise-equal candidates.
func GCNonuniformity(k Kmer, length Pos) float64 {
	return math.Abs(GCContent(k, length) - 0.5)
}

// Entropy returns length times the order-0 Shannon entropy (in bits) of
// the base composition of a length-len k-mer, i.e. -sum n*log2(n/length)
// over the per-base counts n.
func Entropy(k Kmer, length Pos) float64 {
	var freq [4]int
	for i := Pos(1); i <= length; i++ {
		freq[GetBase(k, i)]++
	}
	var s float64
	for _, f := range freq {
		if f > 0 {
			p := float64(f) / float64(length)
			s -= float64(f) * math.Log(p)
		}
	}
	return s / math.Log(2)
}

// EqualOrBetter reports whether x is at least as good a candidate as y
// under the "fewer-incoming, less GC-skewed, higher-entropy" preference
// order used to break ties between otherwise-equivalent k-mers (the
// caller is responsible for comparing incoming-edge counts first; this
// compares only the GC/entropy tiebreak, per
// original_source/src/kmer.h: kmerEqualOrBetter).
func EqualOrBetter(x, y Kmer, length Pos) bool {
	xgc, ygc := GCNonuniformity(x, length), GCNonuniformity(y, length)
	if xgc == ygc {
		return Entropy(x, length) >= Entropy(y, length)
	}
	return xgc < ygc
}

// KmerLen pairs a k-mer with its length, used wherever a collection mixes
// motifs of different lengths (excluded motifs, source motifs, control
// words).
type KmerLen struct {
	Kmer Kmer
	Len  Pos
}

// Less provides a total order for KmerLen, primarily for deterministic
// iteration and for use as a map/set key substitute in sorted slices.
func (kl KmerLen) Less(other KmerLen) bool {
	return kl.Len < other.Len || (kl.Len == other.Len && kl.Kmer < other.Kmer)
}

// String renders the KmerLen using its own length.
func (kl KmerLen) String() string {
	return String(kl.Kmer, kl.Len)
}
