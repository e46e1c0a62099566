// Package bio implements the sequence file formats this module reads
// and writes: FASTA for raw encode/decode I/O and Stockholm for guide
// alignments consumed by internal/viterbi's Baum-Welch trainer.
// Grounded on
// original_source/src/encoder.h's FastaWriter (line-wrapped FASTA
// writing) and original_source/src/stockholm.h (the Stockholm record
// shape: gapped rows plus #=GF/#=GC/#=GR/#=GS annotation maps).
package bio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultFastaCols matches original_source/src/encoder.h's FastaWriter,
// which wraps sequence lines at 50 characters.
const DefaultFastaCols = 50

// Seq is a single named, unannotated sequence record.
type Seq struct {
	Name    string
	Comment string
	Seq     string
}

// FastaWriter wraps an io.Writer and line-wraps sequence bases at
// colsPerLine characters, mirroring original_source/src/encoder.h's
// FastaWriter (there templated on any Writer; here on io.Writer).
type FastaWriter struct {
	w          io.Writer
	col        int
	colsPerLine int
	wroteAny   bool
}

// NewFastaWriter returns a FastaWriter wrapping lines at colsPerLine
// characters (DefaultFastaCols if colsPerLine <= 0).
func NewFastaWriter(w io.Writer, colsPerLine int) *FastaWriter {
	if colsPerLine <= 0 {
		colsPerLine = DefaultFastaCols
	}
	return &FastaWriter{w: w, colsPerLine: colsPerLine}
}

// WriteHeader starts a new FASTA record.
func (fw *FastaWriter) WriteHeader(name string) error {
	if err := fw.EndRecord(); err != nil {
		return err
	}
	fw.wroteAny = true
	_, err := fmt.Fprintf(fw.w, ">%s\n", name)
	fw.col = 0
	return err
}

// WriteBases appends residues to the current record, wrapping lines at
// fw.colsPerLine.
func (fw *FastaWriter) WriteBases(bases string) error {
	for i := 0; i < len(bases); i++ {
		if _, err := io.WriteString(fw.w, bases[i:i+1]); err != nil {
			return err
		}
		fw.col++
		if fw.col >= fw.colsPerLine {
			if _, err := io.WriteString(fw.w, "\n"); err != nil {
				return err
			}
			fw.col = 0
		}
	}
	return nil
}

// EndRecord closes out a trailing partial line, matching
// FastaWriter::~FastaWriter's newline-if-dangling behavior.
func (fw *FastaWriter) EndRecord() error {
	if fw.col > 0 {
		fw.col = 0
		_, err := io.WriteString(fw.w, "\n")
		return err
	}
	return nil
}

// WriteSeqs writes a full set of records in one call.
func WriteSeqs(w io.Writer, seqs []Seq, colsPerLine int) error {
	fw := NewFastaWriter(w, colsPerLine)
	for _, s := range seqs {
		if err := fw.WriteHeader(s.Name); err != nil {
			return err
		}
		if err := fw.WriteBases(s.Seq); err != nil {
			return err
		}
	}
	return fw.EndRecord()
}

// ReadSeqs parses a FASTA stream into a slice of Seq records.
func ReadSeqs(r io.Reader) ([]Seq, error) {
	var out []Seq
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var cur *Seq
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			if cur != nil {
				out = append(out, *cur)
			}
			header := strings.TrimPrefix(line, ">")
			name, comment := header, ""
			if sp := strings.IndexAny(header, " \t"); sp >= 0 {
				name, comment = header[:sp], strings.TrimSpace(header[sp+1:])
			}
			cur = &Seq{Name: name, Comment: comment}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("bio: FASTA data before any header")
		}
		cur.Seq += strings.TrimSpace(line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out, nil
}
