package bio

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ihh/dnastore/internal/align"
)

// DefaultStockholmRowLength and MinStockholmCharsPerRow match
// original_source/src/stockholm.h's same-named constants.
const (
	DefaultStockholmRowLength = 80
	MinStockholmCharsPerRow   = 10
)

// Stockholm mirrors original_source/src/stockholm.h's Stockholm struct:
// a set of gapped rows plus the four kinds of Stockholm annotation
// (#=GF file, #=GC column, #=GR per-residue, #=GS per-sequence).
type Stockholm struct {
	Gapped []Seq
	GC     map[string]string              // gc[tag] = per-column string
	GF     map[string][]string            // gf[tag] = lines
	GR     map[string]map[string]string   // gr[tag][seqname] = per-column string
	GS     map[string]map[string][]string // gs[tag][seqname] = lines
}

// NewStockholm returns an empty Stockholm record with its maps initialized.
func NewStockholm() *Stockholm {
	return &Stockholm{
		GC: make(map[string]string),
		GF: make(map[string][]string),
		GR: make(map[string]map[string]string),
		GS: make(map[string]map[string][]string),
	}
}

// Rows and Columns report the record's dimensions.
func (s *Stockholm) Rows() int { return len(s.Gapped) }
func (s *Stockholm) Columns() int {
	if len(s.Gapped) == 0 {
		return 0
	}
	return len(s.Gapped[0].Seq)
}

// Path recovers the alignment's AlignPath from the gapped rows, matching
// original_source/src/stockholm.h's Stockholm::path().
func (s *Stockholm) Path() align.Path {
	p := make(align.Path, len(s.Gapped))
	for i, seq := range s.Gapped {
		row := make(align.RowPath, len(seq.Seq))
		for c := 0; c < len(seq.Seq); c++ {
			row[c] = !align.IsGap(seq.Seq[c])
		}
		p[align.RowIndex(i)] = row
	}
	return p
}

// Alignment converts the record to an align.Alignment.
func (s *Stockholm) Alignment() align.Alignment {
	rows := make([]align.Sequence, len(s.Gapped))
	for i, seq := range s.Gapped {
		rows[i] = align.Sequence{Name: seq.Name, Residues: seq.Seq}
	}
	return align.FromGapped(rows)
}

// ReadStockholm parses a single Stockholm-format alignment from r.
func ReadStockholm(r io.Reader) (*Stockholm, error) {
	s := NewStockholm()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	seen := map[string]int{}

	sawHeader := false
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !sawHeader {
			if !strings.HasPrefix(trimmed, "# STOCKHOLM") {
				return nil, fmt.Errorf("bio: missing Stockholm header")
			}
			sawHeader = true
			continue
		}
		if trimmed == "//" {
			break
		}
		switch {
		case strings.HasPrefix(trimmed, "#=GF "):
			fields := splitN(trimmed[len("#=GF "):], 2)
			s.GF[fields[0]] = append(s.GF[fields[0]], strings.TrimSpace(at(fields, 1)))
		case strings.HasPrefix(trimmed, "#=GC "):
			fields := splitN(trimmed[len("#=GC "):], 2)
			s.GC[fields[0]] += strings.TrimSpace(at(fields, 1))
		case strings.HasPrefix(trimmed, "#=GR "):
			fields := splitN(trimmed[len("#=GR "):], 3)
			tag, name := fields[0], at(fields, 1)
			if s.GR[tag] == nil {
				s.GR[tag] = make(map[string]string)
			}
			s.GR[tag][name] += strings.TrimSpace(at(fields, 2))
		case strings.HasPrefix(trimmed, "#=GS "):
			fields := splitN(trimmed[len("#=GS "):], 3)
			tag, name := fields[0], at(fields, 1)
			if s.GS[tag] == nil {
				s.GS[tag] = make(map[string][]string)
			}
			s.GS[tag][name] = append(s.GS[tag][name], strings.TrimSpace(at(fields, 2)))
		case trimmed[0] == '#':
			// unrecognized annotation line, ignored.
		default:
			fields := strings.Fields(trimmed)
			if len(fields) != 2 {
				return nil, fmt.Errorf("bio: malformed Stockholm sequence line %q", line)
			}
			name, block := fields[0], fields[1]
			if idx, ok := seen[name]; ok {
				s.Gapped[idx].Seq += block
			} else {
				seen[name] = len(s.Gapped)
				s.Gapped = append(s.Gapped, Seq{Name: name, Seq: block})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadStockholmDatabase parses a concatenated multi-record Stockholm
// file, matching original_source/src/stockholm.h's
// readStockholmDatabase.
func ReadStockholmDatabase(r io.Reader) ([]*Stockholm, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []*Stockholm
	for _, chunk := range splitRecords(string(data)) {
		s, err := ReadStockholm(strings.NewReader(chunk))
		if err != nil {
			return nil, err
		}
		if s.Rows() > 0 || len(s.GF) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func splitRecords(data string) []string {
	var records []string
	var cur strings.Builder
	for _, line := range strings.Split(data, "\n") {
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.TrimSpace(line) == "//" {
			records = append(records, cur.String())
			cur.Reset()
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		records = append(records, cur.String())
	}
	return records
}

// WriteStockholm serializes s to w, block-wrapping at charsPerRow
// columns (clamped to at least MinStockholmCharsPerRow), matching
// original_source/src/stockholm.h's Stockholm::write.
func WriteStockholm(w io.Writer, s *Stockholm, charsPerRow int) error {
	if charsPerRow <= 0 {
		charsPerRow = DefaultStockholmRowLength
	}
	if charsPerRow < MinStockholmCharsPerRow {
		charsPerRow = MinStockholmCharsPerRow
	}
	if _, err := io.WriteString(w, "# STOCKHOLM 1.0\n"); err != nil {
		return err
	}
	for _, tag := range sortedKeys(s.GF) {
		for _, line := range s.GF[tag] {
			if _, err := fmt.Fprintf(w, "#=GF %s %s\n", tag, line); err != nil {
				return err
			}
		}
	}

	cols := s.Columns()
	for start := 0; start < cols || (cols == 0 && start == 0); start += charsPerRow {
		end := start + charsPerRow
		if end > cols {
			end = cols
		}
		for _, seq := range s.Gapped {
			if _, err := fmt.Fprintf(w, "%-20s %s\n", seq.Name, sliceOrWhole(seq.Seq, start, end)); err != nil {
				return err
			}
			for _, tag := range sortedKeys(s.GR) {
				if per, ok := s.GR[tag][seq.Name]; ok {
					if _, err := fmt.Fprintf(w, "#=GR %-15s %s %s\n", seq.Name, tag, sliceOrWhole(per, start, end)); err != nil {
						return err
					}
				}
			}
		}
		for _, tag := range sortedKeys(s.GC) {
			if _, err := fmt.Fprintf(w, "#=GC %-20s %s\n", tag, sliceOrWhole(s.GC[tag], start, end)); err != nil {
				return err
			}
		}
		if cols == 0 {
			break
		}
	}
	_, err := io.WriteString(w, "//\n")
	return err
}

func sliceOrWhole(s string, start, end int) string {
	if start >= len(s) {
		return ""
	}
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitN(s string, n int) []string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return fields
	}
	out := make([]string, n)
	copy(out, fields[:n-1])
	rest := fields[n-1:]
	out[n-1] = strings.Join(rest, " ")
	return out
}

func at(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
