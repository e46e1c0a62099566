package codec

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ihh/dnastore/internal/transducer"
	"github.com/ihh/dnastore/internal/xlog"
)

// Decoder is the non-deterministic streaming decoder, grounded on
// original_source/src/decoder.h: Decoder. It holds, for each
// currently-possible state, a queue of input symbols not yet committed
// to the output.
type Decoder struct {
	m       *transducer.Machine
	current map[transducer.State]string
	out     func(string) error
}

// NewDecoder creates a decoder for m, whose committed input symbols are
// passed to emit (typically a BinaryWriter.WriteSymbols).
func NewDecoder(m *transducer.Machine, emit func(string) error) *Decoder {
	d := &Decoder{
		m:       m,
		current: map[transducer.State]string{m.StartStateIndex(): ""},
		out:     emit,
	}
	d.expand()
	return d
}

// expand ε-closes the current state set under transitions whose output
// is empty: such a transition requires no base to be consumed, so it
// fires immediately, appending its input symbol (if any) to the queue.
// A state with at least one output-bearing transition stays on the
// frontier, since it may still be the target of the next decodeBase.
func (d *Decoder) expand() {
	for {
		next := make(map[transducer.State]string)
		foundNew := false
		for state, queue := range d.current {
			hasOutput := false
			for _, t := range d.m.State[state].Trans {
				if t.Out != "" {
					hasOutput = true
				} else {
					nextQueue := queue + t.In
					if existing, ok := next[t.To]; ok && existing != nextQueue {
						xlog.Warn("decoder: divergent input queues merging at a single state")
					}
					next[t.To] = nextQueue
					if existing, ok := d.current[t.To]; !ok || existing != nextQueue {
						foundNew = true
					}
				}
			}
			if hasOutput {
				if existing, ok := next[state]; ok && existing != queue {
					xlog.Warn("decoder: divergent input queues merging at a single state")
				}
				next[state] = queue
			}
		}
		d.current = next
		if !foundNew {
			return
		}
	}
}

// DecodeBase consumes one output character, advancing every candidate
// state along its matching output-edge, then ε-closes and, if the
// candidate set has collapsed to a single Code/Control state, flushes
// its queue. Mirrors original_source/src/decoder.h: Decoder::decodeBase.
func (d *Decoder) DecodeBase(base byte) error {
	base = byte(unicode.ToUpper(rune(base)))
	xlog.At(8, "Decoding %c", base)

	next := make(map[transducer.State]string)
	for state, queue := range d.current {
		for _, t := range d.m.State[state].Trans {
			if len(t.Out) == 1 && t.Out[0] == base {
				nextQueue := queue + t.In
				if existing, ok := next[t.To]; ok && existing != nextQueue {
					return fmt.Errorf("codec: multiple outputs decode to a single state")
				}
				next[t.To] = nextQueue
			}
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("codec: no input is consistent with output base %q", base)
	}
	d.current = next
	d.expand()

	if len(d.current) == 1 {
		for state, queue := range d.current {
			t := d.m.State[state].Type
			if (t == transducer.ControlState || t == transducer.CodeState) && queue != "" {
				xlog.At(9, "Flushing input queue: %s", queue)
				if err := d.out(queue); err != nil {
					return err
				}
				d.current[state] = ""
			}
		}
	}
	return nil
}

// DecodeString decodes every character of seq in turn.
func (d *Decoder) DecodeString(seq string) error {
	for i := 0; i < len(seq); i++ {
		if err := d.DecodeBase(seq[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close reports via xlog.Warn, not an error, any states left with a
// non-empty pending input queue.
func (d *Decoder) Close() {
	unresolved := 0
	for _, queue := range d.current {
		if queue != "" {
			unresolved++
		}
	}
	if unresolved > 0 {
		xlog.Warn("decoder unresolved: %d state(s) remaining with symbols on input queue: %s", unresolved, d.pendingSummary())
	}
}

// pendingSummary renders the current candidate set for diagnostics.
func (d *Decoder) pendingSummary() string {
	var parts []string
	for state, queue := range d.current {
		parts = append(parts, fmt.Sprintf("#%d:%q", state, queue))
	}
	return strings.Join(parts, " ")
}
