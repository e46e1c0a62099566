package codec

import (
	"fmt"
	"io"

	"github.com/ihh/dnastore/internal/transducer"
	"github.com/ihh/dnastore/internal/xlog"
)

// Encoder is the non-deterministic streaming encoder: the mirror image
// of Decoder, with input and output roles swapped. It holds
// a set of currently-possible states, each with a queue of output bases
// not yet flushed to the writer, since more than one transition can
// match a given input symbol when bridge paths and control transitions
// overlap.
type Encoder struct {
	m       *transducer.Machine
	current map[transducer.State]string
	w       io.Writer
	flushed int
}

// NewEncoder creates an encoder for m, writing flushed bases to w.
func NewEncoder(m *transducer.Machine, w io.Writer) *Encoder {
	e := &Encoder{
		m:       m,
		current: map[transducer.State]string{m.StartStateIndex(): ""},
		w:       w,
	}
	e.expand()
	return e
}

// expand ε-closes the current state set under transitions that require
// no input symbol: such a transition fires unconditionally, appending
// its output (if any) to the queue.
func (e *Encoder) expand() {
	for {
		next := make(map[transducer.State]string)
		foundNew := false
		for state, queue := range e.current {
			needsInput := false
			for _, t := range e.m.State[state].Trans {
				if t.In != "" {
					needsInput = true
				} else {
					nextQueue := queue + t.Out
					if existing, ok := next[t.To]; !ok || existing == nextQueue {
						next[t.To] = nextQueue
					}
					if existing, ok := e.current[t.To]; !ok || existing != nextQueue {
						foundNew = true
					}
				}
			}
			if needsInput {
				next[state] = queue
			}
		}
		e.current = next
		if !foundNew {
			return
		}
	}
}

// EncodeSymbol feeds one input symbol ("0", "1", "FLUSH", "EOF", "SOF",
// or a control character) through every matching transition from the
// current state set, then ε-closes and flushes any output bases every
// candidate queue agrees on.
func (e *Encoder) EncodeSymbol(sym string) error {
	next := make(map[transducer.State]string)
	for state, queue := range e.current {
		for _, t := range e.m.State[state].Trans {
			if t.In == sym {
				nextQueue := queue + t.Out
				if existing, ok := next[t.To]; ok && existing != nextQueue {
					return fmt.Errorf("codec: divergent output queues reaching a single state")
				}
				next[t.To] = nextQueue
			}
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("codec: no transition accepts input symbol %q", sym)
	}
	e.current = next
	e.expand()
	return e.flushAgreed()
}

// flushAgreed writes out, and strips from every candidate queue, the
// longest common leading run of bases; if the state set has collapsed to
// a single state whose live outgoing transitions all require input (or
// it is end-terminal), the whole queue is safe to flush.
func (e *Encoder) flushAgreed() error {
	for {
		if len(e.current) == 0 {
			return nil
		}
		var lead byte
		first := true
		agree := true
		for _, queue := range e.current {
			if queue == "" {
				agree = false
				break
			}
			if first {
				lead = queue[0]
				first = false
			} else if queue[0] != lead {
				agree = false
				break
			}
		}
		if !agree {
			break
		}
		if _, err := e.w.Write([]byte{lead}); err != nil {
			return err
		}
		e.flushed++
		for state, queue := range e.current {
			e.current[state] = queue[1:]
		}
	}

	if len(e.current) == 1 {
		for state, queue := range e.current {
			if queue == "" {
				continue
			}
			if isResolvedState(e.m, state) {
				if _, err := e.w.Write([]byte(queue)); err != nil {
					return err
				}
				e.flushed += len(queue)
				e.current[state] = ""
			}
		}
	}
	return nil
}

// isResolvedState reports whether s's live transitions all require an
// input symbol (i.e. nothing further can happen without external input,
// so any queued output is safe to commit).
func isResolvedState(m *transducer.Machine, s transducer.State) bool {
	for _, t := range m.State[s].Trans {
		if t.In == "" {
			return false
		}
	}
	return true
}

// EncodeBit encodes a single payload bit (0 or 1).
func (e *Encoder) EncodeBit(bit int) error {
	if bit == 0 {
		return e.EncodeSymbol("0")
	}
	return e.EncodeSymbol("1")
}

// EncodeByte encodes the 8 bits of b, least-significant bit first.
func (e *Encoder) EncodeByte(b byte) error {
	for i := 0; i < 8; i++ {
		if err := e.EncodeBit(int((b >> i) & 1)); err != nil {
			return fmt.Errorf("codec: encoding bit %d of byte 0x%02x: %w", i, b, err)
		}
	}
	return nil
}

// EncodeStream encodes every byte read from r.
func (e *Encoder) EncodeStream(r io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			if encErr := e.EncodeByte(buf[i]); encErr != nil {
				return encErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close injects the EOF input symbol, if the machine accepts it in some
// candidate state (padding with zero bits otherwise so a pending partial
// bit can be completed), and flushes everything remaining.
func (e *Encoder) Close() error {
	if err := e.tryEOF(); err != nil {
		xlog.At(4, "Could not cleanly reach EOF, flushing remaining output as-is: %v", err)
	}
	for state, queue := range e.current {
		if queue != "" {
			if _, err := e.w.Write([]byte(queue)); err != nil {
				return err
			}
			e.current[state] = ""
		}
	}
	return nil
}

func (e *Encoder) tryEOF() error {
	if !e.machineHasEOF() {
		return nil
	}
	const maxPad = 2
	for i := 0; i < maxPad; i++ {
		if err := e.EncodeSymbol("EOF"); err == nil {
			return nil
		}
		if err := e.EncodeBit(0); err != nil {
			return err
		}
	}
	return e.EncodeSymbol("EOF")
}

func (e *Encoder) machineHasEOF() bool {
	for _, ms := range e.m.State {
		for _, t := range ms.Trans {
			if t.In == "EOF" {
				return true
			}
		}
	}
	return false
}
