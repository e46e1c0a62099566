// Package codec implements the streaming encoder and non-deterministic
// decoder runtime, grounded on original_source/src/encoder.h
// (FastaWriter) and original_source/src/decoder.h
// (Decoder::expand/decodeBase, BinaryWriter), generalized into
// symmetric non-deterministic state-set machinery on both the encode
// and decode side.
package codec

import (
	"fmt"
	"io"

	"github.com/ihh/dnastore/internal/xlog"
)

// BinaryWriter packs runs of '0'/'1' input-symbol characters into octets
// and writes them to an underlying writer, logging every other character
// as a control symbol, matching original_source/src/decoder.h:
// BinaryWriter.
type BinaryWriter struct {
	w      io.Writer
	msb0   bool
	bits   []bool
	closed bool
}

// NewBinaryWriter returns a BinaryWriter packing bits LSB-first by
// default.
func NewBinaryWriter(w io.Writer, msb0 bool) *BinaryWriter {
	return &BinaryWriter{w: w, msb0: msb0}
}

// WriteSymbols consumes a decoder's committed input-symbol string: '0'
// and '1' characters accumulate into the bit buffer (flushing every 8
// bits); any other character is logged as a control symbol and dropped.
func (bw *BinaryWriter) WriteSymbols(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '0', '1':
			bw.bits = append(bw.bits, c == '1')
			if len(bw.bits) == 8 {
				if err := bw.flush(); err != nil {
					return err
				}
			}
		default:
			xlog.At(7, "Ignoring control character %q while packing bits", c)
		}
	}
	return nil
}

func (bw *BinaryWriter) flush() error {
	var c byte
	for n, bit := range bw.bits {
		if !bit {
			continue
		}
		if bw.msb0 {
			c |= 1 << (7 - n)
		} else {
			c |= 1 << n
		}
	}
	bw.bits = bw.bits[:0]
	_, err := bw.w.Write([]byte{c})
	return err
}

// Close warns (not fatal) if a partial byte remains unflushed, then
// discards it.
func (bw *BinaryWriter) Close() error {
	if bw.closed {
		return nil
	}
	bw.closed = true
	if len(bw.bits) > 0 {
		xlog.Warn("%d bits remain on the output, discarding", len(bw.bits))
		bw.bits = bw.bits[:0]
	}
	return nil
}

// AssertPacked is a tiny helper for callers that want to fail loudly on a
// non-8-bit-aligned close.
func AssertPacked(bw *BinaryWriter) error {
	if len(bw.bits) != 0 {
		return fmt.Errorf("codec: %d bits remain unpacked", len(bw.bits))
	}
	return nil
}
