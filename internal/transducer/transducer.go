// Package transducer assembles the graph and control-word plan produced by
// internal/graph and internal/control into a Machine: a flat,
// arena-indexed finite-state transducer whose transitions carry an input
// symbol, an output DNA base, and a destination state index — a flat
// vector of states indexed by small integers, where transitions store
// destination indices rather than pointers. It is grounded on
// original_source/src/trans.h/trans.cpp for the Machine/MachineState/
// MachineTransition shapes and original_source/src/builder.cpp's
// makeMachine/controlTrans/nextIntermediateKmer for the assembly
// algorithm, adapted to a tagged-sum state-type design and to the
// edge-rotation and framing behavior this module requires.
package transducer

import (
	"fmt"
	"io"
	"sort"

	"github.com/ihh/dnastore/internal/control"
	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/xlog"
)

// StateType discriminates the seven kinds of state (plus UndefinedState)
// in the tagged-sum design.
type StateType int

const (
	UndefinedState StateType = iota
	SourceState
	ControlState
	CodeState
	SplitState
	PadState
	StartState
	EndState
)

// State indexes MachineState within a Machine.
type State int

// controlChars supplies one printable character per control word, mirroring
// original_source/src/trans.cpp's controlChars literal.
const controlChars = "XYPQVWKLEFIJLM23456789<>[]!?abcdefghijklmnopqrstuvwxyz"

// Transition is one edge out of a MachineState. In/Out use "" for
// epsilon, "0"/"1" for payload bits, "FLUSH"/"EOF"/"SOF" for the reserved
// symbols, and a single control character (from controlChars) for a
// control transition; Out is always "" or a single base character.
type Transition struct {
	In  string
	Out string
	To  State
}

// MachineState is one node of the transducer.
type MachineState struct {
	Context    kmer.Kmer
	ContextLen kmer.Pos
	Type       StateType
	Control    int // index into Machine.Controls; -1 when not a control/pad state
	Trans      []Transition
}

// TypeString renders the state's type the way
// original_source/src/trans.cpp: MachineState::typeString does, including
// the control character for Control/Pad states.
func (ms MachineState) TypeString() string {
	switch ms.Type {
	case SourceState:
		return "Source"
	case ControlState:
		return fmt.Sprintf("Meta(%c)", controlChar(ms.Control))
	case CodeState:
		return "Code"
	case SplitState:
		return "Split"
	case PadState:
		return fmt.Sprintf("Pad(%c)", controlChar(ms.Control))
	case StartState:
		return "Start"
	case EndState:
		return "End"
	}
	return "Undefined"
}

func controlChar(c int) byte {
	if c < 0 || c >= len(controlChars) {
		return '?'
	}
	return controlChars[c]
}

// Machine is the assembled transducer: an immutable, flat vector of
// states. The Machine is immutable after assembly.
type Machine struct {
	Len      kmer.Pos
	State    []MachineState
	Controls []control.ControlWord
}

// NStates returns the number of states in the machine.
func (m *Machine) NStates() State { return State(len(m.State)) }

// StartStateIndex returns the entry point of the machine: state 0, which is
// either the first load state (start framing enabled) or the first
// coding state.
func (m *Machine) StartStateIndex() State { return 0 }

// stateName renders a state index the way
// original_source/src/trans.cpp: Machine::stateName does.
func stateName(s State) string { return fmt.Sprintf("#%d", s+1) }

// Options configures Assemble's framing and layout decisions.
type Options struct {
	StartFraming bool
	EndFraming   bool
	// SourceMotif is the user-configured set of graph terminators, distinct
	// from control words (which also act as graph terminators for pruning
	// purposes). A k-mer matching one of these motifs is tagged
	// SourceState, or ControlState if it is also a control word; a control
	// word matching none of them is an ordinary CodeState.
	SourceMotif []kmer.KmerLen
}

// assembler carries the working maps used while building a Machine, kept
// as an explicit value rather than fields smeared across free functions.
type assembler struct {
	b       *graph.Builder
	opts    Options
	kmers   []kmer.Kmer
	machine *Machine
	nStates State

	kmerState     map[kmer.Kmer]State
	kmerStateZero map[kmer.Kmer]State
	kmerStateOne  map[kmer.Kmer]State
	controlState  []map[kmer.Kmer][]State // controlState[c][step] keyed by kmer -> state, step < Steps-1
}

// Assemble builds a Machine from a graph and a committed control-word
// plan.
func Assemble(b *graph.Builder, controls []control.ControlWord, opts Options) (*Machine, error) {
	a := &assembler{
		b:             b,
		opts:          opts,
		kmers:         sortedKmers(b.Kmers),
		kmerState:     make(map[kmer.Kmer]State),
		kmerStateZero: make(map[kmer.Kmer]State),
		kmerStateOne:  make(map[kmer.Kmer]State),
	}
	a.machine = &Machine{Len: b.Len, Controls: controls}
	a.indexStates(controls)
	a.machine.State = make([]MachineState, a.nStates)
	a.buildCodingStates(controls)
	if opts.StartFraming {
		if err := a.prependStartFraming(controls); err != nil {
			return nil, err
		}
	}
	if opts.EndFraming {
		if err := a.appendEndFraming(controls); err != nil {
			return nil, err
		}
	}
	return a.machine, nil
}

func sortedKmers(kmers []kmer.Kmer) []kmer.Kmer {
	out := append([]kmer.Kmer(nil), kmers...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *assembler) isSource(k kmer.Kmer) bool {
	for _, kl := range a.opts.SourceMotif {
		if kmer.Sub(k, 1, kl.Len) == kl.Kmer {
			return true
		}
	}
	return false
}

func (a *assembler) controlIndexOf(k kmer.Kmer) int {
	for i, c := range a.machine.Controls {
		if c.Kmer == k {
			return i
		}
	}
	return -1
}

// indexStates mirrors original_source/src/builder.cpp:
// TransBuilder::indexStates: primary state per k-mer, then split states
// for out-degree 3/4, then per-control bridge intermediate states.
func (a *assembler) indexStates(controls []control.ControlWord) {
	var n State
	for _, k := range a.kmers {
		a.kmerState[k] = n
		n++
	}
	for _, k := range a.kmers {
		if a.isSource(k) {
			continue
		}
		d := a.b.CountOutgoing(k)
		if d >= 3 {
			a.kmerStateZero[k] = n
			n++
		}
		if d >= 4 {
			a.kmerStateOne[k] = n
			n++
		}
	}
	// Assign bridge-pad states in deterministic order, keyed by sorting
	// each step's intermediate k-mer set.
	a.controlState = make([]map[kmer.Kmer][]State, len(controls))
	for c, cw := range controls {
		steps := cw.Steps
		a.controlState[c] = make(map[kmer.Kmer][]State)
		for step := 0; step < steps-1; step++ {
			keys := make([]kmer.Kmer, 0, len(cw.BridgeIntermediates[step]))
			for k := range cw.BridgeIntermediates[step] {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			for _, k := range keys {
				if a.controlState[c][k] == nil {
					a.controlState[c][k] = make([]State, steps-1)
					for i := range a.controlState[c][k] {
						a.controlState[c][k][i] = -1
					}
				}
				a.controlState[c][k][step] = n
				n++
			}
		}
	}
	a.nStates = n
}

func (a *assembler) padState(c, step int, k kmer.Kmer) (State, bool) {
	steps, ok := a.controlState[c][k]
	if !ok || step >= len(steps) || steps[step] < 0 {
		return 0, false
	}
	return steps[step], true
}

// buildCodingStates realizes every live k-mer's primary (and, for
// out-degree 3/4, split) state and wires its coding and control
// transitions, mirroring TransBuilder::makeMachine.
func (a *assembler) buildCodingStates(controls []control.ControlWord) {
	rotation := map[int]int{} // out-degree -> edge-rotation counter
	for _, k := range a.kmers {
		s := a.kmerState[k]
		ms := &a.machine.State[s]
		ms.Context = k
		ms.ContextLen = a.b.Len

		if a.isSource(k) {
			ms.Type = SourceState
			if ci := a.controlIndexOf(k); ci >= 0 {
				ms.Type = ControlState
				ms.Control = ci
			} else {
				ms.Control = -1
			}
			continue
		}

		flags, outKmers := a.b.OutgoingEdgeFlags(k)
		var outChar []byte
		var outState []State
		for n := 0; n < 4; n++ {
			if flags&(1<<n) != 0 {
				outChar = append(outChar, kmer.Alphabet[n])
				outState = append(outState, a.kmerState[outKmers[n]])
			}
		}
		d := len(outChar)
		r := rotation[d] % maxInt(d, 1)
		rotation[d]++
		outChar = rotateBytes(outChar, r)
		outState = rotateStates(outState, r)

		ms.Type = CodeState
		ms.Control = -1

		switch d {
		case 1:
			ms.Trans = append(ms.Trans, Transition{In: "", Out: string(outChar[0]), To: outState[0]})
		case 2:
			ms.Trans = append(ms.Trans,
				Transition{In: "0", Out: string(outChar[0]), To: outState[0]},
				Transition{In: "1", Out: string(outChar[1]), To: outState[1]})
		case 3:
			s0 := a.kmerStateZero[k]
			ms.Trans = append(ms.Trans,
				Transition{In: "0", Out: "", To: s0},
				Transition{In: "1", Out: string(outChar[2]), To: outState[2]},
				Transition{In: "FLUSH", Out: string(outChar[0]), To: outState[0]})
			split := &a.machine.State[s0]
			split.Context, split.ContextLen, split.Type, split.Control = k, a.b.Len, SplitState, -1
			split.Trans = append(split.Trans,
				Transition{In: "0", Out: string(outChar[0]), To: outState[0]},
				Transition{In: "1", Out: string(outChar[1]), To: outState[1]})
		case 4:
			s0, s1 := a.kmerStateZero[k], a.kmerStateOne[k]
			ms.Trans = append(ms.Trans,
				Transition{In: "0", Out: "", To: s0},
				Transition{In: "1", Out: "", To: s1},
				Transition{In: "FLUSH", Out: string(outChar[0]), To: outState[0]})
			split0 := &a.machine.State[s0]
			split0.Context, split0.ContextLen, split0.Type, split0.Control = k, a.b.Len, SplitState, -1
			split0.Trans = append(split0.Trans,
				Transition{In: "0", Out: string(outChar[0]), To: outState[0]},
				Transition{In: "1", Out: string(outChar[1]), To: outState[1]})
			split1 := &a.machine.State[s1]
			split1.Context, split1.ContextLen, split1.Type, split1.Control = k, a.b.Len, SplitState, -1
			split1.Trans = append(split1.Trans,
				Transition{In: "0", Out: string(outChar[2]), To: outState[2]},
				Transition{In: "1", Out: string(outChar[3]), To: outState[3]})
		}

		if d > 1 {
			for c := range controls {
				ms.Trans = append(ms.Trans, a.controlTrans(s, c, controls[c]))
			}
		}
	}

	for c, cw := range controls {
		for step := 0; step < cw.Steps-1; step++ {
			for srcKmer := range cw.BridgeIntermediates[step] {
				srcState, ok := a.padState(c, step, srcKmer)
				if !ok {
					continue
				}
				destKmer := a.nextIntermediateKmer(srcKmer, cw, step+1)
				ps := &a.machine.State[srcState]
				ps.Context, ps.ContextLen, ps.Type, ps.Control = srcKmer, a.b.Len, PadState, c
				ps.Trans = append(ps.Trans, a.padTrans(cw, c, step+1, destKmer))
			}
		}
	}
}

// controlTrans builds the transition a coding state uses to divert onto
// the bridge path towards control word c, mirroring
// TransBuilder::controlTrans. It emits the first intermediate's base and
// uses the control character as the input symbol.
func (a *assembler) controlTrans(from State, c int, cw control.ControlWord) Transition {
	path := cw.BridgePaths[a.machine.State[from].Context]
	if len(path) == 0 {
		return Transition{In: string(controlChar(c)), Out: "", To: from}
	}
	first := path[0]
	return Transition{In: string(controlChar(c)), Out: string(lastBase(first, a.b.Len)), To: a.destStateFor(cw, c, 0, first)}
}

// padTrans builds the epsilon-input transition chaining one bridge pad
// state to the next, emitting the newest base of destKmer.
func (a *assembler) padTrans(cw control.ControlWord, c, step int, destKmer kmer.Kmer) Transition {
	return Transition{In: "", Out: string(lastBase(destKmer, a.b.Len)), To: a.destStateFor(cw, c, step, destKmer)}
}

// destStateFor resolves destKmer at the given bridge step to either the
// real control-word state (if this is the final step) or a pad state.
func (a *assembler) destStateFor(cw control.ControlWord, c, step int, destKmer kmer.Kmer) State {
	if step == cw.Steps-1 && destKmer == cw.Kmer {
		return a.kmerState[destKmer]
	}
	if s, ok := a.padState(c, step, destKmer); ok {
		return s
	}
	return a.kmerState[destKmer]
}

// nextIntermediateKmer finds, among destKmer's outgoing neighbors, the
// one that continues the bridge path towards control word c at the given
// step, mirroring TransBuilder::nextIntermediateKmer.
func (a *assembler) nextIntermediateKmer(srcKmer kmer.Kmer, cw control.ControlWord, step int) kmer.Kmer {
	out := a.b.Outgoing(srcKmer)
	for _, dest := range out {
		if !a.b.Valid[dest] {
			continue
		}
		if step == cw.Steps-1 && dest == cw.Kmer {
			return dest
		}
		if step < cw.Steps-1 && cw.BridgeIntermediates[step][dest] {
			return dest
		}
	}
	return srcKmer
}

func lastBase(k kmer.Kmer, length kmer.Pos) byte {
	return kmer.BaseToChar(kmer.GetBase(k, 1))
}

func rotateBytes(s []byte, r int) []byte {
	if len(s) == 0 {
		return s
	}
	r = r % len(s)
	return append(append([]byte{}, s[r:]...), s[:r]...)
}

func rotateStates(s []State, r int) []State {
	if len(s) == 0 {
		return s
	}
	r = r % len(s)
	return append(append([]State{}, s[r:]...), s[:r]...)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// prependStartFraming inserts Len load states ahead of the existing
// states, each emitting one base of the start control word on ε-input,
// terminating at the primary state of that word's k-mer.
func (a *assembler) prependStartFraming(controls []control.ControlWord) error {
	if len(controls) == 0 {
		return fmt.Errorf("transducer: start framing requires at least one control word")
	}
	startWord := controls[0]
	shift := len(a.machine.State)
	loads := make([]MachineState, a.b.Len)
	for i := kmer.Pos(0); i < a.b.Len; i++ {
		base := kmer.GetBase(startWord.Kmer, a.b.Len-i)
		var to State
		if i == a.b.Len-1 {
			to = State(shift + 0) // placeholder, fixed up below after shifting
		} else {
			to = State(i + 1) // local index among load states, fixed up below
		}
		loads[i] = MachineState{
			Type:  StartState,
			Control: -1,
			Trans: []Transition{{In: "", Out: string(kmer.BaseToChar(base)), To: to}},
		}
	}
	// Shift every existing state index by len(loads), then prepend.
	offset := State(len(loads))
	for i := range a.machine.State {
		for j := range a.machine.State[i].Trans {
			a.machine.State[i].Trans[j].To += offset
		}
	}
	realStart := a.kmerState[startWord.Kmer] + offset
	for i := range loads {
		if i == len(loads)-1 {
			loads[i].Trans[0].To = realStart
		} else {
			loads[i].Trans[0].To = State(i+1)
		}
	}
	a.machine.State = append(loads, a.machine.State...)
	for k, s := range a.kmerState {
		a.kmerState[k] = s + offset
	}
	xlog.At(3, "Prepended %d start-framing load states", len(loads))
	return nil
}

// appendEndFraming gives every coding state of out-degree >= 2 an EOF
// transition to a single shared terminal state, and gives the primary
// state of the end word's k-mer a direct epsilon transition there.
func (a *assembler) appendEndFraming(controls []control.ControlWord) error {
	if len(controls) == 0 {
		return fmt.Errorf("transducer: end framing requires at least one control word")
	}
	endWord := controls[len(controls)-1]
	endIdx := State(len(a.machine.State))
	a.machine.State = append(a.machine.State, MachineState{Type: EndState, Control: -1})

	for i := range a.machine.State[:endIdx] {
		ms := &a.machine.State[i]
		if ms.Type == CodeState && len(ms.Trans) >= 2 {
			ms.Trans = append(ms.Trans, Transition{In: "EOF", Out: "", To: endIdx})
		}
	}
	if s, ok := a.kmerState[endWord.Kmer]; ok {
		end := &a.machine.State[s]
		end.Trans = append(end.Trans, Transition{In: "", Out: "", To: endIdx})
	}
	xlog.At(3, "Appended end-framing terminal state")
	return nil
}

// WriteText renders the machine the way
// original_source/src/trans.cpp: Machine::write does: one line per state
// with its name, type, context, and transitions.
func (m *Machine) WriteText(w io.Writer) error {
	for s, ms := range m.State {
		if _, err := fmt.Fprintf(w, "%-6s %-10s %s", stateName(State(s)), ms.TypeString(), kmer.String(ms.Context, ms.ContextLen)); err != nil {
			return err
		}
		for _, t := range ms.Trans {
			in, out := t.In, t.Out
			if _, err := fmt.Fprintf(w, " %s/%s->%s", in, out, stateName(t.To)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) String() string {
	var b fmtBuffer
	_ = m.WriteText(&b)
	return b.String()
}

// WriteDot renders the machine as a Graphviz dot graph, for the --dot
// flag.
func (m *Machine) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph Machine {"); err != nil {
		return err
	}
	for s, ms := range m.State {
		for _, t := range ms.Trans {
			label := t.In + "/" + t.Out
			if _, err := fmt.Fprintf(w, "  %s -> %s [label=%q];\n", stateName(State(s)), stateName(t.To), label); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// ExpectedBasesPerBit estimates the channel rate as a ratio of transition
// counts over all states: base-emitting transitions (bit-consuming ones
// with output, plus ε-input ones with output) divided by bit-consuming
// transitions. Transitions are not weighted by how often they are taken.
func (m *Machine) ExpectedBasesPerBit() float64 {
	var basesEmitted, bitsConsumed float64
	for _, ms := range m.State {
		for _, t := range ms.Trans {
			if t.In == "0" || t.In == "1" {
				bitsConsumed++
				if t.Out != "" {
					basesEmitted++
				}
			} else if t.In == "" && t.Out != "" {
				basesEmitted++
			}
		}
	}
	if bitsConsumed == 0 {
		return 0
	}
	return basesEmitted / bitsConsumed
}

// fmtBuffer is a tiny io.Writer backed by a string builder, avoiding a
// bytes.Buffer import purely for Stringer support.
type fmtBuffer struct {
	data []byte
}

func (b *fmtBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *fmtBuffer) String() string { return string(b.data) }
