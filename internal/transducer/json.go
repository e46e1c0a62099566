package transducer

import (
	"encoding/json"
	"fmt"

	"github.com/ihh/dnastore/internal/kmer"
)

// jsonTransition mirrors the wire format's per-transition JSON shape.
type jsonTransition struct {
	In  string `json:"in"`
	Out string `json:"out"`
	To  int    `json:"to"`
}

// jsonState mirrors the wire format's per-state JSON shape: n (index), id
// (type label), l/r (left/right context strings; r is empty for the
// non-delayed machines this package assembles), trans (outgoing edges).
type jsonState struct {
	N     int              `json:"n"`
	ID    string           `json:"id"`
	L     string           `json:"l"`
	R     string           `json:"r"`
	Trans []jsonTransition `json:"trans"`
}

type jsonMachine struct {
	State []jsonState `json:"state"`
}

// MarshalJSON renders the machine in the `{state:[{n,id,l,r,trans}]}`
// wire format.
func (m *Machine) MarshalJSON() ([]byte, error) {
	jm := jsonMachine{State: make([]jsonState, len(m.State))}
	for i, ms := range m.State {
		js := jsonState{N: i, ID: ms.TypeString(), L: kmer.String(ms.Context, ms.ContextLen)}
		for _, t := range ms.Trans {
			js.Trans = append(js.Trans, jsonTransition{In: t.In, Out: t.Out, To: int(t.To)})
		}
		jm.State[i] = js
	}
	return json.Marshal(jm)
}

// UnmarshalJSON loads a machine previously written by MarshalJSON. The
// k-mer length is recovered from the longest left-context string seen,
// since the wire format itself carries no separate length field.
// Re-loading must produce a byte-identical machine modulo transition
// ordering within a state.
func (m *Machine) UnmarshalJSON(data []byte) error {
	var jm jsonMachine
	if err := json.Unmarshal(data, &jm); err != nil {
		return fmt.Errorf("transducer: malformed machine JSON: %w", err)
	}
	var maxLen kmer.Pos
	for _, js := range jm.State {
		if l := kmer.Pos(len(js.L)); l > maxLen {
			maxLen = l
		}
	}
	m.Len = maxLen
	m.State = make([]MachineState, len(jm.State))
	for i, js := range jm.State {
		ms := MachineState{Type: parseTypeString(js.ID), ContextLen: kmer.Pos(len(js.L))}
		if js.L != "" {
			ctx, err := kmer.Parse(js.L)
			if err != nil {
				return fmt.Errorf("transducer: state %d has invalid left-context %q: %w", i, js.L, err)
			}
			ms.Context = ctx
		}
		ms.Control = controlIndexFromTypeString(js.ID)
		for _, t := range js.Trans {
			ms.Trans = append(ms.Trans, Transition{In: t.In, Out: t.Out, To: State(t.To)})
		}
		m.State[i] = ms
	}
	return validateMachine(m)
}

func parseTypeString(s string) StateType {
	switch {
	case s == "Source":
		return SourceState
	case s == "Code":
		return CodeState
	case s == "Split":
		return SplitState
	case s == "Start":
		return StartState
	case s == "End":
		return EndState
	case len(s) > 5 && s[:5] == "Meta(":
		return ControlState
	case len(s) > 4 && s[:4] == "Pad(":
		return PadState
	}
	return UndefinedState
}

func controlIndexFromTypeString(s string) int {
	var prefix string
	switch {
	case len(s) > 5 && s[:5] == "Meta(":
		prefix = s[5:]
	case len(s) > 4 && s[:4] == "Pad(":
		prefix = s[4:]
	default:
		return -1
	}
	if prefix == "" {
		return -1
	}
	for i := 0; i < len(controlChars); i++ {
		if controlChars[i] == prefix[0] {
			return i
		}
	}
	return -1
}

// validateMachine rejects fatal conditions on machine loading: an
// out-of-range transition destination, or an epsilon-cycle that
// produces no symbol.
func validateMachine(m *Machine) error {
	n := State(len(m.State))
	for i, ms := range m.State {
		for _, t := range ms.Trans {
			if t.To < 0 || t.To >= n {
				return fmt.Errorf("transducer: state %d has a transition to out-of-range state %d", i, t.To)
			}
		}
	}
	visited := make([]int, n) // 0 unvisited, 1 in-progress, 2 done
	var visit func(s State) error
	visit = func(s State) error {
		if visited[s] == 1 {
			return fmt.Errorf("transducer: epsilon cycle detected at state %d", s)
		}
		if visited[s] == 2 {
			return nil
		}
		visited[s] = 1
		for _, t := range m.State[s].Trans {
			if t.In == "" && t.Out == "" {
				if err := visit(t.To); err != nil {
					return err
				}
			}
		}
		visited[s] = 2
		return nil
	}
	for s := range m.State {
		if err := visit(State(s)); err != nil {
			return err
		}
	}
	return nil
}
