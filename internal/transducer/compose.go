package transducer

import "fmt"

// pairState is a product-construction state used while composing two
// machines: the outer machine's state together with the state of the
// inner ("waiting") machine that consumes its output.
type pairState struct {
	outer, inner State
}

// IsWaiting reports whether every state of m is "wait" (every outgoing
// transition consumes a non-empty input symbol) or "non-wait" (none
// do); mixed states are not waiting.
func (m *Machine) IsWaiting() bool {
	for _, ms := range m.State {
		if len(ms.Trans) == 0 {
			continue
		}
		consuming := ms.Trans[0].In != ""
		for _, t := range ms.Trans {
			if (t.In != "") != consuming {
				return false
			}
		}
	}
	return true
}

// Compose pre-composes outer with inner, producing a machine whose input
// alphabet matches outer's and whose output alphabet matches inner's:
// each base outer emits is immediately fed as input to inner. inner must
// be a waiting machine (composing with a non-waiting second machine is
// a fatal error) whose wait-state transitions are each keyed on a
// single DNA base.
func Compose(outer, inner *Machine) (*Machine, error) {
	if !inner.IsWaiting() {
		return nil, fmt.Errorf("transducer: cannot compose with a non-waiting machine")
	}

	index := map[pairState]State{}
	var states []MachineState
	var order []pairState

	get := func(p pairState) State {
		if s, ok := index[p]; ok {
			return s
		}
		s := State(len(order))
		index[p] = s
		order = append(order, p)
		states = append(states, MachineState{})
		return s
	}

	get(pairState{outer.StartStateIndex(), inner.StartStateIndex()})

	for i := 0; i < len(order); i++ {
		p := order[i]
		outerState := outer.State[p.outer]
		var trans []Transition
		for _, ot := range outerState.Trans {
			if ot.Out == "" {
				trans = append(trans, Transition{In: ot.In, Out: "", To: get(pairState{ot.To, p.inner})})
				continue
			}
			innerState := inner.State[p.inner]
			var matched *Transition
			for _, it := range innerState.Trans {
				if it.In == ot.Out {
					m := it
					matched = &m
					break
				}
			}
			if matched == nil {
				return nil, fmt.Errorf("transducer: inner machine has no transition for base %q at state %d", ot.Out, p.inner)
			}
			trans = append(trans, Transition{In: ot.In, Out: matched.Out, To: get(pairState{ot.To, matched.To})})
		}
		states[i] = MachineState{
			Type:       outerState.Type,
			Context:    outerState.Context,
			ContextLen: outerState.ContextLen,
			Control:    outerState.Control,
			Trans:      trans,
		}
	}

	return &Machine{Len: outer.Len, State: states, Controls: outer.Controls}, nil
}
