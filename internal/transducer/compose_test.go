package transducer

import "testing"

// identityWaitingMachine returns a single-state machine that waits for
// any base and emits it unchanged, a trivial "waiting machine" usable as
// the inner machine in composition tests.
func identityWaitingMachine() *Machine {
	return &Machine{
		Len: 1,
		State: []MachineState{
			{
				Type: CodeState,
				Trans: []Transition{
					{In: "A", Out: "A", To: 0},
					{In: "G", Out: "G", To: 0},
					{In: "T", Out: "T", To: 0},
					{In: "C", Out: "C", To: 0},
				},
			},
		},
	}
}

func TestComposeWithIdentityPreservesOutput(t *testing.T) {
	outer := &Machine{
		Len: 1,
		State: []MachineState{
			{Type: CodeState, Trans: []Transition{
				{In: "0", Out: "A", To: 1},
				{In: "1", Out: "G", To: 1},
			}},
			{Type: CodeState},
		},
	}
	inner := identityWaitingMachine()

	composed, err := Compose(outer, inner)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(composed.State) == 0 {
		t.Fatal("expected a non-empty composed machine")
	}
	s0 := composed.State[0]
	if len(s0.Trans) != 2 {
		t.Fatalf("expected 2 transitions from the start state, got %d", len(s0.Trans))
	}
	for _, tr := range s0.Trans {
		if tr.Out != "A" && tr.Out != "G" {
			t.Errorf("unexpected output %q through identity composition", tr.Out)
		}
	}
}

func TestComposeRejectsNonWaitingInner(t *testing.T) {
	nonWaiting := &Machine{
		State: []MachineState{
			{Trans: []Transition{{In: "", Out: "A", To: 0}, {In: "A", Out: "A", To: 0}}},
		},
	}
	outer := identityWaitingMachine()
	if _, err := Compose(outer, nonWaiting); err == nil {
		t.Error("expected an error composing with a non-waiting machine")
	}
}
