package transducer

import (
	"encoding/json"
	"testing"

	"github.com/ihh/dnastore/internal/graph"
)

func TestMachineJSONRoundTrip(t *testing.T) {
	b := graph.NewBuilder(6)
	b.Build()
	m, err := Assemble(b, nil, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var loaded Machine
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(loaded.State) != len(m.State) {
		t.Fatalf("loaded machine has %d states, want %d", len(loaded.State), len(m.State))
	}
	for i := range m.State {
		if loaded.State[i].Type != m.State[i].Type {
			t.Errorf("state %d: type = %v, want %v", i, loaded.State[i].Type, m.State[i].Type)
		}
		if len(loaded.State[i].Trans) != len(m.State[i].Trans) {
			t.Errorf("state %d: %d transitions, want %d", i, len(loaded.State[i].Trans), len(m.State[i].Trans))
		}
	}
}

func TestMachineJSONRejectsBadDestination(t *testing.T) {
	data := []byte(`{"state":[{"n":0,"id":"Code","l":"AC","r":"","trans":[{"in":"0","out":"A","to":5}]}]}`)
	var m Machine
	if err := json.Unmarshal(data, &m); err == nil {
		t.Error("expected an error for an out-of-range transition destination")
	}
}
