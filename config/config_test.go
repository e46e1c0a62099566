// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import "testing"

func TestDefaultConfigGraphLength(t *testing.T) {
	c := DefaultConfig()
	if c.Graph.Length != 12 {
		t.Errorf("default graph length = %d, want 12", c.Graph.Length)
	}
}

func TestDefaultConfigMutatorSumsToUnityLenDistribution(t *testing.T) {
	c := DefaultConfig()
	sum := 0.0
	for _, p := range c.Mutator.PLen {
		sum += p
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("default pLen distribution sums to %v, want ~1", sum)
	}
}

func TestDefaultConfigControlMaxStepsMatchesPlanner(t *testing.T) {
	c := DefaultConfig()
	if c.Control.MaxSteps != 64 {
		t.Errorf("default control max-steps = %d, want 64 (internal/control.DefaultMaxSteps)", c.Control.MaxSteps)
	}
}
