package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ihh/dnastore/internal/transducer"
)

// resolveMachine returns the machine to encode/decode through: loaded
// from loadPath if set, otherwise freshly built via buildMachine. If
// composePath is also set, the loaded/built machine is composed as the
// outer machine with the one at composePath as the inner, waiting
// machine.
func resolveMachine(loadPath, composePath string) (*transducer.Machine, error) {
	m, err := loadOrBuildMachine(loadPath)
	if err != nil {
		return nil, err
	}
	if composePath == "" {
		return m, nil
	}
	inner, err := loadMachineFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("loading compose-machine %s: %w", composePath, err)
	}
	composed, err := transducer.Compose(m, inner)
	if err != nil {
		return nil, fmt.Errorf("composing machines: %w", err)
	}
	return composed, nil
}

func loadOrBuildMachine(loadPath string) (*transducer.Machine, error) {
	if loadPath == "" {
		return buildMachine()
	}
	return loadMachineFile(loadPath)
}

func loadMachineFile(path string) (*transducer.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m transducer.Machine
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing machine JSON from %s: %w", path, err)
	}
	return &m, nil
}
