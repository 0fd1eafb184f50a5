package sim

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of driver and device operations with an
// optional expected outcome.
type Scenario struct {
	Name   string  `yaml:"name"`
	Steps  []Step  `yaml:"steps"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one scenario operation. Controller defaults to the first
// controller.
//
// Ops: connect (source, clear), trigger (source, mode edge|level), priority
// (source, value), threshold (value), enable, disable (source), raise,
// lower, pulse (source).
type Step struct {
	Op         string `yaml:"op"`
	Controller string `yaml:"controller,omitempty"`
	Source     uint32 `yaml:"source,omitempty"`
	Value      uint32 `yaml:"value,omitempty"`
	Mode       string `yaml:"mode,omitempty"`
	Clear      bool   `yaml:"clear,omitempty"`
}

// Expect describes the outcome checked after the steps run.
type Expect struct {
	// Kinds filters the trace before comparison; empty compares everything.
	Kinds []string `yaml:"kinds,omitempty"`
	// Trace is the expected sequence of kind(source) entries.
	Trace []string `yaml:"trace,omitempty"`
	// Faults is the expected number of fatal conditions.
	Faults *int `yaml:"faults,omitempty"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario. Unknown keys are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

// Run executes the scenario's steps on m, which must be booted, and then
// checks its expectations.
func (m *Machine) Run(sc *Scenario) error {
	for i, step := range sc.Steps {
		if err := m.step(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return m.check(sc.Expect)
}

func (m *Machine) step(s Step) error {
	c, err := m.Controller(s.Controller)
	if err != nil {
		return err
	}
	dev := m.devices[c.Name()]

	switch s.Op {
	case "connect":
		return m.ConnectRecorder(c.Name(), s.Source, s.Clear)
	case "trigger":
		switch s.Mode {
		case "edge":
			dev.SetTrigger(s.Source, true)
		case "level", "":
			dev.SetTrigger(s.Source, false)
		default:
			return fmt.Errorf("unknown trigger mode %q", s.Mode)
		}
	case "priority":
		return c.SetPriority(s.Source, s.Value)
	case "threshold":
		c.SetThreshold(s.Value)
	case "enable":
		return c.Enable(s.Source)
	case "disable":
		return c.Disable(s.Source)
	case "raise":
		dev.SetIRQ(s.Source, true)
	case "lower":
		dev.SetIRQ(s.Source, false)
	case "pulse":
		dev.Pulse(s.Source)
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

func (m *Machine) check(want *Expect) error {
	if want == nil {
		return nil
	}
	if want.Trace != nil {
		got := m.Trace.Shorts(want.Kinds...)
		if !slices.Equal(got, want.Trace) {
			return fmt.Errorf("trace mismatch:\n got  %v\n want %v", got, want.Trace)
		}
	}
	if want.Faults != nil {
		if got := len(m.CPU.Faults()); got != *want.Faults {
			return fmt.Errorf("got %d faults, want %d", got, *want.Faults)
		}
	}
	return nil
}
