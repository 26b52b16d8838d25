package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yml")
	data := `name: test run
base_clock_hz: 390000000
run_ms: 500
timers:
  - hart: 0
    interval_ms: 10
  - hart: 1
    interval_ms: 100
    single_shot: true
ipis:
  - from: 0
    to: 1
    at_ms: 250
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Name != "test run" {
		t.Errorf("name: %q", s.Name)
	}
	if s.BaseClockHz != 390_000_000 || s.RunMs != 500 {
		t.Errorf("clock/run: %d/%d", s.BaseClockHz, s.RunMs)
	}
	if len(s.Timers) != 2 || len(s.IPIs) != 1 {
		t.Fatalf("counts: %d timers, %d ipis", len(s.Timers), len(s.IPIs))
	}
	if !s.Timers[1].SingleShot {
		t.Error("timer 1 single_shot not parsed")
	}
	if s.IPIs[0].To != 1 || s.IPIs[0].AtMs != 250 {
		t.Errorf("ipi: %+v", s.IPIs[0])
	}
}

func TestScenarioValidation(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Scenario)
	}{
		{"zero clock", func(s *Scenario) { s.BaseClockHz = 0 }},
		{"zero run", func(s *Scenario) { s.RunMs = 0 }},
		{"timer hart out of range", func(s *Scenario) { s.Timers[0].Hart = 99 }},
		{"zero timer interval", func(s *Scenario) { s.Timers[0].IntervalMs = 0 }},
		{"ipi hart out of range", func(s *Scenario) { s.IPIs[0].To = 99 }},
		{"ipi past end of run", func(s *Scenario) { s.IPIs[0].AtMs = 5000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultScenario()
			tc.mod(s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultScenarioIsValid(t *testing.T) {
	if err := DefaultScenario().Validate(); err != nil {
		t.Fatalf("default scenario invalid: %v", err)
	}
}
