package main

import (
	"fmt"
	"os"

	"github.com/tinyrange/clint/internal/clint"
	"gopkg.in/yaml.v3"
)

// TimerProgram arms one hart's timer at the start of the run.
type TimerProgram struct {
	Hart       uint64 `yaml:"hart"`
	IntervalMs uint64 `yaml:"interval_ms"`
	SingleShot bool   `yaml:"single_shot"`
}

// IPISend raises a software interrupt on another hart at a point in the run.
type IPISend struct {
	From uint64 `yaml:"from"`
	To   uint64 `yaml:"to"`
	AtMs uint64 `yaml:"at_ms"`
}

// Scenario describes one simulation run.
type Scenario struct {
	Name        string `yaml:"name"`
	BaseClockHz uint64 `yaml:"base_clock_hz"`
	RunMs       uint64 `yaml:"run_ms"`

	Timers []TimerProgram `yaml:"timers"`
	IPIs   []IPISend      `yaml:"ipis"`
}

// DefaultScenario is used when no scenario file is given: a periodic timer
// on hart 0, a one-shot on hart 1, and a few cross-hart pokes.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:        "two-hart demo",
		BaseClockHz: 390_000_000,
		RunMs:       1000,
		Timers: []TimerProgram{
			{Hart: 0, IntervalMs: 10},
			{Hart: 1, IntervalMs: 250, SingleShot: true},
		},
		IPIs: []IPISend{
			{From: 0, To: 1, AtMs: 5},
			{From: 0, To: 1, AtMs: 500},
			{From: 1, To: 0, AtMs: 750},
		},
	}
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the scenario against the platform limits.
func (s *Scenario) Validate() error {
	if s.BaseClockHz == 0 {
		return fmt.Errorf("base_clock_hz must be set")
	}
	if s.RunMs == 0 {
		return fmt.Errorf("run_ms must be set")
	}

	for _, t := range s.Timers {
		if t.Hart >= clint.NumHarts {
			return fmt.Errorf("timer hart %d out of range (%d harts)", t.Hart, clint.NumHarts)
		}
		if t.IntervalMs == 0 {
			return fmt.Errorf("timer on hart %d has a zero interval", t.Hart)
		}
	}

	for _, p := range s.IPIs {
		if p.From >= clint.NumHarts || p.To >= clint.NumHarts {
			return fmt.Errorf("ipi %d->%d out of range (%d harts)", p.From, p.To, clint.NumHarts)
		}
		if p.AtMs > s.RunMs {
			return fmt.Errorf("ipi %d->%d at %dms is past the end of the run", p.From, p.To, p.AtMs)
		}
	}

	return nil
}
