// Command clintsim runs a CLINT driver scenario on the simulated machine:
// it arms per-hart timers and scheduled cross-hart IPIs from a YAML
// scenario, advances the platform clock, and reports what each hart saw.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/tinyrange/clint/internal/clint"
	"github.com/tinyrange/clint/internal/riscv"
	"github.com/tinyrange/clint/internal/sim"
	"golang.org/x/term"
)

// hartCounters tracks interrupt deliveries observed by one hart's
// callbacks.
type hartCounters struct {
	timerFires atomic.Uint64
	ipiFires   atomic.Uint64
}

func run() error {
	scenarioPath := flag.String("scenario", "", "scenario YAML file (built-in demo if empty)")
	verbose := flag.Bool("v", false, "log every delivery")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	scenario := DefaultScenario()
	if *scenarioPath != "" {
		var err error
		scenario, err = LoadScenario(*scenarioPath)
		if err != nil {
			return err
		}
	}

	m := sim.NewMachine(scenario.BaseClockHz)
	ctl := clint.New(m.CLINT, m, m)

	tickRate := ctl.Frequency()
	slog.Info("starting scenario",
		"name", scenario.Name,
		"base_clock_hz", scenario.BaseClockHz,
		"tick_rate_hz", tickRate,
		"run_ms", scenario.RunMs)

	counters := make([]*hartCounters, clint.NumHarts)
	for hart := uint64(0); hart < clint.NumHarts; hart++ {
		counters[hart] = &hartCounters{}

		c := counters[hart]
		h := hart
		m.RunOn(hart, func() {
			ctl.TimerInit()
			ctl.IPIInit()
			ctl.RegisterTimer(func(ctx any) {
				c.timerFires.Add(1)
				slog.Debug("timer fired", "hart", h, "mtime", ctl.Time())
			}, nil)
			ctl.RegisterIPI(func(ctx any) {
				c.ipiFires.Add(1)
				slog.Debug("ipi delivered", "hart", h, "mtime", ctl.Time())
			}, nil)
			ctl.IPIEnable()
		})
	}

	m.Handle(riscv.CauseMTimerInt, ctl.HandleTimerInterrupt)
	m.Handle(riscv.CauseMSoftwareInt, ctl.HandleSoftInterrupt)

	for _, t := range scenario.Timers {
		t := t
		var err error
		m.RunOn(t.Hart, func() {
			err = ctl.TimerStart(t.IntervalMs, t.SingleShot)
		})
		if err != nil {
			return fmt.Errorf("start timer on hart %d: %w", t.Hart, err)
		}
		slog.Info("timer armed",
			"hart", t.Hart,
			"interval_ms", t.IntervalMs,
			"single_shot", t.SingleShot)
	}

	// Deliver scheduled sends in time order as the clock passes them.
	sends := make([]IPISend, len(scenario.IPIs))
	copy(sends, scenario.IPIs)
	sort.Slice(sends, func(i, j int) bool { return sends[i].AtMs < sends[j].AtMs })

	ticksPerMs := tickRate / 1000
	if ticksPerMs == 0 {
		ticksPerMs = 1
	}

	bar := progressbar.Default(int64(scenario.RunMs))

	nextSend := 0
	for elapsed := uint64(0); elapsed < scenario.RunMs; elapsed++ {
		for nextSend < len(sends) && sends[nextSend].AtMs <= elapsed {
			s := sends[nextSend]
			m.RunOn(s.From, func() {
				if err := ctl.IPISend(s.To); err != nil {
					slog.Error("ipi send failed", "from", s.From, "to", s.To, "err", err)
				}
			})
			slog.Debug("ipi sent", "from", s.From, "to", s.To, "at_ms", s.AtMs)
			nextSend++
		}

		m.Advance(ticksPerMs)
		bar.Add(1)
	}
	bar.Close()

	printSummary(scenario, counters)
	return nil
}

// printSummary writes the per-hart delivery counts, styled when stdout is a
// terminal.
func printSummary(scenario *Scenario, counters []*hartCounters) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))
	bold := func(s string) string { return s }
	if styled {
		bold = func(s string) string { return ansi.Style{}.Bold().Styled(s) }
	}

	fmt.Printf("\n%s\n", bold(fmt.Sprintf("scenario %q: %dms simulated", scenario.Name, scenario.RunMs)))
	for hart, c := range counters {
		fmt.Printf("  hart %d: %d timer deliveries, %d ipi deliveries\n",
			hart, c.timerFires.Load(), c.ipiFires.Load())
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("clintsim failed", "err", err)
		os.Exit(1)
	}
}
