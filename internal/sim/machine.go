package sim

import (
	"sync"

	"github.com/tinyrange/clint/internal/clint"
)

// TrapHandler services one interrupt cause. It receives the trap cause, the
// interrupted program counter and the hart's register snapshot, and returns
// the program counter execution resumes at.
type TrapHandler func(cause, epc uint64, regs *[32]uint64) uint64

// Machine is a multi-hart platform: the harts, the bus with the CLINT
// mapped at its fixed base address, and the trap vector.
//
// Machine implements the driver's ControlStatus and FrequencySource
// collaborators for whichever hart is currently executing. Harts are
// physically concurrent on real silicon; here their software execution is
// serialized through RunOn, which is what makes the implicit
// "calling hart" well defined.
type Machine struct {
	Harts []*Hart
	Bus   *Bus
	CLINT *CLINT

	// BaseClockHz is the platform base clock reported to the driver.
	BaseClockHz uint64

	handlers map[uint64]TrapHandler

	mu      sync.Mutex
	current uint64
}

// NewMachine creates a machine with clint.NumHarts harts and the given
// base clock rate.
func NewMachine(baseClockHz uint64) *Machine {
	harts := make([]*Hart, clint.NumHarts)
	for i := range harts {
		harts[i] = NewHart(uint64(i))
	}

	bus := NewBus()
	cl := NewCLINT(harts)
	bus.AddDevice(clint.Base, cl)

	return &Machine{
		Harts:       harts,
		Bus:         bus,
		CLINT:       cl,
		BaseClockHz: baseClockHz,
		handlers:    make(map[uint64]TrapHandler),
	}
}

// Handle installs the trap handler for an interrupt cause.
func (m *Machine) Handle(cause uint64, handler TrapHandler) {
	m.handlers[cause] = handler
}

// RunOn executes fn as software running on the given hart. Calls from
// different goroutines are serialized; fn must not call RunOn itself.
func (m *Machine) RunOn(hart uint64, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.current
	m.current = hart
	fn()
	m.current = prev
}

// Advance moves mtime forward by the given number of ticks, updates the
// CLINT pending bits, and delivers at most one pending enabled interrupt
// per hart: the hart takes the trap, the installed handler runs on that
// hart, and execution returns to the program counter the handler chose.
func (m *Machine) Advance(ticks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CLINT.Advance(ticks)
	m.CLINT.Tick()

	prev := m.current
	for i, h := range m.Harts {
		pending, cause := h.CheckInterrupt()
		if !pending {
			continue
		}

		h.TakeTrap(cause, 0)

		epc := h.Mepc
		if handler, ok := m.handlers[cause]; ok {
			m.current = uint64(i)
			epc = handler(cause, h.Mepc, &h.X)
		}

		h.Mret(epc)
	}
	m.current = prev
}

// HartID implements clint.ControlStatus
func (m *Machine) HartID() uint64 {
	return m.current
}

// Read implements clint.ControlStatus
func (m *Machine) Read(csr uint16) uint64 {
	return m.Harts[m.current].CSRRead(csr)
}

// Write implements clint.ControlStatus
func (m *Machine) Write(csr uint16, value uint64) {
	m.Harts[m.current].CSRWrite(csr, value)
}

// Set implements clint.ControlStatus
func (m *Machine) Set(csr uint16, bits uint64) {
	m.Harts[m.current].CSRSet(csr, bits)
}

// Clear implements clint.ControlStatus
func (m *Machine) Clear(csr uint16, bits uint64) {
	m.Harts[m.current].CSRClear(csr, bits)
}

// BaseClock implements clint.FrequencySource
func (m *Machine) BaseClock() uint64 {
	return m.BaseClockHz
}

var _ clint.ControlStatus = (*Machine)(nil)
var _ clint.FrequencySource = (*Machine)(nil)
