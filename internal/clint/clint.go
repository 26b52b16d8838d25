// Package clint implements the driver for the Core Local Interruptor: the
// per-hart machine timer and the inter-hart software interrupt (IPI)
// facility. All operations act on the hart the caller is executing on,
// identified through the ControlStatus collaborator; the one exception is
// IPISend, which targets another hart's pending flag.
package clint

import "errors"

// CLINT register layout (offsets from Base)
const (
	Base uint64 = 0x0200_0000
	Size uint64 = 0xc000

	MsipOffset     uint64 = 0x0000 // one 32-bit register per hart
	MtimecmpOffset uint64 = 0x4000 // one 64-bit register per hart
	MtimeOffset    uint64 = 0xbff8 // shared 64-bit free-running counter
)

// NumHarts is the number of harts the CLINT serves.
const NumHarts = 2

// ClockDiv is the fixed divisor between the platform base clock and the
// mtime tick rate.
const ClockDiv = 50

// ErrInvalidArgument is returned for a zero timer interval or an
// out-of-range hart id.
var ErrInvalidArgument = errors.New("invalid argument")

// RegisterBlock is the memory-mapped CLINT register file. Accesses are
// volatile register reads/writes and always succeed; hart indices are the
// caller's responsibility.
type RegisterBlock interface {
	// Mtime reads the shared free-running counter.
	Mtime() uint64
	// Mtimecmp reads a hart's timer compare register.
	Mtimecmp(hart uint64) uint64
	// SetMtimecmp writes a hart's timer compare register.
	SetMtimecmp(hart uint64, value uint64)
	// Msip reads a hart's software interrupt pending flag (bit 0).
	Msip(hart uint64) uint32
	// SetMsip writes a hart's software interrupt pending flag.
	SetMsip(hart uint64, value uint32)
}

// ControlStatus provides CSR access and hart identity for the currently
// executing hart.
type ControlStatus interface {
	// HartID returns the 0-based id of the calling hart, always < NumHarts.
	HartID() uint64
	// Read reads a CSR.
	Read(csr uint16) uint64
	// Write writes a CSR.
	Write(csr uint16, value uint64)
	// Set sets bits in a CSR.
	Set(csr uint16, bits uint64)
	// Clear clears bits in a CSR.
	Clear(csr uint16, bits uint64)
}

// FrequencySource reports the platform base clock rate.
type FrequencySource interface {
	BaseClock() uint64
}

// TimerCallback is invoked from timer interrupt context with its registered
// opaque context.
type TimerCallback func(ctx any)

// IPICallback is invoked from software interrupt context with its
// registered opaque context.
type IPICallback func(ctx any)

// timerInstance is one hart's timer slot. Only the owning hart touches it,
// so no locking is needed.
type timerInstance struct {
	interval   uint64 // milliseconds
	cycles     uint64 // interval converted to mtime ticks
	singleShot bool
	callback   TimerCallback
	ctx        any
}

// ipiInstance is one hart's IPI slot, same ownership rule as timerInstance.
type ipiInstance struct {
	callback IPICallback
	ctx      any
}

// Controller is the CLINT driver. It holds one timer slot and one IPI slot
// per hart; the slots live for the life of the process.
type Controller struct {
	regs RegisterBlock
	csr  ControlStatus
	freq FrequencySource

	timers [NumHarts]timerInstance
	ipis   [NumHarts]ipiInstance
}

// New creates a Controller over the given hardware collaborators.
func New(regs RegisterBlock, csr ControlStatus, freq FrequencySource) *Controller {
	return &Controller{
		regs: regs,
		csr:  csr,
		freq: freq,
	}
}

// Time returns the current value of the shared free-running counter. It is
// the same on every hart.
func (c *Controller) Time() uint64 {
	return c.regs.Mtime()
}

// Frequency returns the effective mtime tick rate: the platform base clock
// divided by ClockDiv.
func (c *Controller) Frequency() uint64 {
	return c.freq.BaseClock() / ClockDiv
}
