package clint

import (
	"fmt"

	"github.com/tinyrange/clint/internal/riscv"
)

// TimerInit resets the calling hart's timer slot and masks its timer
// interrupt. The slot ends up with a zero interval, no callback and
// single-shot off.
func (c *Controller) TimerInit() {
	hart := c.csr.HartID()
	c.csr.Clear(riscv.CSRMie, riscv.MipMTIP)
	c.timers[hart] = timerInstance{}
}

// TimerStop masks the calling hart's timer interrupt. It does not touch the
// compare register or any already latched pending state, so one in-flight
// delivery may still arrive.
func (c *Controller) TimerStop() {
	c.csr.Clear(riscv.CSRMie, riscv.MipMTIP)
}

// SetTimerInterval stores the interval in milliseconds for the calling hart
// and derives the tick count used by the hardware arithmetic. A zero
// interval fails and leaves the slot untouched.
func (c *Controller) SetTimerInterval(ms uint64) error {
	hart := c.csr.HartID()
	if ms == 0 {
		return fmt.Errorf("timer interval is zero: %w", ErrInvalidArgument)
	}
	c.timers[hart].interval = ms
	c.timers[hart].cycles = ms * c.Frequency() / 1000
	return nil
}

// SetTimerSingleShot stores the single-shot flag for the calling hart.
func (c *Controller) SetTimerSingleShot(singleShot bool) {
	c.timers[c.csr.HartID()].singleShot = singleShot
}

// TimerInterval returns the calling hart's stored interval in milliseconds.
func (c *Controller) TimerInterval() uint64 {
	return c.timers[c.csr.HartID()].interval
}

// TimerSingleShot returns the calling hart's single-shot flag.
func (c *Controller) TimerSingleShot() bool {
	return c.timers[c.csr.HartID()].singleShot
}

// RegisterTimer stores the calling hart's timer callback and its opaque
// context. A nil callback means deliveries are silent no-ops.
func (c *Controller) RegisterTimer(callback TimerCallback, ctx any) {
	hart := c.csr.HartID()
	c.timers[hart].callback = callback
	c.timers[hart].ctx = ctx
}

// DeregisterTimer clears the calling hart's timer callback.
func (c *Controller) DeregisterTimer() {
	c.RegisterTimer(nil, nil)
}

// TimerStart programs and arms the calling hart's timer: it applies the
// interval and single-shot settings, writes mtime+cycles into the hart's
// compare register and unmasks the timer interrupt along with the global
// enable.
//
// If the derived tick count is zero (interval too short for the tick rate)
// TimerStart fails, but the interval and single-shot fields have already
// been updated by then. Callers that need the old settings back must
// restore them themselves.
func (c *Controller) TimerStart(ms uint64, singleShot bool) error {
	hart := c.csr.HartID()
	if err := c.SetTimerInterval(ms); err != nil {
		return err
	}
	c.SetTimerSingleShot(singleShot)
	if c.timers[hart].interval == 0 {
		return fmt.Errorf("timer interval is zero: %w", ErrInvalidArgument)
	}
	if c.timers[hart].cycles == 0 {
		return fmt.Errorf("timer interval of %dms is below one tick: %w", ms, ErrInvalidArgument)
	}

	now := c.regs.Mtime()
	then := now + c.timers[hart].cycles
	c.regs.SetMtimecmp(hart, then)

	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMIE)
	c.csr.Set(riscv.CSRMie, riscv.MipMTIP)
	return nil
}
