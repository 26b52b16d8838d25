package clint

import "github.com/tinyrange/clint/internal/riscv"

// HandleTimerInterrupt services a machine timer interrupt on the calling
// hart. The trap dispatcher invokes it with the trap cause, the faulting
// program counter and the register snapshot; the returned program counter
// is always epc, the handler never redirects control flow.
//
// While the callback runs, the timer and software interrupt sources are
// masked and the global enable is raised again, so the callback can be
// interrupted by unrelated sources but not re-entered by its own trigger.
// Note the software source is masked here too, not just the timer source.
// TODO: confirm against the platform's interrupt semantics whether masking
// MSIP here is required or the timer source alone would do.
//
// In periodic mode the next deadline is the previous deadline plus the tick
// count, never mtime plus the tick count, so long-run periodic firing does
// not drift no matter how long the callback took.
func (c *Controller) HandleTimerInterrupt(cause, epc uint64, regs *[32]uint64) uint64 {
	hart := c.csr.HartID()
	ie := c.csr.Read(riscv.CSRMie)

	c.csr.Clear(riscv.CSRMie, riscv.MipMTIP|riscv.MipMSIP)
	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMIE)
	if c.timers[hart].callback != nil {
		c.timers[hart].callback(c.timers[hart].ctx)
	}
	c.csr.Clear(riscv.CSRMstatus, riscv.MstatusMIE)
	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMPIE|riscv.MstatusMPP)
	c.csr.Write(riscv.CSRMie, ie)

	if !c.timers[hart].singleShot && c.timers[hart].cycles != 0 {
		// Re-arm from the previous deadline.
		c.regs.SetMtimecmp(hart, c.regs.Mtimecmp(hart)+c.timers[hart].cycles)
	} else {
		c.csr.Clear(riscv.CSRMie, riscv.MipMTIP)
	}
	return epc
}

// HandleSoftInterrupt services a machine software interrupt on the calling
// hart. The hart's own pending flag is cleared before the callback runs, so
// a callback that sends a new IPI to its own hart latches a fresh delivery
// instead of having it swallowed by a late clear.
func (c *Controller) HandleSoftInterrupt(cause, epc uint64, regs *[32]uint64) uint64 {
	hart := c.csr.HartID()

	c.csr.Clear(riscv.CSRMie, riscv.MipMSIP)
	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMIE)
	c.IPIClear(hart)
	if c.ipis[hart].callback != nil {
		c.ipis[hart].callback(c.ipis[hart].ctx)
	}
	c.csr.Clear(riscv.CSRMstatus, riscv.MstatusMIE)
	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMPIE|riscv.MstatusMPP)
	c.csr.Set(riscv.CSRMie, riscv.MipMSIP)
	return epc
}
