package clint

import (
	"fmt"

	"github.com/tinyrange/clint/internal/riscv"
)

// IPIInit resets the calling hart's IPI slot and masks its software
// interrupt.
func (c *Controller) IPIInit() {
	hart := c.csr.HartID()
	c.csr.Clear(riscv.CSRMie, riscv.MipMSIP)
	c.ipis[hart] = ipiInstance{}
}

// IPIEnable unmasks the calling hart's software interrupt along with the
// global enable.
func (c *Controller) IPIEnable() {
	c.csr.Set(riscv.CSRMstatus, riscv.MstatusMIE)
	c.csr.Set(riscv.CSRMie, riscv.MipMSIP)
}

// IPIDisable masks the calling hart's software interrupt. The global enable
// is left alone.
func (c *Controller) IPIDisable() {
	c.csr.Clear(riscv.CSRMie, riscv.MipMSIP)
}

// IPISend raises the software interrupt pending flag on the target hart.
// Any hart may target any hart, including itself.
func (c *Controller) IPISend(hart uint64) error {
	if hart >= NumHarts {
		return fmt.Errorf("hart %d out of range: %w", hart, ErrInvalidArgument)
	}
	c.regs.SetMsip(hart, 1)
	return nil
}

// IPIClear lowers the target hart's pending flag. It reports whether the
// flag was set at the time of the call, so callers can tell a consumed
// interrupt from a spurious clear.
func (c *Controller) IPIClear(hart uint64) (pending bool, err error) {
	if hart >= NumHarts {
		return false, fmt.Errorf("hart %d out of range: %w", hart, ErrInvalidArgument)
	}
	if c.regs.Msip(hart)&1 != 0 {
		c.regs.SetMsip(hart, 0)
		return true, nil
	}
	return false, nil
}

// RegisterIPI stores the calling hart's IPI callback and its opaque
// context. A nil callback means deliveries are silent no-ops.
func (c *Controller) RegisterIPI(callback IPICallback, ctx any) {
	hart := c.csr.HartID()
	c.ipis[hart].callback = callback
	c.ipis[hart].ctx = ctx
}

// DeregisterIPI clears the calling hart's IPI callback.
func (c *Controller) DeregisterIPI() {
	c.RegisterIPI(nil, nil)
}
