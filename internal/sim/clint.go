package sim

import (
	"sync/atomic"

	"github.com/tinyrange/clint/internal/clint"
	"github.com/tinyrange/clint/internal/riscv"
)

// CLINT implements the Core Local Interruptor register block: one msip and
// one mtimecmp register per hart plus the shared mtime counter. mtime is
// advanced explicitly through Advance so runs are deterministic.
//
// It is both a bus Device (register access by offset, the way software on
// the machine reaches it) and the driver's RegisterBlock.
type CLINT struct {
	harts []*Hart

	// Machine software interrupt pending, one flag per hart. Settable by
	// any hart, so accesses must be atomic.
	msip []atomic.Uint32

	// Machine timer compare value per hart. Written by the owning hart.
	mtimecmp []uint64

	// Shared free-running counter.
	mtime atomic.Uint64
}

// NewCLINT creates a CLINT serving the given harts.
func NewCLINT(harts []*Hart) *CLINT {
	c := &CLINT{
		harts:    harts,
		msip:     make([]atomic.Uint32, len(harts)),
		mtimecmp: make([]uint64, len(harts)),
	}
	for i := range c.mtimecmp {
		// Max value - no interrupt initially
		c.mtimecmp[i] = ^uint64(0)
	}
	return c
}

// Size implements Device
func (c *CLINT) Size() uint64 {
	return clint.Size
}

// Advance moves the shared counter forward by the given number of ticks.
func (c *CLINT) Advance(ticks uint64) {
	c.mtime.Add(ticks)
}

// Tick raises the timer interrupt pending bit on every hart whose compare
// register has been reached.
func (c *CLINT) Tick() {
	mtime := c.mtime.Load()
	for i, h := range c.harts {
		if mtime >= c.mtimecmp[i] {
			h.Mip |= riscv.MipMTIP
		}
	}
}

// Mtime implements RegisterBlock
func (c *CLINT) Mtime() uint64 {
	return c.mtime.Load()
}

// Mtimecmp implements RegisterBlock
func (c *CLINT) Mtimecmp(hart uint64) uint64 {
	return c.mtimecmp[hart]
}

// SetMtimecmp implements RegisterBlock
func (c *CLINT) SetMtimecmp(hart uint64, value uint64) {
	c.mtimecmp[hart] = value
	// Writing a compare value ahead of the counter retracts the pending
	// timer interrupt.
	if value > c.mtime.Load() {
		c.harts[hart].Mip &^= riscv.MipMTIP
	}
}

// Msip implements RegisterBlock
func (c *CLINT) Msip(hart uint64) uint32 {
	return c.msip[hart].Load()
}

// SetMsip implements RegisterBlock
func (c *CLINT) SetMsip(hart uint64, value uint32) {
	if value&1 != 0 {
		c.msip[hart].Store(1)
		c.harts[hart].Mip |= riscv.MipMSIP
	} else {
		c.msip[hart].Store(0)
		c.harts[hart].Mip &^= riscv.MipMSIP
	}
}

// Read implements Device
func (c *CLINT) Read(offset uint64, size int) (uint64, error) {
	switch {
	case offset >= clint.MsipOffset && offset < clint.MsipOffset+4*uint64(len(c.harts)):
		hart := (offset - clint.MsipOffset) / 4
		return uint64(c.msip[hart].Load()), nil

	case offset >= clint.MtimecmpOffset && offset < clint.MtimecmpOffset+8*uint64(len(c.harts)):
		hart := (offset - clint.MtimecmpOffset) / 8
		val := c.mtimecmp[hart]
		if size == 4 && (offset-clint.MtimecmpOffset)%8 == 4 {
			return val >> 32, nil
		}
		return val, nil

	case offset >= clint.MtimeOffset && offset < clint.MtimeOffset+8:
		val := c.mtime.Load()
		if size == 4 && offset == clint.MtimeOffset+4 {
			return val >> 32, nil
		}
		return val, nil
	}

	return 0, nil
}

// Write implements Device
func (c *CLINT) Write(offset uint64, size int, value uint64) error {
	switch {
	case offset >= clint.MsipOffset && offset < clint.MsipOffset+4*uint64(len(c.harts)):
		hart := (offset - clint.MsipOffset) / 4
		c.SetMsip(hart, uint32(value))

	case offset >= clint.MtimecmpOffset && offset < clint.MtimecmpOffset+8*uint64(len(c.harts)):
		hart := (offset - clint.MtimecmpOffset) / 8
		if size == 4 {
			old := c.mtimecmp[hart]
			if (offset-clint.MtimecmpOffset)%8 == 0 {
				c.SetMtimecmp(hart, (old&^uint64(0xffffffff))|(value&0xffffffff))
			} else {
				c.SetMtimecmp(hart, (old&^uint64(0xffffffff00000000))|((value&0xffffffff)<<32))
			}
		} else {
			c.SetMtimecmp(hart, value)
		}
	}

	return nil
}

var _ Device = (*CLINT)(nil)
var _ clint.RegisterBlock = (*CLINT)(nil)
