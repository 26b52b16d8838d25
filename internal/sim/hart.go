package sim

import "github.com/tinyrange/clint/internal/riscv"

// Hart models one hardware execution context: its integer register file,
// program counter, privilege level and the machine-mode CSRs the CLINT
// driver touches.
type Hart struct {
	// Integer registers x0-x31
	X [32]uint64

	// Program counter
	PC uint64

	// Current privilege level
	Priv uint8

	// CSRs - Machine mode
	Mstatus uint64
	Mie     uint64
	Mtvec   uint64
	Mepc    uint64
	Mcause  uint64
	Mtval   uint64
	Mip     uint64
	Mhartid uint64
}

// NewHart creates a hart with the given id, starting in machine mode.
func NewHart(id uint64) *Hart {
	return &Hart{
		Priv:    riscv.PrivMachine,
		Mhartid: id,
	}
}

// CSRRead reads a CSR value
func (h *Hart) CSRRead(csr uint16) uint64 {
	switch csr {
	case riscv.CSRMstatus:
		return h.Mstatus
	case riscv.CSRMie:
		return h.Mie
	case riscv.CSRMtvec:
		return h.Mtvec
	case riscv.CSRMepc:
		return h.Mepc
	case riscv.CSRMcause:
		return h.Mcause
	case riscv.CSRMtval:
		return h.Mtval
	case riscv.CSRMip:
		return h.Mip
	case riscv.CSRMhartid:
		return h.Mhartid
	default:
		return 0
	}
}

// CSRWrite writes a CSR value
func (h *Hart) CSRWrite(csr uint16, val uint64) {
	switch csr {
	case riscv.CSRMstatus:
		h.writeMstatus(val)
	case riscv.CSRMie:
		h.Mie = val & (riscv.MipMSIP | riscv.MipMTIP | riscv.MipMEIP)
	case riscv.CSRMtvec:
		h.Mtvec = val
	case riscv.CSRMepc:
		h.Mepc = val & ^uint64(1) // Must be aligned
	case riscv.CSRMcause:
		h.Mcause = val
	case riscv.CSRMtval:
		h.Mtval = val
	case riscv.CSRMip:
		// Pending bits for CLINT sources are hardware-owned
	}
}

// CSRSet sets bits in a CSR
func (h *Hart) CSRSet(csr uint16, bits uint64) {
	h.CSRWrite(csr, h.CSRRead(csr)|bits)
}

// CSRClear clears bits in a CSR
func (h *Hart) CSRClear(csr uint16, bits uint64) {
	h.CSRWrite(csr, h.CSRRead(csr)&^bits)
}

// writeMstatus writes mstatus with proper masking
func (h *Hart) writeMstatus(val uint64) {
	const mstatusMask = riscv.MstatusMIE | riscv.MstatusMPIE | riscv.MstatusMPP

	h.Mstatus = (h.Mstatus &^ mstatusMask) | (val & mstatusMask)
}

// CheckInterrupt checks if there's a pending interrupt that should be taken
func (h *Hart) CheckInterrupt() (bool, uint64) {
	// Get pending and enabled interrupts
	pending := h.Mip & h.Mie

	if pending == 0 {
		return false, 0
	}

	// Machine mode takes interrupts only when globally enabled
	if h.Priv == riscv.PrivMachine && (h.Mstatus&riscv.MstatusMIE) == 0 {
		return false, 0
	}

	// Priority: external > software > timer
	if pending&riscv.MipMEIP != 0 {
		return true, riscv.CauseMExternalInt
	}
	if pending&riscv.MipMSIP != 0 {
		return true, riscv.CauseMSoftwareInt
	}
	if pending&riscv.MipMTIP != 0 {
		return true, riscv.CauseMTimerInt
	}

	return false, 0
}

// TakeTrap enters the machine-mode trap state for the given cause: it
// saves the interrupted context into mepc/mcause/mtval, stacks MIE into
// MPIE and the privilege level into MPP, and jumps to the trap vector.
func (h *Hart) TakeTrap(cause uint64, tval uint64) {
	h.Mepc = h.PC
	h.Mcause = cause
	h.Mtval = tval

	// Save current MIE to MPIE
	if h.Mstatus&riscv.MstatusMIE != 0 {
		h.Mstatus |= riscv.MstatusMPIE
	} else {
		h.Mstatus &^= riscv.MstatusMPIE
	}

	// Clear MIE
	h.Mstatus &^= riscv.MstatusMIE

	// Save current privilege to MPP
	h.Mstatus &^= riscv.MstatusMPP
	h.Mstatus |= uint64(h.Priv) << riscv.MstatusMPPShift

	// Set privilege to Machine
	h.Priv = riscv.PrivMachine

	// Jump to mtvec
	h.PC = h.Mtvec &^ 3
}

// Mret returns from the trap: privilege comes back from MPP, MIE comes
// back from MPIE, and execution resumes at the given program counter.
func (h *Hart) Mret(epc uint64) {
	// Restore privilege level from MPP
	mpp := (h.Mstatus >> riscv.MstatusMPPShift) & 3
	h.Priv = uint8(mpp)

	// Restore MIE from MPIE
	if h.Mstatus&riscv.MstatusMPIE != 0 {
		h.Mstatus |= riscv.MstatusMIE
	} else {
		h.Mstatus &^= riscv.MstatusMIE
	}

	// Set MPIE to 1
	h.Mstatus |= riscv.MstatusMPIE

	// Set MPP to U
	h.Mstatus &^= riscv.MstatusMPP

	h.PC = epc
}
