// Package riscv holds the machine-mode architectural constants shared by
// the CLINT driver and the simulated hart.
package riscv

// Privilege levels
const (
	PrivUser       uint8 = 0
	PrivSupervisor uint8 = 1
	PrivMachine    uint8 = 3
)

// mstatus bits
const (
	MstatusMIE  uint64 = 1 << 3
	MstatusMPIE uint64 = 1 << 7
	MstatusMPP  uint64 = 3 << 11
)

// mstatus bit positions
const (
	MstatusMPPShift = 11
)

// mip/mie bits
const (
	MipMSIP uint64 = 1 << 3  // Machine software interrupt pending
	MipMTIP uint64 = 1 << 7  // Machine timer interrupt pending
	MipMEIP uint64 = 1 << 11 // Machine external interrupt pending
)

// Interrupt causes (with bit 63 set)
const (
	CauseMSoftwareInt uint64 = (1 << 63) | 3
	CauseMTimerInt    uint64 = (1 << 63) | 7
	CauseMExternalInt uint64 = (1 << 63) | 11
)

// CSR addresses
const (
	CSRMstatus uint16 = 0x300
	CSRMie     uint16 = 0x304
	CSRMtvec   uint16 = 0x305
	CSRMepc    uint16 = 0x341
	CSRMcause  uint16 = 0x342
	CSRMtval   uint16 = 0x343
	CSRMip     uint16 = 0x344
	CSRMhartid uint16 = 0xF14
)
