// Package mmio holds the register map shared by the backup-memory protocol
// engines: the waitstate-control and interrupt-master-enable registers, the
// backup and EEPROM address windows, and the bounded busy-wait helpers that
// substitute for a hardware timer.
package mmio

import "github.com/gbakit/gbasave"

// Register and window addresses.
const (
	// WaitstateControl is the WAITCNT register. Bits 0-1 select the backup
	// (SRAM/flash) waitstate.
	WaitstateControl uint32 = 0x0400_0204
	// InterruptMasterEnable is the IME register. Bit 0 gates all interrupts.
	InterruptMasterEnable uint32 = 0x0400_0208

	// BackupWindow is the base of the 64KiB SRAM/flash address window.
	BackupWindow uint32 = 0x0E00_0000
	// EepromWindow is the base of the EEPROM address region.
	EepromWindow uint32 = 0x0D00_0000
	// EepromPort is the halfword port EEPROM bits are clocked through.
	EepromPort uint32 = 0x0DFF_FF00
)

// Cycles is a waitstate setting: the number of bus cycles per access.
type Cycles uint16

const (
	Cycles4 Cycles = 0
	Cycles3 Cycles = 1
	Cycles2 Cycles = 2
	Cycles8 Cycles = 3
)

// SetBackupWaitstate updates the backup waitstate field of WAITCNT, leaving
// the other fields untouched.
func SetBackupWaitstate(p gbasave.Ports, c Cycles) {
	v := p.ReadHalf(WaitstateControl)
	v = v&^0b11 | uint16(c)
	p.WriteHalf(WaitstateControl, v)
}

// SetEepromWaitstate updates the waitstate field governing EEPROM accesses
// (the ROM second-region field of WAITCNT), leaving the other fields
// untouched.
func SetEepromWaitstate(p gbasave.Ports, c Cycles) {
	v := p.ReadHalf(WaitstateControl)
	v = v&^(0b11<<8) | uint16(c)<<8
	p.WriteHalf(WaitstateControl, v)
}

// WithInterruptsDisabled saves IME, clears it, runs fn, and restores the
// saved value. EEPROM DMA transfers and Atmel page programming are not safe
// to interrupt.
func WithInterruptsDisabled(p gbasave.Ports, fn func()) {
	prev := p.ReadHalf(InterruptMasterEnable)
	p.WriteHalf(InterruptMasterEnable, 0)
	fn()
	p.WriteHalf(InterruptMasterEnable, prev)
}

// Timing bounds the busy-wait loops the engines use in place of a hardware
// timer. The defaults assume the stock CPU clock; callers on different
// transports can widen them.
type Timing struct {
	// SettleLoops is the spin count for a flash mode-change settle
	// (nominally 20ms).
	SettleLoops int
	// VerifyLoops bounds the poll loop of a program or erase verify
	// (nominally 20ms).
	VerifyLoops int
	// ReadyLoops bounds the EEPROM ready-flag poll after a sector write.
	ReadyLoops int
}

// DefaultTiming returns the bounds used on real hardware.
func DefaultTiming() Timing {
	return Timing{
		SettleLoops: 20000,
		VerifyLoops: 20000,
		ReadyLoops:  10000,
	}
}

var spinSink uint32

// Spin busy-waits for the given number of iterations.
func Spin(loops int) {
	for i := 0; i < loops; i++ {
		spinSink++
	}
}
