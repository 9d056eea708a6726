// Package memsim provides an in-memory simulated cartridge implementing
// gbasave.Ports. The simulated chips speak the same wire protocols as the
// real hardware: the EEPROM model parses the serial bit stream, the flash
// model runs the unlock/command state machine with banking and Atmel page
// latching, and the SRAM model is a plain byte array. It backs the package
// tests and the CLI's sim backend.
package memsim

import (
	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Device ids the flash model can report, matching the known chip table.
const (
	IDMacronix128K uint16 = 0x09C2
	IDSanyo128K    uint16 = 0x1362
	IDPanasonic64K uint16 = 0x1B32
	IDMacronix64K  uint16 = 0x1CC2
	IDAtmel64K     uint16 = 0x3D1F
	IDSST64K       uint16 = 0xD4B4
)

var _ gbasave.Ports = (*Cart)(nil)

// Cart is a simulated cartridge. Configure exactly one backup chip through
// the options; the zero cartridge has none and reads as open bus.
type Cart struct {
	waitcnt uint16
	ime     uint16

	eeprom *eepromChip
	flash  *flashChip
	sram   *sramChip
}

// Option configures a simulated cartridge.
type Option func(*Cart)

// WithSram installs a 32KiB SRAM chip.
func WithSram() Option {
	return func(c *Cart) {
		c.sram = &sramChip{}
	}
}

// WithSramReadOnly installs an SRAM chip that silently drops writes, so
// every write fails verification.
func WithSramReadOnly() Option {
	return func(c *Cart) {
		c.sram = &sramChip{readOnly: true}
	}
}

// WithFlash installs a flash chip reporting the given device id. The chip's
// behavior (generic, Atmel page programming, or two-bank 128KiB) is derived
// from the id; unknown ids behave as generic 64KiB chips.
func WithFlash(id uint16) Option {
	return func(c *Cart) {
		f := &flashChip{id: id}
		switch id {
		case IDAtmel64K:
			f.atmel = true
		case IDMacronix128K, IDSanyo128K:
			f.banked = true
		}
		size := 0x10000
		if f.banked {
			size = 0x20000
		}
		f.mem = make([]byte, size)
		for i := range f.mem {
			f.mem[i] = 0xFF
		}
		c.flash = f
	}
}

// WithEeprom512B installs a 512B EEPROM chip.
func WithEeprom512B() Option {
	return func(c *Cart) {
		c.eeprom = newEepromChip(512, 6)
	}
}

// WithEeprom8K installs an 8KiB EEPROM chip.
func WithEeprom8K() Option {
	return func(c *Cart) {
		c.eeprom = newEepromChip(8192, 14)
	}
}

// WithEepromStuckBusy makes the EEPROM chip never report ready, so sector
// writes time out. Must come after WithEeprom512B or WithEeprom8K.
func WithEepromStuckBusy() Option {
	return func(c *Cart) {
		if c.eeprom != nil {
			c.eeprom.stuckBusy = true
		}
	}
}

// New creates a simulated cartridge.
func New(opts ...Option) *Cart {
	c := &Cart{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FlashBankSwitches reports how many bank-select commands the flash chip
// has accepted.
func (c *Cart) FlashBankSwitches() int {
	if c.flash == nil {
		return 0
	}
	return c.flash.bankSwitches
}

// PokeBackup writes directly into the backing store of the flash or SRAM
// chip, bypassing the wire protocol. Test and debugging hook.
func (c *Cart) PokeBackup(off int, b byte) {
	switch {
	case c.flash != nil:
		c.flash.mem[off] = b
	case c.sram != nil:
		c.sram.mem[off] = b
	}
}

// PeekBackup reads directly from the backing store of the flash or SRAM
// chip, bypassing the wire protocol. Test and debugging hook.
func (c *Cart) PeekBackup(off int) byte {
	switch {
	case c.flash != nil:
		return c.flash.mem[off]
	case c.sram != nil:
		return c.sram.mem[off]
	}
	return 0xFF
}

const (
	backupBase = mmio.BackupWindow
	backupEnd  = mmio.BackupWindow + 0x10000
	eepromBase = mmio.EepromWindow
	eepromEnd  = mmio.EepromWindow + 0x0100_0000
)

// ReadU8 implements gbasave.Ports.
func (c *Cart) ReadU8(addr uint32) byte {
	switch {
	case addr >= backupBase && addr < backupEnd:
		off := addr - backupBase
		switch {
		case c.flash != nil:
			return c.flash.readByte(off)
		case c.sram != nil:
			return c.sram.mem[off%sramSize]
		}
		return 0xFF
	case addr >= eepromBase && addr < eepromEnd:
		return byte(c.ReadHalf(addr))
	case addr == mmio.WaitstateControl:
		return byte(c.waitcnt)
	case addr == mmio.InterruptMasterEnable:
		return byte(c.ime)
	}
	return 0
}

// WriteU8 implements gbasave.Ports.
func (c *Cart) WriteU8(addr uint32, value byte) {
	switch {
	case addr >= backupBase && addr < backupEnd:
		off := addr - backupBase
		switch {
		case c.flash != nil:
			c.flash.writeByte(off, value)
		case c.sram != nil:
			c.sram.write(off%sramSize, value)
		}
	case addr >= eepromBase && addr < eepromEnd:
		c.WriteHalf(addr, uint16(value))
	}
}

// ReadHalf implements gbasave.Ports.
func (c *Cart) ReadHalf(addr uint32) uint16 {
	switch {
	case addr == mmio.WaitstateControl:
		return c.waitcnt
	case addr == mmio.InterruptMasterEnable:
		return c.ime
	case addr >= eepromBase && addr < eepromEnd:
		if c.eeprom != nil {
			return c.eeprom.readBit()
		}
		return 0
	case addr >= backupBase && addr < backupEnd:
		lo := uint16(c.ReadU8(addr))
		hi := uint16(c.ReadU8(addr + 1))
		return lo | hi<<8
	}
	return 0
}

// WriteHalf implements gbasave.Ports.
func (c *Cart) WriteHalf(addr uint32, value uint16) {
	switch {
	case addr == mmio.WaitstateControl:
		c.waitcnt = value
	case addr == mmio.InterruptMasterEnable:
		c.ime = value
	case addr >= eepromBase && addr < eepromEnd:
		if c.eeprom != nil {
			c.eeprom.writeBit(value)
		}
	case addr >= backupBase && addr < backupEnd:
		c.WriteU8(addr, byte(value))
		c.WriteU8(addr+1, byte(value>>8))
	}
}

// BurstOut implements gbasave.Ports.
func (c *Cart) BurstOut(addr uint32, words []uint16) {
	for _, w := range words {
		c.WriteHalf(addr, w)
	}
}

// BurstIn implements gbasave.Ports.
func (c *Cart) BurstIn(addr uint32, words []uint16) {
	for i := range words {
		words[i] = c.ReadHalf(addr)
	}
}
