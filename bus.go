// Package gbasave provides byte-stream access to the backup memory found on
// Game Boy Advance cartridges: serial EEPROM (512B and 8KiB), flash (64KiB,
// 64KiB Atmel and 128KiB) and SRAM (32KiB).
//
// Device handles are created over a Ports capability, which carries the
// memory-mapped bus accesses the protocol engines need. The memsim package
// provides a simulated cartridge, and the linkcart and adapter packages talk
// to physical cartridge-reader dongles.
package gbasave

// Ports is the memory-mapped peripheral access capability the protocol
// engines are built on. All accesses have volatile semantics: every call is
// a bus transaction, nothing is cached or reordered.
//
// A device handle constructed over a Ports value must have exclusive
// ownership of the backup address window, the waitstate-control bits and the
// interrupt-master-enable flag (and, for EEPROM, the DMA channel) for its
// whole lifetime. This is a caller-enforced precondition; it is not checked
// at runtime.
type Ports interface {
	ReadU8(addr uint32) byte
	WriteU8(addr uint32, value byte)
	ReadHalf(addr uint32) uint16
	WriteHalf(addr uint32, value uint16)

	// BurstOut clocks words out to a fixed port address back to back, one
	// bus cycle per word, without interruption. On real hardware this is a
	// DMA3 transfer.
	BurstOut(addr uint32, words []uint16)
	// BurstIn clocks words in from a fixed port address, one bus cycle per
	// word.
	BurstIn(addr uint32, words []uint16)
}
