// Package eeprom drives the serial EEPROM backup chips found on GBA
// cartridges. Two variants exist, 512B and 8KiB, and the wire protocol
// differs between them (6 versus 14 sector-address bits), so the device
// handle must match the chip on the cartridge. Popular emulators will accept
// traffic intended for the wrong variant; real hardware will not.
//
// The chip is addressed in sectors of 8 bytes. Every transaction is a stream
// of bits clocked through a halfword port, one logical bit per bus word: a
// 2-bit header, the sector address, and for writes 64 data bits plus a stop
// bit. The engine buffers partial sectors and performs read-modify-write so
// unaligned ranges never clobber neighbouring bytes.
package eeprom

import (
	"log/slog"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Storage capacities of the two chip variants.
const (
	Capacity512B = 512
	Capacity8K   = 8192
)

const (
	addressBits512B = 6
	addressBits8K   = 14

	// A received sector is 4 padding bits followed by 64 data bits.
	receiveLen = 68
)

type device struct {
	ports       gbasave.Ports
	timing      mmio.Timing
	addressBits int
	capacity    int
}

// Option configures a device handle.
type Option func(*device)

// WithTiming overrides the busy-wait bounds.
func WithTiming(t mmio.Timing) Option {
	return func(d *device) {
		d.timing = t
	}
}

// Device512B provides access to a 512B EEPROM backup chip.
//
// The caller must have exclusive ownership of EEPROM memory, WAITCNT's
// EEPROM wait control setting and the DMA channel for the lifetime of the
// handle. Any DMA channels of higher priority should be disabled.
type Device512B struct {
	dev device
}

// New512B creates an accessor to a 512B EEPROM backup chip.
func New512B(ports gbasave.Ports, opts ...Option) *Device512B {
	return &Device512B{dev: newDevice(ports, addressBits512B, Capacity512B, opts)}
}

// Reader returns a reader over the given range.
func (d *Device512B) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity512B - 1)
	return newReader(&d.dev, off, length)
}

// Writer returns a writer over the given range.
func (d *Device512B) Writer(r gbasave.Range) *Writer {
	off, length := r.Translate(Capacity512B - 1)
	return newWriter(&d.dev, off, length)
}

// Device8K provides access to an 8KiB EEPROM backup chip.
//
// The ownership preconditions are the same as for [Device512B].
type Device8K struct {
	dev device
}

// New8K creates an accessor to an 8KiB EEPROM backup chip.
func New8K(ports gbasave.Ports, opts ...Option) *Device8K {
	return &Device8K{dev: newDevice(ports, addressBits8K, Capacity8K, opts)}
}

// Reader returns a reader over the given range.
func (d *Device8K) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity8K - 1)
	return newReader(&d.dev, off, length)
}

// Writer returns a writer over the given range.
func (d *Device8K) Writer(r gbasave.Range) *Writer {
	off, length := r.Translate(Capacity8K - 1)
	return newWriter(&d.dev, off, length)
}

func newDevice(ports gbasave.Ports, addressBits, capacity int, opts []Option) device {
	d := device{
		ports:       ports,
		timing:      mmio.DefaultTiming(),
		addressBits: addressBits,
		capacity:    capacity,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// bitLen is the length of a full sector-write transaction: 2 header bits,
// the sector address, 64 data bits and a stop bit.
func (d *device) bitLen() int {
	return 2 + d.addressBits + 64 + 1
}

// send clocks words out through the EEPROM port. The transfer must not be
// interrupted, so interrupts are disabled for its duration.
func (d *device) send(words []uint16) {
	mmio.WithInterruptsDisabled(d.ports, func() {
		mmio.SetEepromWaitstate(d.ports, mmio.Cycles8)
		d.ports.BurstOut(mmio.EepromPort, words)
	})
}

// receive clocks words in through the EEPROM port.
func (d *device) receive(words []uint16) {
	mmio.WithInterruptsDisabled(d.ports, func() {
		mmio.SetEepromWaitstate(d.ports, mmio.Cycles8)
		d.ports.BurstIn(mmio.EepromPort, words)
	})
}

// populateAddress writes the sector address of byteOff into dst, most
// significant bit first. dst must be addressBits long.
func (d *device) populateAddress(dst []uint16, byteOff int) {
	for i := 0; i < d.addressBits; i++ {
		shift := d.addressBits - 1 - i
		dst[i] = uint16(byteOff>>(shift+3)) & 1
	}
}

// requestRead issues a read-request transaction for the sector containing
// byteOff. The device answers on the next receive.
func (d *device) requestRead(byteOff int) {
	req := make([]uint16, d.addressBits+3)
	req[0], req[1] = 1, 1
	d.populateAddress(req[2:2+d.addressBits], byteOff)
	d.send(req)
}

// readSector reads the sector containing byteOff and decodes its bytes from
// position sub onward into out. len(out) must not exceed 8-sub.
func (d *device) readSector(byteOff int, out []byte, sub int) {
	d.requestRead(byteOff)
	bits := make([]uint16, receiveLen)
	d.receive(bits)
	for i := range out {
		base := 4 + (sub+i)*8
		var b byte
		for j := 0; j < 8; j++ {
			b |= byte(bits[base+j]&1) << (7 - j)
		}
		out[i] = b
	}
}

func logWriter(kind string, off, length int) {
	slog.Debug("creating EEPROM writer", "variant", kind, "offset", off, "len", length)
}
