// Package flash drives the parallel flash backup chips found on GBA
// cartridges. Three behavioral classes exist: generic 64KiB chips
// (byte-at-a-time programming, 4KiB erase sectors), the Atmel 64KiB chip
// (128-byte page programming, no sector erase), and 128KiB chips (two 64KiB
// banks behind a switchable window).
//
// Every command is preceded by a fixed two-step unlock sequence. The chip is
// identified at construction time by a 16-bit device id; unknown ids are a
// terminal failure.
package flash

import (
	"fmt"
	"log/slog"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Storage capacities of the supported variants.
const (
	Capacity64K  = 0x10000
	Capacity128K = 0x20000
)

const (
	bankSize = 0x10000
	pageSize = 128

	// Erase sectors are 4KiB: 16 on 64K chips, 16 per bank on 128K chips.
	sectorSize     = 0x1000
	maxSector64K   = 15
	maxSector128K  = 31
	sectorsPerBank = 16

	commandAddr       = mmio.BackupWindow + 0x5555
	commandEnableAddr = mmio.BackupWindow + 0x2AAA

	enableByte byte = 0x55
	erasedByte byte = 0xFF
)

const (
	cmdEraseChip     byte = 0x10
	cmdEraseSector   byte = 0x30
	cmdErase         byte = 0x80
	cmdEnterIDMode   byte = 0x90
	cmdWrite         byte = 0xA0
	cmdSwitchBank    byte = 0xB0
	cmdTerminateMode byte = 0xF0
	cmdEnable        byte = 0xAA
)

// engine carries the bus capability and command primitives shared by all
// variants.
type engine struct {
	ports  gbasave.Ports
	timing mmio.Timing
}

// Option configures identification and the device handle it produces.
type Option func(*engine)

// WithTiming overrides the busy-wait bounds.
func WithTiming(t mmio.Timing) Option {
	return func(e *engine) {
		e.timing = t
	}
}

// beginCommand issues the unlock sequence that precedes every command.
func (e *engine) beginCommand() {
	e.ports.WriteU8(commandAddr, cmdEnable)
	e.ports.WriteU8(commandEnableAddr, enableByte)
}

func (e *engine) sendCommand(c byte) {
	e.beginCommand()
	e.ports.WriteU8(commandAddr, c)
}

func (e *engine) switchBank(bank int) {
	e.sendCommand(cmdSwitchBank)
	e.ports.WriteU8(mmio.BackupWindow, byte(bank))
}

// settle busy-waits out a mode change. The chip gives no completion signal
// for these, so the bound stands in for the datasheet's 20ms.
func (e *engine) settle() {
	mmio.Spin(e.timing.SettleLoops)
}

// verifyByte polls addr until it reads back b or the poll bound expires.
func (e *engine) verifyByte(addr uint32, b byte) error {
	for i := 0; i < e.timing.VerifyLoops; i++ {
		if e.ports.ReadU8(addr) == b {
			return nil
		}
	}
	return fmt.Errorf("flash: %w", gbasave.ErrOperationTimedOut)
}

// verifyPage polls until the whole page at addr reads back equal to page or
// the poll bound expires.
func (e *engine) verifyPage(addr uint32, page []byte) error {
	for i := 0; i < e.timing.VerifyLoops; i++ {
		verified := true
		for j, b := range page {
			if e.ports.ReadU8(addr+uint32(j)) != b {
				verified = false
				break
			}
		}
		if verified {
			return nil
		}
	}
	return fmt.Errorf("flash: page verify: %w", gbasave.ErrOperationTimedOut)
}

// eraseSector erases the 4KiB sector with the given index within the
// currently selected bank and polls until its first byte reads erased.
func (e *engine) eraseSector(sector int) error {
	e.sendCommand(cmdErase)
	e.beginCommand()
	addr := mmio.BackupWindow + uint32(sector*sectorSize)
	e.ports.WriteU8(addr, cmdEraseSector)
	if err := e.verifyByte(addr, erasedByte); err != nil {
		return fmt.Errorf("erase sector %d: %w", sector, err)
	}
	return nil
}

// Reset erases the entire chip and polls until the base byte reads erased.
func (e *engine) Reset() error {
	e.sendCommand(cmdErase)
	e.sendCommand(cmdEraseChip)
	return e.verifyByte(mmio.BackupWindow, erasedByte)
}

// Device is one of the three flash variants: [*Flash64K], [*Flash64KAtmel]
// or [*Flash128K]. Callers type-switch on the variant returned by Identify
// and handle the classes they support.
type Device interface {
	// DeviceName reports the identified chip, e.g. "MX29L010".
	DeviceName() string

	// Reset erases the entire chip.
	Reset() error
}

// Identify determines which flash chip is present and returns the matching
// device handle.
//
// The caller must have exclusive ownership of the backup address window and
// WAITCNT's backup wait control setting for the lifetime of the returned
// handle.
func Identify(ports gbasave.Ports, opts ...Option) (Device, error) {
	e := engine{ports: ports, timing: mmio.DefaultTiming()}
	for _, opt := range opts {
		opt(&e)
	}

	mmio.SetBackupWaitstate(ports, mmio.Cycles8)

	e.sendCommand(cmdEnterIDMode)
	e.settle()

	id := uint16(ports.ReadU8(mmio.BackupWindow)) |
		uint16(ports.ReadU8(mmio.BackupWindow+1))<<8
	if !knownDevice(id) {
		return nil, UnknownDeviceIDError{ID: id}
	}

	e.sendCommand(cmdTerminateMode)
	e.settle()
	// The Sanyo 128K chip needs the terminate command sent twice.
	if id == idLE26FV10N1TS {
		e.sendCommand(cmdTerminateMode)
		e.settle()
	}

	slog.Debug("identified flash device", "id", fmt.Sprintf("0x%04x", id), "name", deviceNames[id])

	switch id {
	case idAT29LV512:
		return &Flash64KAtmel{engine: e, name: deviceNames[id]}, nil
	case idMX29L010, idLE26FV10N1TS:
		return &Flash128K{engine: e, name: deviceNames[id]}, nil
	default:
		return &Flash64K{engine: e, name: deviceNames[id]}, nil
	}
}

// Flash64K is a generic 64KiB flash chip: 16 erase sectors of 4KiB, one
// hardware program cycle per byte. A sector must be erased before it can be
// written again.
type Flash64K struct {
	engine
	name string
}

func (f *Flash64K) DeviceName() string { return f.name }

// Reader returns a reader over the given range.
func (f *Flash64K) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity64K - 1)
	return newReader(&f.engine, off, length, false)
}

// Writer returns a writer over the given range.
func (f *Flash64K) Writer(r gbasave.Range) *Writer {
	off, length := r.Translate(Capacity64K - 1)
	return newWriter(&f.engine, off, length, false)
}

// EraseSectors erases the 4KiB sectors selected by the given index range
// (indices 0-15). Sectors must be erased before they are rewritten.
func (f *Flash64K) EraseSectors(r gbasave.Range) error {
	start, n := r.Translate(maxSector64K)
	for s := start; s < start+n; s++ {
		if err := f.eraseSector(s); err != nil {
			return err
		}
	}
	return nil
}

// Flash64KAtmel is the Atmel 64KiB chip. It has no erase sectors; data is
// programmed in 128-byte pages which the writer buffers internally.
type Flash64KAtmel struct {
	engine
	name string
}

func (f *Flash64KAtmel) DeviceName() string { return f.name }

// Reader returns a reader over the given range.
func (f *Flash64KAtmel) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity64K - 1)
	return newReader(&f.engine, off, length, false)
}

// Writer returns a page-buffered writer over the given range.
func (f *Flash64KAtmel) Writer(r gbasave.Range) *WriterAtmel {
	off, length := r.Translate(Capacity64K - 1)
	return newWriterAtmel(&f.engine, off, length)
}

// Flash128K is a 128KiB chip addressed through two 64KiB banks; exactly one
// bank is mapped into the window at a time. 32 erase sectors of 4KiB, 16 per
// bank. A sector must be erased before it can be written again.
type Flash128K struct {
	engine
	name string
}

func (f *Flash128K) DeviceName() string { return f.name }

// Reader returns a reader over the given range, switching banks as the
// range crosses the 64KiB boundary.
func (f *Flash128K) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity128K - 1)
	return newReader(&f.engine, off, length, true)
}

// Writer returns a writer over the given range, switching banks as the
// range crosses the 64KiB boundary.
func (f *Flash128K) Writer(r gbasave.Range) *Writer {
	off, length := r.Translate(Capacity128K - 1)
	return newWriter(&f.engine, off, length, true)
}

// EraseSectors erases the 4KiB sectors selected by the given index range
// (indices 0-31), switching bank as the range crosses sector 16.
func (f *Flash128K) EraseSectors(r gbasave.Range) error {
	start, n := r.Translate(maxSector128K)
	if n == 0 {
		return nil
	}
	bank := 0
	if start >= sectorsPerBank {
		bank = 1
	}
	f.switchBank(bank)
	for s := start; s < start+n; s++ {
		sector := s
		if bank == 0 && sector >= sectorsPerBank {
			bank = 1
			f.switchBank(bank)
		}
		if bank == 1 {
			sector %= sectorsPerBank
		}
		if err := f.eraseSector(sector); err != nil {
			return err
		}
	}
	return nil
}
