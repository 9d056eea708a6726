// Package sram drives the battery-backed SRAM found on GBA cartridges.
// Unlike the other backup technologies SRAM comes in a single size, 32KiB,
// and is addressed directly: reads are plain byte copies and writes are
// verified by an immediate read-back.
package sram

import (
	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Capacity is the storage size of the SRAM chip in bytes.
const Capacity = 32768

// Sram provides access to the SRAM backup.
//
// The caller must have exclusive ownership of SRAM memory and WAITCNT's
// backup wait control setting for the lifetime of the handle.
type Sram struct {
	ports gbasave.Ports
}

// New creates an accessor to the SRAM backup and configures the backup
// waitstate.
func New(ports gbasave.Ports) *Sram {
	mmio.SetBackupWaitstate(ports, mmio.Cycles8)
	return &Sram{ports: ports}
}

// Reader returns a reader over the given range.
func (s *Sram) Reader(r gbasave.Range) *Reader {
	off, length := r.Translate(Capacity - 1)
	return &Reader{ports: s.ports, off: off, remaining: length}
}

// Writer returns a writer over the given range.
func (s *Sram) Writer(r gbasave.Range) *Writer {
	off, length := r.Translate(Capacity - 1)
	return newWriter(s.ports, off, length)
}
