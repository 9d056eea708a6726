package eeprom

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Writer writes bytes over the range it was created with. Bytes accumulate
// into an 8-byte sector buffer which is transmitted whenever it fills; call
// Flush (or Close) to commit a trailing partial sector. Every transmitted
// sector is read back and verified.
type Writer struct {
	dev       *device
	off       int // next unwritten byte, advanced per successful Write
	remaining int
	bits      []uint16
	index     int // byte position within the pending sector; -1 when none
	closed    bool
}

func newWriter(dev *device, off, length int) *Writer {
	logWriter(fmt.Sprintf("%dB", dev.capacity), off, length)
	w := &Writer{
		dev:       dev,
		off:       off,
		remaining: length,
		bits:      make([]uint16, dev.bitLen()),
		index:     -1,
	}
	// A writer discarded mid-sector still commits its buffered bytes, with
	// errors reported only via the log.
	runtime.SetFinalizer(w, (*Writer).finalize)
	return w
}

// Write implements io.Writer. It returns ErrEndOfWriter once the range is
// exhausted and a further write is attempted.
func (w *Writer) Write(p []byte) (int, error) {
	limit := min(len(p), w.remaining)
	if limit == 0 {
		if w.remaining == 0 {
			return 0, fmt.Errorf("eeprom: %w", gbasave.ErrEndOfWriter)
		}
		return 0, nil
	}

	n := 0
	for n < limit {
		if w.index < 0 {
			w.beginSector(w.off+n, n == 0)
		}
		for n < limit && w.index < 8 {
			w.setByte(w.index, p[n])
			w.index++
			n++
		}
		if w.index == 8 {
			w.index = -1
			if err := w.flushBuffer(); err != nil {
				return n, err
			}
		}
	}

	w.off += n
	w.remaining -= n
	return n, nil
}

// beginSector resets the bit buffer for the sector containing pos. When the
// write starts mid-sector, the sector is first read back so the bytes
// preceding the offset survive the eventual flush.
func (w *Writer) beginSector(pos int, initial bool) {
	ab := w.dev.addressBits
	for i := range w.bits {
		w.bits[i] = 0
	}
	w.bits[0], w.bits[1] = 1, 0
	if initial && pos&0b111 != 0 {
		w.dev.requestRead(pos)
		prev := make([]uint16, receiveLen)
		w.dev.receive(prev)
		copy(w.bits[2+ab:2+ab+64], prev[4:])
	}
	w.dev.populateAddress(w.bits[2:2+ab], pos)
	w.index = pos & 0b111
}

// setByte encodes b into the sector buffer at byte position idx, most
// significant bit first.
func (w *Writer) setByte(idx int, b byte) {
	base := 2 + w.dev.addressBits + idx*8
	for j := 0; j < 8; j++ {
		w.bits[base+j] = uint16(b>>(7-j)) & 1
	}
}

// flushBuffer transmits the sector buffer, polls the ready flag, then reads
// the sector back and compares it against what was written.
func (w *Writer) flushBuffer() error {
	d := w.dev
	d.send(w.bits)

	ready := false
	for i := 0; i < d.timing.ReadyLoops; i++ {
		if d.ports.ReadHalf(mmio.EepromPort)&1 != 0 {
			ready = true
			break
		}
	}
	if !ready {
		return fmt.Errorf("eeprom: sector write: %w", gbasave.ErrOperationTimedOut)
	}

	ab := d.addressBits
	req := make([]uint16, ab+3)
	req[0], req[1] = 1, 1
	copy(req[2:2+ab], w.bits[2:2+ab])
	d.send(req)

	got := make([]uint16, receiveLen)
	d.receive(got)
	for i := 0; i < 64; i++ {
		if w.bits[2+ab+i]&1 != got[4+i]&1 {
			return fmt.Errorf("eeprom: sector verify: %w", gbasave.ErrWriteFailure)
		}
	}
	return nil
}

// Flush commits a pending partial sector. The unwritten trailing bytes of
// the sector are first read back from the device and merged into the buffer
// so they are not zeroed. Flushing with no pending sector is a no-op.
func (w *Writer) Flush() error {
	if w.index < 0 {
		return nil
	}
	idx := w.index
	if idx < 8 {
		var tail [8]byte
		w.dev.readSector(w.off, tail[:8-idx], idx)
		for i, b := range tail[:8-idx] {
			w.setByte(idx+i, b)
		}
	}
	w.index = -1
	return w.flushBuffer()
}

// Close flushes any pending sector and releases the writer. Further calls
// are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)
	return w.Flush()
}

func (w *Writer) finalize() {
	if w.index < 0 {
		return
	}
	slog.Warn("EEPROM writer discarded with an unflushed sector; flushing best-effort",
		"buffered_bytes", w.index)
	if err := w.Flush(); err != nil {
		slog.Warn("EEPROM best-effort flush failed", "error", err)
	}
}
