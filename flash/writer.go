package flash

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Writer writes bytes over the range it was created with, one hardware
// program cycle per byte, each verified by a bounded read-back poll. On
// banked chips it selects the starting bank at construction and switches
// once more if the range crosses the 64KiB boundary.
//
// Memory that has been written since its last erase cannot be written again;
// such writes fail verification.
type Writer struct {
	eng       *engine
	off       int
	remaining int
	banked    bool
	bank      int
}

func newWriter(eng *engine, off, length int, banked bool) *Writer {
	slog.Debug("creating flash writer", "offset", off, "len", length, "banked", banked)
	w := &Writer{eng: eng, off: off, remaining: length, banked: banked}
	if banked {
		if off >= bankSize {
			w.bank = 1
		}
		eng.switchBank(w.bank)
	}
	return w
}

// Write implements io.Writer. It returns ErrEndOfWriter once the range is
// exhausted and a further write is attempted.
func (w *Writer) Write(p []byte) (int, error) {
	limit := min(len(p), w.remaining)
	if limit == 0 {
		if w.remaining == 0 {
			return 0, fmt.Errorf("flash: %w", gbasave.ErrEndOfWriter)
		}
		return 0, nil
	}

	for n := 0; n < limit; n++ {
		pos := w.off + n
		if w.banked && w.bank == 0 && pos == bankSize {
			w.bank = 1
			w.eng.switchBank(w.bank)
		}
		if w.bank == 1 {
			pos -= bankSize
		}

		addr := mmio.BackupWindow + uint32(pos)
		w.eng.sendCommand(cmdWrite)
		w.eng.ports.WriteU8(addr, p[n])
		if err := w.eng.verifyByte(addr, p[n]); err != nil {
			return n, err
		}
	}

	w.off += limit
	w.remaining -= limit
	return limit, nil
}

// Flush is a no-op: every byte is committed as it is written.
func (w *Writer) Flush() error {
	return nil
}

// Close is a no-op provided for symmetry with the page-buffered writer.
func (w *Writer) Close() error {
	return nil
}

// WriterAtmel writes to the Atmel 64KiB chip through a 128-byte page buffer.
// The buffer is programmed to the device whenever it fills and on Flush or
// Close; both ends of a partially covered page are read back from the device
// first so untouched bytes survive. The hardware page-program burst must not
// be interrupted, so interrupts are disabled for its duration.
type WriterAtmel struct {
	eng       *engine
	off       int // next byte position; advances as bytes are buffered
	remaining int
	page      [pageSize]byte
	flushed   bool
	closed    bool
}

func newWriterAtmel(eng *engine, off, length int) *WriterAtmel {
	slog.Debug("creating flash Atmel writer", "offset", off, "len", length)
	w := &WriterAtmel{eng: eng, off: off, remaining: length, flushed: true}

	// An unaligned start means the front of the page already holds data the
	// caller is not rewriting. Capture it now.
	if o := off % pageSize; o != 0 {
		rd := newReader(eng, off-o, o, false)
		_, _ = rd.Read(w.page[:o])
		w.flushed = false
	}

	runtime.SetFinalizer(w, (*WriterAtmel).finalize)
	return w
}

// Write implements io.Writer. It returns ErrEndOfWriter once the range is
// exhausted and a further write is attempted.
func (w *WriterAtmel) Write(p []byte) (int, error) {
	limit := min(len(p), w.remaining)
	if limit == 0 {
		if w.remaining == 0 {
			return 0, fmt.Errorf("flash: %w", gbasave.ErrEndOfWriter)
		}
		return 0, nil
	}

	n := 0
	for n < limit {
		w.page[w.off%pageSize] = p[n]
		w.flushed = false
		w.off++
		n++
		if w.off%pageSize == 0 {
			if err := w.Flush(); err != nil {
				// Keep remaining in step with off so a caller that writes on
				// after the error still stops at the range end.
				w.remaining -= n
				return n, err
			}
		}
	}

	w.remaining -= limit
	return limit, nil
}

// Flush programs the buffered page. If the tail of the page was never
// written it is read back from the device first, so trailing bytes are not
// zeroed. Flushing an already-flushed writer is a no-op.
func (w *WriterAtmel) Flush() error {
	if w.flushed {
		return nil
	}
	w.flushed = true

	o := w.off % pageSize
	if o != 0 {
		rd := newReader(w.eng, w.off, pageSize-o, false)
		_, _ = rd.Read(w.page[o:])
	}

	base := w.off - o
	if o == 0 {
		base = w.off - pageSize
	}
	addr := mmio.BackupWindow + uint32(base)

	// The chip latches the whole page from a continuous burst of writes; an
	// interrupt in the middle would corrupt the transfer.
	mmio.WithInterruptsDisabled(w.eng.ports, func() {
		w.eng.sendCommand(cmdWrite)
		for i, b := range w.page {
			w.eng.ports.WriteU8(addr+uint32(i), b)
		}
	})

	return w.eng.verifyPage(addr, w.page[:])
}

// Close flushes any buffered page and releases the writer. Further calls
// are no-ops.
func (w *WriterAtmel) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)
	return w.Flush()
}

func (w *WriterAtmel) finalize() {
	if w.flushed {
		return
	}
	slog.Warn("flash Atmel writer discarded with an unflushed page; flushing best-effort",
		"buffered_bytes", w.off%pageSize)
	if err := w.Flush(); err != nil {
		slog.Warn("flash Atmel best-effort flush failed", "error", err)
	}
}
