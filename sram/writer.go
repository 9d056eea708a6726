package sram

import (
	"fmt"
	"log/slog"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Writer writes bytes over the range it was created with. Each byte is read
// back immediately after it is written; a mismatch fails the write with
// ErrWriteFailure and no retry.
type Writer struct {
	ports     gbasave.Ports
	off       int
	remaining int
}

func newWriter(ports gbasave.Ports, off, length int) *Writer {
	slog.Debug("creating SRAM writer", "offset", off, "len", length)
	return &Writer{ports: ports, off: off, remaining: length}
}

// Write implements io.Writer. It returns ErrEndOfWriter once the range is
// exhausted and a further write is attempted.
func (w *Writer) Write(p []byte) (int, error) {
	limit := min(len(p), w.remaining)
	if limit == 0 {
		if w.remaining == 0 {
			return 0, fmt.Errorf("sram: %w", gbasave.ErrEndOfWriter)
		}
		return 0, nil
	}

	for n := 0; n < limit; n++ {
		addr := mmio.BackupWindow + uint32(w.off+n)
		w.ports.WriteU8(addr, p[n])
		if w.ports.ReadU8(addr) != p[n] {
			return n, fmt.Errorf("sram: %w", gbasave.ErrWriteFailure)
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

// Close is a no-op provided for symmetry with the buffered writers.
func (w *Writer) Close() error {
	return nil
}
