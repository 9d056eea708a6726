package flash

import (
	"io"

	"github.com/gbakit/gbasave/mmio"
)

// Reader reads bytes over the range it was created with. On banked chips it
// selects the starting bank at construction and switches once more if the
// range crosses the 64KiB boundary. Reads never fail; an exhausted range
// reports io.EOF.
type Reader struct {
	eng       *engine
	off       int // absolute offset into the chip's logical address space
	remaining int
	banked    bool
	bank      int
}

func newReader(eng *engine, off, length int, banked bool) *Reader {
	r := &Reader{eng: eng, off: off, remaining: length, banked: banked}
	if banked {
		if off >= bankSize {
			r.bank = 1
		}
		eng.switchBank(r.bank)
	}
	return r
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	limit := min(len(p), r.remaining)
	if limit == 0 {
		return 0, io.EOF
	}

	for n := 0; n < limit; n++ {
		pos := r.off + n
		if r.banked && r.bank == 0 && pos == bankSize {
			r.bank = 1
			r.eng.switchBank(r.bank)
		}
		if r.bank == 1 {
			pos -= bankSize
		}
		p[n] = r.eng.ports.ReadU8(mmio.BackupWindow + uint32(pos))
	}

	r.off += limit
	r.remaining -= limit
	return limit, nil
}
