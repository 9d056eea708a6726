package sram

import (
	"io"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/mmio"
)

// Reader reads bytes over the range it was created with. Reads never fail;
// an exhausted range reports io.EOF.
type Reader struct {
	ports     gbasave.Ports
	off       int
	remaining int
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
		p[n] = r.ports.ReadU8(mmio.BackupWindow + uint32(r.off+n))
	}

	r.off += limit
	r.remaining -= limit
	return limit, nil
}
