package eeprom

import "io"

// Reader reads bytes over the range it was created with, 8-byte sector by
// sector. Reads never fail and never block beyond the fixed bus-transfer
// length; an exhausted range reports io.EOF.
type Reader struct {
	dev       *device
	off       int
	remaining int
}

func newReader(dev *device, off, length int) *Reader {
	return &Reader{dev: dev, off: off, remaining: length}
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

	n := 0
	for n < limit {
		pos := r.off + n
		sub := pos & 0b111
		count := min(8-sub, limit-n)
		r.dev.readSector(pos, p[n:n+count], sub)
		n += count
	}

	r.off += n
	r.remaining -= n
	return n, nil
}
