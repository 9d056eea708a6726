package memsim

const sramSize = 32768

// sramChip models battery-backed SRAM. A read-only chip drops writes,
// which the driver's read-back verification then catches.
type sramChip struct {
	mem      [sramSize]byte
	readOnly bool
}

func (c *sramChip) write(off uint32, b byte) {
	if c.readOnly {
		return
	}
	c.mem[off] = b
}
