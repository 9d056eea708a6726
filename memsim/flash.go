package memsim

// flashChip models the flash command protocol: the three-write unlock
// sequence, the command set dispatched at 0x5555, sector and chip erase,
// byte programming, Atmel 128-byte page latching and two-bank addressing
// on 128KiB chips.
type flashChip struct {
	mem    []byte
	id     uint16
	atmel  bool
	banked bool

	seq            int
	idMode         bool
	erasePrimed    bool
	programPending bool
	bankPending    bool

	pagePending bool
	pageBuf     [128]byte
	pageCount   int
	pageBase    int

	bank         int
	bankSwitches int
}

const (
	flashCmdAddr       = 0x5555
	flashCmdEnableAddr = 0x2AAA
)

func (c *flashChip) abs(off uint32) int {
	a := int(off)
	if c.banked && c.bank == 1 {
		a += 0x10000
	}
	return a
}

func (c *flashChip) readByte(off uint32) byte {
	if c.idMode {
		switch off {
		case 0:
			return byte(c.id)
		case 1:
			return byte(c.id >> 8)
		}
	}
	return c.mem[c.abs(off)]
}

func (c *flashChip) writeByte(off uint32, b byte) {
	switch {
	case c.bankPending:
		c.bankPending = false
		c.bank = int(b & 1)
		c.bankSwitches++
	case c.programPending:
		c.programPending = false
		// Programming can only clear bits; set bits need an erase first.
		c.mem[c.abs(off)] &= b
	case c.pagePending:
		if c.pageCount == 0 {
			c.pageBase = c.abs(off) &^ (len(c.pageBuf) - 1)
		}
		c.pageBuf[int(off)%len(c.pageBuf)] = b
		c.pageCount++
		if c.pageCount == len(c.pageBuf) {
			c.pagePending = false
			c.pageCount = 0
			copy(c.mem[c.pageBase:c.pageBase+len(c.pageBuf)], c.pageBuf[:])
		}
	default:
		c.command(off, b)
	}
}

func (c *flashChip) command(off uint32, b byte) {
	switch {
	case c.seq == 0 && off == flashCmdAddr && b == 0xAA:
		c.seq = 1
	case c.seq == 1 && off == flashCmdEnableAddr && b == 0x55:
		c.seq = 2
	case c.seq == 2:
		c.seq = 0
		if off == flashCmdAddr {
			switch b {
			case 0x90:
				c.idMode = true
			case 0xF0:
				c.idMode = false
			case 0xA0:
				if c.atmel {
					c.pagePending = true
					c.pageCount = 0
				} else {
					c.programPending = true
				}
			case 0xB0:
				if c.banked {
					c.bankPending = true
				}
			case 0x80:
				c.erasePrimed = true
			case 0x10:
				if c.erasePrimed {
					c.erasePrimed = false
					for i := range c.mem {
						c.mem[i] = 0xFF
					}
				}
			}
		} else if b == 0x30 && c.erasePrimed {
			c.erasePrimed = false
			base := c.abs(off &^ 0x0FFF)
			for i := base; i < base+0x1000; i++ {
				c.mem[i] = 0xFF
			}
		}
	default:
		c.seq = 0
	}
}
