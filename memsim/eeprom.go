package memsim

// eepromChip models the serial EEPROM wire protocol. Incoming halfword
// writes are collected bit by bit; once a complete request frame has
// arrived it is executed. A read request latches a sector for the 68-bit
// read-out that follows (4 junk bits, then 64 data bits MSB first).
type eepromChip struct {
	mem         []byte
	addressBits int
	stuckBusy   bool

	rx         []uint16
	readSector int // sector latched for read-out, -1 when none
	readPos    int
}

func newEepromChip(capacity, addressBits int) *eepromChip {
	return &eepromChip{
		mem:         make([]byte, capacity),
		addressBits: addressBits,
		rx:          make([]uint16, 0, 2+addressBits+64+1),
		readSector:  -1,
	}
}

const readoutLen = 68

func (c *eepromChip) sectorCount() int {
	return len(c.mem) / 8
}

func (c *eepromChip) writeBit(v uint16) {
	c.rx = append(c.rx, v&1)
	if len(c.rx) == 1 && c.rx[0] != 1 {
		c.rx = c.rx[:0]
		return
	}
	if len(c.rx) < 2 {
		return
	}

	frameLen := 2 + c.addressBits + 1
	write := c.rx[1] == 0
	if write {
		frameLen += 64
	}
	if len(c.rx) < frameLen {
		return
	}

	sector := 0
	for _, b := range c.rx[2 : 2+c.addressBits] {
		sector = sector<<1 | int(b)
	}
	sector %= c.sectorCount()

	if write {
		data := c.rx[2+c.addressBits : 2+c.addressBits+64]
		for i := 0; i < 8; i++ {
			var b byte
			for j := 0; j < 8; j++ {
				b |= byte(data[i*8+j]) << (7 - j)
			}
			c.mem[sector*8+i] = b
		}
	} else {
		c.readSector = sector
		c.readPos = 0
	}
	c.rx = c.rx[:0]
}

func (c *eepromChip) readBit() uint16 {
	if c.readSector >= 0 {
		pos := c.readPos
		c.readPos++
		var v uint16
		if pos >= 4 {
			bit := pos - 4
			v = uint16(c.mem[c.readSector*8+bit/8]>>(7-bit%8)) & 1
		}
		if c.readPos == readoutLen {
			c.readSector = -1
		}
		return v
	}
	if c.stuckBusy {
		return 0
	}
	return 1
}
