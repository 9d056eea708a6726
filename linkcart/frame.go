package linkcart

import "encoding/binary"

// Request opcodes understood by the link programmer firmware.
const (
	opReadByte  byte = 0x01
	opWriteByte byte = 0x02
	opReadHalf  byte = 0x03
	opWriteHalf byte = 0x04
	opBurstOut  byte = 0x05
	opBurstIn   byte = 0x06
)

// frameSize is the fixed length of a request frame.
const frameSize = 16

// ackByte is echoed by the programmer after every completed write request.
const ackByte = 0xA5

// encodeFrame builds a request frame: opcode, bus address, inline value for
// single-access writes and the word count for bursts. Trailing bytes are
// zero padding.
func encodeFrame(op byte, addr uint32, value uint16, count uint32) [frameSize]byte {
	var f [frameSize]byte
	f[0] = op
	binary.LittleEndian.PutUint32(f[1:5], addr)
	binary.LittleEndian.PutUint16(f[5:7], value)
	binary.LittleEndian.PutUint32(f[7:11], count)
	return f
}

// packWords serializes halfwords little endian for a burst payload.
func packWords(words []uint16) []byte {
	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[2*i:], w)
	}
	return buf
}

// unpackWords deserializes a burst payload back into halfwords.
func unpackWords(buf []byte, words []uint16) {
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
}
