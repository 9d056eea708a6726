package linkcart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeFrame(t *testing.T) {
	f := encodeFrame(opWriteHalf, 0x0DFFFF00, 0xBEEF, 3)

	assert.Equal(t, opWriteHalf, f[0])
	assert.Equal(t, []byte{0x00, 0xFF, 0xFF, 0x0D}, f[1:5])
	assert.Equal(t, []byte{0xEF, 0xBE}, f[5:7])
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, f[7:11])
	assert.Equal(t, make([]byte, frameSize-11), f[11:])
}

func TestWordPayloadRoundTrip(t *testing.T) {
	words := []uint16{0x0001, 0xABCD, 0xFF00}
	buf := packWords(words)
	assert.Equal(t, []byte{0x01, 0x00, 0xCD, 0xAB, 0x00, 0xFF}, buf)

	got := make([]uint16, len(words))
	unpackWords(buf, got)
	assert.Equal(t, words, got)
}
