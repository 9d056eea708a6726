package eeprom

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/memsim"
	"github.com/gbakit/gbasave/mmio"
)

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func TestFullRoundTrip512B(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B())
	dev := New512B(cart)

	data := pattern(Capacity512B, 0xA0)
	w := dev.Writer(gbasave.Full())
	n, err := w.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, Capacity512B, n)
	assert.NoError(t, w.Close())

	got := make([]byte, Capacity512B)
	rd := dev.Reader(gbasave.Full())
	_, err = io.ReadFull(rd, got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = rd.Read(got[:1])
	assert.ErrorIs(t, err, io.EOF)
}

func TestFullRoundTrip8K(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom8K())
	dev := New8K(cart)

	data := pattern(Capacity8K, 0x33)
	w := dev.Writer(gbasave.Full())
	_, err := w.Write(data)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	got := make([]byte, Capacity8K)
	_, err = io.ReadFull(dev.Reader(gbasave.Full()), got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)
}

// An unaligned range must not clobber the rest of the sectors it touches.
func TestUnalignedWritePreservesNeighbours(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B())
	dev := New512B(cart)

	base := pattern(Capacity512B, 0x01)
	w := dev.Writer(gbasave.Full())
	_, err := w.Write(base)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	// Rewrite bytes 3..12: mid-sector start in sector 0, mid-sector end in
	// sector 1.
	patch := pattern(10, 0xE0)
	w = dev.Writer(gbasave.Span(3, 13))
	n, err := w.Write(patch)
	assert.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.NoError(t, w.Close())

	want := append([]byte{}, base...)
	copy(want[3:13], patch)
	got := make([]byte, Capacity512B)
	_, err = io.ReadFull(dev.Reader(gbasave.Full()), got)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUnalignedRead(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B())
	dev := New512B(cart)

	data := pattern(Capacity512B, 0x70)
	w := dev.Writer(gbasave.Full())
	_, err := w.Write(data)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	got := make([]byte, 21)
	_, err = io.ReadFull(dev.Reader(gbasave.Closed(5, 25)), got)
	assert.NoError(t, err)
	assert.Equal(t, data[5:26], got)
}

func TestWriterEndOfRange(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B())
	w := New512B(cart).Writer(gbasave.To(8))

	// More data than the range holds: the writer takes what fits.
	n, err := w.Write(pattern(16, 0))
	assert.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = w.Write([]byte{0xFF})
	assert.ErrorIs(t, err, gbasave.ErrEndOfWriter)
	assert.NoError(t, w.Close())
}

func TestFlushWithoutPendingSector(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B())
	w := New512B(cart).Writer(gbasave.Full())
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
	// Close is idempotent.
	assert.NoError(t, w.Close())
}

func TestWriteTimeout(t *testing.T) {
	cart := memsim.New(memsim.WithEeprom512B(), memsim.WithEepromStuckBusy())
	dev := New512B(cart, WithTiming(mmio.Timing{
		SettleLoops: 1,
		VerifyLoops: 1,
		ReadyLoops:  50,
	}))

	w := dev.Writer(gbasave.Full())
	_, err := w.Write(pattern(8, 0))
	assert.ErrorIs(t, err, gbasave.ErrOperationTimedOut)
}
