package sram

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/memsim"
)

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func TestFullRoundTrip(t *testing.T) {
	cart := memsim.New(memsim.WithSram())
	s := New(cart)

	data := pattern(Capacity, 0x5A)
	n, err := s.Writer(gbasave.Full()).Write(data)
	assert.NoError(t, err)
	assert.Equal(t, Capacity, n)

	got := make([]byte, Capacity)
	rd := s.Reader(gbasave.Full())
	_, err = io.ReadFull(rd, got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	// The range is exhausted.
	_, err = rd.Read(got[:1])
	assert.ErrorIs(t, err, io.EOF)
}

func TestPartialRange(t *testing.T) {
	cart := memsim.New(memsim.WithSram())
	s := New(cart)

	data := pattern(58, 0x10)
	w := s.Writer(gbasave.Span(42, 100))
	n, err := w.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, 58, n)

	// Writing past the end of the range is an error.
	_, err = w.Write([]byte{0xFF})
	assert.ErrorIs(t, err, gbasave.ErrEndOfWriter)

	got := make([]byte, 58)
	_, err = io.ReadFull(s.Reader(gbasave.Closed(42, 99)), got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	// Neighbouring bytes are untouched.
	assert.Equal(t, byte(0), cart.PeekBackup(41))
	assert.Equal(t, byte(0), cart.PeekBackup(100))
}

func TestShortWriteBeforeEnd(t *testing.T) {
	cart := memsim.New(memsim.WithSram())
	w := New(cart).Writer(gbasave.To(4))

	// More data than the range holds: the writer takes what fits.
	n, err := w.Write(pattern(8, 0))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEmptyReads(t *testing.T) {
	cart := memsim.New(memsim.WithSram())
	rd := New(cart).Reader(gbasave.Span(10, 10))

	n, err := rd.Read(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = rd.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
}

func TestWriteFailure(t *testing.T) {
	cart := memsim.New(memsim.WithSramReadOnly())
	w := New(cart).Writer(gbasave.Full())

	n, err := w.Write([]byte{0x42})
	assert.ErrorIs(t, err, gbasave.ErrWriteFailure)
	assert.Zero(t, n)
}
