package flash

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

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

func fastTiming() Option {
	return WithTiming(mmio.Timing{
		SettleLoops: 1,
		VerifyLoops: 50,
		ReadyLoops:  50,
	})
}

func TestIdentifyVariants(t *testing.T) {
	tests := []struct {
		name string
		id   uint16
		want interface{}
	}{
		{name: "MX29L010", id: memsim.IDMacronix128K, want: &Flash128K{}},
		{name: "LE26FV10N1TS", id: memsim.IDSanyo128K, want: &Flash128K{}},
		{name: "MN63F805MNP", id: memsim.IDPanasonic64K, want: &Flash64K{}},
		{name: "MX29L512", id: memsim.IDMacronix64K, want: &Flash64K{}},
		{name: "AT29LV512", id: memsim.IDAtmel64K, want: &Flash64KAtmel{}},
		{name: "LE39FW512", id: memsim.IDSST64K, want: &Flash64K{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := memsim.New(memsim.WithFlash(tt.id))
			dev, err := Identify(cart, fastTiming())
			assert.NoError(t, err)
			assert.IsType(t, tt.want, dev)
			assert.Equal(t, tt.name, dev.DeviceName())
		})
	}
}

func TestIdentifyUnknownDevice(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(0xBEEF))
	_, err := Identify(cart, fastTiming())

	var unknown UnknownDeviceIDError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(0xBEEF), unknown.ID)
}

func TestUnlockSequencePrecedesCommand(t *testing.T) {
	ports := new(mockPorts)
	ports.On("WriteU8", mock.Anything, mock.Anything).Return()

	e := engine{ports: ports, timing: mmio.DefaultTiming()}
	e.sendCommand(cmdWrite)

	if assert.Len(t, ports.Calls, 3) {
		assert.Equal(t, commandAddr, ports.Calls[0].Arguments.Get(0))
		assert.Equal(t, cmdEnable, ports.Calls[0].Arguments.Get(1))
		assert.Equal(t, commandEnableAddr, ports.Calls[1].Arguments.Get(0))
		assert.Equal(t, enableByte, ports.Calls[1].Arguments.Get(1))
		assert.Equal(t, commandAddr, ports.Calls[2].Arguments.Get(0))
		assert.Equal(t, cmdWrite, ports.Calls[2].Arguments.Get(1))
	}
}

func TestReset(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDSST64K))
	for i := 0; i < Capacity64K; i += 997 {
		cart.PokeBackup(i, 0x00)
	}

	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	assert.NoError(t, dev.Reset())

	for i := 0; i < Capacity64K; i += 997 {
		assert.Equal(t, byte(0xFF), cart.PeekBackup(i))
	}
}

func TestRoundTrip64K(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDSST64K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash64K)

	data := pattern(1000, 0x42)
	w := f.Writer(gbasave.Span(42, 1042))
	n, err := w.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, 1000, n)

	// Writing past the end of the range is an error.
	_, err = w.Write([]byte{0x00})
	assert.ErrorIs(t, err, gbasave.ErrEndOfWriter)

	got := make([]byte, 1000)
	_, err = io.ReadFull(f.Reader(gbasave.Span(42, 1042)), got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	// Memory outside the range is still erased.
	assert.Equal(t, byte(0xFF), cart.PeekBackup(41))
	assert.Equal(t, byte(0xFF), cart.PeekBackup(1042))
}

func TestEraseSectors64K(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDSST64K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash64K)

	for _, off := range []int{0x0000, 0x1000, 0x2000, 0x3000} {
		cart.PokeBackup(off, 0x00)
	}

	assert.NoError(t, f.EraseSectors(gbasave.Closed(1, 2)))

	assert.Equal(t, byte(0x00), cart.PeekBackup(0x0000))
	assert.Equal(t, byte(0xFF), cart.PeekBackup(0x1000))
	assert.Equal(t, byte(0xFF), cart.PeekBackup(0x2000))
	assert.Equal(t, byte(0x00), cart.PeekBackup(0x3000))
}

// Programming can only clear bits; rewriting without an erase never settles
// on the requested value.
func TestRewriteWithoutErase(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDSST64K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash64K)

	_, err = f.Writer(gbasave.To(1)).Write([]byte{0x00})
	assert.NoError(t, err)

	_, err = f.Writer(gbasave.To(1)).Write([]byte{0x55})
	assert.ErrorIs(t, err, gbasave.ErrOperationTimedOut)
}

func TestRoundTrip128KAcrossBanks(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDMacronix128K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash128K)

	data := pattern(16, 0x80)
	w := f.Writer(gbasave.Span(0xFFF8, 0x10008))
	before := cart.FlashBankSwitches()
	n, err := w.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, 16, n)

	// Crossing the boundary costs exactly one bank switch.
	assert.Equal(t, before+1, cart.FlashBankSwitches())

	got := make([]byte, 16)
	_, err = io.ReadFull(f.Reader(gbasave.Span(0xFFF8, 0x10008)), got)
	assert.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEraseSectors128KAcrossBanks(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDMacronix128K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash128K)

	for _, off := range []int{0xF000, 0x10000, 0x11000} {
		cart.PokeBackup(off, 0x00)
	}

	// Sectors 15 and 16 straddle the bank boundary.
	assert.NoError(t, f.EraseSectors(gbasave.Closed(15, 16)))

	assert.Equal(t, byte(0xFF), cart.PeekBackup(0xF000))
	assert.Equal(t, byte(0xFF), cart.PeekBackup(0x10000))
	assert.Equal(t, byte(0x00), cart.PeekBackup(0x11000))
}

func TestAtmelPageWriter(t *testing.T) {
	cart := memsim.New(memsim.WithFlash(memsim.IDAtmel64K))
	dev, err := Identify(cart, fastTiming())
	assert.NoError(t, err)
	f := dev.(*Flash64KAtmel)

	// Existing data in front of the range must survive the page rewrite.
	front := pattern(42, 0x11)
	for i, b := range front {
		cart.PokeBackup(i, b)
	}

	data := pattern(100, 0xC0)
	w := f.Writer(gbasave.Span(42, 142))
	n, err := w.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.NoError(t, w.Close())

	got := make([]byte, 256)
	_, err = io.ReadFull(f.Reader(gbasave.To(256)), got)
	assert.NoError(t, err)

	want := make([]byte, 256)
	for i := range want {
		want[i] = 0xFF
	}
	copy(want, front)
	copy(want[42:], data)
	assert.Equal(t, want, got)

	// Close is idempotent.
	assert.NoError(t, w.Close())
}

// A dead bus drops writes and reads back nothing, so a programmed page never
// settles: the verify poll must expire with a timeout, and the cursor must
// stay consistent so the writer still stops at its range end.
func TestAtmelPageVerifyTimeout(t *testing.T) {
	eng := &engine{ports: inertPorts{}, timing: mmio.Timing{
		SettleLoops: 1,
		VerifyLoops: 5,
		ReadyLoops:  5,
	}}
	w := newWriterAtmel(eng, 0, 2*pageSize)

	n, err := w.Write(pattern(2*pageSize, 0x01))
	assert.ErrorIs(t, err, gbasave.ErrOperationTimedOut)
	assert.Equal(t, pageSize, n)
	assert.Equal(t, pageSize, w.off)
	assert.Equal(t, pageSize, w.remaining)

	n, err = w.Write(pattern(2*pageSize, 0x01))
	assert.ErrorIs(t, err, gbasave.ErrOperationTimedOut)
	assert.Equal(t, pageSize, n)
	assert.Zero(t, w.remaining)

	_, err = w.Write([]byte{0x00})
	assert.ErrorIs(t, err, gbasave.ErrEndOfWriter)
	assert.NoError(t, w.Close())
}

// inertPorts is a bus with nothing behind it.
type inertPorts struct{}

func (inertPorts) ReadU8(addr uint32) byte { return 0x00 }

func (inertPorts) WriteU8(addr uint32, value byte) {}

func (inertPorts) ReadHalf(addr uint32) uint16 { return 0 }

func (inertPorts) WriteHalf(addr uint32, value uint16) {}

func (inertPorts) BurstOut(addr uint32, words []uint16) {}

func (inertPorts) BurstIn(addr uint32, words []uint16) {}

// mockPorts is a mock bus capability using testify/mock.
type mockPorts struct {
	mock.Mock
}

func (m *mockPorts) ReadU8(addr uint32) byte {
	args := m.Called(addr)
	return args.Get(0).(byte)
}

func (m *mockPorts) WriteU8(addr uint32, value byte) {
	m.Called(addr, value)
}

func (m *mockPorts) ReadHalf(addr uint32) uint16 {
	args := m.Called(addr)
	return args.Get(0).(uint16)
}

func (m *mockPorts) WriteHalf(addr uint32, value uint16) {
	m.Called(addr, value)
}

func (m *mockPorts) BurstOut(addr uint32, words []uint16) {
	m.Called(addr, words)
}

func (m *mockPorts) BurstIn(addr uint32, words []uint16) {
	m.Called(addr, words)
}
