// Package linkcart drives a cartridge seated in a serial link programmer.
// The programmer exposes the cartridge bus over a USB serial port with a
// fixed-size request frame per bus access; this package adapts that protocol
// to the gbasave.Ports interface.
//
// Ports accesses cannot fail, so transport errors are latched: after the
// first failure every access becomes a no-op (reads return zero) and Err
// reports what went wrong.
package linkcart

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the programmer firmware ships with.
const DefaultBaudRate = 921600

// Cart is a cartridge reached through a serial link programmer. It
// implements gbasave.Ports.
type Cart struct {
	port serial.Port
	name string
	err  error
}

// Option configures the serial link.
type Option func(*serial.Mode)

// WithBaudRate overrides the default baud rate.
func WithBaudRate(rate int) Option {
	return func(m *serial.Mode) {
		m.BaudRate = rate
	}
}

// Open connects to the programmer on the named serial port.
func Open(name string, opts ...Option) (*Cart, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	for _, opt := range opts {
		opt(mode)
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("linkcart: opening %s: %w", name, err)
	}
	slog.Debug("link programmer connected", "port", name, "baud", mode.BaudRate)
	return &Cart{port: port, name: name}, nil
}

// Err returns the first transport error encountered, if any.
func (c *Cart) Err() error {
	return c.err
}

// Close releases the serial port.
func (c *Cart) Close() error {
	if err := c.port.Close(); err != nil {
		return fmt.Errorf("linkcart: closing %s: %w", c.name, err)
	}
	return nil
}

func (c *Cart) fail(err error) {
	if c.err == nil {
		c.err = err
		slog.Error("link transport failure; further accesses dropped", "port", c.name, "error", err)
	}
}

// sendAll writes the whole buffer, looping over short writes.
func (c *Cart) sendAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.port.Write(buf)
		if err != nil {
			return fmt.Errorf("linkcart: writing to %s: %w", c.name, err)
		}
		buf = buf[n:]
	}
	return nil
}

// recvAll reads until the buffer is full, looping over short reads.
func (c *Cart) recvAll(buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := c.port.Read(buf[off:])
		if err != nil {
			return fmt.Errorf("linkcart: reading from %s: %w", c.name, err)
		}
		if n == 0 {
			return fmt.Errorf("linkcart: reading from %s: port closed", c.name)
		}
		off += n
	}
	return nil
}

// roundTrip sends a request frame and an optional payload, then fills resp.
func (c *Cart) roundTrip(frame [frameSize]byte, payload, resp []byte) {
	if c.err != nil {
		return
	}
	if err := c.sendAll(frame[:]); err != nil {
		c.fail(err)
		return
	}
	if len(payload) > 0 {
		if err := c.sendAll(payload); err != nil {
			c.fail(err)
			return
		}
	}
	if err := c.recvAll(resp); err != nil {
		c.fail(err)
	}
}

// roundTripAck is roundTrip for requests answered by a single ack byte.
func (c *Cart) roundTripAck(frame [frameSize]byte, payload []byte) {
	var ack [1]byte
	c.roundTrip(frame, payload, ack[:])
	if c.err == nil && ack[0] != ackByte {
		c.fail(fmt.Errorf("linkcart: %s: bad ack 0x%02x", c.name, ack[0]))
	}
}

// ReadU8 implements gbasave.Ports.
func (c *Cart) ReadU8(addr uint32) byte {
	var resp [1]byte
	c.roundTrip(encodeFrame(opReadByte, addr, 0, 0), nil, resp[:])
	return resp[0]
}

// WriteU8 implements gbasave.Ports.
func (c *Cart) WriteU8(addr uint32, value byte) {
	c.roundTripAck(encodeFrame(opWriteByte, addr, uint16(value), 0), nil)
}

// ReadHalf implements gbasave.Ports.
func (c *Cart) ReadHalf(addr uint32) uint16 {
	var resp [2]byte
	c.roundTrip(encodeFrame(opReadHalf, addr, 0, 0), nil, resp[:])
	return uint16(resp[0]) | uint16(resp[1])<<8
}

// WriteHalf implements gbasave.Ports.
func (c *Cart) WriteHalf(addr uint32, value uint16) {
	c.roundTripAck(encodeFrame(opWriteHalf, addr, value, 0), nil)
}

// BurstOut implements gbasave.Ports. The programmer replays the payload as
// back-to-back halfword writes at the given address.
func (c *Cart) BurstOut(addr uint32, words []uint16) {
	if len(words) == 0 {
		return
	}
	c.roundTripAck(encodeFrame(opBurstOut, addr, 0, uint32(len(words))), packWords(words))
}

// BurstIn implements gbasave.Ports.
func (c *Cart) BurstIn(addr uint32, words []uint16) {
	if len(words) == 0 {
		return
	}
	buf := make([]byte, 2*len(words))
	c.roundTrip(encodeFrame(opBurstIn, addr, 0, uint32(len(words))), nil, buf)
	if c.err != nil {
		for i := range words {
			words[i] = 0
		}
		return
	}
	unpackWords(buf, words)
}
