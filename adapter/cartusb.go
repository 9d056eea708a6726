// Package adapter drives a USB HID cartridge dongle. The dongle proxies
// single bus accesses and halfword bursts over 64-byte HID reports; this
// package adapts that report protocol to the gbasave.Ports interface.
package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"
)

const VendorID = 0x16C0
const ProductID = 0x05DC

var ErrDeviceNotFound = errors.New("cartridge dongle not found")
var ErrAmbiguousDevice = errors.New("ambiguous device identification")

const reportSize = 64

// Dongle commands, placed in report byte 0.
const (
	cmdReadByte  = 0x10
	cmdWriteByte = 0x11
	cmdReadHalf  = 0x12
	cmdWriteHalf = 0x13
	cmdBurstOut  = 0x14
	cmdBurstIn   = 0x15
)

// payloadWords is how many halfwords fit in one report after the header.
const payloadWords = (reportSize - 9) / 2

// CartUSB is a cartridge reached through the USB dongle. It implements
// gbasave.Ports; transport errors are latched and reported by Err since
// Ports accesses cannot fail.
type CartUSB struct {
	mx           sync.Mutex
	dev          *hid.Device
	request      []byte
	response     []byte
	responseWait time.Duration
	err          error
}

// Open enumerates the dongle and claims it. With several dongles attached
// the index selects which one; omitting it with several attached is an
// error.
func Open(index ...int) (*CartUSB, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if len(devs) > 1 && len(index) == 0 {
		return nil, ErrAmbiguousDevice
	}
	i := 0
	if len(index) > 0 {
		i = index[0]
		if i < 0 || i >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", i)
		}
	}
	dev, err := devs[i].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	slog.Debug("cartridge dongle connected", "serial", devs[i].Serial)
	return &CartUSB{
		dev:          dev,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 5 * time.Millisecond,
	}, nil
}

// Err returns the first transport error encountered, if any.
func (d *CartUSB) Err() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.err
}

// Close releases the USB device.
func (d *CartUSB) Close() error {
	return d.dev.Close()
}

func (d *CartUSB) fail(err error) {
	if d.err == nil {
		d.err = err
		slog.Error("dongle transport failure; further accesses dropped", "error", err)
	}
}

func (d *CartUSB) resetBuffers() {
	for i := range d.request {
		d.request[i] = 0x00
	}
	for i := range d.response {
		d.response[i] = 0x00
	}
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// send transmits the request report and reads the response report. The
// caller must hold the mutex and have filled the request buffer.
func (d *CartUSB) send() error {
	n, err := d.dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	time.Sleep(d.responseWait)
	n, err = d.dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("command echo mismatch: sent 0x%02x, got 0x%02x", d.request[0], d.response[0])
	}
	return nil
}

// header fills the common request layout: command, address, halfword count.
func (d *CartUSB) header(cmd byte, addr uint32, count int) {
	d.resetBuffers()
	d.request[0] = cmd
	putUint32(d.request[1:5], addr)
	putUint32(d.request[5:9], uint32(count))
}

// ReadU8 implements gbasave.Ports.
func (d *CartUSB) ReadU8(addr uint32) byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return 0
	}
	d.header(cmdReadByte, addr, 0)
	if err := d.send(); err != nil {
		d.fail(err)
		return 0
	}
	return d.response[1]
}

// WriteU8 implements gbasave.Ports.
func (d *CartUSB) WriteU8(addr uint32, value byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return
	}
	d.header(cmdWriteByte, addr, 0)
	d.request[9] = value
	if err := d.send(); err != nil {
		d.fail(err)
	}
}

// ReadHalf implements gbasave.Ports.
func (d *CartUSB) ReadHalf(addr uint32) uint16 {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return 0
	}
	d.header(cmdReadHalf, addr, 0)
	if err := d.send(); err != nil {
		d.fail(err)
		return 0
	}
	return uint16(d.response[1]) | uint16(d.response[2])<<8
}

// WriteHalf implements gbasave.Ports.
func (d *CartUSB) WriteHalf(addr uint32, value uint16) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return
	}
	d.header(cmdWriteHalf, addr, 0)
	d.request[9] = byte(value)
	d.request[10] = byte(value >> 8)
	if err := d.send(); err != nil {
		d.fail(err)
	}
}

// BurstOut implements gbasave.Ports. Long bursts are split across reports;
// the dongle replays each chunk as back-to-back halfword writes.
func (d *CartUSB) BurstOut(addr uint32, words []uint16) {
	d.mx.Lock()
	defer d.mx.Unlock()
	for len(words) > 0 {
		if d.err != nil {
			return
		}
		chunk := min(len(words), payloadWords)
		d.header(cmdBurstOut, addr, chunk)
		for i, w := range words[:chunk] {
			d.request[9+2*i] = byte(w)
			d.request[10+2*i] = byte(w >> 8)
		}
		if err := d.send(); err != nil {
			d.fail(err)
			return
		}
		words = words[chunk:]
	}
}

// BurstIn implements gbasave.Ports.
func (d *CartUSB) BurstIn(addr uint32, words []uint16) {
	d.mx.Lock()
	defer d.mx.Unlock()
	for i := range words {
		words[i] = 0
	}
	for off := 0; off < len(words); {
		if d.err != nil {
			return
		}
		chunk := min(len(words)-off, payloadWords)
		d.header(cmdBurstIn, addr, chunk)
		if err := d.send(); err != nil {
			d.fail(err)
			return
		}
		for i := 0; i < chunk; i++ {
			words[off+i] = uint16(d.response[1+2*i]) | uint16(d.response[2+2*i])<<8
		}
		off += chunk
	}
}
