//go:build linux

package smbus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux backend over /dev/i2c-*. Register reads use I2C_RDWR so the address
// write and the data read go out as one combined transaction (repeated
// start); the SPD5118 hub NACKs a plain read that follows a stop.

const (
	i2cMsgRead = 0x0001
	i2cRdwr    = 0x0707
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2cRdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Conn is one device on one I2C bus.
type Conn struct {
	f    *os.File
	addr uint16
}

// Open opens the bus device (e.g. /dev/i2c-0) for a single 7-bit address.
func Open(bus string, addr uint16) (*Conn, error) {
	if addr == 0 || addr > 0x7F {
		return nil, fmt.Errorf("smbus: invalid addr 0x%X", addr)
	}
	f, err := os.OpenFile(filepath.Clean(bus), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("smbus: open %s: %w", bus, err)
	}
	return &Conn{f: f, addr: addr}, nil
}

func (c *Conn) Close() error {
	if c == nil || c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

// ReadReg reads len(dst) bytes starting at register reg.
func (c *Conn) ReadReg(reg byte, dst []byte) error {
	w := [1]byte{reg}
	return c.tx(w[:], dst)
}

// ReadRegU16LE reads a little-endian 16-bit register.
func (c *Conn) ReadRegU16LE(reg byte) (uint16, error) {
	var b [2]byte
	if err := c.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// WriteReg writes one byte to register reg.
func (c *Conn) WriteReg(reg, value byte) error {
	return c.tx([]byte{reg, value}, nil)
}

func (c *Conn) tx(w, r []byte) error {
	if c == nil || c.f == nil {
		return errors.New("smbus: connection closed")
	}

	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: c.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: c.addr, flags: i2cMsgRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	data := i2cRdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, c.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("smbus: transfer to 0x%02X: %w", c.addr, errno)
	}
	return nil
}
