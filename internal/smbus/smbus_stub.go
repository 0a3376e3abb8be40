//go:build !linux

package smbus

import "fmt"

type Conn struct{}

func Open(bus string, addr uint16) (*Conn, error) {
	return nil, fmt.Errorf("smbus: unsupported OS (need linux)")
}

func (c *Conn) Close() error                          { return nil }
func (c *Conn) ReadReg(reg byte, dst []byte) error    { return fmt.Errorf("smbus: unsupported OS") }
func (c *Conn) ReadRegU16LE(reg byte) (uint16, error) { return 0, fmt.Errorf("smbus: unsupported OS") }
func (c *Conn) WriteReg(reg, value byte) error        { return fmt.Errorf("smbus: unsupported OS") }
