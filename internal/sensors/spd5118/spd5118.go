// Package spd5118 reads the thermal sensor of a DDR5 SPD5118 hub over SMBus.
//
// This is the fallback path for boards where the spd5118 hwmon driver is not
// loaded (the sensor sits on the SPD bus at 0x50..0x57).
package spd5118

import (
	"fmt"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/smbus"
)

const (
	// MR0/MR1: device type, fixed 0x51 0x18.
	regTypeMSB = 0x00
	regTypeLSB = 0x01
	typeMSB    = 0x51
	typeLSB    = 0x18

	// MR49/MR50: sensed temperature, little endian.
	regTemp = 0x31
)

// AddrDefault is DIMM slot 0; slot n lives at 0x50+n.
const AddrDefault uint16 = 0x50

type regIO interface {
	ReadReg(reg byte, dst []byte) error
	ReadRegU16LE(reg byte) (uint16, error)
}

type Device struct {
	dev regIO
}

// New probes the hub's device type registers before accepting the device, so
// pointing the config at the wrong address fails loudly instead of feeding
// garbage temperatures into the fan curve.
func New(conn *smbus.Conn) (*Device, error) {
	if conn == nil {
		return nil, fmt.Errorf("spd5118: conn is nil")
	}
	return newWithIO(conn)
}

func newWithIO(dev regIO) (*Device, error) {
	var id [2]byte
	if err := dev.ReadReg(regTypeMSB, id[:]); err != nil {
		return nil, fmt.Errorf("spd5118: type read failed: %w", err)
	}
	if id[0] != typeMSB || id[1] != typeLSB {
		return nil, fmt.Errorf("spd5118: device type=0x%02X%02X want 0x%02X%02X", id[0], id[1], typeMSB, typeLSB)
	}
	return &Device{dev: dev}, nil
}

// TempC returns the sensed temperature in degrees Celsius.
//
// MR49/50 carry an 11-bit two's complement value in 0.25 degC steps, left
// shifted by two (bits 1:0 are reserved).
func (d *Device) TempC() (float64, error) {
	raw, err := d.dev.ReadRegU16LE(regTemp)
	if err != nil {
		return 0, fmt.Errorf("spd5118: temp read failed: %w", err)
	}
	v := int32(raw >> 2)
	if v&(1<<10) != 0 {
		v -= 1 << 11
	}
	return float64(v) * 0.25, nil
}
