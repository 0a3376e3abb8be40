package spd5118

import (
	"fmt"
	"testing"
)

type fakeRegIO struct {
	typeMSB, typeLSB byte
	temp             uint16
	err              error
}

func (f *fakeRegIO) ReadReg(reg byte, dst []byte) error {
	if f.err != nil {
		return f.err
	}
	if reg == regTypeMSB && len(dst) == 2 {
		dst[0] = f.typeMSB
		dst[1] = f.typeLSB
		return nil
	}
	return fmt.Errorf("unexpected read reg=0x%02X len=%d", reg, len(dst))
}

func (f *fakeRegIO) ReadRegU16LE(reg byte) (uint16, error) {
	if f.err != nil {
		return 0, f.err
	}
	if reg != regTemp {
		return 0, fmt.Errorf("unexpected read reg=0x%02X", reg)
	}
	return f.temp, nil
}

func TestNew_ChecksDeviceType(t *testing.T) {
	if _, err := newWithIO(&fakeRegIO{typeMSB: 0x51, typeLSB: 0x18}); err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	if _, err := newWithIO(&fakeRegIO{typeMSB: 0xFF, typeLSB: 0xFF}); err == nil {
		t.Fatalf("expected device type mismatch error")
	}
	if _, err := newWithIO(&fakeRegIO{err: fmt.Errorf("nack")}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestTempC(t *testing.T) {
	cases := []struct {
		name string
		raw  uint16
		want float64
	}{
		// 42.5 degC = 170 quarter-steps, shifted left 2.
		{"positive", 170 << 2, 42.5},
		{"zero", 0, 0},
		// -10.25 degC = -41 quarter-steps, 11-bit two's complement.
		{"negative", uint16((2048-41)<<2) & 0x1FFF, -10.25},
		{"reserved bits ignored", (170 << 2) | 0x3, 42.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := newWithIO(&fakeRegIO{typeMSB: 0x51, typeLSB: 0x18, temp: tc.raw})
			if err != nil {
				t.Fatalf("newWithIO: %v", err)
			}
			got, err := d.TempC()
			if err != nil {
				t.Fatalf("TempC: %v", err)
			}
			if got != tc.want {
				t.Fatalf("TempC()=%v want %v", got, tc.want)
			}
		})
	}
}
