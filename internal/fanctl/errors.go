package fanctl

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBound means no firmware interface is currently bound. The device
	// is simply not present; retrying after a bind may succeed.
	ErrNotBound = errors.New("fanctl: wmi device not available")

	// ErrInvalidInput means the duty text could not be parsed. Independent of
	// hardware state.
	ErrInvalidInput = errors.New("fanctl: invalid duty value")

	// ErrCallFailed means the method call itself failed at the transport
	// level, before any firmware status was produced.
	ErrCallFailed = errors.New("fanctl: wmi method call failed")

	// ErrNoResult means the call mechanically succeeded but the firmware
	// produced no output container at all.
	ErrNoResult = errors.New("fanctl: no output from wmi method")
)

// FirmwareError is a mechanically successful call that the firmware answered
// with a nonzero status code. The code is opaque and firmware-defined.
type FirmwareError struct {
	Status uint8
}

func (e *FirmwareError) Error() string {
	return fmt.Sprintf("fanctl: firmware rejected request (status %d)", e.Status)
}
