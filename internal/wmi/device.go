package wmi

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the firmware interface is not present (yet).
// Pollers treat it as "keep waiting", not as a hard failure.
var ErrUnavailable = errors.New("wmi: interface unavailable")

// GUID identifies the FEVM vendor ACPI-WMI block on the FA880 PRO mainboard.
const GUID = "99D89064-8D50-42BB-BEA9-155B2E5D0FCD"

const (
	// DefaultCallPath is where the acpi_call module exposes its interface.
	DefaultCallPath = "/proc/acpi/call"
	// DefaultControlMethod is the WMI mapper method for the FEVM data block.
	// Block "AA" is the first (and only) method block the FA880 PRO DSDT maps.
	DefaultControlMethod = `\_SB.AMW0.WMAA`
)

// MethodSetFanControl is the method selector for the firmware fan duty setter.
//
// Input is exactly two bytes, [fan_number, fan_duty] with fan_number in {1,2}.
// Output is a single status value, 0 on success.
const MethodSetFanControl uint32 = 3

// Device is an open handle to the firmware management interface.
//
// Evaluate is synchronous; any timeout is the backend's business. A non-nil
// error means the call itself failed (transport level) and the returned Object
// must be ignored. A nil error with a nil Object means the firmware produced
// no output container at all — callers treat that as its own failure.
//
// Implementations need not be safe for concurrent Evaluate calls; the
// controller serializes access.
type Device interface {
	Evaluate(ctx context.Context, method uint32, input []byte) (*Object, error)
	Close() error
}
