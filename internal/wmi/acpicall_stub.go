//go:build !linux

package wmi

import "fmt"

// Stub for non-Linux platforms. The FEVM interface is ACPI-WMI and only
// reachable from Linux here.
func Open(callPath, method string) (Device, error) {
	return nil, fmt.Errorf("wmi: %w on this platform", ErrUnavailable)
}
