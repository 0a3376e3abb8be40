//go:build linux

package wmi

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Linux backend that evaluates the vendor control method through the
// acpi_call debug interface (/proc/acpi/call).
//
// The kernel's WMI bus has no generic userspace passthrough, so we go through
// the mapper's control method directly: write
//
//	<method> <instance> <method_id> b<hex input>
//
// to the call file, then read the textual result back. acpi_call renders an
// ACPI integer as "0x..", a buffer as "{0x.., 0x..}" and call failures as
// "Error: AE_...".

type acpiCallDevice struct {
	callPath string
	method   string
}

// Open opens the firmware management interface.
//
// Returns ErrUnavailable (wrapped) while the acpi_call interface is not
// present, so a poller can keep waiting quietly.
func Open(callPath, method string) (Device, error) {
	if callPath == "" {
		callPath = DefaultCallPath
	}
	if method == "" {
		method = DefaultControlMethod
	}
	if _, err := os.Stat(callPath); err != nil {
		return nil, fmt.Errorf("wmi: %s: %w", callPath, ErrUnavailable)
	}
	return &acpiCallDevice{callPath: callPath, method: method}, nil
}

func (d *acpiCallDevice) Evaluate(ctx context.Context, method uint32, input []byte) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := formatCallCommand(d.method, method, input)
	if err := os.WriteFile(d.callPath, []byte(cmd), 0); err != nil {
		return nil, fmt.Errorf("wmi: write %s: %w", d.callPath, err)
	}

	// acpi_call hands the result back on the next read of the same file.
	out, err := os.ReadFile(d.callPath)
	if err != nil {
		return nil, fmt.Errorf("wmi: read %s: %w", d.callPath, err)
	}
	return parseCallResult(string(out))
}

func (d *acpiCallDevice) Close() error {
	// Nothing held open between calls.
	return nil
}

// formatCallCommand renders an acpi_call command line for a WMI method
// evaluation with a buffer argument. Instance is always 0 for this block.
func formatCallCommand(controlMethod string, method uint32, input []byte) string {
	return fmt.Sprintf("%s 0 %d b%s", controlMethod, method, hex.EncodeToString(input))
}

// parseCallResult interprets acpi_call's textual result.
//
// A nil Object with nil error is returned when the module reports it was never
// called ("not called"), which matches a missing output container.
func parseCallResult(raw string) (*Object, error) {
	s := strings.TrimRight(raw, "\x00")
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return nil, nil
	case s == "not called":
		return nil, nil
	case strings.HasPrefix(s, "Error:"):
		return nil, fmt.Errorf("wmi: acpi call failed: %s", strings.TrimSpace(strings.TrimPrefix(s, "Error:")))
	case strings.HasPrefix(s, "0x"):
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return &Object{Type: TypeOther}, nil
		}
		return IntegerObject(v), nil
	case strings.HasPrefix(s, "{"):
		return parseBufferResult(s)
	default:
		return &Object{Type: TypeOther}, nil
	}
}

func parseBufferResult(s string) (*Object, error) {
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return &Object{Type: TypeOther}, nil
	}
	inner := strings.TrimSpace(s[1:end])
	if inner == "" {
		return BufferObject(nil), nil
	}
	parts := strings.Split(inner, ",")
	buf := make([]byte, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "0x")
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return &Object{Type: TypeOther}, nil
		}
		buf = append(buf, byte(v))
	}
	return BufferObject(buf), nil
}
