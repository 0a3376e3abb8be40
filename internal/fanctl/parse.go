package fanctl

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuty parses a duty percentage from text as written to a control
// endpoint: a base-10 non-negative integer, with surrounding whitespace and a
// trailing newline tolerated. Well-formed values above 100 are clamped to 100
// rather than rejected; anything else (negative, hex, garbage) fails with
// ErrInvalidInput.
func ParseDuty(text string) (int, error) {
	s := strings.TrimSpace(text)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInput, strings.TrimSpace(text))
	}
	if v > 100 {
		v = 100
	}
	return int(v), nil
}
