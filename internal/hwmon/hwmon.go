// Package hwmon reads temperatures from the Linux hwmon sysfs class.
package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var sysfsBase = "/sys/class/hwmon"

// ReadTempC returns the hottest temperature reported by any hwmon chip whose
// name matches one of names (e.g. "k10temp", "spd5118"). Multiple chips and
// multiple temp inputs per chip are folded with max, which is the safe choice
// for fan control.
func ReadTempC(names []string) (float64, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("hwmon: no sensor names given")
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.TrimSpace(n)] = true
	}

	entries, err := os.ReadDir(sysfsBase)
	if err != nil {
		return 0, fmt.Errorf("hwmon: read %s: %w", sysfsBase, err)
	}

	best := 0.0
	found := false
	for _, e := range entries {
		dir := filepath.Join(sysfsBase, e.Name())
		name, err := readTrimmed(filepath.Join(dir, "name"))
		if err != nil || !wanted[name] {
			continue
		}
		if t, ok := chipMaxTempC(dir); ok {
			if !found || t > best {
				best = t
			}
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("hwmon: no chip named %s found", strings.Join(names, "/"))
	}
	return best, nil
}

// chipMaxTempC scans temp*_input attributes of one hwmon chip directory.
func chipMaxTempC(dir string) (float64, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "temp*_input"))
	if err != nil || len(matches) == 0 {
		return 0, false
	}
	best := 0.0
	found := false
	for _, m := range matches {
		s, err := readTrimmed(m)
		if err != nil {
			continue
		}
		t, err := parseTempC(s)
		if err != nil {
			continue
		}
		if !found || t > best {
			best = t
		}
		found = true
	}
	return best, found
}

// parseTempC parses a hwmon temperature attribute. These are usually
// milli-degrees C, but some drivers report plain degrees.
func parseTempC(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("hwmon: empty temp")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("hwmon: parse temp %q: %w", s, err)
	}
	if n > 1000 || n < -1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
