package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultHwmonRoot is where the kernel exposes hardware monitor instances.
const DefaultHwmonRoot = "/sys/class/hwmon"

// HwMon is one hardware monitor instance: a directory of attribute files
// for sensors (temp*_input) and actuators (pwm*, pwm*_enable).
type HwMon struct {
	path string
}

// AllHwMons enumerates the hwmon instances under root.
func AllHwMons(root string) ([]*HwMon, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list hwmon instances: %w", err)
	}

	var mons []*HwMon
	for _, entry := range entries {
		mons = append(mons, &HwMon{path: filepath.Join(root, entry.Name())})
	}
	return mons, nil
}

func (h *HwMon) Path() string {
	return h.path
}

// Name reads the instance's driver name (the "name" attribute).
func (h *HwMon) Name() (string, error) {
	data, err := os.ReadFile(filepath.Join(h.path, "name"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// TempInput reads temp<channel>_input, in thousandths of a degree Celsius.
func (h *HwMon) TempInput(channel int) (int, error) {
	attr := fmt.Sprintf("temp%d_input", channel)
	data, err := os.ReadFile(filepath.Join(h.path, attr))
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", attr, err)
	}
	return value, nil
}

// WriteAttr writes a named attribute file on this instance.
func (h *HwMon) WriteAttr(name, value string) error {
	return os.WriteFile(filepath.Join(h.path, name), []byte(value), 0644)
}
