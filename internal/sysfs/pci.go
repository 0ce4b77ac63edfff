package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPciRoot is where the kernel exposes the PCI bus.
const DefaultPciRoot = "/sys/bus/pci"

// PciBus wraps the bus-level control surface (device listing and rescan).
type PciBus struct {
	root string
}

func NewPciBus(root string) *PciBus {
	return &PciBus{root: root}
}

// Rescan asks the kernel to re-enumerate the bus, recreating device nodes
// that were removed earlier.
func (b *PciBus) Rescan() error {
	return os.WriteFile(filepath.Join(b.root, "rescan"), []byte("1"), 0644)
}

// Devices lists every PCI function currently known to the kernel.
func (b *PciBus) Devices() ([]*PciDevice, error) {
	devDir := filepath.Join(b.root, "devices")
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list PCI devices: %w", err)
	}

	var devs []*PciDevice
	for _, entry := range entries {
		devs = append(devs, NewPciDevice(filepath.Join(devDir, entry.Name())))
	}
	return devs, nil
}

// PciDevice is a single PCI function, identified by its slot.function id
// (e.g. 0000:01:00.0).
type PciDevice struct {
	id   string
	path string
}

func NewPciDevice(path string) *PciDevice {
	return &PciDevice{id: filepath.Base(path), path: path}
}

func (d *PciDevice) ID() string {
	return d.id
}

func (d *PciDevice) Path() string {
	return d.path
}

// Exists reports whether the function's device node is still present.
// Functions vanish after Remove until the next bus rescan.
func (d *PciDevice) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// Vendor reads the function's PCI vendor id.
func (d *PciDevice) Vendor() (uint16, error) {
	v, err := d.readHexAttr("vendor")
	return uint16(v), err
}

// Class reads the function's PCI class code. The top byte identifies the
// device class (0x03 for display controllers).
func (d *PciDevice) Class() (uint32, error) {
	v, err := d.readHexAttr("class")
	return uint32(v), err
}

// Driver resolves the kernel driver currently bound to this function.
// Returns an error satisfying errors.Is(err, os.ErrNotExist) when nothing
// is bound.
func (d *PciDevice) Driver() (*PciDriver, error) {
	link := filepath.Join(d.path, "driver")
	target, err := os.Readlink(link)
	if err != nil {
		return nil, err
	}
	return &PciDriver{name: filepath.Base(target), path: link}, nil
}

// Remove deletes the function's device node from the kernel device tree.
func (d *PciDevice) Remove() error {
	return os.WriteFile(filepath.Join(d.path, "remove"), []byte("1"), 0644)
}

func (d *PciDevice) readHexAttr(name string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		return 0, err
	}
	text := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	value, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s attribute of %s: %w", name, d.id, err)
	}
	return value, nil
}

// PciDriver is the driver bound to some PCI function.
type PciDriver struct {
	name string
	path string
}

func (dr *PciDriver) Name() string {
	return dr.name
}

// Unbind releases the given function from this driver without removing
// the device node.
func (dr *PciDriver) Unbind(dev *PciDevice) error {
	return os.WriteFile(filepath.Join(dr.path, "unbind"), []byte(dev.ID()), 0644)
}
