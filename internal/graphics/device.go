package graphics

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hwctl/laptop-powerd/internal/sysfs"
)

// GraphicsDevice is one logical GPU: the PCI functions sharing a slot.
// Unbind and Remove talk straight to the kernel's device tree and can
// destabilize a function the kernel is actively using; only the switching
// engine calls them, and only after checking what is bound.
type GraphicsDevice struct {
	id        string
	functions []*sysfs.PciDevice
}

func NewGraphicsDevice(id string, functions []*sysfs.PciDevice) *GraphicsDevice {
	return &GraphicsDevice{id: id, functions: functions}
}

func (d *GraphicsDevice) ID() string {
	return d.id
}

// Exists reports whether any of the device's functions still has a device
// node. Functions vanish after Remove until the next bus rescan.
func (d *GraphicsDevice) Exists() bool {
	for _, fn := range d.functions {
		if fn.Exists() {
			return true
		}
	}
	return false
}

// Unbind releases every still-present function from its driver. A function
// with nothing bound is skipped; any other driver lookup failure aborts the
// remaining functions.
func (d *GraphicsDevice) Unbind() error {
	for _, fn := range d.functions {
		if !fn.Exists() {
			continue
		}

		driver, err := fn.Driver()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("PCI driver error on %s: %w", d.id, err)
		}

		log.Info().Str("driver", driver.Name()).Str("function", fn.ID()).Msg("Unbinding")
		if err := driver.Unbind(fn); err != nil {
			return fmt.Errorf("failed to unbind %s on PCI driver %s: %w", fn.ID(), driver.Name(), err)
		}
	}

	return nil
}

// Remove deletes every function's device node. A function with a driver
// still bound fails with DeviceInUseError; callers must Unbind first. A
// function that no longer exists is skipped, so repeated calls are no-ops.
func (d *GraphicsDevice) Remove() error {
	for _, fn := range d.functions {
		if !fn.Exists() {
			log.Warn().Str("function", fn.ID()).Msg("Already removed")
			continue
		}

		driver, err := fn.Driver()
		if err == nil {
			log.Error().Str("function", fn.ID()).Str("driver", driver.Name()).Msg("Device is in use")
			return &DeviceInUseError{Func: fn.ID(), Driver: driver.Name()}
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("PCI driver error on %s: %w", d.id, err)
		}

		log.Info().Str("function", fn.ID()).Msg("Removing")
		if err := fn.Remove(); err != nil {
			return fmt.Errorf("failed to remove PCI device %s: %w", d.id, err)
		}
	}

	return nil
}
