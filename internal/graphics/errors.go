package graphics

import (
	"errors"
	"fmt"
)

// ErrNotSwitchable is returned by every switching operation on a machine
// without a discrete/integrated GPU pair.
var ErrNotSwitchable = errors.New("does not have switchable graphics")

// DeviceInUseError reports a removal blocked by a still-bound driver.
// Callers must unbind before removing; Remove never force-unbinds.
type DeviceInUseError struct {
	Func   string
	Driver string
}

func (e *DeviceInUseError) Error() string {
	return fmt.Sprintf("%s in use by %s", e.Func, e.Driver)
}

// CommandError reports an external command that could not be invoked at
// all, as opposed to one that ran and exited non-zero.
type CommandError struct {
	Cmd string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("failed to execute %s command: %v", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// InitramfsError reports a failed boot image regeneration. MissingTools
// means no known generator was found on the system.
type InitramfsError struct {
	Cmd          string
	Status       int
	MissingTools bool
}

func (e *InitramfsError) Error() string {
	if e.MissingTools {
		return "no initramfs generator found on this system"
	}
	return fmt.Sprintf("%s failed with status %d", e.Cmd, e.Status)
}
