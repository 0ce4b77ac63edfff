package graphics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hwctl/laptop-powerd/internal/kmod"
	"github.com/hwctl/laptop-powerd/internal/sysfs"
)

const fallbackService = "nvidia-fallback.service"

const modprobeNvidia = `# Automatically generated by laptop-powerd
`

const modprobeHybrid = `# Automatically generated by laptop-powerd
# http://download.nvidia.com/XFree86/Linux-x86_64/435.17/README/dynamicpowermanagement.html
options nvidia NVreg_DynamicPowerManagement=0x02
blacklist i2c_nvidia_gpu
alias i2c_nvidia_gpu off
`

const modprobeIntegrated = `# Automatically generated by laptop-powerd
blacklist i2c_nvidia_gpu
blacklist nouveau
blacklist nvidia
blacklist nvidia-drm
blacklist nvidia-modeset
alias i2c_nvidia_gpu off
alias nouveau off
alias nvidia off
alias nvidia-drm off
alias nvidia-modeset off
`

// Seams for tests; runCommand returns the command's exit status once it
// was successfully spawned.
var (
	runCommand = func(name string, args ...string) (int, error) {
		cmd := exec.Command(name, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		if err == nil {
			return 0, nil
		}
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return exit.ExitCode(), nil
		}
		return 0, err
	}
	lookPath = exec.LookPath
)

// Graphics is the switching engine. The vendor-partitioned device lists
// are built once by Discover and read-only afterward; observing topology
// changes requires a fresh Discover.
type Graphics struct {
	Amd    []*GraphicsDevice
	Intel  []*GraphicsDevice
	Nvidia []*GraphicsDevice
	Other  []*GraphicsDevice

	bus          *sysfs.PciBus
	modes        ModeStore
	modprobePath string
	listModules  func() ([]kmod.Module, error)
}

// Discover rescans the PCI bus, then classifies every display-class
// function group by vendor.
func Discover(bus *sysfs.PciBus, modes ModeStore, modprobePath string) (*Graphics, error) {
	log.Info().Msg("Rescanning PCI bus")
	if err := bus.Rescan(); err != nil {
		return nil, fmt.Errorf("failed to rescan PCI bus: %w", err)
	}

	devs, err := bus.Devices()
	if err != nil {
		return nil, err
	}

	// All functions sharing the parent's slot belong to the same card.
	functions := func(parent *sysfs.PciDevice) []*sysfs.PciDevice {
		parentSlot, _, _ := strings.Cut(parent.ID(), ".")
		var funcs []*sysfs.PciDevice
		for _, fn := range devs {
			funcSlot, _, _ := strings.Cut(fn.ID(), ".")
			if funcSlot == parentSlot {
				log.Info().Str("function", fn.ID()).Str("device", parent.ID()).Msg("Function")
				funcs = append(funcs, fn)
			}
		}
		return funcs
	}

	g := &Graphics{
		bus:          bus,
		modes:        modes,
		modprobePath: modprobePath,
		listModules:  kmod.All,
	}

	for _, dev := range devs {
		class, err := dev.Class()
		if err != nil {
			return nil, fmt.Errorf("failed to read class of %s: %w", dev.ID(), err)
		}
		if (class>>16)&0xFF != 0x03 {
			continue
		}

		vendor, err := dev.Vendor()
		if err != nil {
			return nil, fmt.Errorf("failed to read vendor of %s: %w", dev.ID(), err)
		}

		gd := NewGraphicsDevice(dev.ID(), functions(dev))
		switch vendor {
		case 0x1002:
			log.Info().Str("device", dev.ID()).Msg("AMD graphics")
			g.Amd = append(g.Amd, gd)
		case 0x10DE:
			log.Info().Str("device", dev.ID()).Msg("NVIDIA graphics")
			g.Nvidia = append(g.Nvidia, gd)
		case 0x8086:
			log.Info().Str("device", dev.ID()).Msg("Intel graphics")
			g.Intel = append(g.Intel, gd)
		default:
			log.Info().Str("device", dev.ID()).Uint16("vendor", vendor).Msg("Other graphics")
			g.Other = append(g.Other, gd)
		}
	}

	return g, nil
}

// CanSwitch reports whether this machine has both a discrete NVIDIA GPU
// and an integrated (Intel or AMD) GPU.
func (g *Graphics) CanSwitch() bool {
	return len(g.Nvidia) > 0 && (len(g.Intel) > 0 || len(g.Amd) > 0)
}

// Vendor reports the active graphics vendor: "integrated" when no NVIDIA
// module is loaded, otherwise "hybrid" or "nvidia" per the persisted mode.
func (g *Graphics) Vendor() (string, error) {
	modules, err := g.listModules()
	if err != nil {
		return "", fmt.Errorf("failed to fetch list of active kernel modules: %w", err)
	}

	loaded := false
	for _, module := range modules {
		if module.Name == "nouveau" || module.Name == "nvidia" {
			loaded = true
			break
		}
	}
	if !loaded {
		return "integrated", nil
	}

	mode, err := g.modes.Get()
	if err != nil {
		// Assume the discrete GPU is primary when the mode file is gone.
		mode = "nvidia"
	}
	if mode == "on-demand" {
		return "hybrid", nil
	}
	return "nvidia", nil
}

// SetVendor persists the vendor mode, rewrites the modprobe config,
// toggles the fallback service, and regenerates the initramfs. Each
// step's failure aborts the rest, except the service toggle which is
// tolerated since the service may not exist.
func (g *Graphics) SetVendor(vendor string) error {
	if err := g.switchableOrFail(); err != nil {
		return err
	}

	mode := "off"
	switch vendor {
	case "hybrid":
		mode = "on-demand"
	case "nvidia":
		mode = "on"
	}
	log.Info().Str("mode", mode).Msg("Persisting graphics mode")
	if err := g.modes.Set(mode); err != nil {
		return err
	}

	text := modprobeIntegrated
	switch vendor {
	case "hybrid":
		text = modprobeHybrid
	case "nvidia":
		text = modprobeNvidia
	}
	log.Info().Str("path", g.modprobePath).Msg("Writing modprobe config")
	if err := writeModprobe(g.modprobePath, text); err != nil {
		return err
	}

	action := "disable"
	if vendor == "nvidia" {
		action = "enable"
	}
	log.Info().Str("action", action).Str("service", fallbackService).Msg("Toggling fallback service")
	status, err := runCommand("systemctl", action, fallbackService)
	if err != nil {
		return &CommandError{Cmd: "systemctl", Err: err}
	}
	if status != 0 {
		log.Warn().Int("status", status).Msg("systemctl failed (not an error if the service does not exist)")
	}

	log.Info().Msg("Updating initramfs")
	return updateInitramfs()
}

// Power reports whether any NVIDIA device currently has a device node.
func (g *Graphics) Power() (bool, error) {
	if err := g.switchableOrFail(); err != nil {
		return false, err
	}
	for _, dev := range g.Nvidia {
		if dev.Exists() {
			return true, nil
		}
	}
	return false, nil
}

// SetPower powers the discrete GPU on (bus rescan re-creates the removed
// nodes and rebinds drivers) or off (unbind every NVIDIA device, then
// remove every NVIDIA device). Powering off attempts every device in each
// pass and surfaces the first failure.
func (g *Graphics) SetPower(power bool) error {
	if err := g.switchableOrFail(); err != nil {
		return err
	}

	if power {
		log.Info().Msg("Enabling graphics power")
		if err := g.bus.Rescan(); err != nil {
			return fmt.Errorf("failed to rescan PCI bus: %w", err)
		}
		return nil
	}

	log.Info().Msg("Disabling graphics power")
	var results []error
	for _, dev := range g.Nvidia {
		results = append(results, dev.Unbind())
	}
	for _, dev := range g.Nvidia {
		results = append(results, dev.Remove())
	}
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

// AutoPower applies the power state implied by the persisted vendor mode.
func (g *Graphics) AutoPower() error {
	vendor, err := g.Vendor()
	if err != nil {
		return err
	}
	return g.SetPower(vendor == "nvidia" || vendor == "hybrid")
}

func (g *Graphics) switchableOrFail() error {
	if !g.CanSwitch() {
		return ErrNotSwitchable
	}
	return nil
}

func writeModprobe(path, text string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open modprobe file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(text); err != nil {
		return fmt.Errorf("failed to write modprobe file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to write modprobe file: %w", err)
	}
	return nil
}

// updateInitramfs regenerates the boot-time module image with whichever
// generator the system carries, preferring dracut.
func updateInitramfs() error {
	if _, err := lookPath("dracut"); err == nil {
		status, err := runCommand("dracut", "--force")
		if err != nil {
			return &CommandError{Cmd: "dracut", Err: err}
		}
		if status != 0 {
			return &InitramfsError{Cmd: "dracut", Status: status}
		}
		return nil
	}

	if _, err := lookPath("update-initramfs"); err != nil {
		return &InitramfsError{MissingTools: true}
	}

	status, err := runCommand("update-initramfs", "-u")
	if err != nil {
		return &CommandError{Cmd: "update-initramfs", Err: err}
	}
	if status != 0 {
		return &InitramfsError{Cmd: "update-initramfs", Status: status}
	}
	return nil
}
