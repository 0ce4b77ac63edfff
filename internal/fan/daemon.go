package fan

import (
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/hwctl/laptop-powerd/internal/datadog"
	"github.com/hwctl/laptop-powerd/internal/sysfs"
)

// Daemon drives the cooling fans from CPU temperature. It owns the curve,
// the CPU temperature sensors, and the platform fan controllers, and is
// stepped by an external timer loop. Callers must Close it so the fans
// fall back to firmware control instead of holding a stale fixed duty.
type Daemon struct {
	curve     Curve
	platforms []*sysfs.HwMon
	cpus      []*sysfs.HwMon
}

// NewDaemon classifies the hwmon instances under hwmonRoot into sensors
// and actuators by driver name. Fails when either class is absent, since
// the loop can neither sense nor actuate without both.
func NewDaemon(hwmonRoot string) (*Daemon, error) {
	mons, err := sysfs.AllHwMons(hwmonRoot)
	if err != nil {
		return nil, err
	}

	d := &Daemon{curve: StandardCurve()}
	for _, mon := range mons {
		name, err := mon.Name()
		if err != nil {
			continue
		}
		log.Info().Str("name", name).Str("path", mon.Path()).Msg("hwmon")

		switch name {
		case "system76":
			// Laptop EC; its firmware runs its own fan logic.
		case "system76_io":
			d.platforms = append(d.platforms, mon)
		case "coretemp", "k10temp":
			d.cpus = append(d.cpus, mon)
		}
	}

	if len(d.platforms) == 0 {
		return nil, errors.New("platform hwmon not found")
	}
	if len(d.cpus) == 0 {
		return nil, errors.New("cpu hwmon not found")
	}
	return d, nil
}

// Temperature returns the maximum reading across all CPU hwmons, in
// thousandths of a degree Celsius (the native hwmon unit). Individual
// sensor failures are skipped; false means every sensor failed.
func (d *Daemon) Temperature() (int, bool) {
	var highest int
	found := false
	for _, cpu := range d.cpus {
		input, err := cpu.TempInput(1)
		if err != nil {
			continue
		}
		if !found || input > highest {
			highest = input
			found = true
		}
	}
	return highest, found
}

// DutyFor converts a hwmon temperature reading into a pwm duty from 0 to
// 255, or nil when the curve is empty.
func (d *Daemon) DutyFor(temp int) *uint8 {
	duty, ok := d.curve.DutyFor(int16(temp / 10))
	if !ok {
		return nil
	}
	pwm := uint8(uint32(duty) * 255 / 10_000)
	return &pwm
}

// ApplyDuty writes the duty to every platform fan controller, switching it
// to manual control, or restores automatic firmware control when duty is
// nil. Attribute writes are best effort across heterogeneous hardware; the
// next Step retries anyway.
func (d *Daemon) ApplyDuty(duty *uint8) {
	if duty == nil {
		for _, platform := range d.platforms {
			if err := platform.WriteAttr("pwm1_enable", "2"); err != nil {
				log.Warn().Err(err).Str("path", platform.Path()).Msg("failed to restore automatic fan control")
			}
		}
		return
	}

	value := strconv.Itoa(int(*duty))
	for _, platform := range d.platforms {
		if err := platform.WriteAttr("pwm1_enable", "1"); err != nil {
			log.Warn().Err(err).Str("path", platform.Path()).Msg("failed to enable manual fan control")
		}
		_ = platform.WriteAttr("pwm1", value)
		_ = platform.WriteAttr("pwm2", value)
	}
}

// Step runs one sense, decide, actuate cycle.
func (d *Daemon) Step() {
	var duty *uint8
	if temp, ok := d.Temperature(); ok {
		duty = d.DutyFor(temp)
		datadog.Gauge("fan.temperature", float64(temp)/1000.0, "component:sensor")
	}
	if duty != nil {
		datadog.Gauge("fan.duty", float64(*duty), "component:actuator")
	}
	d.ApplyDuty(duty)
}

// Close hands the fans back to firmware control. Safe to call on any exit
// path, including an error during startup.
func (d *Daemon) Close() {
	d.ApplyDuty(nil)
}
