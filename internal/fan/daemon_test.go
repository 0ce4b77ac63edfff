package fan

import (
	"os"
	"path/filepath"
	"testing"
)

func writeHwmon(t *testing.T, root, dir, name string, attrs map[string]string) {
	t.Helper()
	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "name"), []byte(name+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for attr, value := range attrs {
		if err := os.WriteFile(filepath.Join(path, attr), []byte(value+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readAttr(t *testing.T, root, dir, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, dir, attr))
	if err != nil {
		t.Fatalf("failed to read %s/%s: %v", dir, attr, err)
	}
	return string(data)
}

func TestNewDaemonMissingPlatform(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "coretemp", map[string]string{"temp1_input": "45000"})

	if _, err := NewDaemon(root); err == nil {
		t.Fatal("expected error with no platform hwmon, got nil")
	}
}

func TestNewDaemonMissingCPU(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", nil)

	if _, err := NewDaemon(root); err == nil {
		t.Fatal("expected error with no cpu hwmon, got nil")
	}
}

func TestNewDaemonIgnoresLaptopEC(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76", nil)
	writeHwmon(t, root, "hwmon1", "coretemp", map[string]string{"temp1_input": "45000"})

	if _, err := NewDaemon(root); err == nil {
		t.Fatal("system76 EC hwmon must not count as a platform actuator")
	}
}

func TestTemperatureMaxAcrossSensors(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", nil)
	writeHwmon(t, root, "hwmon1", "coretemp", map[string]string{"temp1_input": "45000"})
	writeHwmon(t, root, "hwmon2", "k10temp", map[string]string{"temp1_input": "61000"})
	writeHwmon(t, root, "hwmon3", "coretemp", nil) // no temp1_input, skipped

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}

	temp, ok := d.Temperature()
	if !ok {
		t.Fatal("expected a temperature reading")
	}
	if temp != 61000 {
		t.Errorf("expected max of 61000, got %d", temp)
	}
}

func TestTemperatureAllSensorsFailed(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", nil)
	writeHwmon(t, root, "hwmon1", "coretemp", nil)

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Temperature(); ok {
		t.Error("expected no reading when every sensor fails")
	}
}

func TestDutyForRescalesToPwmRange(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", nil)
	writeHwmon(t, root, "hwmon1", "coretemp", nil)

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		milliC   int
		expected uint8
	}{
		{20000, 76},  // 3000 * 255 / 10000
		{60000, 214}, // 8417 * 255 / 10000
		{70000, 255},
	}
	for _, tc := range tests {
		duty := d.DutyFor(tc.milliC)
		if duty == nil {
			t.Fatalf("DutyFor(%d): expected a duty", tc.milliC)
		}
		if *duty != tc.expected {
			t.Errorf("DutyFor(%d): expected %d, got %d", tc.milliC, tc.expected, *duty)
		}
	}
}

func TestStepWritesManualDuty(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", map[string]string{
		"pwm1_enable": "2", "pwm1": "0", "pwm2": "0",
	})
	writeHwmon(t, root, "hwmon1", "coretemp", map[string]string{"temp1_input": "60000"})

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}
	d.Step()

	if got := readAttr(t, root, "hwmon0", "pwm1_enable"); got != "1" {
		t.Errorf("expected manual mode, got pwm1_enable=%q", got)
	}
	if got := readAttr(t, root, "hwmon0", "pwm1"); got != "214" {
		t.Errorf("expected pwm1=214, got %q", got)
	}
	if got := readAttr(t, root, "hwmon0", "pwm2"); got != "214" {
		t.Errorf("expected pwm2=214, got %q", got)
	}
}

func TestStepFallsBackToAutomatic(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", map[string]string{"pwm1_enable": "1"})
	writeHwmon(t, root, "hwmon1", "coretemp", nil) // sensor gone

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}
	d.Step()

	if got := readAttr(t, root, "hwmon0", "pwm1_enable"); got != "2" {
		t.Errorf("expected automatic mode after failed read, got pwm1_enable=%q", got)
	}
}

func TestCloseRestoresAutomaticControl(t *testing.T) {
	root := t.TempDir()
	writeHwmon(t, root, "hwmon0", "system76_io", map[string]string{"pwm1_enable": "1"})
	writeHwmon(t, root, "hwmon1", "coretemp", map[string]string{"temp1_input": "45000"})

	d, err := NewDaemon(root)
	if err != nil {
		t.Fatal(err)
	}

	// No Step call; Close alone must hand control back to firmware.
	d.Close()

	if got := readAttr(t, root, "hwmon0", "pwm1_enable"); got != "2" {
		t.Errorf("expected pwm1_enable=2 after Close, got %q", got)
	}
}
