package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		if got := parseLogLevel(tc.input); got != tc.expected {
			t.Errorf("parseLogLevel(%q) = %v, expected %v", tc.input, got, tc.expected)
		}
	}
}

func TestValidate_DefaultsPollInterval(t *testing.T) {
	cfg := Config{
		SysfsRoot:    "/sys",
		ModeFile:     "/etc/prime-discrete",
		ModprobeFile: "/etc/modprobe.d/laptop-powerd.conf",
	}
	cfg.validate()
	if cfg.PollIntervalSeconds != 1 {
		t.Errorf("expected default poll interval of 1, got %d", cfg.PollIntervalSeconds)
	}
}

func TestValidate_InvalidGraphicsMode(t *testing.T) {
	cfg := Config{
		SysfsRoot:    "/sys",
		ModeFile:     "/etc/prime-discrete",
		ModprobeFile: "/etc/modprobe.d/laptop-powerd.conf",
		GraphicsMode: "discrete",
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for unknown graphics mode, got none")
		}
	}()
	cfg.validate()
}

func TestValidate_MissingPaths(t *testing.T) {
	cfg := Config{SysfsRoot: "/sys"}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing path fields, got none")
		}
	}()
	cfg.validate()
}

func TestSysfsDerivedPaths(t *testing.T) {
	cfg := Config{SysfsRoot: "/tmp/fake-sys"}
	if got := cfg.HwmonRoot(); got != "/tmp/fake-sys/class/hwmon" {
		t.Errorf("unexpected hwmon root %q", got)
	}
	if got := cfg.PciRoot(); got != "/tmp/fake-sys/bus/pci" {
		t.Errorf("unexpected pci root %q", got)
	}
}
