package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type Config struct {
	ConfigFile   string
	LogLevel     zerolog.Level
	GraphicsMode string

	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	SysfsRoot           string `json:"sysfs_root"`
	ModeFile            string `json:"mode_file"`
	ModprobeFile        string `json:"modprobe_file"`
	DBPath              string `json:"db_path"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
}

func Load() *Config {
	cfg := &Config{
		PollIntervalSeconds: 1,
		SysfsRoot:           "/sys",
		ModeFile:            "/etc/prime-discrete",
		ModprobeFile:        "/etc/modprobe.d/laptop-powerd.conf",
		DBPath:              "/var/lib/laptop-powerd/events.db",
		DDAgentAddr:         "127.0.0.1:8125",
		DDNamespace:         "laptop_powerd.",
	}
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "", "Path to daemon config file (optional)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.GraphicsMode, "graphics-mode", "", "Apply a graphics vendor (nvidia, hybrid, integrated) and exit")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	if cfg.ConfigFile != "" {
		file, err := os.Open(cfg.ConfigFile)
		if err != nil {
			panic("Failed to load config file: " + err.Error())
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			panic("Failed to parse config file: " + err.Error())
		}
	}

	cfg.validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = 1
	}

	switch cfg.GraphicsMode {
	case "", "nvidia", "hybrid", "integrated":
	default:
		panic("Invalid graphics mode: " + cfg.GraphicsMode)
	}

	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"sysfs_root", cfg.SysfsRoot},
		{"mode_file", cfg.ModeFile},
		{"modprobe_file", cfg.ModprobeFile},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		panic("Missing required config fields: " + strings.Join(missing, ", "))
	}
}

// HwmonRoot is the hwmon class directory under the configured sysfs root.
func (cfg *Config) HwmonRoot() string {
	return filepath.Join(cfg.SysfsRoot, "class", "hwmon")
}

// PciRoot is the PCI bus directory under the configured sysfs root.
func (cfg *Config) PciRoot() string {
	return filepath.Join(cfg.SysfsRoot, "bus", "pci")
}
