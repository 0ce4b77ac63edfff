package main

import (
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hwctl/laptop-powerd/db"
	"github.com/hwctl/laptop-powerd/internal/config"
	"github.com/hwctl/laptop-powerd/internal/datadog"
	"github.com/hwctl/laptop-powerd/internal/env"
	"github.com/hwctl/laptop-powerd/internal/fan"
	"github.com/hwctl/laptop-powerd/internal/graphics"
	"github.com/hwctl/laptop-powerd/internal/logging"
	"github.com/hwctl/laptop-powerd/internal/sysfs"
	"github.com/hwctl/laptop-powerd/system/shutdown"
)

func main() {
	cfg := config.Load()
	env.Cfg = cfg
	logging.Init(cfg.LogLevel)

	log.Info().
		Str("mode_file", cfg.ModeFile).
		Str("modprobe_file", cfg.ModprobeFile).
		Msg("Starting laptop power daemon")

	datadog.InitMetrics()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Warn().Err(err).Msg("Failed to create event log directory")
	}
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("Event log unavailable, continuing without it")
		conn = nil
	}

	bus := sysfs.NewPciBus(cfg.PciRoot())
	modes := graphics.NewFileModeStore(cfg.ModeFile)
	gfx, err := graphics.Discover(bus, modes, cfg.ModprobeFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to discover graphics devices")
	}

	log.Info().
		Bool("switchable", gfx.CanSwitch()).
		Int("nvidia", len(gfx.Nvidia)).
		Int("intel", len(gfx.Intel)).
		Int("amd", len(gfx.Amd)).
		Msg("Graphics discovery complete")

	if cfg.GraphicsMode != "" {
		applyGraphicsMode(gfx, cfg.GraphicsMode, conn)
		return
	}

	if gfx.CanSwitch() {
		if err := gfx.AutoPower(); err != nil {
			log.Warn().Err(err).Msg("Failed to apply automatic graphics power")
			record(conn, "power", "auto", false)
		} else {
			record(conn, "power", "auto", true)
		}
	}

	fans, err := fan.NewDaemon(cfg.HwmonRoot())
	if err != nil {
		log.Warn().Err(err).Msg("Fan control unavailable on this hardware")
	}

	record(conn, "startup", "", true)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if fans != nil {
				fans.Step()
			}
		case sig := <-signals:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			shutdown.Shutdown(fans, conn)
		}
	}
}

func applyGraphicsMode(gfx *graphics.Graphics, vendor string, conn *sql.DB) {
	if err := gfx.SetVendor(vendor); err != nil {
		record(conn, "vendor_switch", vendor, false)
		log.Fatal().Err(err).Str("vendor", vendor).Msg("Failed to set graphics vendor")
	}
	record(conn, "vendor_switch", vendor, true)
	datadog.Incr("graphics.vendor_switch", "vendor:"+vendor)
	log.Info().Str("vendor", vendor).Msg("Graphics vendor applied, reboot to take effect")
}

func record(conn *sql.DB, kind, detail string, success bool) {
	if conn == nil {
		return
	}
	if err := db.RecordEvent(conn, kind, detail, success); err != nil {
		log.Warn().Err(err).Msg("Failed to record event")
	}
}
