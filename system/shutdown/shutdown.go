package shutdown

import (
	"database/sql"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hwctl/laptop-powerd/db"
	"github.com/hwctl/laptop-powerd/internal/fan"
)

// Shutdown hands the fans back to firmware control before the process
// exits. Runs on every exit path so a crash never leaves them pinned at
// a stale duty.
func Shutdown(fans *fan.Daemon, conn *sql.DB) {
	if fans != nil {
		fans.Close()
		log.Info().Msg("Fans restored to automatic control")
	}
	if conn != nil {
		if err := db.RecordEvent(conn, "shutdown", "", true); err != nil {
			log.Warn().Err(err).Msg("Failed to record shutdown event")
		}
		conn.Close()
	}
	os.Exit(0)
}

func ShutdownWithError(err error, msg string, fans *fan.Daemon, conn *sql.DB) {
	log.Error().Err(err).Msg(msg)
	if fans != nil {
		fans.Close()
	}
	if conn != nil {
		conn.Close()
	}
	os.Exit(1)
}
