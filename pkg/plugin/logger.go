package plugin

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	logMu  sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetLogger replaces the sink the escalation helpers log through. The
// default writes console-formatted lines to stderr.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func escalationLogger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}
