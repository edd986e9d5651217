// Package logger builds the process loggers. Every logger is tagged with the
// component that owns it so dispatch, signal and feed output can be told
// apart in a shared stream.
//
// Environment:
//
//	APP_ENV=dev     coloured console output instead of JSON
//	LOG_LEVEL       debug, info, warn or error (default info)
//	LOG_FILE        also append JSON lines to this file, rotated at 50 MB
package logger

import corelogger "github.com/kilianp07/rescue/core/logger"

// Logger is the engine logging interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// New returns a Logger for component configured from the environment.
func New(component string) Logger {
	return NewZerologLogger(component)
}
