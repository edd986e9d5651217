package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZerologLogger implements Logger on top of rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

var (
	fileOnce sync.Once
	fileOut  io.Writer
)

// logFile returns the shared rotating writer for LOG_FILE, or nil.
func logFile() io.Writer {
	fileOnce.Do(func() {
		if path := os.Getenv("LOG_FILE"); path != "" {
			fileOut = &lumberjack.Logger{Filename: path, MaxSize: 50, MaxBackups: 5, Compress: true}
		}
	})
	return fileOut
}

func stdout() io.Writer {
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

// NewZerologLogger writes to stdout and, when LOG_FILE is set, to a rotating
// file as well.
func NewZerologLogger(component string) Logger {
	w := stdout()
	if f := logFile(); f != nil {
		w = zerolog.MultiLevelWriter(w, f)
	}
	return NewZerologLoggerWithWriter(component, w)
}

// NewZerologLoggerWithWriter writes JSON entries to w.
func NewZerologLoggerWithWriter(component string, w io.Writer) *ZerologLogger {
	return &ZerologLogger{log: zerolog.New(w).
		Level(levelFromEnv()).
		With().
		Timestamp().
		Str("component", component).
		Logger()}
}

func levelFromEnv() zerolog.Level {
	lv, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || lv == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lv
}

func (l *ZerologLogger) Debugf(format string, args ...any) { l.log.Debug().Msgf(format, args...) }

// Debugw attaches fields as top level keys of the entry.
func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any)  { l.log.Info().Msgf(format, args...) }
func (l *ZerologLogger) Warnf(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l *ZerologLogger) Errorf(format string, args ...any) { l.log.Error().Msgf(format, args...) }
