package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	std     = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()
	logFile *os.File
)

// InitLogger sends the package logger to the console and to a file.
func InitLogger(filename string, level zerolog.Level) error {
	var err error
	logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	multi := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}, logFile)
	std = zerolog.New(multi).Level(level).With().Timestamp().Logger()
	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Logger returns the package level logger.
func Logger() *zerolog.Logger {
	return &std
}

// SetLevel changes the minimum level of the package logger.
func SetLevel(level zerolog.Level) {
	std = std.Level(level)
}

// SetOutput replaces the package logger's writer, mostly for tests.
func SetOutput(w io.Writer) {
	std = zerolog.New(w).With().Timestamp().Logger()
}

func Info(format string, v ...interface{}) {
	std.Info().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	std.Error().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	std.Warn().Msgf(format, v...)
}
