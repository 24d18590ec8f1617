// Package logger configures the process-wide zerolog logger and offers
// printf-style helpers on top of it.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init.
type Options struct {
	Level string // debug, info, warn, error; empty means info
	File  string // optional path of a rotating log file
	JSON  bool   // plain JSON on stderr instead of the console writer
}

// Init replaces the global zerolog logger. Packages that log through
// github.com/rs/zerolog/log pick it up as well.
func Init(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	if opts.JSON {
		console = os.Stderr
	}

	writer := console
	if opts.File != "" {
		writer = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return nil
}

// With returns a child of the global logger carrying one string field.
func With(key, value string) zerolog.Logger {
	return log.Logger.With().Str(key, value).Logger()
}

func Debug(v ...any) { log.Debug().Msg(fmt.Sprint(v...)) }

func Debugf(format string, v ...any) { log.Debug().Msgf(format, v...) }

func Info(v ...any) { log.Info().Msg(fmt.Sprint(v...)) }

func Infof(format string, v ...any) { log.Info().Msgf(format, v...) }

func Warn(v ...any) { log.Warn().Msg(fmt.Sprint(v...)) }

func Warnf(format string, v ...any) { log.Warn().Msgf(format, v...) }

func Error(v ...any) { log.Error().Msg(fmt.Sprint(v...)) }

func Errorf(format string, v ...any) { log.Error().Msgf(format, v...) }

// Fatal logs and exits with status 1.
func Fatal(v ...any) { log.Fatal().Msg(fmt.Sprint(v...)) }

func Fatalf(format string, v ...any) { log.Fatal().Msgf(format, v...) }
