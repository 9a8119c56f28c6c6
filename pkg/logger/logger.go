package logx

import (
	"os"
	"strings"

	"github.com/Chative-commerce/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default ("debug", "info", ...). Empty keeps the default.
	Level string
	// Service is attached to every record when set.
	Service string
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

// Init configures the global zerolog logger. Production writes JSON at info
// level; every other environment gets a console writer with caller info.
func Init(otps ...LoggerOpts) {
	opts := safe(otps...)

	level := zerolog.DebugLevel
	var l zerolog.Logger
	if opts.Environment.IsProduction() {
		level = zerolog.InfoLevel
		l = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		l = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	}

	if lv := strings.TrimSpace(opts.Level); lv != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(lv)); err == nil {
			level = parsed
		}
	}
	if opts.Service != "" {
		l = l.With().Str("service", opts.Service).Logger()
	}

	log.Logger = l.Level(level)
}

// With returns a child logger carrying the given string fields as key/value pairs.
func With(kv ...string) zerolog.Logger {
	c := log.Logger.With()
	for i := 0; i+1 < len(kv); i += 2 {
		c = c.Str(kv[i], kv[i+1])
	}
	return c.Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
