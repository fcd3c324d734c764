package config

import (
	"io"
	"os"
	"strings"

	"github.com/yaoapp/kun/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLog applies level, format and output of c to kun/log.
// The returned closer releases the log file, if any.
func SetupLog(c Config) io.Closer {
	log.SetLevel(parseLevel(c.LogLevel))

	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(log.JSON)
	} else {
		log.SetFormatter(log.TEXT)
	}

	if c.LogFile == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	out := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
		Compress:   true,
	}
	log.SetOutput(out)
	return out
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
