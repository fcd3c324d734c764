package logger

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	kunlog "github.com/yaoapp/kun/log"
	"github.com/yaoapp/xbridge/config"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

// Logger tags every line with the component that wrote it.
//
// Dev mode on a terminal → colored stdout echo + kun/log.
// Otherwise → kun/log only.
type Logger struct {
	tag string
}

// New creates a Logger tagged with the given component name
// (e.g. "farside", "bridge", "trampoline").
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) prefix() string {
	return fmt.Sprintf("[xbridge:%s]", l.tag)
}

func (l *Logger) echo(color, mark, msg string) {
	if IsDev() {
		fmt.Printf("%s  %s %s %s%s\n", color, mark, l.prefix(), msg, Reset)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.echo(Gray, "→", msg)
	kunlog.Trace("%s %s", l.prefix(), msg)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.echo(Gray, "•", msg)
	kunlog.Debug("%s %s", l.prefix(), msg)
}

func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.echo(Cyan, "ℹ", msg)
	kunlog.Info("%s %s", l.prefix(), msg)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.echo(Yellow, "⚠", msg)
	kunlog.Warn("%s %s", l.prefix(), msg)
}

func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.echo(Red, "✗", msg)
	kunlog.Error("%s %s", l.prefix(), msg)
}

// IsDev returns true when running in development mode with a terminal on stdout.
func IsDev() bool {
	return config.IsDevelopment() && isatty.IsTerminal(os.Stdout.Fd())
}
