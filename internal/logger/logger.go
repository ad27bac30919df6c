package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is the error reporting sink used by controllers and services.
// args are alternating key/value pairs: Error("rooms: save", "room", id, "err", err).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const badKey = "!BADKEY"

// eachField walks key/value pairs. A trailing value without a key is reported under badKey.
func eachField(args []any, fn func(key string, val any)) {
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fn(badKey, args[i])
			return
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fn(key, args[i+1])
	}
}

// line renders msg and its fields as one logfmt-ish line.
func line(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[" + level + "] " + msg)
	eachField(args, func(key string, val any) {
		s := fmt.Sprintf("%v", val)
		if strings.ContainsAny(s, " \t\n\"=") {
			s = fmt.Sprintf("%q", s)
		}
		b.WriteString(" " + key + "=" + s)
	})
	return b.String()
}

type StdLogger struct {
	std *log.Logger
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &StdLogger{std: std}
}

func (l *StdLogger) print(level, msg string, args []any) {
	l.std.Println(line(level, msg, args))
}

func (l *StdLogger) Debug(msg string, args ...any) { l.print("DEBUG", msg, args) }
func (l *StdLogger) Info(msg string, args ...any)  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...any)  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...any) { l.print("ERROR", msg, args) }

// Nop discards everything. Used in tests.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
