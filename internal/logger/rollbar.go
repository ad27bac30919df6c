package logger

import (
	"log"
	"net/http"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type RollbarConfig struct {
	Token       string
	Environment string
	Host        string
	CodeVersion string
}

// RollbarLogger reports to Rollbar and mirrors every entry to the std logger.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf RollbarConfig) *RollbarLogger {
	rollbar.SetToken(conf.Token)
	rollbar.SetEnvironment(conf.Environment)
	rollbar.SetServerHost(conf.Host)
	rollbar.SetCodeVersion(conf.CodeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: NewStdLogger(std)}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// report is one Rollbar item built from a message and its key/value pairs.
type report struct {
	msg    string
	err    error
	req    *http.Request
	user   *models.User
	extras map[string]interface{}
}

// newReport lifts the first error, request and user out of the pairs; every other
// value becomes custom data. Rollbar drops the message when an error is attached,
// so it is kept in the custom data too.
func newReport(msg string, args []any) report {
	rep := report{msg: msg, extras: map[string]interface{}{}}
	eachField(args, func(key string, val any) {
		switch v := val.(type) {
		case error:
			if rep.err == nil {
				rep.err = v
				return
			}
			rep.extras[key] = v.Error()
			return
		case *http.Request:
			if rep.req == nil {
				rep.req = v
				return
			}
		case *models.User:
			if v != nil && rep.user == nil {
				rep.user = v
				return
			}
		}
		rep.extras[key] = val
	})
	if rep.err != nil {
		rep.extras["message"] = msg
	}
	return rep
}

// args is the variadic form rollbar.Log understands.
func (rep report) args() []any {
	out := []any{rep.msg}
	if rep.err != nil {
		out = append(out, rep.err)
	}
	if rep.req != nil {
		out = append(out, rep.req)
	}
	if len(rep.extras) > 0 {
		out = append(out, rep.extras)
	}
	return out
}

func (l RollbarLogger) prepare(msg string, args []any) []any {
	rep := newReport(msg, args)
	if rep.user != nil {
		rollbar.SetPerson(rep.user.ID.Hex(), rep.user.Username, rep.user.Email)
	} else {
		rollbar.ClearPerson()
	}
	return rep.args()
}

func (l RollbarLogger) Debug(msg string, args ...any) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.std.Debug(msg, args...)
}

func (l RollbarLogger) Info(msg string, args ...any) {
	rollbar.Info(l.prepare(msg, args)...)
	l.std.Info(msg, args...)
}

func (l RollbarLogger) Warn(msg string, args ...any) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.std.Warn(msg, args...)
}

func (l RollbarLogger) Error(msg string, args ...any) {
	rollbar.Error(l.prepare(msg, args)...)
	l.std.Error(msg, args...)
}

// Close blocks until pending reports are sent.
func (l RollbarLogger) Close() {
	rollbar.Wait()
}
