package logsvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/user"
)

// RollbarLogger prints to a std logger and reports to Rollbar.
// Reporting is off in debug mode or without a token; debug messages are only printed in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
	mu    sync.Mutex // person is process-wide
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// Close waits for pending reports to be sent.
func (l *RollbarLogger) Close() error {
	rollbar.Wait()
	return nil
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l *RollbarLogger) report(level string, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(a.ID, a.Username, a.Email)
				usrSet = true
			}
		case *user.User:
			if a != nil && !usrSet {
				rollbar.SetPerson(a.ID, a.Username, a.Email)
				usrSet = true
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}

	switch level {
	case rollbar.DEBUG:
		rollbar.Debug(newArgs...)
	case rollbar.INFO:
		rollbar.Info(newArgs...)
	case rollbar.WARN:
		rollbar.Warning(newArgs...)
	case rollbar.ERR:
		rollbar.Error(newArgs...)
	default:
		rollbar.Critical(newArgs...)
	}
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s\n", level, msg)
	for _, arg := range args {
		switch arg.(type) {
		case user.User, *user.User:
		case error:
			if l.debug {
				l.std.Printf("%+v\n", arg)
			}
		default:
			l.std.Printf("%v\n", arg)
		}
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.report(rollbar.DEBUG, msg, args)
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.print("FATAL", msg, args)
	_ = l.Close()
	l.std.Fatal(fmt.Sprintf("FATAL: %s", msg))
}
