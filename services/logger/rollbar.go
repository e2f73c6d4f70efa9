package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/user"
)

// RollbarLogger reports to Rollbar and mirrors everything to a
// standard logger so local output survives a Rollbar outage.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetServerRoot("github.com/gopimeda/elearning")
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// args may carry an error, context maps and at most one user.User (or
// pointer); the user becomes the Rollbar person, with their platform
// roles attached as custom data.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	var reported *user.User
	for _, arg := range args {
		switch usr := arg.(type) {
		case user.User:
			if reported == nil {
				reported = &usr
			} else {
				newArgs = append(newArgs, arg)
			}
		case *user.User:
			if reported == nil && usr != nil {
				reported = usr
			} else {
				newArgs = append(newArgs, arg)
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if reported == nil {
		rollbar.ClearPerson()
		rollbar.SetCustom(nil)
		return newArgs
	}
	rollbar.SetPerson(reported.ID, reported.Username, reported.Email)
	rollbar.SetCustom(map[string]interface{}{"roles": reported.Roles})
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
