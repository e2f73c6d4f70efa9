package core

// Logger is any service that can log leveled messages, optionally tagging them
// with extra context (a user.User arg sets the reported person upstream).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
