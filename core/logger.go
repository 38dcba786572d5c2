package core

// Logger is implemented by the services/logger package.
// Expected args: error, map[string]interface{}, or the acting admin user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
