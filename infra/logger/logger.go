package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/taxidispatch/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. LOG_DRIVER selects the
// backend (zerolog unless set to "logrus") and APP_ENV=dev switches
// to human readable output.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("LOG_DRIVER"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}

func devMode() bool {
	return strings.ToLower(os.Getenv("APP_ENV")) == "dev"
}
