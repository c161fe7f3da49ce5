// Package log provides the process-wide zap logger.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

// log is a no-op until Init is called, which keeps unit tests quiet.
var log = zap.NewNop().Sugar()

// Init initializes the package-level logger.
func Init(debug bool) error {
	var (
		zapLogger *zap.Logger
		err       error
	)

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	log = zapLogger.Sugar()
	return nil
}

// L returns the sugared logger.
func L() *zap.SugaredLogger {
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = log.Sync()
}

func Debugw(msg string, keysAndValues ...interface{}) {
	L().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	L().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	L().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	L().Errorw(msg, keysAndValues...)
}

func Fatalf(template string, args ...interface{}) {
	L().Fatalf(template, args...)
}
