// Package testutil provides shared test helpers for HostPulse packages.
package testutil

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger returns a console logger that only shows warnings and errors, so
// degraded metrics and recovered panics stay visible in `go test -v` output
// without the per-tick info lines. HOSTPULSE_TEST_LOG=debug shows everything.
func Logger() *zap.Logger {
	level := zapcore.WarnLevel
	if os.Getenv("HOSTPULSE_TEST_LOG") == "debug" {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
}

// ObservedLogger returns a logger whose entries at or above level are kept
// in memory for assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
