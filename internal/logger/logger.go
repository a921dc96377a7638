// Package logger builds the process-wide zap logger.
package logger

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a development logger (console, debug and up) unless prod is
// set, in which case it returns a JSON logger at info level.
func New(service string, prod bool) (*zap.Logger, error) {
    var cfg zap.Config
    if prod {
        cfg = zap.NewProductionConfig()
        cfg.EncoderConfig.TimeKey = "ts"
        cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
        cfg.Level.SetLevel(zapcore.DebugLevel)
    }
    log, err := cfg.Build()
    if err != nil {
        return nil, err
    }
    return log.With(zap.String("service", service)), nil
}

// Must is New that panics on error; used from main before anything else
// can report the failure.
func Must(service string, prod bool) *zap.Logger {
    log, err := New(service, prod)
    if err != nil {
        panic("failed to set up logger: " + err.Error())
    }
    return log
}
