package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// Init настраивает глобальный логгер.
// "production" пишет JSON, всё остальное пишет читаемую консоль.
func Init(environment string, level string) error {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if l, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(l)
	}

	l, err := config.Build()
	if err != nil {
		return err
	}

	globalLogger = l
	return nil
}

// Get возвращает глобальный логгер; до Init это no-op логгер.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Named is a shortcut for Get().Named(name).
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
