// Package log provides the structured logger used across the server.
//
// It mirrors the shape of the Logger the handler/server packages were
// already written against (Debugf/Infof/Warnf/Errorf/Fatalf), but backs it
// with zap instead of an internal-only logging facade.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface every component depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Config controls where and how logs are written.
type Config struct {
	Level      string `yaml:"level"`       // debug|info|warn|error
	Filename   string `yaml:"filename"`    // rotated file sink; empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb"` // per lumberjack.Logger.MaxSize
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"` // also write to stderr
}

type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l *sugaredLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *sugaredLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *sugaredLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *sugaredLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }
func (l *sugaredLogger) Fatalf(format string, args ...interface{}) { l.s.Fatalf(format, args...) }

// New builds a Logger from Config. It never fails hard on bad level
// strings: it falls back to info.
func New(cfg Config) (Logger, error) {
	level := parseLevel(cfg.Level)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core

	if cfg.Filename != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(rotator),
			level,
		))
	}

	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &sugaredLogger{s: logger.Sugar()}, nil
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
