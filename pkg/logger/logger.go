package logger

import (
	"fmt"

	"github.com/GlebRadaev/spinearn/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	timeLayout  = "15:04:05 02-01-2006"
	serviceName = "spinearn"
)

var logLvlMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// console is for humans at a terminal, json for log shippers.
func encoderConfig(format string) (zapcore.EncoderConfig, error) {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	switch format {
	case "console":
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.EncodeLevel = zapcore.LowercaseLevelEncoder
		enc.StacktraceKey = "stacktrace"
	default:
		return enc, fmt.Errorf("unsupported log format: %s", format)
	}
	return enc, nil
}

func InitLogger(conf *config.Config) error {
	lvl, ok := logLvlMap[conf.LogLvl]
	if !ok {
		return fmt.Errorf("unsupported log lvl: %s", conf.LogLvl)
	}
	format := conf.LogFmt
	if format == "" {
		format = "console"
	}
	enc, err := encoderConfig(format)
	if err != nil {
		return err
	}

	logger, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         format,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]any{"service": serviceName},
	}.Build()
	if err != nil {
		return fmt.Errorf("unable to create zap logger, error: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return nil
}
