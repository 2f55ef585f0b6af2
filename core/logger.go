package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"parcel-mileage-service/config"
)

const serviceName = "parcel-mileage-service"

func NewLogger(cfg config.Config) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.LogLevel != "" {
		parsed, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}

	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	})

	core := zapcore.NewCore(encoder, logWriter(cfg.LogsDirectory), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logger, nil
}

func logWriter(dir string) zapcore.WriteSyncer {
	if dir == "" {
		return zapcore.Lock(os.Stderr)
	}

	// One file per run
	runTimestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	logFile := filepath.Join(dir, fmt.Sprintf("%s-%s.log", serviceName, runTimestamp))

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB before it rolls
		MaxBackups: 7,
		MaxAge:     30, // Days
		Compress:   true,
	})
}
