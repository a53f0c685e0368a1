package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	AppLogFile  = "mirrormon.log"
	PerfLogFile = "performance.log"
)

func NewLogger(logDir string) (*zap.Logger, error) {
	core, err := fileCore(logDir, AppLogFile, zap.InfoLevel)
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

func fileCore(logDir, name string, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level), nil
}
