// Package logger builds the zap loggers used by the API and the consumer.
// Logs are written as JSON to a lumberjack-rotated file and mirrored to
// stdout.
package logger

import (
    "os"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/natefinch/lumberjack.v2"
)

func rotator(path string) *lumberjack.Logger {
    return &lumberjack.Logger{
        Filename:   path,
        MaxSize:    10, // megabytes
        MaxBackups: 5,
        MaxAge:     30, // days
        Compress:   true,
    }
}

func jsonEncoder() zapcore.Encoder {
    cfg := zap.NewProductionEncoderConfig()
    cfg.TimeKey = "timestamp"
    cfg.EncodeTime = zapcore.ISO8601TimeEncoder
    cfg.EncodeLevel = zapcore.CapitalLevelEncoder
    return zapcore.NewJSONEncoder(cfg)
}

// New returns a logger writing Info and above to filePath and Debug and
// above to stdout.  The console uses the human-readable encoder unless
// prod is set.  An empty filePath disables the file core.
func New(filePath string, prod bool) *zap.Logger {
    consoleEnc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
    consoleLevel := zapcore.DebugLevel
    if prod {
        consoleEnc = jsonEncoder()
        consoleLevel = zapcore.InfoLevel
    }
    cores := []zapcore.Core{
        zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), consoleLevel),
    }
    if filePath != "" {
        cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator(filePath)), zapcore.InfoLevel))
    }
    return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// NewFileOnly returns a logger that writes only to the rotating file.
// The booking consumer uses it so its event log stays separate from the
// process log.
func NewFileOnly(filePath string) *zap.Logger {
    core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator(filePath)), zapcore.InfoLevel)
    return zap.New(core)
}
