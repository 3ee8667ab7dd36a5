package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to every component.
type Logger struct {
	*zap.SugaredLogger
}

// zapLevels maps the configured level names onto zap levels.
var zapLevels = map[string]zapcore.Level{
	DebugLevel: zapcore.DebugLevel,
	InfoLevel:  zapcore.InfoLevel,
	WarnLevel:  zapcore.WarnLevel,
	ErrorLevel: zapcore.ErrorLevel,
}

// toZapLevel resolves a level name; unknown names log at info.
func toZapLevel(name string) zapcore.Level {
	if lvl, ok := zapLevels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

// newCore writes console-encoded entries at or above level to out.
func newCore(level zapcore.Level, out zapcore.WriteSyncer) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), out, zap.NewAtomicLevelAt(level))
}

func newZapLogger(level string, out zapcore.WriteSyncer) *Logger {
	return &Logger{SugaredLogger: zap.New(newCore(toZapLevel(level), out)).Sugar()}
}

func stdout() zapcore.WriteSyncer { return zapcore.Lock(os.Stdout) }
