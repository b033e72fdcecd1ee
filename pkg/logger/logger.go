package logger

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "msg",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		level,
	)
	log = zap.New(core)
}

// SetDebug toggles debug-level output.
func SetDebug(enabled bool) {
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// SetLogger replaces the underlying zap logger. Tests use this to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// InfoCF logs at info level with a component tag and optional structured fields.
func InfoCF(component, msg string, fields ...map[string]interface{}) {
	current().Info(msg, zapFields(component, fields)...)
}

// DebugCF logs at debug level with a component tag and optional structured fields.
func DebugCF(component, msg string, fields ...map[string]interface{}) {
	current().Debug(msg, zapFields(component, fields)...)
}

// WarnCF logs at warn level with a component tag and optional structured fields.
func WarnCF(component, msg string, fields ...map[string]interface{}) {
	current().Warn(msg, zapFields(component, fields)...)
}

// ErrorCF logs at error level with a component tag and optional structured fields.
func ErrorCF(component, msg string, fields ...map[string]interface{}) {
	current().Error(msg, zapFields(component, fields)...)
}

// Infof logs a formatted message without component context.
func Infof(format string, args ...interface{}) {
	current().Info(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message without component context.
func Errorf(format string, args ...interface{}) {
	current().Error(fmt.Sprintf(format, args...))
}

func zapFields(component string, fields []map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, 8)
	out = append(out, zap.String("component", component))
	for _, m := range fields {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, zap.Any(k, m[k]))
		}
	}
	return out
}
