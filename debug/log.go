package debug

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	file    *os.File
	logger  *zap.SugaredLogger
	mu      sync.Mutex
	enabled bool
)

// Enable starts debug logging to ~/.config/arpeggio/debug.log
func Enable() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return EnableAt(filepath.Join(home, ".config", "arpeggio", "debug.log"))
}

// EnableAt starts debug logging to the given file (truncated)
func EnableAt(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

	file = f
	logger = zap.New(core).Sugar()
	enabled = true
	logger.Named("debug").Info("=== Debug logging started ===")
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		_ = logger.Sync()
		logger = nil
	}
	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
}

// Enabled reports whether logging is on
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a debug message under a category
func Log(category, format string, args ...any) {
	write(zapcore.DebugLevel, category, format, args...)
}

// Warn writes a warning (dropped notes, missing samples, bad input)
func Warn(category, format string, args ...any) {
	write(zapcore.WarnLevel, category, format, args...)
}

func write(level zapcore.Level, category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}

	l := logger.Named(category)
	if level == zapcore.WarnLevel {
		l.Warnf(format, args...)
	} else {
		l.Debugf(format, args...)
	}
	_ = logger.Sync() // flush immediately so we see logs even on crash
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
