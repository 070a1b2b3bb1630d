package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RotatingWriter is a concurrent safe file-based logs writer used as the
// zap.WriteSyncer of the file core. A new file is opened once the current
// one reaches the configured size (in megabytes).
type RotatingWriter struct {
	sync.Mutex
	clock    Clocker
	file     *os.File
	folder   string
	maxBytes int64
	size     int64
	isProd   bool
}

func NewRotatingWriter(config *Config, clock Clocker) *RotatingWriter {
	return &RotatingWriter{
		clock:    clock,
		folder:   config.LogFolder,
		maxBytes: int64(config.LogMaxSize) << 20,
		isProd:   config.IsProduction,
	}
}

// Close closes the current log file.
func (rw *RotatingWriter) Close() error {
	rw.Lock()
	defer rw.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

func (rw *RotatingWriter) Sync() error {
	rw.Lock()
	defer rw.Unlock()
	if rw.file == nil {
		return nil
	}
	return rw.file.Sync()
}

// Write implements io.Writer and opens a new file when the entry
// would push the current file over its max size.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.Lock()
	defer rw.Unlock()
	pLen := int64(len(p))
	if pLen > rw.maxBytes {
		return 0, fmt.Errorf("logging: entry size %d exceeds max file size %d", pLen, rw.maxBytes)
	}
	if rw.file == nil || rw.size+pLen > rw.maxBytes {
		if rw.file != nil {
			if err := rw.file.Close(); err != nil {
				return 0, err
			}
		}
		file, err := os.OpenFile(LogFilePath(rw.folder, rw.isProd, rw.clock.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		rw.file = file
		rw.size = 0
	}
	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// stdoutSyncer skips Sync on os.Stdout which fails on some terminals.
type stdoutSyncer struct{}

func (stdoutSyncer) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutSyncer) Sync() error                 { return nil }

// SetupLogging initializes the logging module. In production all logs are
// saved as json to the rotating file. In development the same logs are
// printed to standard output as well. Stacktraces are only added on fatal.
func SetupLogging(config *Config, w zapcore.WriteSyncer) (*zap.Logger, func() error) {
	var encCfg zapcore.EncoderConfig
	if config.IsProduction {
		encCfg = zap.NewProductionEncoderConfig()
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.LevelKey = "lvl"
	encCfg.NameKey = "name"
	encCfg.MessageKey = "msg"
	encCfg.CallerKey = "caller"
	encCfg.StacktraceKey = "skt"

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, config.LogLevel)}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(stdoutSyncer{}), config.LogLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel))
	logger = logger.With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}
	return logger, flusher
}

// LogFilePath returns the path of a new log file named after its creation time.
func LogFilePath(folder string, isProd bool, t time.Time) string {
	env := "dev"
	if isProd {
		env = "prod"
	}
	name := fmt.Sprintf("%04d%02d%02d.%02d%02d%02d.%s.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), env)
	return filepath.Join(folder, name)
}
