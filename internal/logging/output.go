package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// OutputConfig selects the encoding and destination of log lines. With an
// empty File, DEBUG through WARN go to stdout and ERROR/FATAL to stderr.
type OutputConfig struct {
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	sinkMu sync.RWMutex
	sink   = newStdSink(FormatConsole)
	closer io.Closer
)

// Configure replaces the output sink.
func Configure(cfg OutputConfig) error {
	format := cfg.Format
	if format == "" {
		format = FormatConsole
	}
	if format != FormatConsole && format != FormatJSON {
		return fmt.Errorf("invalid log format %q (must be %s or %s)", cfg.Format, FormatConsole, FormatJSON)
	}

	var (
		next      *zap.Logger
		newCloser io.Closer
	)
	if cfg.File == "" {
		next = newStdSink(format)
	} else {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		}
		next = zap.New(zapcore.NewCore(newEncoder(format), zapcore.AddSync(rotator), zapcore.DebugLevel))
		newCloser = rotator
	}

	swapSink(next, newCloser)
	return nil
}

// SetWriter sends every level to w.
func SetWriter(w io.Writer, format string) {
	core := zapcore.NewCore(newEncoder(format), zapcore.AddSync(w), zapcore.DebugLevel)
	swapSink(zap.New(core), nil)
}

// Sync flushes buffered log entries.
func Sync() error {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink.Sync()
}

func swapSink(next *zap.Logger, newCloser io.Closer) {
	sinkMu.Lock()
	old, oldCloser := sink, closer
	sink, closer = next, newCloser
	sinkMu.Unlock()

	_ = old.Sync()
	if oldCloser != nil {
		_ = oldCloser.Close()
	}
}

func newStdSink(format string) *zap.Logger {
	enc := newEncoder(format)
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	return zap.New(zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(enc.Clone(), zapcore.Lock(os.Stderr), high),
	))
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     encodeTimestamp,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.ConsoleSeparator = " "
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func encodeTimestamp(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(GetTimestamp(t))
}

// GetTimestamp formats t as RFC3339. LOG_TIMESTAMP overrides it so tests get
// stable output.
func GetTimestamp(t time.Time) string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return t.Format(time.RFC3339)
}

func (l *Logger) writeLog(level LogLevel, msg string, fields []LogField) {
	sinkMu.RLock()
	s := sink
	sinkMu.RUnlock()

	ce := s.Check(level.zapLevel(), msg)
	if ce == nil {
		return
	}
	ce.LoggerName = l.name

	zf := make([]zap.Field, 0, len(fields)+1)
	if level == FATAL {
		zf = append(zf, zap.Bool("fatal", true))
	}
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			zf = append(zf, zap.String(f.Key, err.Error()))
			continue
		}
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	ce.Write(zf...)
}

func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	l.writeLog(level, formatted, mergeFields(extractContextFields(l.ctx), l.fields))
}

func (l *Logger) logWithFields(level LogLevel, msg string, fields ...LogField) {
	l.writeLog(level, msg, mergeFields(extractContextFields(l.ctx), l.fields, fieldsToMap(fields)))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
