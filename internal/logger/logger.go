package logger

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the interface every logging call in this module goes through.
// It mirrors *zap.SugaredLogger's context-first call shape so call sites never
// depend on zap directly.
type Logger interface {
	Debug(ctx context.Context, args ...any)
	Debugf(ctx context.Context, template string, args ...any)
	DebugKV(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, args ...any)
	Infof(ctx context.Context, template string, args ...any)
	InfoKV(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, args ...any)
	Warnf(ctx context.Context, template string, args ...any)
	WarnKV(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, args ...any)
	Errorf(ctx context.Context, template string, args ...any)
	ErrorKV(ctx context.Context, msg string, keysAndValues ...any)
	Fatal(ctx context.Context, args ...any)
	Fatalf(ctx context.Context, template string, args ...any)
	FatalKV(ctx context.Context, msg string, keysAndValues ...any)
	Sync() error
}

// sugaredLogger adapts *zap.SugaredLogger to the Logger interface.
// The context argument is accepted for call-site symmetry and future
// trace-id propagation; zap itself is not context-aware.
type sugaredLogger struct {
	sugar *zap.SugaredLogger
}

func (l *sugaredLogger) Debug(_ context.Context, args ...any) { l.sugar.Debug(args...) }
func (l *sugaredLogger) Debugf(_ context.Context, template string, args ...any) {
	l.sugar.Debugf(template, args...)
}

func (l *sugaredLogger) DebugKV(_ context.Context, msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *sugaredLogger) Info(_ context.Context, args ...any) { l.sugar.Info(args...) }
func (l *sugaredLogger) Infof(_ context.Context, template string, args ...any) {
	l.sugar.Infof(template, args...)
}

func (l *sugaredLogger) InfoKV(_ context.Context, msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *sugaredLogger) Warn(_ context.Context, args ...any) { l.sugar.Warn(args...) }
func (l *sugaredLogger) Warnf(_ context.Context, template string, args ...any) {
	l.sugar.Warnf(template, args...)
}

func (l *sugaredLogger) WarnKV(_ context.Context, msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *sugaredLogger) Error(_ context.Context, args ...any) { l.sugar.Error(args...) }
func (l *sugaredLogger) Errorf(_ context.Context, template string, args ...any) {
	l.sugar.Errorf(template, args...)
}

func (l *sugaredLogger) ErrorKV(_ context.Context, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *sugaredLogger) Fatal(_ context.Context, args ...any) { l.sugar.Fatal(args...) }
func (l *sugaredLogger) Fatalf(_ context.Context, template string, args ...any) {
	l.sugar.Fatalf(template, args...)
}

func (l *sugaredLogger) FatalKV(_ context.Context, msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

func (l *sugaredLogger) Sync() error { return l.sugar.Sync() }

// logLevelsByName maps lowercase level names to zapcore levels, used by ParseLogLevel.
//
//nolint:gochecknoglobals // Immutable lookup table used as a constant.
var logLevelsByName = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// LogFilePath is the default rotating log file path; empty disables file output.
//
//nolint:gochecknoglobals // Overridable default, mirrors the package's other package-level settings.
var LogFilePath string

// ParseLogLevel converts a human-readable level name into a zapcore.Level.
// It trims surrounding whitespace and is case-insensitive. The second return
// value is false when the input does not match any known level name.
func ParseLogLevel(name string) (zapcore.Level, bool) {
	level, ok := logLevelsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return zapcore.InfoLevel, false
	}

	return level, true
}

// currentLevel is the dynamically adjustable level gate shared by every logger
// created through New; SetLevel mutates it in place so existing loggers pick
// up the change immediately.
//
//nolint:gochecknoglobals // Package-level mutable level gate, guarded by atomic operations.
var currentLevel zap.AtomicLevel = zap.NewAtomicLevel()

// New builds a *sugaredLogger writing console-formatted lines to stderr and,
// when LogFilePath is set, JSON to a lumberjack-rotated file. A nil level
// leaves the shared level unchanged (info unless SetLevel was called).
func New(level zapcore.LevelEnabler) Logger {
	if level != nil {
		currentLevel.SetLevel(level.Level())
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), currentLevel),
	}

	if LogFilePath != "" {
		fileSink := &lumberjack.Logger{
			Filename:   LogFilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(fileSink), currentLevel))
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &sugaredLogger{sugar: base.Sugar()}
}

var (
	//nolint:gochecknoglobals // Package-level default logger, swappable via SetLogger for tests and alternate sinks.
	globalLogger atomic.Pointer[Logger]
	//nolint:gochecknoglobals // Guards lazy initialization of globalLogger.
	initOnce sync.Once
)

func defaultLogger() Logger {
	initOnce.Do(func() {
		l := New(zapcore.InfoLevel)
		globalLogger.Store(&l)
	})

	return *globalLogger.Load()
}

// Logger returns the current package-level logger, creating the default one
// on first use.
func Logger() Logger {
	if p := globalLogger.Load(); p != nil {
		return *p
	}

	return defaultLogger()
}

// SetLogger replaces the package-level logger. Intended for tests and for
// wiring an alternate sink at startup.
func SetLogger(l Logger) {
	globalLogger.Store(&l)
}

// Level returns the package-level logger's current minimum enabled level.
func Level() zapcore.Level {
	return currentLevel.Level()
}

// SetLevel adjusts the package-level logger's minimum enabled level in place.
func SetLevel(level zapcore.Level) {
	currentLevel.SetLevel(level)
}

// The context-first free functions below delegate to the package-level
// logger; they are the call shape every other package in this module uses.

func Debug(ctx context.Context, args ...any) { Logger().Debug(ctx, args...) }
func Debugf(ctx context.Context, template string, args ...any) {
	Logger().Debugf(ctx, template, args...)
}
func DebugKV(ctx context.Context, msg string, keysAndValues ...any) {
	Logger().DebugKV(ctx, msg, keysAndValues...)
}

func Info(ctx context.Context, args ...any) { Logger().Info(ctx, args...) }
func Infof(ctx context.Context, template string, args ...any) {
	Logger().Infof(ctx, template, args...)
}
func InfoKV(ctx context.Context, msg string, keysAndValues ...any) {
	Logger().InfoKV(ctx, msg, keysAndValues...)
}

func Warn(ctx context.Context, args ...any) { Logger().Warn(ctx, args...) }
func Warnf(ctx context.Context, template string, args ...any) {
	Logger().Warnf(ctx, template, args...)
}
func WarnKV(ctx context.Context, msg string, keysAndValues ...any) {
	Logger().WarnKV(ctx, msg, keysAndValues...)
}

func Error(ctx context.Context, args ...any) { Logger().Error(ctx, args...) }
func Errorf(ctx context.Context, template string, args ...any) {
	Logger().Errorf(ctx, template, args...)
}
func ErrorKV(ctx context.Context, msg string, keysAndValues ...any) {
	Logger().ErrorKV(ctx, msg, keysAndValues...)
}

func Fatal(ctx context.Context, args ...any) { Logger().Fatal(ctx, args...) }
func Fatalf(ctx context.Context, template string, args ...any) {
	Logger().Fatalf(ctx, template, args...)
}
func FatalKV(ctx context.Context, msg string, keysAndValues ...any) {
	Logger().FatalKV(ctx, msg, keysAndValues...)
}
