package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

type Logger struct {
	service string
	z       *zap.Logger
}

// New returns a JSON line logger on stdout tagged with the service name.
func New(service string) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.CallerKey = zapcore.OmitKey
	enc.StacktraceKey = zapcore.OmitKey

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), level)
	return newWithCore(service, core)
}

func newWithCore(service string, core zapcore.Core) *Logger {
	z := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", hostname()),
	)
	return &Logger{service: service, z: z}
}

// WithRequestID returns a child logger that stamps every entry with id.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{service: l.service, z: l.z.With(zap.String("request_id", id))}
}

func (l *Logger) Service() string { return l.service }

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, toFields(action, fields, nil)...)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, toFields(action, fields, nil)...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.z.Warn(action, toFields(action, fields, nil)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.z.Error(action, toFields(action, fields, err)...)
}

func (l *Logger) Sync() error { return l.z.Sync() }

func toFields(action string, fields map[string]any, err error) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	out = append(out, zap.String("action", action))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}

	if err != nil {
		out = append(out, zap.Any("error", map[string]any{
			"msg":  err.Error(),
			"type": fmt.Sprintf("%T", err),
		}))
	}
	return out
}

func hostname() string { h, _ := os.Hostname(); return h }
