package logger

import (
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "info", "":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func (l Level) apex() log.Level {
	switch l {
	case Debug:
		return log.DebugLevel
	case Warn:
		return log.WarnLevel
	case Error:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Logger es la interfaz que usan servicios y adapters.
// Los campos se pasan como map para no acoplar el dominio a apex/log.
type Logger interface {
	With(fields map[string]any) Logger

	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type Options struct {
	Level  Level
	Format Format
	App    string

	// Output por defecto os.Stdout.
	Output io.Writer
	// Handler reemplaza Format/Output si viene (p.ej. memory handler en tests).
	Handler log.Handler
}

// apexLogger envuelve un *log.Entry de apex/log.
type apexLogger struct {
	entry *log.Entry
}

func New(opts Options) Logger {
	h := opts.Handler
	if h == nil {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		switch opts.Format {
		case FormatJSON:
			h = jsonhandler.New(out)
		default:
			h = text.New(out)
		}
	}

	l := &log.Logger{
		Handler: h,
		Level:   opts.Level.apex(),
	}

	fields := log.Fields{}
	if app := strings.TrimSpace(opts.App); app != "" {
		fields["app"] = app
	}
	return &apexLogger{entry: l.WithFields(fields)}
}

// NewFromEnv crea logger desde env:
// - LOG_LEVEL=debug|info|warn|error (default info)
// - LOG_FORMAT=text|json (default text)
// - APP_NAME=pawhub (opcional)
func NewFromEnv() Logger {
	return New(Options{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: ParseFormat(os.Getenv("LOG_FORMAT")),
		App:    os.Getenv("APP_NAME"),
	})
}

// Nop descarta todo. Útil en tests y como default.
func Nop() Logger {
	return New(Options{Handler: discard.New()})
}

func (l *apexLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	return &apexLogger{entry: l.entry.WithFields(clean(fields))}
}

func (l *apexLogger) Debug(msg string, fields map[string]any) { l.with(fields).Debug(msg) }
func (l *apexLogger) Info(msg string, fields map[string]any)  { l.with(fields).Info(msg) }
func (l *apexLogger) Warn(msg string, fields map[string]any)  { l.with(fields).Warn(msg) }
func (l *apexLogger) Error(msg string, fields map[string]any) { l.with(fields).Error(msg) }

func (l *apexLogger) with(fields map[string]any) *log.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(clean(fields))
}

func clean(fields map[string]any) log.Fields {
	out := make(log.Fields, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		out[k] = v
	}
	return out
}
