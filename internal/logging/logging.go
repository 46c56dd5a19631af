// Package logging wraps logrus so every component logs through the same
// structured, level/format/output-configurable logger rather than reaching
// for the standard library's log package directly.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger embeds *logrus.Logger so callers get the full logrus API
// (WithField, WithFields, Infof, ...) plus the constructors below.
type Logger struct {
	*logrus.Logger
}

// Config configures a Logger's level, format and destination.
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

// New builds a Logger from Config. File logging setup beyond writing the
// file handle itself (rotation, discovery of the log directory path) is left
// to the caller; this only opens a sane default.
func New(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "isolate-core"
		}
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			l.Errorf("create log directory: %v", err)
			break
		}
		file, err := os.OpenFile(filepath.Join(logDir, prefix+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Errorf("open log file: %v", err)
			break
		}
		l.SetOutput(io.MultiWriter(os.Stdout, file))
	default:
		l.SetOutput(os.Stdout)
	}

	return &Logger{Logger: l}
}

// NewDefault returns an info-level, text-formatted, stdout logger, for use
// where no explicit Config is threaded in. component is applied as a
// standing field on every entry emitted through the returned Logger.
func NewDefault(component string) *Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stdout)
	if component != "" {
		l.AddHook(staticFieldHook{field: "component", value: component})
	}
	return &Logger{Logger: l}
}

// staticFieldHook injects a constant field into every log entry.
type staticFieldHook struct {
	field string
	value string
}

func (h staticFieldHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h staticFieldHook) Fire(entry *logrus.Entry) error {
	entry.Data[h.field] = h.value
	return nil
}
