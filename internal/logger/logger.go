// Package logger writes rotating client logs. Lines go to a file under the config directory,
// and to stderr as well when debug output is on.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/habitual/internal/constants"
)

// Logger is the process-wide logger; nil until Init
var Logger *log.Logger

type Config struct {
	// Level is debug, info, warn or error. Empty means warn.
	Level string
	// Debug forces the debug level and mirrors lines to stderr
	Debug bool
	// Dir holds logs/<app>.log unless File is set
	Dir  string
	File string
}

// Path returns the log file Init writes to.
func (c Config) Path() string {
	if c.File != "" {
		return c.File
	}
	return filepath.Join(c.Dir, "logs", constants.AppName+".log")
}

// ParseLevel accepts the level names a config file may carry.
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.WarnLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == log.FatalLevel {
		return 0, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s)
	}
	return level, nil
}

func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Debug {
		level = log.DebugLevel
	}

	path := cfg.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var writer io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 2,
		MaxAge:     14, // days
		Compress:   true,
	}
	if cfg.Debug {
		writer = io.MultiWriter(os.Stderr, writer)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})
	return nil
}

// Scope carries fields that every line it writes repeats, such as a request id.
// The zero value and a nil *Scope discard everything.
type Scope struct {
	l *log.Logger
}

// With returns a Scope over the global logger. Fields are bound at call time, so a
// Scope taken before Init stays silent.
func With(keyvals ...interface{}) *Scope {
	if Logger == nil {
		return &Scope{}
	}
	return &Scope{l: Logger.With(keyvals...)}
}

// With adds more fields to s.
func (s *Scope) With(keyvals ...interface{}) *Scope {
	if s == nil || s.l == nil {
		return &Scope{}
	}
	return &Scope{l: s.l.With(keyvals...)}
}

func (s *Scope) Debug(msg string, keyvals ...interface{}) {
	if s != nil && s.l != nil {
		s.l.Debug(msg, keyvals...)
	}
}

func (s *Scope) Info(msg string, keyvals ...interface{}) {
	if s != nil && s.l != nil {
		s.l.Info(msg, keyvals...)
	}
}

func (s *Scope) Warn(msg string, keyvals ...interface{}) {
	if s != nil && s.l != nil {
		s.l.Warn(msg, keyvals...)
	}
}

func (s *Scope) Error(msg string, keyvals ...interface{}) {
	if s != nil && s.l != nil {
		s.l.Error(msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) {
	(&Scope{l: Logger}).Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	(&Scope{l: Logger}).Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	(&Scope{l: Logger}).Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	(&Scope{l: Logger}).Error(msg, keyvals...)
}
