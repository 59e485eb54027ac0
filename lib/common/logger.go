package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LoggerNames lists every named logger used by dDocs.
// InitLoggers applies the configured levels to all of them.
var LoggerNames = []string{
	"docstore",
	"remote",
	"cache",
	"backup",
	"syncer",
	"mirror",
	"metadata",
	"migrate",
	"lockmgr",
	"api",
}

// nameWidth aligns the logger column to the longest known name
var nameWidth = func() int {
	width := 0
	for _, name := range LoggerNames {
		width = max(width, len(name))
	}
	return width
}()

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// docsLogger writes "LEVEL | name | message" lines. The level may be changed while
// other goroutines log.
type docsLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

func newDocsLogger(name string, out io.Writer, flags int) *docsLogger {
	l := &docsLogger{name: name, logger: log.New(out, "", flags)}
	l.level.Store(int32(logger.INFO))
	return l
}

func (l *docsLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *docsLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *docsLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *docsLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *docsLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *docsLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

// Panicf always panics, a critical error must never be filtered away
func (l *docsLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.log("PANIC", "%s", message)
	panic(message)
}

func (l *docsLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-*s | %s", levelStr, nameWidth, l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return newDocsLogger(pkgName, os.Stdout, log.Ldate|log.Ltime|log.Lmicroseconds)
}

// dragonboat panics if the factory is set twice
var installFactory sync.Once

// --------------------------------------------------------------------------
// Level parsing
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// LevelName is the inverse of ParseLogLevel
func LevelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "debug"
	case logger.WARNING:
		return "warn"
	case logger.ERROR, logger.CRITICAL:
		return "error"
	default:
		return "info"
	}
}

// Levels is a default level with optional per logger overrides
type Levels struct {
	Default   logger.LogLevel
	Overrides map[string]logger.LogLevel
}

// Of returns the level of the named logger
func (l Levels) Of(name string) logger.LogLevel {
	if lvl, ok := l.Overrides[name]; ok {
		return lvl
	}
	return l.Default
}

// ParseLevels parses a level spec such as "info" or "warn,remote=debug,api=debug".
// An entry without "=" sets the default, every name must be one of LoggerNames.
func ParseLevels(spec string) (Levels, error) {
	levels := Levels{Default: logger.INFO, Overrides: make(map[string]logger.LogLevel)}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, level, scoped := strings.Cut(part, "=")
		lvl, err := ParseLogLevel(level)
		if !scoped {
			lvl, err = ParseLogLevel(name)
		}
		if err != nil {
			return Levels{}, err
		}

		if !scoped {
			levels.Default = lvl
			continue
		}
		name = strings.TrimSpace(name)
		if !isLoggerName(name) {
			return Levels{}, fmt.Errorf("unknown logger %q. must be one of %s", name, strings.Join(LoggerNames, ", "))
		}
		levels.Overrides[name] = lvl
	}
	return levels, nil
}

func isLoggerName(name string) bool {
	for _, known := range LoggerNames {
		if known == name {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory (once per process) and applies the
// level spec (see ParseLevels) to all dDocs loggers.
func InitLoggers(spec string) (Levels, error) {
	levels, err := ParseLevels(spec)
	if err != nil {
		return Levels{}, err
	}

	installFactory.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(levels.Of(name))
	}
	return levels, nil
}
