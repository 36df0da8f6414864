// Package ldlog contains log level definitions and wrapper logic used internally by the SDK, as
// well as types that may be used by application code to configure the SDK's logging behavior.
package ldlog

import (
	"log"
	"os"
	"strings"
)

// LogLevel represents one of the possible severity levels for log output.
type LogLevel int

const (
	// Debug is the lowest log level; it is used for program internals that are only of interest
	// during development or troubleshooting.
	Debug LogLevel = iota
	// Info is used for informational messages about normal SDK operation.
	Info
	// Warn is used for warnings that are not fatal but might indicate a real problem.
	Warn
	// Error is used for errors that may make the SDK unable to continue normal operation.
	Error
	// None is not a real log level, but can be used to request that no log output be generated.
	None
)

func (l LogLevel) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return ""
	}
}

// BaseLogger is the interface for an underlying logging mechanism that Loggers can write to.
// The standard library's log.Logger satisfies this interface, as does any logging framework
// that provides at least these two methods.
type BaseLogger interface {
	Println(values ...interface{})
	Printf(format string, values ...interface{})
}

// Loggers is a set of loggers, one for each log level, that can be configured individually. It
// is the logging mechanism used internally throughout the SDK; application code normally only
// interacts with it via a Config's logging configuration builder.
//
// The zero value for Loggers is valid and will write Info level and above to the standard
// output stream, with level prefixes, using the standard library's log package.
type Loggers struct {
	loggersByLevel [4]*levelLogger
	minLevel       LogLevel
	minLevelSet    bool
	initialized    bool
}

type levelLogger struct {
	logger     BaseLogger
	prefix     string
	overridden bool
}

func (l Loggers) isEnabledFor(level LogLevel) bool {
	if !l.minLevelSet {
		return level >= Info
	}
	return level >= l.minLevel
}

func (l *Loggers) init() {
	if l.initialized {
		return
	}
	defaultLogger := log.New(os.Stdout, "", log.LstdFlags)
	for i := range l.loggersByLevel {
		if l.loggersByLevel[i] == nil {
			l.loggersByLevel[i] = &levelLogger{logger: defaultLogger, prefix: LogLevel(i).String() + ": "}
		}
	}
	l.initialized = true
}

// SetBaseLogger specifies an implementation of BaseLogger to use for all log levels unless
// SetBaseLoggerForLevel is used to override it for a specific level. Each log level's output
// is still tagged with a level prefix.
func (l *Loggers) SetBaseLogger(logger BaseLogger) {
	l.init()
	for i := range l.loggersByLevel {
		if l.loggersByLevel[i].overridden {
			continue
		}
		l.loggersByLevel[i] = &levelLogger{logger: logger, prefix: LogLevel(i).String() + ": "}
	}
}

// SetBaseLoggerForLevel specifies an implementation of BaseLogger to use only for the specified
// log level.
func (l *Loggers) SetBaseLoggerForLevel(level LogLevel, logger BaseLogger) {
	l.init()
	l.loggersByLevel[level] = &levelLogger{logger: logger, prefix: level.String() + ": ", overridden: true}
}

// SetMinLevel specifies the minimum level of messages that should be logged. Lower-priority
// messages will be discarded entirely. The default is Info.
func (l *Loggers) SetMinLevel(level LogLevel) {
	l.minLevel = level
	l.minLevelSet = true
}

// SetPrefix specifies a prefix that will be prepended, as-is, to the level tag on every log
// line across all levels.
func (l *Loggers) SetPrefix(prefix string) {
	l.init()
	for i := range l.loggersByLevel {
		l.loggersByLevel[i].prefix = prefix + LogLevel(i).String() + ": "
	}
}

func (l *Loggers) write(level LogLevel, values ...interface{}) {
	l.init()
	if !l.isEnabledFor(level) {
		return
	}
	ll := l.loggersByLevel[level]
	ll.logger.Println(append([]interface{}{strings.TrimSuffix(ll.prefix, " ")}, values...)...)
}

func (l *Loggers) writef(level LogLevel, format string, values ...interface{}) {
	l.init()
	if !l.isEnabledFor(level) {
		return
	}
	ll := l.loggersByLevel[level]
	ll.logger.Printf(ll.prefix+format, values...)
}

// Debug writes a message at Debug level.
func (l *Loggers) Debug(values ...interface{}) { l.write(Debug, values...) }

// Debugf writes a message at Debug level, using fmt.Sprintf-style formatting.
func (l *Loggers) Debugf(format string, values ...interface{}) { l.writef(Debug, format, values...) }

// Info writes a message at Info level.
func (l *Loggers) Info(values ...interface{}) { l.write(Info, values...) }

// Infof writes a message at Info level, using fmt.Sprintf-style formatting.
func (l *Loggers) Infof(format string, values ...interface{}) { l.writef(Info, format, values...) }

// Warn writes a message at Warn level.
func (l *Loggers) Warn(values ...interface{}) { l.write(Warn, values...) }

// Warnf writes a message at Warn level, using fmt.Sprintf-style formatting.
func (l *Loggers) Warnf(format string, values ...interface{}) { l.writef(Warn, format, values...) }

// Error writes a message at Error level.
func (l *Loggers) Error(values ...interface{}) { l.write(Error, values...) }

// Errorf writes a message at Error level, using fmt.Sprintf-style formatting.
func (l *Loggers) Errorf(format string, values ...interface{}) { l.writef(Error, format, values...) }

// IsDebugEnabled returns true if Debug-level output is currently enabled.
func (l Loggers) IsDebugEnabled() bool { return l.isEnabledFor(Debug) }

// NewDisabledLoggers returns a Loggers instance whose output is completely suppressed.
func NewDisabledLoggers() Loggers {
	l := Loggers{}
	l.SetMinLevel(None)
	return l
}
