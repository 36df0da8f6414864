package ldcomponents

import (
	"github.com/flagkit/flagkit-go/ldlog"
)

// LoggingConfigurationBuilder configures the Loggers a Client attaches to ClientContext, and
// hence to every Data Source, Data Store, and Event Processor it builds. Grounded on
// ldcomponents/logging_configuration_builder.go.
type LoggingConfigurationBuilder struct {
	loggers ldlog.Loggers
}

// Logging returns a configuration builder for logging, defaulting to Loggers' zero value (Info
// and above to stdout).
func Logging() *LoggingConfigurationBuilder {
	return &LoggingConfigurationBuilder{}
}

// MinLevel sets the minimum level that will be written; messages below it are suppressed.
func (b *LoggingConfigurationBuilder) MinLevel(level ldlog.LogLevel) *LoggingConfigurationBuilder {
	b.loggers.SetMinLevel(level)
	return b
}

// Loggers replaces the Loggers entirely, e.g. to redirect output to a file or an adapter onto
// another logging library.
func (b *LoggingConfigurationBuilder) Loggers(loggers ldlog.Loggers) *LoggingConfigurationBuilder {
	b.loggers = loggers
	return b
}

// Build returns the configured Loggers.
func (b *LoggingConfigurationBuilder) Build() ldlog.Loggers {
	return b.loggers
}

// NoLogging returns Loggers with all output suppressed.
func NoLogging() ldlog.Loggers {
	return ldlog.NewDisabledLoggers()
}
