package datasource

import "github.com/flagkit/flagkit-go/ldlog"

func noopLoggers() ldlog.Loggers {
	return ldlog.NewDisabledLoggers()
}
