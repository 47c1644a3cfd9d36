package httpclient

import (
	"fmt"
	"strings"
)

// Logger receives resty's own diagnostics. It is satisfied by the structured
// loggers used across the module.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// restyLogger implements resty.Logger. A nil Logger drops everything.
type restyLogger struct {
	log Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	if r.log != nil {
		r.log.ErrorObj("resty error", "resty", message(format, v))
	}
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	if r.log != nil {
		r.log.WarnObj("resty warning", "resty", message(format, v))
	}
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	if r.log != nil {
		r.log.DebugObj("resty debug", "resty", message(format, v))
	}
}

func message(format string, v []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
