// Package publishers delivers Chargify Direct results to downstream sinks
// declared in a YAML or JSON file.
package publishers

import (
	"context"

	"github.com/samvad-hq/chargify-go/pkg/chargify"
)

// Publisher delivers Direct result events to one downstream sink.
type Publisher interface {
	Descriptor() Descriptor
	Publish(ctx context.Context, evt Event) error
}

// Descriptor identifies a publisher in logs and errors.
type Descriptor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (d Descriptor) String() string { return d.Type + "[" + d.ID + "]" }

// Logger is the logging surface publishers rely on; it matches the client's.
type Logger = chargify.Logger

type nopLogger struct{}

func (nopLogger) InfoObj(string, string, interface{})  {}
func (nopLogger) DebugObj(string, string, interface{}) {}
func (nopLogger) WarnObj(string, string, interface{})  {}
func (nopLogger) ErrorObj(string, string, interface{}) {}

func orNop(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
