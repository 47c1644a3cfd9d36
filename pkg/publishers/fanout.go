package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fanout dispatches events to all configured publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher over pubs. Nil entries are dropped.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// LoadFanout builds a Fanout over the enabled publishers declared in path.
// An empty path yields an empty Fanout.
func LoadFanout(ctx context.Context, path string, log Logger) (*Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return NewFanout(nil), nil
	}
	cfgs, err := LoadConfigs(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := DefaultRegistry().BuildAll(ctx, EnabledOnly(cfgs), log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	return NewFanout(pubs), nil
}

// Publish hands evt to every publisher and returns how many accepted it.
// Failures are joined; one failing sink does not stop the rest.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}
	var errs []error
	delivered := 0
	for _, p := range f.publishers {
		err := p.Publish(ctx, evt)
		switch {
		case errors.Is(err, errFiltered):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", p.Descriptor(), err))
		default:
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Summaries describes each publisher for logging.
func (f *Fanout) Summaries() []Descriptor {
	if f == nil {
		return nil
	}
	out := make([]Descriptor, len(f.publishers))
	for i, p := range f.publishers {
		out[i] = p.Descriptor()
	}
	return out
}

// errFiltered marks an event a publisher chose not to receive.
var errFiltered = errors.New("event filtered")

type filteredPublisher struct {
	Publisher
	want bool
}

func withDeliverFilter(p Publisher, deliver string) Publisher {
	switch deliver {
	case DeliverSuccess:
		return filteredPublisher{Publisher: p, want: true}
	case DeliverFailure:
		return filteredPublisher{Publisher: p, want: false}
	default:
		return p
	}
}

func (f filteredPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.Success != f.want {
		return errFiltered
	}
	return f.Publisher.Publish(ctx, evt)
}
