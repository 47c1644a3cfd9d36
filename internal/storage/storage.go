// Package storage remembers Direct nonces so a signed redirect is accepted once.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyNonce is returned for an empty nonce; it can never be recorded.
var ErrEmptyNonce = errors.New("nonce is empty")

// Store tracks nonces that have already been consumed.
type Store interface {
	Close() error
	SeenNonce(nonce string) (bool, error)
	MarkNonce(nonce string) error
	// Consume marks nonce and reports whether it was unseen, in one step.
	Consume(nonce string) (bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	NonceTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultNonceTTL        = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.NonceTTL <= 0 {
		opts.NonceTTL = defaultNonceTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) SeenNonce(string) (bool, error) { return false, nil }
func (noopStore) MarkNonce(string) error         { return nil }
func (noopStore) Consume(string) (bool, error)   { return true, nil }
