// Package store persists benchmark result records.
package store

import (
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tclemos/map-bench/benchmark"
)

// Backend is a result store that holds resources until closed
type Backend interface {
	benchmark.Store
	io.Closer
}

// Store backend types
type Type string

const (
	TypePebble Type = "pebble"
	TypeRemote Type = "remote"
	TypeMemory Type = "memory"
)

// DefaultResultsURL is where the results server listens by default
const DefaultResultsURL = "http://localhost:3000"

// Config holds configuration for store creation
type Config struct {
	Type Type

	// Pebble-specific options
	Path           string
	BlockCacheSize int64 // bytes, negative means disabled

	// Remote-specific options
	URL     string
	Timeout time.Duration
}

// ErrBackendNotFound is returned for an unknown store type
var ErrBackendNotFound = errors.New("store backend not found")

// New creates a store based on the configuration. Pebble is the default.
func New(cfg Config) (Backend, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case TypePebble, "":
		return OpenPebble(cfg.Path, cfg.BlockCacheSize)
	case TypeRemote:
		return NewRemote(cfg.URL, cfg.Timeout), nil
	case TypeMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Wrapf(ErrBackendNotFound, "%q", cfg.Type)
	}
}

func (t Type) String() string {
	return string(t)
}
