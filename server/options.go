package server

import (
	"dario.cat/mergo"
	"github.com/pkg/errors"
)

type Options struct {
	// TimeoutSeconds is the per-operation timeout of every connection.
	TimeoutSeconds int
	// MaxConns bounds the number of connections served at once.
	// Accepting pauses while the bound is reached.
	MaxConns int
	// BufferSize is the receive buffer size of the echo handler.
	BufferSize int
}

func defaultOptions() Options {
	return Options{
		TimeoutSeconds: 1,
		MaxConns:       128,
		BufferSize:     4096,
	}
}

// withDefaults fills every unset field of opts.
func withDefaults(opts Options) (Options, error) {
	if err := mergo.Merge(&opts, defaultOptions()); err != nil {
		return Options{}, errors.Wrap(err, "setting option defaults")
	}
	if opts.TimeoutSeconds < 0 || opts.MaxConns < 0 || opts.BufferSize < 0 {
		return Options{}, errors.Errorf("options must not be negative: %+v", opts)
	}
	return opts, nil
}
