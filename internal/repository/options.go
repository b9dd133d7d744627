package repository

import (
	"log/slog"

	"tabula/internal/logger"
)

// DefaultIndexLabel is the header label written for the key column
const DefaultIndexLabel = "index"

// Option configures a repository
type Option func(*options)

type options struct {
	indexLabel string
	strict     bool
	logger     *slog.Logger
}

func buildOptions(opts []Option) options {
	o := options{
		indexLabel: DefaultIndexLabel,
		strict:     true,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIndexLabel sets the header label of the key column on export.
// Any label is accepted on load; the first column is always the key.
func WithIndexLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.indexLabel = label
		}
	}
}

// WithStrictColumns controls whether unknown columns fail a load (default true)
func WithStrictColumns(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
