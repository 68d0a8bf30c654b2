// Package datasource defines where pipeline inputs are read from.
package datasource

import (
	"context"
	"io"
)

// Source is a named, openable input. Path identifies it in errors and logs.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Path() string
}
