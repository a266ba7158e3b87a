// Package remote is the transport side of the fetcher: the Source
// contract the fetcher calls on a cache miss, and an HTTP implementation.
package remote

import (
	"context"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/spec"
)

// Request describes one remote fetch.
type Request struct {
	Kind spec.Kind
	Name string

	// URL is the type's path template, e.g. "/listings/:id". Empty means
	// the source picks a default.
	URL    string
	Params entity.Attributes
}

// Source performs remote fetches. The returned value is the decoded
// response body: an object or an array of plain JSON values.
//
// Errors are passed to fetch callers verbatim.
type Source interface {
	Fetch(ctx context.Context, req Request) (any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (any, error)

func (f SourceFunc) Fetch(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}
