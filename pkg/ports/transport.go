package ports

import (
	"context"

	"github.com/aretw0/davinci/pkg/domain"
)

// Transport performs one HTTP round trip. Implementations must report
// connectivity failures as *domain.TransportError and must return non-2xx
// responses as ordinary responses.
type Transport interface {
	Do(ctx context.Context, req domain.Request) (domain.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req domain.Request) (domain.Response, error)

func (f TransportFunc) Do(ctx context.Context, req domain.Request) (domain.Response, error) {
	return f(ctx, req)
}
