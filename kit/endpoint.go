package kit

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// Endpoint is a transport-agnostic request handler: a typed request in,
// a typed response out. Transports (MCP, HTTP) adapt their own request
// shapes to and from `any` at the boundary and call the same Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint, adding cross-cutting behavior (logging,
// timeout, recovery) without changing its signature.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first middleware in the
// slice is the outermost wrapper, so it runs first on the request path
// and last on the response path.
//
//	wrapped := Chain(Logging(logger), Recovery(logger))(baseEndpoint)
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call's duration and outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			dur := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "endpoint call failed", "duration_ms", dur.Milliseconds(), "error", err)
			} else {
				logger.DebugContext(ctx, "endpoint call ok", "duration_ms", dur.Milliseconds())
			}
			return resp, err
		}
	}
}

// Recovery catches panics in the wrapped Endpoint and turns them into
// errors instead of crashing the process.
func Recovery(logger *slog.Logger) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "endpoint panic recovered", "panic", r, "stack", string(debug.Stack()))
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, req)
		}
	}
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return "kit: endpoint panicked" }
