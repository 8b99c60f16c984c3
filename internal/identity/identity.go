// Package identity resolves the calling principal and the current time.
// Both are collaborators of the platform: the core only consumes them.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Provider resolves the identity behind the current call
type Provider interface {
	Caller(ctx context.Context) core.Identity
}

// Clock supplies the current time at whole-second granularity
type Clock interface {
	Now() time.Time
}

type callerKey struct{}

// WithCaller returns a context that carries the given caller
func WithCaller(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFrom returns the caller stored in ctx, if any
func CallerFrom(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(core.Identity)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ContextProvider reads the caller placed in the context by the transport.
// Calls without a caller are attributed to the anonymous identity.
type ContextProvider struct {
	Anonymous core.Identity
}

// NewContextProvider creates a provider that falls back to anonymous
func NewContextProvider(anonymous core.Identity) ContextProvider {
	if anonymous == "" {
		anonymous = core.AnonymousIdentity
	}
	return ContextProvider{Anonymous: anonymous}
}

// Caller implements Provider
func (p ContextProvider) Caller(ctx context.Context) core.Identity {
	if id, ok := CallerFrom(ctx); ok {
		return id
	}
	return p.Anonymous
}

// Parse normalizes an identity received from outside the process.
// Surrounding whitespace is dropped; everything else is opaque.
func Parse(raw string) (core.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", core.ErrMissingRequired
	}
	if len(raw) > 256 {
		return "", core.ErrInvalidInput
	}
	return core.Identity(raw), nil
}

// SystemClock reads the wall clock in UTC, truncated to the second
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
