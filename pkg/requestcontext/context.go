// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these; services and handlers read them without importing
// net/http helpers:
//
//	principal := requestcontext.Principal(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Tests inject them directly:
//
//	ctx = requestcontext.WithPrincipal(ctx, principalID, requestcontext.RoleAgent)
package requestcontext

import (
	"context"
	"time"

	id "mandate/pkg/domain"
)

// Role is the capability a bearer token grants.
type Role string

const (
	RoleAuthority Role = "authority"
	RoleAgent     Role = "agent"
)

func (r Role) IsValid() bool {
	return r == RoleAuthority || r == RoleAgent
}

type (
	principalKey   struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// Principal retrieves the authenticated caller. Returns the nil ID if unset.
func Principal(ctx context.Context) id.PrincipalID {
	if p, ok := ctx.Value(ContextKeyPrincipal).(id.PrincipalID); ok {
		return p
	}
	return id.PrincipalID{}
}

// PrincipalRole retrieves the role the caller authenticated with.
func PrincipalRole(ctx context.Context) Role {
	if r, ok := ctx.Value(ContextKeyRole).(Role); ok {
		return r
	}
	return ""
}

// WithPrincipal injects an authenticated caller and its role.
func WithPrincipal(ctx context.Context, principal id.PrincipalID, role Role) context.Context {
	ctx = context.WithValue(ctx, ContextKeyPrincipal, principal)
	return context.WithValue(ctx, ContextKeyRole, role)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ReceivedAt retrieves the time the request entered the server. It is used
// for latency and logging only; ledger timestamps come from the server clock.
func ReceivedAt(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// WithReceivedAt injects the request arrival time.
func WithReceivedAt(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
