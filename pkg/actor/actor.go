// Package actor carries the authenticated user through request context.
// Role checks live here so the admin-only policy is enforced in one
// place instead of being re-implemented per operation.
package actor

import (
	"context"

	"github.com/paycore/payroll-backend/pkg/errors"
)

// Roles known to the system.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated user performing an operation.
type Actor struct {
	Username string
	Role     string
}

// IsAdmin reports whether the actor holds the administrator role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext retrieves the actor from context, or nil if absent.
func FromContext(ctx context.Context) *Actor {
	if a, ok := ctx.Value(actorKey).(*Actor); ok {
		return a
	}
	return nil
}

// RequireAdmin returns the actor if it holds the administrator role, or a
// typed failure otherwise. Services call this for every admin-only
// operation: backup, restore, delete-backup, mark paid/unpaid, add-user.
func RequireAdmin(ctx context.Context) (*Actor, error) {
	a := FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.IsAdmin() {
		return nil, errors.Forbidden("administrator role required")
	}
	return a, nil
}

// Require returns the actor or an unauthorized failure when no user is
// attached to the context.
func Require(ctx context.Context) (*Actor, error) {
	a := FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}
