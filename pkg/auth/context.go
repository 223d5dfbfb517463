package auth

import (
	"context"

	"github.com/verityux/verity/pkg/contextkeys"
)

// WithUser stores the caller in ctx
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return contextkeys.WithAuthUser(ctx, user)
}

// UserFromContext returns the caller stored by the auth middleware
func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(contextkeys.AuthUserKey).(*AuthUser)
	return user, ok && user != nil
}

// WithOrgUser stores the organization context in ctx
func WithOrgUser(ctx context.Context, user *OrgUser) context.Context {
	return contextkeys.WithOrgUser(ctx, user)
}

// OrgUserFromContext returns the organization context stored by the org middleware
func OrgUserFromContext(ctx context.Context) (*OrgUser, bool) {
	user, ok := ctx.Value(contextkeys.OrgUserKey).(*OrgUser)
	return user, ok && user != nil
}
