// Package contextkeys holds every request-context key used across Verity.
//
// Keys live in one place so that middleware and handlers agree on the key
// and the stored type:
//
//	ctx = contextkeys.WithAuthUser(ctx, user)
//	user, _ := ctx.Value(contextkeys.AuthUserKey).(*auth.AuthUser)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthUserKey contains *auth.AuthUser
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: every authenticated endpoint
	AuthUserKey Key = "auth_user"

	// OrgUserKey contains *auth.OrgUser
	// Set by: middleware.OrgContextMiddleware (pkg/middleware/org.go)
	// Required by: organization-scoped endpoints
	OrgUserKey Key = "org_user"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	RequestIDKey Key = "request_id"

	// SubjectKey contains the identity provider subject of the caller
	// Set by: middleware.AuthMiddleware
	SubjectKey Key = "subject"

	// LoggerKey contains *observability.Logger
	LoggerKey Key = "logger"
)

// WithAuthUser adds the authenticated caller to the context
func WithAuthUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// WithOrgUser adds the resolved organization context to the context
func WithOrgUser(ctx context.Context, orgUser interface{}) context.Context {
	return context.WithValue(ctx, OrgUserKey, orgUser)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithSubject adds the caller's subject ID to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSubject retrieves the caller's subject ID from context
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(SubjectKey).(string); ok {
		return subject
	}
	return ""
}
