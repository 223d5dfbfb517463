// Package middleware provides the HTTP middleware that authenticates callers,
// binds them to an organization, and rate limits public endpoints.
//
// # Authentication
//
// AuthMiddleware reads the Bearer token, resolves it through the
// TenantResolver and stores the resulting *auth.AuthUser in the request
// context:
//
//	authn := middleware.NewAuthMiddleware(resolver, false)
//	router.Use(authn.Handler)
//
// # Organization context
//
// OrgContext runs after authentication on organization-scoped routes. The
// target organization is the {org_id} path variable, or for a super admin on
// a study route without {org_id}, the organization owning {study_id}.
//
// # Rate limiting
//
// RateLimitMiddleware limits requests per client IP. The Redis limiter
// shares counters across instances and fails open; the in-memory token
// bucket is used when Redis is not configured.
package middleware
