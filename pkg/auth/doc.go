// Package auth resolves bearer tokens into callers and decides what they may do.
//
// # Callers
//
// AuthUser is the verified identity behind a bearer token: the subject id,
// the tenant type carried in the "tenant" custom claim and whether the
// caller is a platform super admin. OrgUser adds the organization context
// of an organization tenant (or, for super admins, of the organization the
// request addresses).
//
// # Resolving tokens
//
//	resolver := auth.NewTenantResolver(verifier, auth.ResolverConfig{
//		CacheSize: 10000,
//		CacheTTL:  5 * time.Minute,
//	}, metrics)
//	user, err := resolver.Resolve(ctx, rawToken)
//
// Verified tokens are cached by SHA-256 digest until the earlier of the
// cache TTL and the token's own expiry.
//
// # Policy
//
// Guards return *apperr.Error values and are applied in a fixed order:
// tenant check, role check, resource ownership. Ownership failures are
// reported as not found so callers cannot discover other organizations.
//
//	if err := auth.RequireOrganizationTenant(user); err != nil { ... }
//	if err := auth.RequireOwnerOrAdmin(orgUser); err != nil { ... }
//	if err := auth.CheckOwnership(orgUser, study.OrganizationID, "Study not found"); err != nil { ... }
package auth
