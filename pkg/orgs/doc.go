// Package orgs manages organizations and their members, and resolves the
// organization context of authenticated callers.
//
// Organizations are created by super admins together with an owner account:
// the owner is created (or reused) in the identity provider, given the
// organization tenant claims and stored as a users row in the same database
// transaction as the organization. Organizations are soft deleted only.
//
// ContextResolver binds an auth.AuthUser to an organization. Organization
// tenants must have a users row. Super admins act in god mode: they need no
// row and take the organization the request addresses.
package orgs
