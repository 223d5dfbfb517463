package orgs

import (
	"context"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
)

// MemberLookup is the subset of Store the context resolver needs
type MemberLookup interface {
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	GetMemberContext(ctx context.Context, firebaseUID string) (*MemberContext, error)
}

// ContextResolver binds callers to an organization
type ContextResolver struct {
	store MemberLookup
}

// NewContextResolver creates a new ContextResolver
func NewContextResolver(store MemberLookup) *ContextResolver {
	return &ContextResolver{store: store}
}

// ResolveOrgUser returns the organization context for user. target is the
// organization addressed by the request, or nil for context-free requests.
//
// Organization members must have a users row and may only address their own
// organization. Super admins address any organization; without a target
// they fall back to their own row if they have one and otherwise fail
// NotFound.
func (r *ContextResolver) ResolveOrgUser(ctx context.Context, user *auth.AuthUser, target *int64) (*auth.OrgUser, error) {
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	if user.IsSuperAdmin && target != nil {
		org, err := r.store.GetOrganization(ctx, *target)
		if err != nil {
			return nil, err
		}
		return &auth.OrgUser{
			SubjectID:             user.SubjectID,
			Email:                 user.Email,
			OrganizationID:        org.ID,
			OrganizationName:      org.Name,
			OrganizationCreatedAt: org.CreatedAt,
			IsSuperAdmin:          true,
		}, nil
	}

	member, err := r.store.GetMemberContext(ctx, user.SubjectID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		if user.IsSuperAdmin {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, apperr.Forbidden("User not associated with any organization")
	}

	if target != nil && *target != member.OrganizationID {
		return nil, apperr.NotFound("Organization not found")
	}

	return &auth.OrgUser{
		SubjectID:             member.FirebaseUID,
		Email:                 member.Email,
		Role:                  member.Role,
		OrganizationID:        member.OrganizationID,
		OrganizationName:      member.OrganizationName,
		OrganizationCreatedAt: member.OrganizationCreatedAt,
		IsSuperAdmin:          user.IsSuperAdmin,
	}, nil
}
