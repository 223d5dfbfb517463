package auth

import "github.com/verityux/verity/pkg/apperr"

// RequireSuperAdmin passes only platform super admins
func RequireSuperAdmin(user *AuthUser) error {
	if user == nil || !user.IsSuperAdmin {
		return apperr.Forbidden("Super admin access required")
	}
	return nil
}

// RequireOrganizationTenant passes callers whose tenant claim is organization
func RequireOrganizationTenant(user *AuthUser) error {
	if user == nil || user.TenantType != TenantOrganization {
		return apperr.Forbidden("Organization user access required")
	}
	return nil
}

// RequireIntervieweeTenant passes callers whose tenant claim is interviewee
func RequireIntervieweeTenant(user *AuthUser) error {
	if user == nil || user.TenantType != TenantInterviewee {
		return apperr.Forbidden("Interviewee user access required")
	}
	return nil
}

// RequireOwnerOrAdmin passes owners, admins and super admins
func RequireOwnerOrAdmin(user *OrgUser) error {
	if user != nil && (user.IsSuperAdmin || user.Role.CanManage()) {
		return nil
	}
	return apperr.Forbidden("Owner or admin role required")
}

// CheckOwnership fails with NotFound(notFound) unless the resource belongs
// to the caller's organization or the caller is a super admin.
func CheckOwnership(user *OrgUser, resourceOrgID int64, notFound string) error {
	if user == nil {
		return apperr.NotFound(notFound)
	}
	if user.IsSuperAdmin || user.OrganizationID == resourceOrgID {
		return nil
	}
	return apperr.NotFound(notFound)
}
