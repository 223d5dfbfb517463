package auth

import "time"

// TenantType is the coarse caller category carried in the tenant claim
type TenantType string

const (
	TenantOrganization TenantType = "organization"
	TenantInterviewee  TenantType = "interviewee"
)

// Role is an organization member role
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known member role
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether r may administer its organization
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// AuthUser is the caller behind a verified bearer token
type AuthUser struct {
	SubjectID    string     `json:"firebase_uid"`
	TenantType   TenantType `json:"tenant_id"`
	Email        string     `json:"email,omitempty"`
	IsSuperAdmin bool       `json:"is_super_admin"`
}

// OrgUser is an AuthUser bound to an organization. For super admins acting
// in god mode Role is empty and the organization is the one being addressed.
type OrgUser struct {
	SubjectID             string    `json:"firebase_uid"`
	Email                 string    `json:"email"`
	Role                  Role      `json:"role"`
	OrganizationID        int64     `json:"organization_id"`
	OrganizationName      string    `json:"organization_name"`
	OrganizationCreatedAt time.Time `json:"organization_created_at"`
	IsSuperAdmin          bool      `json:"is_super_admin"`
}
