package orgs

import (
	"regexp"
	"time"

	"github.com/verityux/verity/pkg/auth"
)

// Organization is a tenant organization
type Organization struct {
	ID          int64      `json:"org_id,string"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Description *string    `json:"description,omitempty"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Member is an organization staff account
type Member struct {
	ID             int64     `json:"user_id,string"`
	FirebaseUID    string    `json:"-"`
	Email          string    `json:"email"`
	Role           auth.Role `json:"role"`
	OrganizationID int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"-"`
}

// MemberContext is a member joined with its organization
type MemberContext struct {
	Member
	OrganizationName      string
	OrganizationCreatedAt time.Time
}

// CreateOrganizationRequest provisions an organization and its owner
type CreateOrganizationRequest struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Description *string `json:"description,omitempty"`
	OwnerEmail  string  `json:"owner_email"`
}

// InviteMemberRequest adds a member to an organization
type InviteMemberRequest struct {
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// ProvisionedUser is a member together with a link to set their password
type ProvisionedUser struct {
	ID                int64     `json:"user_id,string"`
	Email             string    `json:"email"`
	Role              auth.Role `json:"role"`
	PasswordResetLink string    `json:"password_reset_link,omitempty"`
}

// CreateOrganizationResult is returned after provisioning an organization
type CreateOrganizationResult struct {
	*Organization
	Owner ProvisionedUser `json:"owner"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const maxSlugLength = 100

// ValidSlug reports whether name is a lowercase URL-safe slug
func ValidSlug(name string) bool {
	return len(name) <= maxSlugLength && slugPattern.MatchString(name)
}
