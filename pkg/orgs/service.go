package orgs

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/identity"
	"github.com/verityux/verity/pkg/observability"
)

// Service implements organization and member management
type Service struct {
	store    Store
	identity identity.Admin
}

// NewService creates a new Service
func NewService(store Store, admin identity.Admin) *Service {
	return &Service{store: store, identity: admin}
}

func memberClaims(role auth.Role) map[string]interface{} {
	return map[string]interface{}{
		identity.ClaimTenant: string(auth.TenantOrganization),
		identity.ClaimRole:   string(role),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.BadRequest("Invalid email address")
	}
	return strings.ToLower(email), nil
}

// CreateOrganization provisions an organization and its owner. The owner
// account is reused when the email is already registered.
func (s *Service) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*CreateOrganizationResult, error) {
	if !ValidSlug(req.Name) {
		return nil, apperr.BadRequest("Organization name must be a lowercase URL-safe slug")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, apperr.BadRequest("Display name is required")
	}
	email, err := normalizeEmail(req.OwnerEmail)
	if err != nil {
		return nil, err
	}

	account, created, err := identity.GetOrCreateUser(ctx, s.identity, email)
	if err != nil {
		return nil, apperr.Internal("Failed to provision organization owner", err)
	}

	org := &Organization{Name: req.Name, DisplayName: req.DisplayName, Description: req.Description}
	owner := &Member{FirebaseUID: account.UID, Email: email, Role: auth.RoleOwner}

	err = s.store.CreateOrganizationWithOwner(ctx, org, owner, func(ctx context.Context) error {
		if err := s.identity.SetCustomClaims(ctx, account.UID, memberClaims(auth.RoleOwner)); err != nil {
			return apperr.Internal("Failed to provision organization owner", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"org_id":          org.ID,
		"org_name":        org.Name,
		"owner_uid":       account.UID,
		"account_created": created,
	}).Info("Organization created")

	return &CreateOrganizationResult{
		Organization: org,
		Owner: ProvisionedUser{
			ID:                owner.ID,
			Email:             owner.Email,
			Role:              owner.Role,
			PasswordResetLink: s.resetLink(ctx, email),
		},
	}, nil
}

// resetLink is best effort; the account is usable without it
func (s *Service) resetLink(ctx context.Context, email string) string {
	link, err := s.identity.PasswordResetLink(ctx, email)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to generate password reset link")
		return ""
	}
	return link
}

// ListOrganizations lists all non-deleted organizations
func (s *Service) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// GetOrganization retrieves a non-deleted organization
func (s *Service) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	return s.store.GetOrganization(ctx, id)
}

// DeleteOrganization soft deletes an organization
func (s *Service) DeleteOrganization(ctx context.Context, id int64) error {
	if err := s.store.SoftDeleteOrganization(ctx, id); err != nil {
		return err
	}
	observability.FromContext(ctx).WithField("org_id", id).Info("Organization deleted")
	return nil
}

// ListMembers lists an organization's staff. Super admins act without a
// member row and so never appear here.
func (s *Service) ListMembers(ctx context.Context, orgID int64) ([]*Member, error) {
	return s.store.ListMembers(ctx, orgID)
}

// InviteMember adds an admin or member to an organization
func (s *Service) InviteMember(ctx context.Context, orgID int64, req InviteMemberRequest) (*ProvisionedUser, error) {
	if req.Role != auth.RoleAdmin && req.Role != auth.RoleMember {
		return nil, apperr.BadRequest("Role must be admin or member")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetMemberByEmail(ctx, orgID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.BadRequest("User already exists in this organization")
	}

	account, _, err := identity.GetOrCreateUser(ctx, s.identity, email)
	if err != nil {
		return nil, apperr.Internal("Failed to provision user", err)
	}

	member := &Member{FirebaseUID: account.UID, Email: email, Role: req.Role, OrganizationID: orgID}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	if err := s.identity.SetCustomClaims(ctx, account.UID, memberClaims(req.Role)); err != nil {
		return nil, apperr.Internal("Failed to provision user", fmt.Errorf("member %d: %w", member.ID, err))
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"org_id":  orgID,
		"user_id": member.ID,
		"role":    req.Role,
	}).Info("Member invited")

	return &ProvisionedUser{
		ID:                member.ID,
		Email:             member.Email,
		Role:              member.Role,
		PasswordResetLink: s.resetLink(ctx, email),
	}, nil
}
