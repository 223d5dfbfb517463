package identity

import (
	"context"
	"errors"
	"time"
)

// Claim names set on identity provider accounts
const (
	ClaimTenant     = "tenant"
	ClaimRole       = "role"
	ClaimSuperAdmin = "super_admin"
)

// RoleSuperAdmin is the role claim value granting platform-wide access
const RoleSuperAdmin = "super_admin"

// ErrUserNotFound is returned by Admin lookups for unknown accounts
var ErrUserNotFound = errors.New("identity: user not found")

// Claims are the verified contents of an ID token
type Claims struct {
	Subject    string
	Email      string
	Tenant     string
	Role       string
	SuperAdmin bool
	ExpiresAt  time.Time
}

// IsSuperAdmin reports whether the token grants super admin access
func (c *Claims) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin || c.SuperAdmin
}

// UserRecord is an identity provider account
type UserRecord struct {
	UID          string
	Email        string
	CustomClaims map[string]interface{}
}

// Verifier validates ID tokens
type Verifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*Claims, error)
}

// Admin manages identity provider accounts
type Admin interface {
	CreateUser(ctx context.Context, email string, emailVerified bool) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// Provider is the full identity provider surface
type Provider interface {
	Verifier
	Admin
}

type provider struct {
	Verifier
	Admin
}

// NewProvider combines a verifier and an admin client
func NewProvider(v Verifier, a Admin) Provider {
	return &provider{Verifier: v, Admin: a}
}

// GetOrCreateUser returns the account registered for email, creating it when absent
func GetOrCreateUser(ctx context.Context, admin Admin, email string) (*UserRecord, bool, error) {
	user, err := admin.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}
	user, err = admin.CreateUser(ctx, email, false)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
