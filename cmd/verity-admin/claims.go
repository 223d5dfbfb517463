package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/identity"
)

// grantSuperAdmin finds or creates the account for email and marks it as a
// platform super admin. No member row is written.
func grantSuperAdmin(ctx context.Context, admin identity.Admin, email string, logger logrus.FieldLogger) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, created, err := identity.GetOrCreateUser(ctx, admin, email)
	if err != nil {
		return fmt.Errorf("failed to resolve account %s: %w", email, err)
	}

	claims := map[string]interface{}{
		identity.ClaimTenant: string(auth.TenantOrganization),
		identity.ClaimRole:   identity.RoleSuperAdmin,
	}
	if err := admin.SetCustomClaims(ctx, user.UID, claims); err != nil {
		return fmt.Errorf("failed to set claims for %s: %w", email, err)
	}

	log := logger.WithFields(logrus.Fields{"email": email, "uid": user.UID, "created": created})
	if created {
		link, err := admin.PasswordResetLink(ctx, email)
		if err != nil {
			log.WithError(err).Warn("Account created but password reset link failed")
		} else {
			log = log.WithField("password_reset_link", link)
		}
	}
	log.Info("Granted super admin")
	return nil
}

// revokeSuperAdmin drops the super admin role and flag from an existing
// account. Tenant and any other claims are kept.
func revokeSuperAdmin(ctx context.Context, admin identity.Admin, email string, logger logrus.FieldLogger) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := admin.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find account %s: %w", email, err)
	}
	if err := admin.SetCustomClaims(ctx, user.UID, withoutSuperAdmin(user.CustomClaims)); err != nil {
		return fmt.Errorf("failed to update claims for %s: %w", email, err)
	}

	logger.WithFields(logrus.Fields{"email": email, "uid": user.UID}).Info("Revoked super admin")
	return nil
}

func withoutSuperAdmin(claims map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	delete(out, identity.ClaimSuperAdmin)
	if out[identity.ClaimRole] == identity.RoleSuperAdmin {
		delete(out, identity.ClaimRole)
	}
	return out
}
