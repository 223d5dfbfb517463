package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "verity-local"

func unsignedToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + "."
}

func baseClaims(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"iss": IssuerURL(testProject),
		"aud": testProject,
		"sub": "uid-123",
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

func TestEmulatorVerifier_VerifyToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewEmulatorVerifier(testProject, func() time.Time { return now })

	t.Run("organization claims", func(t *testing.T) {
		c := baseClaims(now)
		c["email"] = "owner@acme.test"
		c["tenant"] = "organization"
		c["role"] = "owner"

		claims, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.NoError(t, err)
		assert.Equal(t, "uid-123", claims.Subject)
		assert.Equal(t, "owner@acme.test", claims.Email)
		assert.Equal(t, "organization", claims.Tenant)
		assert.False(t, claims.IsSuperAdmin())
		assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("super admin role claim", func(t *testing.T) {
		c := baseClaims(now)
		c["tenant"] = "organization"
		c["role"] = "super_admin"

		claims, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.NoError(t, err)
		assert.True(t, claims.IsSuperAdmin())
	})

	t.Run("legacy super admin boolean", func(t *testing.T) {
		c := baseClaims(now)
		c["tenant"] = "organization"
		c["super_admin"] = true

		claims, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.NoError(t, err)
		assert.True(t, claims.IsSuperAdmin())
	})

	t.Run("missing tenant is not a verification error", func(t *testing.T) {
		claims, err := verifier.VerifyToken(context.Background(), unsignedToken(t, baseClaims(now)))
		require.NoError(t, err)
		assert.Empty(t, claims.Tenant)
	})

	t.Run("expired", func(t *testing.T) {
		c := baseClaims(now)
		c["exp"] = now.Add(-time.Minute).Unix()

		_, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := baseClaims(now)
		c["iss"] = IssuerURL("another-project")

		_, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := baseClaims(now)
		c["aud"] = "another-project"

		_, err := verifier.VerifyToken(context.Background(), unsignedToken(t, c))
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.VerifyToken(context.Background(), "not-a-jwt")
		require.Error(t, err)
	})
}

func TestNewOIDCVerifier_RequiresProject(t *testing.T) {
	_, err := NewOIDCVerifier(context.Background(), "")
	require.Error(t, err)
}
