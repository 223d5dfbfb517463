package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/identity"
	"github.com/verityux/verity/pkg/observability"
)

// ResolverConfig configures the verified token cache. A zero CacheSize disables caching.
type ResolverConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

type cachedUser struct {
	user      AuthUser
	expiresAt time.Time
}

// TenantResolver turns bearer tokens into AuthUsers
type TenantResolver struct {
	verifier identity.Verifier
	cache    *expirable.LRU[string, cachedUser]
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewTenantResolver creates a resolver backed by verifier
func NewTenantResolver(verifier identity.Verifier, cfg ResolverConfig, metrics *observability.Metrics) *TenantResolver {
	r := &TenantResolver{
		verifier: verifier,
		metrics:  metrics,
		now:      time.Now,
	}
	if cfg.CacheSize > 0 {
		r.cache = expirable.NewLRU[string, cachedUser](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return r
}

// Resolve verifies token and extracts the caller. It fails with
// Unauthorized for empty, invalid or expired tokens and for tokens
// without a tenant claim.
func (r *TenantResolver) Resolve(ctx context.Context, token string) (*AuthUser, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	key := hashToken(token)
	if r.cache != nil {
		if entry, ok := r.cache.Get(key); ok {
			if r.now().Before(entry.expiresAt) {
				r.metrics.TokenCache(true)
				user := entry.user
				return &user, nil
			}
			r.cache.Remove(key)
		}
		r.metrics.TokenCache(false)
	}

	claims, err := r.verifier.VerifyToken(ctx, token)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Debug("Token verification failed")
		return nil, apperr.Unauthorized("Invalid token")
	}

	if claims.Tenant == "" {
		return nil, apperr.Unauthorized("Invalid tenant")
	}

	user := AuthUser{
		SubjectID:    claims.Subject,
		TenantType:   TenantType(claims.Tenant),
		Email:        claims.Email,
		IsSuperAdmin: claims.IsSuperAdmin(),
	}

	if r.cache != nil && !claims.ExpiresAt.IsZero() {
		r.cache.Add(key, cachedUser{user: user, expiresAt: claims.ExpiresAt})
	}

	return &user, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
