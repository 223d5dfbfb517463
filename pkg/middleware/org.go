package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/studies"
)

// OrgResolver binds a caller to an organization
type OrgResolver interface {
	ResolveOrgUser(ctx context.Context, user *auth.AuthUser, target *int64) (*auth.OrgUser, error)
}

// StudyLookup finds the organization owning a study
type StudyLookup interface {
	GetStudy(ctx context.Context, id int64) (*studies.Study, error)
}

// OrgContextMiddleware adds the caller's organization context to the request
func OrgContextMiddleware(resolver OrgResolver, studyLookup StudyLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return RequireOrganizationTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetAuthUser(r)

			target, err := targetOrganization(r, user, studyLookup)
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			orgUser, err := resolver.ResolveOrgUser(r.Context(), user, target)
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithOrgUser(r.Context(), orgUser)))
		}))
	}
}

// targetOrganization returns the organization addressed by the request, or
// nil when the route carries none.
func targetOrganization(r *http.Request, user *auth.AuthUser, studyLookup StudyLookup) (*int64, error) {
	vars := mux.Vars(r)
	if raw, ok := vars["org_id"]; ok {
		orgID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.NotFound("Organization not found")
		}
		return &orgID, nil
	}

	// Members are always bound to their own organization; ownership of the
	// study is checked by the handler.
	raw, ok := vars["study_id"]
	if !ok || !user.IsSuperAdmin || studyLookup == nil {
		return nil, nil
	}
	studyID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.NotFound("Study not found")
	}
	study, err := studyLookup.GetStudy(r.Context(), studyID)
	if err != nil {
		return nil, err
	}
	return &study.OrganizationID, nil
}

// GetOrgUser extracts the organization context from the request
func GetOrgUser(r *http.Request) *auth.OrgUser {
	user, _ := auth.OrgUserFromContext(r.Context())
	return user
}

// RequireOwnerOrAdmin rejects members without a managing role. It must run
// after OrgContextMiddleware.
func RequireOwnerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireOwnerOrAdmin(GetOrgUser(r)); err != nil {
			httputil.WriteAPIError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
