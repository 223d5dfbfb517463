package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
)

type fakeResolver struct {
	users map[string]*auth.AuthUser
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (*auth.AuthUser, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, apperr.Unauthorized("Invalid token")
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{users: map[string]*auth.AuthUser{
		"org-token":  {SubjectID: "owner-1", TenantType: auth.TenantOrganization},
		"iv-token":   {SubjectID: "iv-1", TenantType: auth.TenantInterviewee},
		"root-token": {SubjectID: "root", TenantType: auth.TenantOrganization, IsSuperAdmin: true},
		"root-iv":    {SubjectID: "root-iv", TenantType: auth.TenantInterviewee, IsSuperAdmin: true},
	}}
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r)
		if user == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(user.SubjectID))
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		optional       bool
		expectedStatus int
		expectedBody   string
		expectedDetail string
	}{
		{name: "valid token", header: "Bearer org-token", expectedStatus: http.StatusOK, expectedBody: "owner-1"},
		{name: "lowercase scheme", header: "bearer iv-token", expectedStatus: http.StatusOK, expectedBody: "iv-1"},
		{name: "missing header", expectedStatus: http.StatusUnauthorized, expectedDetail: "Authentication required"},
		{name: "missing header optional", optional: true, expectedStatus: http.StatusOK, expectedBody: "anonymous"},
		{name: "wrong scheme", header: "Basic abc", expectedStatus: http.StatusUnauthorized, expectedDetail: "Invalid authorization header"},
		{name: "empty token", header: "Bearer ", expectedStatus: http.StatusUnauthorized, expectedDetail: "Invalid authorization header"},
		{name: "unknown token", header: "Bearer nope", expectedStatus: http.StatusUnauthorized, expectedDetail: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(newFakeResolver(), tt.optional)
			req := httptest.NewRequest(http.MethodGet, "/orgs/current", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.Handler(echoSubject()).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, rec.Body.String())
			}
			if tt.expectedDetail != "" {
				assert.Equal(t, tt.expectedDetail, detail(t, rec))
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestTenantGuards(t *testing.T) {
	tests := []struct {
		name           string
		guard          func(http.Handler) http.Handler
		token          string
		expectedStatus int
		expectedDetail string
	}{
		{name: "interviewee passes interviewee guard", guard: RequireIntervieweeTenant, token: "iv-token", expectedStatus: http.StatusOK},
		{name: "org user fails interviewee guard", guard: RequireIntervieweeTenant, token: "org-token", expectedStatus: http.StatusForbidden, expectedDetail: "Interviewee user access required"},
		{name: "interviewee fails org guard", guard: RequireOrganizationTenant, token: "iv-token", expectedStatus: http.StatusForbidden, expectedDetail: "Organization user access required"},
		{name: "org user passes org guard", guard: RequireOrganizationTenant, token: "org-token", expectedStatus: http.StatusOK},
		{name: "super admin passes org guard", guard: RequireOrganizationTenant, token: "root-token", expectedStatus: http.StatusOK},
		{name: "super admin with interviewee tenant fails org guard", guard: RequireOrganizationTenant, token: "root-iv", expectedStatus: http.StatusForbidden, expectedDetail: "Organization user access required"},
		{name: "super admin passes super admin guard", guard: RequireSuperAdmin, token: "root-token", expectedStatus: http.StatusOK},
		{name: "owner fails super admin guard", guard: RequireSuperAdmin, token: "org-token", expectedStatus: http.StatusForbidden, expectedDetail: "Super admin access required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(newFakeResolver(), false).Handler(tt.guard(echoSubject()))
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedDetail != "" {
				assert.Equal(t, tt.expectedDetail, detail(t, rec))
			}
		})
	}
}

func TestGuardWithoutAuthentication(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireSuperAdmin(echoSubject()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
