package api

import (
	"net/http"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/middleware"
	"github.com/verityux/verity/pkg/orgs"
)

// createOrganization handles POST /orgs
func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgs.CreateOrganizationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := s.deps.Orgs.CreateOrganization(r.Context(), req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, result)
}

// listOrganizations handles GET /orgs
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Orgs.ListOrganizations(r.Context())
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, httputil.NewListResponse(list))
}

// currentOrganization handles GET /orgs/current and GET /orgs/{org_id}.
// The organization context middleware has already rejected callers outside
// the addressed organization.
func (s *Server) currentOrganization(w http.ResponseWriter, r *http.Request) {
	ou := middleware.GetOrgUser(r)

	org, err := s.deps.Orgs.GetOrganization(r.Context(), ou.OrganizationID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, org)
}

// deleteOrganization handles DELETE /orgs/{org_id}
func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "org_id")
	if err != nil {
		httputil.WriteAPIError(w, r, apperr.NotFound("Organization not found"))
		return
	}

	if err := s.deps.Orgs.DeleteOrganization(r.Context(), id); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// listMembers handles GET /orgs/{org_id}/users and GET /orgs/current/users
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	ou := middleware.GetOrgUser(r)

	members, err := s.deps.Orgs.ListMembers(r.Context(), ou.OrganizationID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	if members == nil {
		members = []*orgs.Member{}
	}

	httputil.WriteSuccess(w, members)
}

// inviteMember handles POST /orgs/{org_id}/users
func (s *Server) inviteMember(w http.ResponseWriter, r *http.Request) {
	ou := middleware.GetOrgUser(r)

	var req orgs.InviteMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.deps.Orgs.InviteMember(r.Context(), ou.OrganizationID, req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, user)
}
