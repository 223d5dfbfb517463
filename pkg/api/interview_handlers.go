package api

import (
	"net/http"

	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/interviews"
	"github.com/verityux/verity/pkg/middleware"
)

// generateLink handles POST /studies/{study_id}/interviews
func (s *Server) generateLink(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	link, err := s.deps.Interviews.GenerateLink(r.Context(), middleware.GetOrgUser(r), studyID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, link)
}

// listInterviews handles GET /studies/{study_id}/interviews
func (s *Server) listInterviews(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	list, err := s.deps.Interviews.List(r.Context(), middleware.GetOrgUser(r), studyID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, httputil.NewListResponse(list))
}

// getInterview handles GET /studies/{study_id}/interviews/{interview_id}
func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}
	interviewID, ok := pathID(w, r, "interview_id", "Interview not found")
	if !ok {
		return
	}

	iv, err := s.deps.Interviews.Get(r.Context(), middleware.GetOrgUser(r), studyID, interviewID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, iv)
}

// startStudy handles GET /study/{slug}/start, the reusable study link
func (s *Server) startStudy(w http.ResponseWriter, r *http.Request) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	redirect, err := s.deps.Interviews.RedeemReusableLink(r.Context(), slug,
		httputil.ParseQueryString(r, "pid", ""),
		httputil.ParseQueryString(r, "source", ""),
	)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// getPublicInterview handles GET /interview/{token}
func (s *Server) getPublicInterview(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	view, err := s.deps.Interviews.GetByToken(r.Context(), token)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, view)
}

// completeInterview handles POST /interview/{token}/complete
func (s *Server) completeInterview(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	var req interviews.CompleteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.deps.Interviews.Complete(r.Context(), token, req); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "Interview completed successfully"})
}

// claimInterview handles POST /interview/{token}/claim
func (s *Server) claimInterview(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	if err := s.deps.Interviews.Claim(r.Context(), token, middleware.GetAuthUser(r)); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "Interview claimed successfully"})
}

// listMyInterviews handles GET /interviews/my-interviews
func (s *Server) listMyInterviews(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Interviews.ListMine(r.Context(), middleware.GetAuthUser(r))
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, httputil.NewListResponse(list))
}
