package api

import (
	"net/http"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/middleware"
	"github.com/verityux/verity/pkg/studies"
)

// pathID parses a numeric path parameter. Malformed IDs address nothing and
// are reported as notFound.
func pathID(w http.ResponseWriter, r *http.Request, key, notFound string) (int64, bool) {
	id, err := httputil.ParsePathInt64(r, key)
	if err != nil {
		httputil.WriteAPIError(w, r, apperr.NotFound(notFound))
		return 0, false
	}
	return id, true
}

// createStudy handles POST /studies
func (s *Server) createStudy(w http.ResponseWriter, r *http.Request) {
	var req studies.CreateStudyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	study, err := s.deps.Studies.Create(r.Context(), middleware.GetOrgUser(r), req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, study)
}

// listStudies handles GET /studies
func (s *Server) listStudies(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Studies.List(r.Context(), middleware.GetOrgUser(r))
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, httputil.NewListResponse(list))
}

// generateStudy handles POST /studies:generate
func (s *Server) generateStudy(w http.ResponseWriter, r *http.Request) {
	var req studies.GenerateStudyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := s.deps.Studies.Generate(r.Context(), middleware.GetOrgUser(r), req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, result)
}

// getStudy handles GET /studies/{study_id}
func (s *Server) getStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	study, err := s.deps.Studies.Load(r.Context(), middleware.GetOrgUser(r), studyID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, study)
}

// updateStudy handles PATCH /studies/{study_id}
func (s *Server) updateStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	var req studies.UpdateStudyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	study, err := s.deps.Studies.Update(r.Context(), middleware.GetOrgUser(r), studyID, req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, study)
}

// deleteStudy handles DELETE /studies/{study_id}
func (s *Server) deleteStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	if err := s.deps.Studies.Delete(r.Context(), middleware.GetOrgUser(r), studyID); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "Study deleted successfully"})
}

// putGuide handles PUT /studies/{study_id}/guide
func (s *Server) putGuide(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	var req studies.GuideRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	guide, err := s.deps.Studies.PutGuide(r.Context(), middleware.GetOrgUser(r), studyID, req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, guide)
}

// getGuide handles GET /studies/{study_id}/guide
func (s *Server) getGuide(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r, "study_id", "Study not found")
	if !ok {
		return
	}

	guide, err := s.deps.Studies.GetGuide(r.Context(), middleware.GetOrgUser(r), studyID)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, guide)
}
