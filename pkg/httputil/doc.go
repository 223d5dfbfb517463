// Package httputil provides HTTP helpers shared by the Verity API handlers.
//
// # Responses
//
// Every error body has the shape {"detail": "..."}:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
//	httputil.WriteAPIError(w, r, err) // status derived from apperr.Kind
//
// # Request Parsing
//
//	var req CreateStudyRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	studyID, err := httputil.ParsePathInt64(r, "study_id")
//	token, ok := httputil.ParsePathStringOrError(w, r, "token")
//
// # Middleware
//
//	router.Use(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)
package httputil
