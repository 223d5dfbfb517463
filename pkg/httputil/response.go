package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/observability"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ListResponse wraps collections as {"items": [...]}
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// NewListResponse never encodes a null items array
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items}
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteDetail writes {"detail": message} with the given status code
func WriteDetail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Detail: message})
}

// WriteBadRequest writes a 400 error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadRequest, message)
}

// WriteTooManyRequests writes a 429 error
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusTooManyRequests, message)
}

// StatusFor maps an error to its HTTP status code
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError writes err as a {"detail": ...} response. Internal errors are
// logged with their cause and reported with a generic detail.
func WriteAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		observability.FromContext(r.Context()).
			WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	WriteDetail(w, status, apperr.DetailOf(err))
}
