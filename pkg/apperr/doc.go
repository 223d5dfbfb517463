// Package apperr defines the error taxonomy shared by every Verity service.
//
// Services return *Error values carrying a Kind and a user-facing Detail.
// The HTTP layer (pkg/httputil) maps kinds to status codes:
//
//	KindUnauthorized -> 401
//	KindForbidden    -> 403
//	KindNotFound     -> 404
//	KindBadRequest   -> 400
//	KindGone         -> 410
//	KindInternal     -> 500
//
// NotFound is deliberately used for resources owned by another organization
// so that cross-tenant existence is never disclosed.
package apperr
