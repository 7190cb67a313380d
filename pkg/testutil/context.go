package testutil

import (
	"net/http"

	id "attesta/pkg/domain"
	"attesta/pkg/requestcontext"
)

// WithAuditor adds an auditor ID to the request context, simulating what the
// auth middleware does for authenticated requests. Invalid IDs are ignored.
func WithAuditor(req *http.Request, auditorID string) *http.Request {
	parsed, err := id.ParseAuditorID(auditorID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAuditorID(req.Context(), parsed))
}
