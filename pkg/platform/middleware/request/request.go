// Package request provides request ID middleware. Every request gets a unique
// ID, propagated through the context and echoed in the X-Request-ID response
// header so clients can correlate logs.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"attesta/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

// Middleware assigns a request ID, honoring one supplied by a trusted proxy.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
