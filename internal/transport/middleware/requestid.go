package middleware

import (
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps ids echoed back from callers.
const maxRequestIDLength = 128

// RequestID tags the request with the caller's X-Request-ID, or a fresh uuid,
// and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(internal.WithRequestID(r.Context(), requestID)))
	})
}
