package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
	// RequestIDHeader is the HTTP header name for request IDs
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id so a ticket operation can be traced
// across the request log, the error handler and the portal frontend. An
// inbound X-Request-ID from the proxy is kept; otherwise one is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		// Echo the id so clients can report it with support tickets.
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
