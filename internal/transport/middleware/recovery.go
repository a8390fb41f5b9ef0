package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/expense-tracker/internal"
)

// RecoveryMiddleware turns a panic into the standard 500 envelope. The stack
// is only included in the body when exposeStack is set.
func RecoveryMiddleware(logger *slog.Logger, exposeStack bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					stack := string(debug.Stack())
					logger.Error("panic recovered",
						"error", rec,
						"request_id", errors.RequestID(r.Context()),
						"method", r.Method,
						"url", r.URL.String(),
						"stack", stack)

					body := map[string]interface{}{
						"success": false,
						"error":   errors.GenericServerMessage,
					}
					if exposeStack {
						body["stack"] = fmt.Sprintf("panic: %v\n%s", rec, stack)
					}

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(body)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
