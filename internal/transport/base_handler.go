package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
	// ExposeErrorDetails adds the failure chain to 500 responses. Never set
	// in production.
	ExposeErrorDetails bool
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// ErrorResponse is the failure envelope. Error is a list of messages for
// validation failures and a single string otherwise.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
	Stack   string      `json:"stack,omitempty"`
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a single-message error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// WriteValidationError writes the 400 envelope carrying one message per
// violated field.
func (h *BaseHandler) WriteValidationError(w http.ResponseWriter, messages []string) {
	if messages == nil {
		messages = []string{}
	}
	h.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: messages})
}

// HandleServiceError maps the application error taxonomy onto HTTP.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		appErr = errors.NewInternalError(errors.GenericServerMessage, err)
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		messages := appErr.Messages()
		if len(messages) == 0 {
			messages = []string{appErr.Message}
		}
		h.WriteValidationError(w, messages)
	case errors.ErrorTypeNotFound:
		h.WriteError(w, http.StatusNotFound, appErr.Message)
	default:
		logger.From(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)

		resp := ErrorResponse{Success: false, Error: errors.GenericServerMessage}
		if h.ExposeErrorDetails {
			resp.Stack = err.Error()
		}
		h.WriteJSON(w, http.StatusInternalServerError, resp)
	}
}
