package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateExpense(ctx context.Context, dto CreateExpenseDTO) (*Expense, error)
	ListExpenses(ctx context.Context, raw RawListQuery) (*ExpenseList, error)
	GetExpense(ctx context.Context, id string) (*Expense, error)
	UpdateExpense(ctx context.Context, id string, dto UpdateExpenseDTO) (*Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	GetStatistics(ctx context.Context) (*Statistics, error)
}

// maxBodyBytes bounds a single expense payload.
const maxBodyBytes = 1 << 20

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	// now stamps export file names
	now func() string
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	if baseHandler == nil {
		lg := logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
		baseHandler = transport.NewBaseHandler(lg)
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		now:         exportTimestamp,
	}
}

// Routes mounts the expense endpoints. Static segments are registered ahead
// of the {id} pattern.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListExpenses)
	r.Post("/", h.CreateExpense)
	r.Get("/stats", h.GetStatistics)
	r.Get("/export", h.ExportExpenses)
	r.Get("/{id}", h.GetExpense)
	r.Put("/{id}", h.UpdateExpense)
	r.Delete("/{id}", h.DeleteExpense)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListExpenses(r.Context(), RawListQueryFromValues(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	data := list.Data
	if data == nil {
		data = []*Expense{}
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{
		Success: true,
		Count:   list.Count,
		Total:   list.Total,
		Data:    data,
	})
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetStatistics(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatisticsResponse{Success: true, Data: stats})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := h.Service.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ExpenseResponse{Success: true, Data: expense})
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var dto CreateExpenseDTO
	if err := decodeBody(w, r, &dto); err != nil {
		logger.From(r.Context()).Debug("CreateExpense: invalid request body", "error", err)
		h.HandleServiceError(w, r, err)
		return
	}

	expense, err := h.Service.CreateExpense(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ExpenseResponse{Success: true, Data: expense})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var dto UpdateExpenseDTO
	if err := decodeBody(w, r, &dto); err != nil {
		logger.From(r.Context()).Debug("UpdateExpense: invalid request body", "error", err)
		h.HandleServiceError(w, r, err)
		return
	}

	expense, err := h.Service.UpdateExpense(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ExpenseResponse{Success: true, Data: expense})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteResponse{Success: true})
}

// ExportExpenses renders the filtered listing as a spreadsheet or a PDF report.
func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	format := ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = ExportXLSX
	}
	if !format.IsValid() {
		h.HandleServiceError(w, r, errors.NewValidationFieldError("format", MsgInvalidExportFormat, errors.ErrCodeInvalidFormat))
		return
	}

	list, err := h.Service.ListExpenses(r.Context(), RawListQueryFromValues(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	body, err := Render(format, list)
	if err != nil {
		h.HandleServiceError(w, r, errors.NewInternalError(errors.GenericServerMessage, err))
		return
	}

	filename := fmt.Sprintf("expenses-%s.%s", h.now(), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.Logger.Error("failed to write export", "error", err, "format", format)
	}
}

// decodeBody reads a single JSON object. Any decoding failure is reported
// as a validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return malformedBody(err)
	}
	// exactly one JSON value; anything after it is rejected
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after the JSON value")
		}
		return malformedBody(err)
	}
	return nil
}

func malformedBody(err error) error {
	return errors.NewValidationFieldError("body", fmt.Sprintf("%s: %v", MsgMalformedBody, err), errors.ErrCodeMalformedBody)
}
