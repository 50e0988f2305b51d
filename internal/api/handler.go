// Package api is the HTTP boundary: it validates untrusted input, calls the
// repository and is the only place that turns errors into responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/repository"
	"github.com/Makepad-fr/tada/internal/schema"
)

// Repository is what the handlers need from the repository layer.
type Repository interface {
	List(ctx context.Context, p repository.ListParams) (repository.Page, error)
	CreateByContent(ctx context.Context, content string) (model.Item, error)
	ToggleDone(ctx context.Context, id string) (model.Item, error)
	DeleteByID(ctx context.Context, id string) error
}

type TodoHandler struct {
	repo   Repository
	logger *log.Logger
}

func NewTodoHandler(repo Repository, logger *log.Logger) *TodoHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &TodoHandler{repo: repo, logger: logger}
}

// Routes returns the API mux wrapped in the request logging middleware.
func (h *TodoHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/todos", h.List)
	mux.HandleFunc("POST /api/todos", h.Create)
	mux.HandleFunc("PUT /api/todos/{id}/toggle-done", h.ToggleDone)
	mux.HandleFunc("DELETE /api/todos/{id}", h.Delete)
	return RequestLogger(h.logger)(mux)
}

type listResponse struct {
	Total int          `json:"total"`
	Pages int          `json:"pages"`
	Todos []model.Item `json:"todos"`
}

type todoResponse struct {
	Todo model.Item `json:"todo"`
}

type errorBody struct {
	Message     string         `json:"message"`
	Description []schema.Issue `json:"description,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.repo.List(r.Context(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Total: page.Total,
		Pages: page.Pages,
		Todos: page.Todos,
	})
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	content, err := ParseCreateBody(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.repo.CreateByContent(r.Context(), content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, todoResponse{Todo: created})
}

func (h *TodoHandler) ToggleDone(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.repo.ToggleDone(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Todo: updated})
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.repo.DeleteByID(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps an error kind to a status code. Internal details are logged, never sent.
func (h *TodoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *ValidationError
		nf *repository.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Message:     ve.Message,
			Description: ve.Details,
		}})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Message: nf.Error(),
		}})
	default:
		LoggerFrom(r.Context(), h.logger).Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Message: "internal error",
		}})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
