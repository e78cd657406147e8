package book

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liblend/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for the book service, mounted under /books.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/copies", h.handleAdjustCopies)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string `json:"title"`
		ISBN          string `json:"isbn"`
		Author        string `json:"author"`
		Publisher     string `json:"publisher"`
		PublishedYear int    `json:"published_year"`
		TotalCopies   int    `json:"total_copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Title == "" || req.ISBN == "" || req.Author == "" || req.TotalCopies < 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "title, isbn and author are required and total_copies must be >= 0")
		return
	}

	created, err := h.service.Create(r.Context(), &Book{
		Title:           req.Title,
		ISBN:            req.ISBN,
		Author:          req.Author,
		Publisher:       req.Publisher,
		PublishedYear:   req.PublishedYear,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Title         string `json:"title"`
		ISBN          string `json:"isbn"`
		Author        string `json:"author"`
		Publisher     string `json:"publisher"`
		PublishedYear int    `json:"published_year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), id, &Book{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedYear: req.PublishedYear,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdjustCopies exposes the conditional counter update consumed by the
// loan service. The op key travels with the request so a retried call
// cannot double-apply.
func (h *Handler) handleAdjustCopies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta           int    `json:"delta"`
		ExpectedMinimum int    `json:"expected_minimum"`
		OpKey           string `json:"op_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Delta == 0 || req.OpKey == "" {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "delta must be non-zero and op_key is required")
		return
	}

	b, err := h.service.AdjustCopies(r.Context(), id, req.Delta, req.ExpectedMinimum, req.OpKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "invalid book ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrDuplicateISBN):
		httpx.Error(w, http.StatusConflict, "duplicate_isbn", err.Error())
	case errors.Is(err, ErrNoCopiesAvailable):
		httpx.Error(w, http.StatusConflict, "no_copies_available", err.Error())
	case errors.Is(err, ErrCopiesExceedTotal):
		httpx.Error(w, http.StatusConflict, "copies_exceed_total", err.Error())
	default:
		log.Printf("book: internal error: %v", err)
		httpx.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
