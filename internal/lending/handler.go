package lending

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liblend/internal/date"
	"liblend/internal/httpx"
	"liblend/internal/loan"
)

// Handler serves the loan routes. Checkout and return delegate to the
// orchestrator; the remaining routes are plain record operations on the
// loan store, resolved with book/member snapshots for reads.
type Handler struct {
	loans  loan.Service
	lender *Orchestrator
}

func NewHandler(loans loan.Service, lender *Orchestrator) *Handler {
	return &Handler{loans: loans, lender: lender}
}

// Routes returns the router for the loan service, mounted under /loans.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCheckout)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/return", h.handleReturn)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID         int64     `json:"book_id"`
		MemberID       int64     `json:"member_id"`
		LoanDate       date.Date `json:"loan_date"`
		DueDate        date.Date `json:"due_date"`
		IdempotencyKey string    `json:"idempotency_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch {
	case req.BookID <= 0 || req.MemberID <= 0:
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "book_id and member_id are required")
		return
	case req.LoanDate.IsZero() || req.DueDate.IsZero():
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "loan_date and due_date are required")
		return
	case req.LoanDate.After(date.Today()):
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "loan_date cannot be in the future")
		return
	case !req.DueDate.After(req.LoanDate):
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "due_date must be after loan_date")
		return
	}

	resolved, err := h.lender.Checkout(r.Context(), CheckoutRequest{
		BookID:         req.BookID,
		MemberID:       req.MemberID,
		LoanDate:       req.LoanDate,
		DueDate:        req.DueDate,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resolved)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	resolved, err := h.lender.Return(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolved)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var f loan.Filter
	if v := r.URL.Query().Get("member_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid_request", "invalid member_id")
			return
		}
		f.MemberID = &id
	}
	if v := r.URL.Query().Get("book_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid_request", "invalid book_id")
			return
		}
		f.BookID = &id
	}

	loans, err := h.loans.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resolved := make([]*ResolvedLoan, 0, len(loans))
	for _, l := range loans {
		rl, err := h.lender.Resolve(r.Context(), l)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resolved = append(resolved, rl)
	}
	httpx.JSON(w, http.StatusOK, resolved)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	l, err := h.loans.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resolved, err := h.lender.Resolve(r.Context(), l)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolved)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.loans.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "invalid loan ID")
		return 0, false
	}
	return id, true
}

// writeError maps the error taxonomy (and the store sentinels reachable
// from the record routes) onto HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var lerr *Error
	if errors.As(err, &lerr) {
		switch lerr.Kind {
		case KindNotFound:
			httpx.Error(w, http.StatusNotFound, "not_found", lerr.Error())
		case KindConflict:
			httpx.Error(w, http.StatusConflict, string(lerr.Reason), lerr.Error())
		case KindTransient:
			httpx.Error(w, http.StatusServiceUnavailable, "unavailable", lerr.Error())
		case KindCompensationFailed:
			log.Printf("lending: %v", lerr)
			httpx.Error(w, http.StatusInternalServerError, "compensation_failed", lerr.Error())
		default:
			httpx.Error(w, http.StatusInternalServerError, "internal", lerr.Error())
		}
		return
	}

	switch {
	case errors.Is(err, loan.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, loan.ErrAlreadyReturned):
		httpx.Error(w, http.StatusConflict, "already_returned", err.Error())
	default:
		log.Printf("lending: internal error: %v", err)
		httpx.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
