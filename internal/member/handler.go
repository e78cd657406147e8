package member

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liblend/internal/date"
	"liblend/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for the member service, mounted under /members.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

// memberRequest is the create/update payload. Status is the enum type, so
// decoding already rejects values outside {ACTIVE, INACTIVE, SUSPENDED}.
type memberRequest struct {
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	MembershipDate date.Date `json:"membership_date"`
	Status         Status    `json:"status"`
}

func (req *memberRequest) validate() string {
	switch {
	case req.FirstName == "" || req.LastName == "":
		return "first_name and last_name are required"
	case req.Email == "":
		return "email is required"
	case req.MembershipDate.IsZero():
		return "membership_date is required"
	case req.MembershipDate.After(date.Today()):
		return "membership_date cannot be in the future"
	case req.Status == "":
		return "status is required"
	}
	return ""
}

func (req *memberRequest) toMember() *Member {
	return &Member{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		MembershipDate: req.MembershipDate,
		Status:         req.Status,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	created, err := h.service.Create(r.Context(), req.toMember())
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
	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	updated, err := h.service.Update(r.Context(), id, req.toMember())
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

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_request", "invalid member ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Error(w, http.StatusConflict, "duplicate_email", err.Error())
	default:
		log.Printf("member: internal error: %v", err)
		httpx.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
