package profiles

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/printvend/internal/common"
)

type ensureRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Ensure serves POST /profile.
func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.Fail(w, common.ErrInvalidRequest)
		return
	}
	p, err := h.svc.Ensure(r.Context(), req.UserID, req.Email, req.FullName)
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, p)
}

// Get serves GET /profile/{uid}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, p)
}
