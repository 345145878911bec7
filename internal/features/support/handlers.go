package support

import (
	"encoding/json"
	"net/http"

	"serotonyl.ru/printvend/internal/common"
)

type submitRequest struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Submit serves POST /support.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.Fail(w, common.ErrInvalidRequest)
		return
	}
	t, err := h.svc.Submit(r.Context(), req.UserID, req.OrderID, req.Message)
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": t.ID})
}
