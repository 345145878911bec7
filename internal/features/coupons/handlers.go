// Package coupons: handlers.go serves POST /check-coupon.
package coupons

import (
	"encoding/json"
	"net/http"

	"serotonyl.ru/printvend/internal/common"
)

type checkRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

type checkResponse struct {
	Success bool    `json:"success"`
	Percent float64 `json:"percent"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Check answers 400 for every reason a coupon cannot be applied, unknown
// codes included.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.Fail(w, common.ErrInvalidRequest)
		return
	}

	c, err := h.svc.Validate(r.Context(), req.Code, req.UserID)
	if err != nil {
		if common.KindOf(err) == common.KindUpstream {
			common.Fail(w, err)
			return
		}
		common.WriteError(w, http.StatusBadRequest, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, checkResponse{
		Success: true,
		Percent: c.DiscountPercent.InexactFloat64(),
	})
}
