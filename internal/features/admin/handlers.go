package admin

import (
	"net/http"
	"strconv"

	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/features/orders"
)

const (
	defaultOrdersLimit = 50
	maxOrdersLimit     = 500
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Stats serves GET /admin/stats?date=YYYY-MM-DD.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	day, err := h.svc.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		common.Fail(w, err)
		return
	}
	st, err := h.svc.Stats(r.Context(), day)
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, st)
}

// Orders serves GET /admin/orders?limit=N, newest first.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	list, err := h.svc.RecentOrders(r.Context(), limit)
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, orders.Views(list))
}

func parseLimit(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultOrdersLimit
	}
	if n > maxOrdersLimit {
		return maxOrdersLimit
	}
	return n
}
