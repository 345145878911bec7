package wallet

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/printvend/internal/common"
)

type transactionDTO struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Type      TxType    `json:"type"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Balance serves GET /wallet/{uid}.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, balanceResponse{Balance: balance.InexactFloat64()})
}

// History serves GET /wallet/history/{uid}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.History(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		common.Fail(w, err)
		return
	}

	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionDTO{
			ID:        t.ID,
			UserID:    t.UserID,
			Amount:    t.Amount.InexactFloat64(),
			Type:      t.Type,
			Note:      t.Note,
			CreatedAt: t.CreatedAt,
		})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

// Audit serves GET /admin/wallet/{uid}/audit.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Audit(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId":     a.UserID,
		"balance":    a.Balance.InexactFloat64(),
		"ledgerSum":  a.LedgerSum.InexactFloat64(),
		"consistent": a.Consistent,
	})
}
