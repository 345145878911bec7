package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/printvend/internal/common"
)

// BalanceReader is the wallet view needed by /user-data.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Handler struct {
	mgr         *Manager
	wallet      BalanceReader
	ordersLimit int
	orphanGrace time.Duration
}

func NewHandler(mgr *Manager, wallet BalanceReader, ordersLimit int, orphanGrace time.Duration) *Handler {
	return &Handler{mgr: mgr, wallet: wallet, ordersLimit: ordersLimit, orphanGrace: orphanGrace}
}

type consumeRequest struct {
	QR string `json:"qr"`
}

// Consume serves POST /print/consume for the kiosk.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.Fail(w, common.ErrInvalidRequest)
		return
	}
	qr := strings.ToUpper(strings.TrimSpace(req.QR))
	if qr == "" {
		common.Fail(w, common.ErrInvalidRequest)
		return
	}

	if err := h.mgr.Consume(r.Context(), qr); err != nil {
		common.Fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type userDataResponse struct {
	Wallet float64 `json:"wallet"`
	Orders []View  `json:"orders"`
}

// UserData serves GET /user-data/{uid}: balance and the latest orders.
func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	balance, err := h.wallet.Balance(r.Context(), uid)
	if err != nil {
		common.Fail(w, err)
		return
	}
	list, err := h.mgr.UserOrders(r.Context(), uid, h.ordersLimit)
	if err != nil {
		common.Fail(w, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, userDataResponse{
		Wallet: balance.InexactFloat64(),
		Orders: Views(list),
	})
}

type cleanupResponse struct {
	Cleaned int `json:"cleaned"`
	Orphans int `json:"orphans"`
}

// Cleanup serves GET /cleanup: the expiry sweep, then the orphan sweep.
// An orphan sweep failure is logged and reported as zero.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	cleaned, err := h.mgr.SweepExpired(r.Context())
	if err != nil {
		common.Fail(w, err)
		return
	}
	orphans, err := h.mgr.SweepOrphans(r.Context(), h.orphanGrace)
	if err != nil {
		log.WithError(err).Error("orphan sweep failed")
		orphans = 0
	}
	common.WriteJSON(w, http.StatusOK, cleanupResponse{Cleaned: cleaned, Orphans: orphans})
}
