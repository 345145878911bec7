// Package server assembles the HTTP API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"serotonyl.ru/printvend/internal/features/admin"
	"serotonyl.ru/printvend/internal/features/checkout"
	"serotonyl.ru/printvend/internal/features/coupons"
	"serotonyl.ru/printvend/internal/features/orders"
	"serotonyl.ru/printvend/internal/features/profiles"
	"serotonyl.ru/printvend/internal/features/support"
	"serotonyl.ru/printvend/internal/features/wallet"
	"serotonyl.ru/printvend/internal/server/middleware"
)

// Handlers are the feature endpoints mounted by the router.
type Handlers struct {
	Checkout *checkout.Handler
	Orders   *orders.Handler
	Coupons  *coupons.Handler
	Wallet   *wallet.Handler
	Profiles *profiles.Handler
	Support  *support.Handler
	Admin    *admin.Handler
}

type Options struct {
	CORSOrigin     string
	KioskTokenHash string
	AdminTokenHash string
	Limiter        *middleware.RateLimiter
}

// NewRouter serves every route both at the root and under /api.
func NewRouter(h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(opts.CORSOrigin))

	routes := func(r chi.Router) {
		r.Get("/health", health)

		r.Post("/process-print", h.Checkout.ProcessPrint)
		r.Get("/user-data/{uid}", h.Orders.UserData)
		r.Post("/support", h.Support.Submit)

		r.Get("/wallet/{uid}", h.Wallet.Balance)
		r.Get("/wallet/history/{uid}", h.Wallet.History)

		r.Post("/profile", h.Profiles.Ensure)
		r.Get("/profile/{uid}", h.Profiles.Get)

		r.With(limited(opts.Limiter)...).Post("/check-coupon", h.Coupons.Check)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(opts.KioskTokenHash, "kiosk"))
			r.With(limited(opts.Limiter)...).Post("/print/consume", h.Orders.Consume)
			r.Get("/cleanup", h.Orders.Cleanup)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireToken(opts.AdminTokenHash, "admin"))
			r.Get("/stats", h.Admin.Stats)
			r.Get("/orders", h.Admin.Orders)
			r.Get("/wallet/{uid}/audit", h.Wallet.Audit)
		})
	}

	routes(r)
	r.Route("/api", routes)
	return r
}

func limited(rl *middleware.RateLimiter) []func(http.Handler) http.Handler {
	if rl == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{rl.Middleware}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
