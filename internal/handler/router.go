package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/amesupakorn/eLottery/internal/metrics"
	custommiddleware "github.com/amesupakorn/eLottery/internal/middleware"
)

// SetupRouter wires the HTTP routes and middleware.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signin", h.SignIn)

		r.Get("/lottery/preview", h.PreviewPurchase)
		r.Get("/receipts/open", h.OpenReceipt)
		r.Get("/receipts/{id}", h.VerifyReceipt)

		r.Route("/draws", func(r chi.Router) {
			r.Get("/", h.ListDraws)
			r.Get("/current", h.CurrentDraw)
			r.Get("/current/results", h.CurrentResults)
			r.Get("/{id}", h.GetDraw)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireOperator(h.operatorKey))

				r.Post("/create", h.CreateDraw)

				r.Post("/current/lock", h.LockDraw)
				r.Post("/current/run", h.RunDraw)
				r.Post("/current/publish", h.PublishDraw)
				r.Post("/current/flow", h.Flow)

				r.Post("/{id}/lock", h.LockDraw)
				r.Post("/{id}/run", h.RunDraw)
				r.Post("/{id}/publish", h.PublishDraw)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/auth/signout", h.SignOut)
			r.Get("/auth/me", h.Me)

			r.Get("/wallet", h.GetWallet)
			r.Post("/wallet/deposit", h.Deposit)
			r.Post("/wallet/withdraw", h.Withdraw)

			r.Post("/lottery/purchase", h.Purchase)
			r.Get("/lottery", h.OwnedTickets)
			r.Post("/lottery/{id}/cancel", h.CancelPurchase)

			r.Get("/history/tickets", h.TicketHistory)
			r.Get("/history/transactions", h.TransactionHistory)

			r.Post("/receipts/generate", h.GenerateReceipt)
			r.Get("/receipts/{id}/link", h.ReceiptLink)

			r.Post("/notification/subscribe", h.Subscribe)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
