package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arvestapp/arvest-backend/internal/api/handlers"
	"github.com/arvestapp/arvest-backend/internal/config"
	"github.com/arvestapp/arvest-backend/internal/middleware"
)

type RouterDeps struct {
	Cfg     config.Config
	Auth    *handlers.AuthHandler
	Wallet  *handlers.WalletHandler
	Pending *handlers.PendingHandler
	AuthMW  *middleware.AuthMiddleware
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)
		r.Post("/auth/refresh", d.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Get("/wallet", d.Wallet.Current)
			r.Get("/wallet/transactions", d.Wallet.History)
			r.Post("/wallet/beneficiaries", d.Wallet.AddBeneficiary)
			r.Delete("/wallet/beneficiaries/{accountNumber}", d.Wallet.RemoveBeneficiary)
			r.Post("/wallet/fund", d.Wallet.Fund)

			r.Post("/withdrawals", d.Pending.RequestWithdrawal)
			r.Post("/withdrawals/confirm", d.Pending.Confirm)
			r.Post("/transfers", d.Pending.RequestTransfer)
			r.Post("/transfers/confirm", d.Pending.Confirm)
		})
	})

	return r
}
