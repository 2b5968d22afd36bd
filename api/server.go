/*
server.go - HTTP router and middleware configuration

ROUTER: chi
  Lightweight, context-based, RESTful route patterns.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard front-end

ROUTE GROUPS:
  /api/rules/*     Per-branch lending rules
  /api/members/*   Registry, contributions, member loans
  /api/loans/*     Loan lifecycle
  /api/contributions  Full ledger across members
  /api/penalties/* Penalty listing and settlement
  /api/reports/*   Aggregate and per-member share reports

SECURITY NOTE:
  No authentication middleware; identity and token handling belong to the
  delivery layer in front of this service.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/rules/{branch}", h.GetGroupRules)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.RegisterMember)
			r.Get("/{id}", h.GetMember)
			r.Post("/{id}/approve", h.ApproveMember)
			r.Post("/{id}/reject", h.RejectMember)
			r.Get("/{id}/loans", h.ListMemberLoans)
			r.Get("/{id}/contributions", h.ListContributions)
			r.Post("/{id}/contributions", h.AppendContribution)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.RequestLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/repayments", h.RepayLoan)
		})

		r.Get("/contributions", h.ListLedger)

		r.Route("/penalties", func(r chi.Router) {
			r.Get("/", h.ListPenalties)
			r.Post("/{id}/pay", h.PayPenalty)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/aggregate", h.GetAggregateReport)
			r.Get("/shares", h.GetMemberShares)
		})
	})

	return r
}
