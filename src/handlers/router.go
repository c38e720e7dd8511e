// src/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nuerofin/backend/src/security"
	"golang.org/x/time/rate"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	AuthService     *security.AuthService
	CardHandler     *CardHandler
	SandboxHandler  *SandboxHandler
	FrontendBaseURL string
	RateLimitRPS    float64
	RateLimitBurst  int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(CORSMiddleware(cfg.FrontendBaseURL))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			sendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
		})

		r.Get("/sandbox/{cardNumber}", cfg.SandboxHandler.HandleGetCardTransactions)
		r.Get("/sandbox/{cardNumber}/summary", cfg.SandboxHandler.HandleGetMonthlySummary)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.AuthService))
			r.Get("/card", cfg.CardHandler.HandleGetCard)
			r.Post("/card", cfg.CardHandler.HandleSaveCard)
			r.Post("/sandbox/tick", cfg.SandboxHandler.HandleRunTick)
		})
	})

	return r
}
