package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/httputil"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, cronSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Cron-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Provider webhooks. Providers authenticate with their own signing
	// schemes upstream; the engine answers 200 even for events it drops
	// so providers stop retrying.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/email", h.EmailWebhook)
		r.Post("/linkedin", h.LinkedInWebhook)
	})

	// Cron triggers. All time-based work enters through these; there
	// are no internal timers to drift or double-fire.
	r.Route("/api/cron", func(r chi.Router) {
		r.Use(requireCronSecret(cronSecret))
		r.Post("/dispatch", h.CronDispatch)
		r.Post("/expire-approvals", h.CronExpireApprovals)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns/{id}", func(r chi.Router) {
			r.Post("/schedule", h.ScheduleCampaign)
			r.Post("/pause", h.PauseCampaign)
			r.Post("/resume", h.ResumeCampaign)
			r.Post("/cancel", h.CancelCampaign)
		})

		r.Post("/queue/{id}/requeue", h.RequeueItem)

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.ListApprovals)
			r.Post("/{id}/decision", h.DecideApproval)
		})
	})

	return r
}

// requireCronSecret rejects cron triggers without the shared secret.
// An empty configured secret fails closed: nothing can trigger.
func requireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			got := req.Header.Get("X-Cron-Secret")
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.Unauthorized(w, "invalid cron secret")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
