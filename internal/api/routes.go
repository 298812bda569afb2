package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Builder metadata
		r.Get("/fields", h.ListFields)
		r.Get("/fields/{field}/operators", h.ListFieldOperators)

		// Segments
		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.ListSegments)
			r.Post("/", h.CreateSegment)
			r.Post("/preview", h.PreviewSegment)

			r.Route("/{segmentID}", func(r chi.Router) {
				r.Get("/", h.GetSegment)
				r.Put("/", h.UpdateSegment)
				r.Delete("/", h.DeleteSegment)
				r.Post("/duplicate", h.DuplicateSegment)
				r.Get("/count", h.GetSegmentCount)
				r.Post("/count/refresh", h.RefreshSegmentCount)
			})
		})

		// Templates
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates/{templateID}/segments", h.CreateFromTemplate)
	})

	return r
}
