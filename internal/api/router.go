package api

import (
	"net/http"
	"time"

	"sjsage522/pricecompare/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router with middleware and routes
func NewRouter(h *Handlers, allowedOrigins []string, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	// CORS
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/price", h.GetPrice)

	r.Get("/search/{source}", h.SearchSource)
	r.Get("/search-prices", h.SearchPrices)
	r.Get("/search-argos", h.searchAlias("argos"))
	r.Get("/search-pricespy", h.searchAlias("pricespy"))

	r.Route("/track", func(r chi.Router) {
		r.Post("/", h.CreateTrackedItem)
		r.Get("/", h.ListTrackedItems)
		r.Post("/check", h.CheckAllTrackedItems)
		r.Delete("/{id}", h.DeleteTrackedItem)
		r.Post("/{id}/check", h.CheckTrackedItem)
	})

	return r
}

// requestLogger logs one line per request through the structured logger
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
