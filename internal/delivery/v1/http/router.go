package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(ratingUC usecase.RatingUC, maxRequestSize int64) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(middleware.Recoverer)
	r.router.Use(middleware.Timeout(requestTimeout))

	r.router.Get("/healthz", healthz)

	pageHandler := NewPageHandler(ratingUC, r.logger)
	r.router.Get("/", pageHandler.index)
	r.router.Post("/", pageHandler.submit)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		ratingHandler := NewRatingHandler(ratingUC, r.logger, maxRequestSize)
		registerRatingRoutes(v1, ratingHandler)
	})
}

func registerRatingRoutes(router chi.Router, h *RatingHandler) {
	router.Get("/features", h.features)
	router.Route("/ratings", func(rt chi.Router) {
		rt.Get("/", h.listComparisons)
		rt.Post("/compare", h.compare)
		rt.Post("/similar", h.similar)
		rt.Get("/{id}", h.getComparison)
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
