package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/observability"
	"github.com/DoyleJ11/narrative-engine/internal/ws"
)

type Deps struct {
	Hub     *hub.Hub
	Catalog *catalog.Catalog
	Logger  *zap.Logger
	WS      ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.WS.Logger == nil {
		d.WS.Logger = logger.Named("ws")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger(logger.Named("http")))

	// Public routes
	r.Get("/sessions", ListSessions(d.Hub))
	r.Post("/sessions", CreateSession(d.Hub, logger))
	r.Delete("/sessions/{code}", DeleteSession(d.Hub))
	r.Get("/experiences", ListExperiences(d.Catalog))
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	return r
}
