package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/api/middleware"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/handlers"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/websocket"
)

// Deps are the handlers and settings the router serves.
type Deps struct {
	WS          *websocket.Handler
	History     *handlers.HistoryHandler
	Rooms       *handlers.RoomHandler
	Upload      *handlers.UploadHandler
	Health      *handlers.HealthHandler
	UploadDir   string
	CORSOrigins []string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	logger.Info().Strs("origins", d.CORSOrigins).Msg("CORS allowed origins")
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", d.Health.HealthCheck)

	r.Get("/ws", d.WS.ServeWS)
	r.Get("/history", d.History.GetHistory)

	r.Post("/upload", d.Upload.Upload)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms/{id}", d.Rooms.GetRoom)
	})

	return r
}
