package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, clockHandler ClockHandler, geofenceHandler GeofenceHandler, streamHandler StreamHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot set headers, so the stream authenticates with ?token=.
		r.Get("/clock-events/stream", streamHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/jobs/{jobID}", func(r chi.Router) {
				r.Route("/geofence", func(r chi.Router) {
					r.Get("/", geofenceHandler.Describe)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionGeofenceExpand))
						r.Put("/expansion", geofenceHandler.ExpandRadius)
					})
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionClockSelf))
					r.Post("/clock", clockHandler.Clock)
				})

				// Manager only
				r.Route("/clock-events", func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Get("/", clockHandler.ListJobEvents)
					r.Get("/summary", clockHandler.Summary)
					r.Get("/geojson", clockHandler.ExportGeoJSON)
				})
			})

			r.Route("/clock-events", func(r chi.Router) {
				r.Get("/{eventID}", clockHandler.GetEvent)
				r.Post("/{eventID}/override", clockHandler.SubmitOverride)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionOverrideApprove))
					r.Post("/{eventID}/approve", clockHandler.ApproveOverride)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Post("/stream/token", streamHandler.GetSSEToken)
				})
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/clock-events", clockHandler.ListMyEvents)
				r.Get("/time-entries", clockHandler.ListMyTimeEntries)
			})
		})
	})

	return r
}
