package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/api/handlers"
	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/config"
	"github.com/isdelr/taskflow-be/internal/graphql"
	"github.com/isdelr/taskflow-be/internal/services"
	"github.com/isdelr/taskflow-be/internal/websocket"
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	Config *config.Config
	Hub    *websocket.Hub
	Tokens *auth.TokenManager
	Users  services.UserServiceProvider
	Auth   *services.AuthService
	Tasks  services.TaskServiceProvider
	Stats  handlers.StatsSource
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	cfg := deps.Config
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	secure := cfg.IsProduction()
	authHandler := handlers.NewAuthHandler(deps.Auth, secure)
	taskHandler := handlers.NewTaskHandler(deps.Tasks, cfg.MaxUploadBytes)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, cfg.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(deps.Stats, deps.Hub)

	requireAuth := deps.Tokens.Middleware(deps.Users)
	optionalAuth := deps.Tokens.Optional(deps.Users)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.GetMe)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", taskHandler.GetAll)
			r.Post("/", taskHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Post("/attachments", taskHandler.UploadAttachment)
				r.Get("/attachments/{filename}", taskHandler.DownloadAttachment)
				r.Delete("/attachments/{filename}", taskHandler.DeleteAttachment)
			})
		})
	})

	resolver := graphql.NewResolver(deps.Auth, deps.Users, deps.Tasks, deps.Hub, secure)
	gqlHandler := graphql.NewHandler(graphql.NewSchema(resolver), !cfg.IsProduction())
	r.With(optionalAuth).Handle("/graphql", gqlHandler)

	// WebSocket connection endpoint
	r.With(optionalAuth).Get("/ws", wsHandler.Serve)

	if cfg.StaticDir != "" {
		r.NotFound(spaHandler(cfg.StaticDir))
	}

	return r
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}

// spaHandler serves files from dir and falls back to index.html for client-side routes.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}` + "\n"))
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}
