package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelnest/backend/internal/middleware"
	"github.com/reelnest/backend/internal/storage"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Reels       ReelStore
	Blobs       storage.BlobStore
	Tokens      TokenService
	Passwords   PasswordHasher
	Reaper      VideoReaper
	DB          Pinger
	AuthLimiter RateLimiter
	Upload      UploadLimits
	CORSOrigins []string
	Logger      *slog.Logger
}

// UploadLimits bounds the upload endpoint.
type UploadLimits struct {
	MaxBytes int64
	Requests int
	Window   time.Duration
}

// NewRouter wires HTTP handlers and middleware into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{DB: deps.DB}
	authH := AuthHandler{Users: deps.Users, Tokens: deps.Tokens, Passwords: deps.Passwords, Limiter: deps.AuthLimiter}
	reels := ReelHandler{Users: deps.Users, Reels: deps.Reels, Blobs: deps.Blobs, Reaper: deps.Reaper, MaxUploadBytes: deps.Upload.MaxBytes}
	likes := EngagementHandler{Reels: deps.Reels}
	comments := CommentHandler{Users: deps.Users, Reels: deps.Reels}
	videos := VideoHandler{Blobs: deps.Blobs}

	requireUser := middleware.RequireUser(deps.Tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(corsOptions(deps.CORSOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authH.SignUp)
			r.Post("/login", authH.Login)
			r.With(requireUser).Get("/me", authH.Me)
		})

		r.Route("/reels", func(r chi.Router) {
			r.Get("/", reels.List)
			r.With(requireUser, uploadLimiter(deps.Upload)).Post("/upload", reels.Upload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reels.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireUser)
					r.Put("/", reels.Update)
					r.Delete("/", reels.Delete)
					r.Post("/like", likes.Like)
					r.Post("/dislike", likes.Dislike)
					r.Post("/comment", comments.Add)
					r.Put("/comment/{commentId}", comments.Edit)
					r.Delete("/comment/{commentId}", comments.Delete)
				})
			})
		})

		r.Get("/videos/{id}", videos.Stream)
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func uploadLimiter(limits UploadLimits) func(http.Handler) http.Handler {
	requests, window := limits.Requests, limits.Window
	if requests <= 0 {
		requests = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(r.Context(), w, http.StatusTooManyRequests, "Too many uploads, please try again later")
		}),
	)
}
