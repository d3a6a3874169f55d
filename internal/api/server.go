package api

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/config"
	"github.com/JakeFAU/doulist-movies/internal/hash/sha256"
	idgen "github.com/JakeFAU/doulist-movies/internal/id/uuid"
	"github.com/JakeFAU/doulist-movies/internal/metrics"
	"github.com/JakeFAU/doulist-movies/internal/movie"
	"github.com/JakeFAU/doulist-movies/internal/policy/ratelimit"
)

// Server wires HTTP handlers to the movie store and the image fetcher.
type Server struct {
	router chi.Router
	opener movie.Opener
	proxy  *ImageProxy
	ids    movie.IDGenerator
	pick   func(n int) int
	cfg    config.Config
	logger *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithPicker replaces the uniform random index picker used by /api/movies/random.
func WithPicker(pick func(n int) int) Option {
	return func(s *Server) { s.pick = pick }
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(gen movie.IDGenerator) Option {
	return func(s *Server) { s.ids = gen }
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	opener movie.Opener,
	images movie.Fetcher,
	cfg config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		opener: opener,
		ids:    idgen.New(),
		pick:   rand.IntN,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	limiter := ratelimit.New(ratelimit.Config{
		RPS:        cfg.Proxy.RatePerSecond,
		Burst:      cfg.Proxy.Burst,
		MaxHosts:   cfg.Proxy.MaxHosts,
		KnownHosts: cfg.Proxy.KnownHosts,
	})
	s.proxy = NewImageProxy(images, ProxyOptions{
		UserAgent:    cfg.Scraper.UserAgent,
		Referer:      cfg.Proxy.Referer,
		Timeout:      cfg.Proxy.Timeout(),
		CacheControl: cfg.Proxy.CacheControl(),
		Limiter:      limiter,
		Hasher:       sha256.New(),
	}, logger.Named("proxy"))

	metrics.Init()

	timeout := cfg.Server.RequestTimeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(s.ids))
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.index)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/proxy-image", s.proxy.ServeHTTP)
		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.listMovies)
			r.Get("/random", s.randomMovie)
			r.Get("/search", s.searchMovies)
			r.Get("/{id:[0-9]+}", s.getMovie)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type indexResponse struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation string            `json:"documentation"`
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Name:    "Doulist Movie Library API",
		Version: "1.0",
		Endpoints: map[string]string{
			"movies_list":   "/api/movies",
			"movie_detail":  "/api/movies/<movie_id>",
			"random_movie":  "/api/movies/random",
			"search_movies": "/api/movies/search?q=<keyword>",
			"health_check":  "/api/health",
			"proxy_image":   "/api/proxy-image?url=<image_url>",
		},
		Documentation: "GET /api/movies for the paginated movie list",
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
