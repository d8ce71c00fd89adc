// Package http provides the HTTP delivery layer for the short link service.
// It decodes and validates requests, calls the engine and maps its errors to
// status codes and JSON error bodies.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

type routerOptions struct {
	baseURL     string
	rateLimiter func(http.Handler) http.Handler
	docsPath    string
}

type RouterOption func(*routerOptions)

// WithBaseURL sets the public address used in QR codes.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		o.baseURL = baseURL
	}
}

// WithRateLimiter installs a limiting middleware in front of the /api routes.
func WithRateLimiter(mw func(http.Handler) http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.rateLimiter = mw
	}
}

func WithDocsPath(path string) RouterOption {
	return func(o *routerOptions) {
		o.docsPath = path
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the short link API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	options := routerOptions{
		docsPath: "./docs/swagger.yml",
	}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, options.docsPath)
	})

	r.Route("/api", func(r chi.Router) {
		if options.rateLimiter != nil {
			r.Use(options.rateLimiter)
		}

		r.Get("/ping", handlePing)

		r.Route("/url", func(r chi.Router) {
			validate := validator.New()
			h := newURLHandler(urlUseCase, validate, options.baseURL)

			r.Post("/create", h.shortenURL)
			r.Get("/all", h.listURLs)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", h.redirect)
				r.Delete("/", h.deleteURL)
				r.Get("/info", h.getURLInfo)
				r.Get("/redirect", h.resolveShortCode)
				r.Get("/qr", h.getQRCode)
			})
		})
	})

	return r
}
