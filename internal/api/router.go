// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/middleware"
	"github.com/tomtom215/hazledger/internal/models"
)

// Router assembles the HTTP surface: middleware stack, API routes, metrics,
// photo file serving and the SPA shell.
type Router struct {
	handler      *Handler
	authMW       *auth.Middleware
	loginLimiter *auth.LoginLimiter
}

// NewRouter wires the route table dependencies.
func NewRouter(handler *Handler, authMW *auth.Middleware, loginLimiter *auth.LoginLimiter) *Router {
	return &Router{
		handler:      handler,
		authMW:       authMW,
		loginLimiter: loginLimiter,
	}
}

// Setup builds the full chi route tree.
func (router *Router) Setup() http.Handler {
	cfg := router.handler.cfg
	r := chi.NewRouter()

	// Global stack, applied to every route. CORS must be global so OPTIONS
	// preflights are answered before routing.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Compression)

	// Public probes.
	r.Get("/api/v1/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Login sits outside the authenticated group, throttled per IP on top
	// of the general budget.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.generalRateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.With(router.loginRateLimit()).Post("/login", router.handler.Login)

		r.Group(func(r chi.Router) {
			r.Use(router.authMW.Authenticate)
			r.Get("/profile", router.handler.GetProfile)
			r.Put("/profile", router.handler.UpdateProfile)
		})
	})

	// Everything under /api/v1 besides health and auth requires a token.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.generalRateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMW.Authenticate)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", router.handler.ListCompanies)
			r.Post("/", router.handler.CreateCompany)
			r.Get("/check-name", router.handler.CheckCompanyName)
			r.Get("/check-code", router.handler.CheckCompanyCode)
			r.Get("/{id}", router.handler.GetCompany)
			r.Put("/{id}", router.handler.UpdateCompany)
			r.Delete("/{id}", router.handler.DeleteCompany)
			r.Get("/{id}/stats", router.handler.GetCompanyStats)
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", router.handler.ListUnits)
			r.Post("/", router.handler.CreateUnit)
			r.Get("/{id}", router.handler.GetUnit)
			r.Put("/{id}", router.handler.UpdateUnit)
			r.Delete("/{id}", router.handler.DeleteUnit)
		})

		r.Route("/waste-types", func(r chi.Router) {
			r.Get("/", router.handler.ListWasteTypes)
			r.Post("/", router.handler.CreateWasteType)
			r.Get("/{id}", router.handler.GetWasteType)
			r.Put("/{id}", router.handler.UpdateWasteType)
			r.Delete("/{id}", router.handler.DeleteWasteType)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", router.handler.ListUsers)
			r.Post("/", router.handler.CreateUser)
			r.Get("/{id}", router.handler.GetUser)
			r.Put("/{id}", router.handler.UpdateUser)
			r.Delete("/{id}", router.handler.DeleteUser)
			r.Put("/{id}/status", router.handler.SetUserStatus)
			r.Put("/{id}/log-permission", router.handler.SetLogPermission)
		})

		r.Route("/waste-records", func(r chi.Router) {
			r.Get("/", router.handler.ListWasteRecords)
			r.Post("/", router.handler.CreateWasteRecord)
			r.Get("/export", router.handler.ExportWasteRecords)
			r.Get("/{id}", router.handler.GetWasteRecord)
			r.Put("/{id}", router.handler.UpdateWasteRecord)
			r.Delete("/{id}", router.handler.DeleteWasteRecord)
		})

		r.Get("/operation-logs", router.handler.ListOperationLogs)

		r.Route("/feedback", func(r chi.Router) {
			r.Get("/", router.handler.ListFeedback)
			r.Post("/", router.handler.CreateFeedback)
			r.Put("/{id}", router.handler.UpdateFeedback)
		})
	})

	// Photo files. Authenticated: evidence photos are tenant data.
	r.Group(func(r chi.Router) {
		r.Use(router.authMW.Authenticate)
		r.Get("/uploads/*", router.servePhoto)
	})

	// SPA shell, last so it catches all unmatched routes.
	r.Get("/*", router.serveStaticOrIndex)

	return r
}

// generalRateLimit is the per-IP budget for API endpoints.
func (router *Router) generalRateLimit() func(http.Handler) http.Handler {
	cfg := router.handler.cfg.RateLimit
	if cfg.Disabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(cfg.RequestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

// loginRateLimit throttles credential guessing independently of the general
// budget.
func (router *Router) loginRateLimit() func(http.Handler) http.Handler {
	if router.handler.cfg.RateLimit.Disabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !router.loginLimiter.Allow(r) {
				rateLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusTooManyRequests, models.ErrCodeRateLimited, "too many requests", nil)
}

// servePhoto streams a stored evidence photo. The upload store resolves the
// path and rejects traversal attempts.
func (router *Router) servePhoto(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	abs, err := router.handler.uploads.Resolve(rel)
	if err != nil {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "resource not found", nil)
		return
	}
	http.ServeFile(w, r, abs)
}

// serveStaticOrIndex serves frontend assets, falling back to the SPA shell
// for client-side routes.
func (router *Router) serveStaticOrIndex(w http.ResponseWriter, r *http.Request) {
	staticDir := router.handler.cfg.Server.StaticDir
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".css"):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	case path == "/" || path == "/index.html":
		w.Header().Set("Cache-Control", "public, max-age=300")
	}

	if path != "/" && path != "/index.html" {
		candidate := filepath.Join(staticDir, filepath.Clean("/"+path))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			http.FileServer(http.Dir(staticDir)).ServeHTTP(w, r)
			return
		}
	}
	http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
}
