package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/brandhub/deploycenter/internal/api/handlers"
	mw "github.com/brandhub/deploycenter/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret     []byte
	AllowedOrigins []string
	// RateLimitRPS disables rate limiting when zero.
	RateLimitRPS   float64
	RateLimitBurst int

	Health   *handlers.HealthHandler
	Commits  *handlers.CommitsHandler
	Sessions *handlers.SessionsHandler
	Releases *handlers.ReleasesHandler
	Gap      *handlers.GapHandler
	Branches *handlers.BranchesHandler
	Catalog  *handlers.CatalogHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(dep.AllowedOrigins))
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}
	r.Use(chimid.Compress(5))

	hh := dep.Health
	if hh == nil {
		hh = handlers.NewHealthHandler()
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Auth(dep.HMACSecret))

		api.Route("/deploy", func(dr chi.Router) {
			dr.Route("/commits", func(cr chi.Router) {
				cr.Get("/", dep.Commits.List)
				cr.Post("/", dep.Commits.Create)
				cr.Get("/{id}", dep.Commits.Get)
				cr.Post("/{id}/archive", dep.Commits.Archive)
			})

			dr.Route("/sessions", func(sr chi.Router) {
				sr.Get("/", dep.Sessions.List)
				sr.Post("/", dep.Sessions.Create)
				sr.Get("/{id}", dep.Sessions.Get)
				sr.Get("/{id}/commits", dep.Sessions.Commits)
				sr.Post("/{id}/launch", dep.Sessions.Launch)
				sr.Post("/{id}/cancel", dep.Sessions.Cancel)
			})

			dr.Route("/releases", func(rr chi.Router) {
				rr.Get("/", dep.Releases.List)
				rr.Put("/", dep.Releases.Put)
				rr.Post("/rollback", dep.Releases.Rollback)
			})

			dr.Get("/gap-analysis", dep.Gap.Summary)
			dr.Get("/gap-analysis/{tool}", dep.Gap.Tool)
			dr.Get("/status", dep.Gap.Status)

			dr.Get("/branches", dep.Branches.List)
			dr.Post("/branches/reconcile", dep.Branches.Reconcile)
		})

		api.Route("/catalog", func(cr chi.Router) {
			cr.Get("/suppliers", dep.Catalog.ListSuppliers)
			cr.Post("/suppliers", dep.Catalog.CreateSupplier)
			cr.Post("/suppliers/{id}/deploy", dep.Catalog.DeploySupplier)
			cr.Get("/products", dep.Catalog.ListProducts)
			cr.Post("/products", dep.Catalog.CreateProduct)
			cr.Get("/categories", dep.Catalog.ListCategories)
			cr.Post("/categories", dep.Catalog.CreateCategory)
		})
	})

	return r
}
