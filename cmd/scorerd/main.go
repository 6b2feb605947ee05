package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/psytools/normscore/internal/api/http"
	"github.com/psytools/normscore/internal/auth"
	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/config"
	"github.com/psytools/normscore/internal/db"
	"github.com/psytools/normscore/internal/session"
	"github.com/psytools/normscore/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := session.NewSQLStore(dbh, cfg.DBDriver)

	cat := catalog.New(cfg.InstrumentDir, cfg.BibliographyDir)
	defs, err := storage.NewDefinitionStore(cfg.InstrumentDir)
	if err != nil {
		log.Fatalf("definition store: %v", err)
	}
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsLocal
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, cfg.AdminUser, cfg.AdminPassHash))
	r.Post("/auth/guest", auth.GuestHandler(authSvc))

	// Protected API (JWT -> role in context)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Get("/instruments", api.ListInstrumentsHandler(cat))
		pr.Get("/instruments/{slug}", api.GetInstrumentHandler(cat))
		pr.Get("/instruments/{slug}/studies", api.StudiesHandler(cat))
		pr.Get("/instruments/{slug}/norm-groups", api.NormGroupsHandler(cat))

		// Respondent flow
		pr.Post("/sessions", api.CreateSessionHandler(store, cat))
		pr.Get("/sessions", api.ListMySessionsHandler(store))
		pr.Get("/sessions/{sessionID}", api.GetSessionHandler(store))
		pr.Post("/sessions/{sessionID}/answers", api.SaveAnswersHandler(store))
		pr.Post("/sessions/{sessionID}/submit", api.SubmitSessionHandler(store))

		// Clinician-only: instrument upload, scoring and export
		pr.With(auth.Require(auth.RoleClinician)).
			Post("/instruments", api.UploadInstrumentHandler(defs))
		pr.With(auth.Require(auth.RoleClinician)).
			Post("/sessions/{sessionID}/score", api.ScoreSessionHandler(cat, store))
		pr.With(auth.Require(auth.RoleClinician)).
			Get("/sessions/{sessionID}/report.csv", api.ReportCSVHandler(cat, store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s, scales=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.InstrumentDir)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
