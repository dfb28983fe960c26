package main

import (
	"net/http"

	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/realtime"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type application struct {
	tournaments *service.TournamentService
	hub         *realtime.Hub
	corsOrigins []string
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type",
			middleware.HeaderActorID, middleware.HeaderActorName, middleware.HeaderActorRole},
		MaxAge: 300,
	}))
	r.Use(middleware.LoadActor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Event feed, filtered with ?tournament=<id>
	r.Handle("/ws", app.hub.Handler())

	r.Get("/api/formats", app.listFormats)

	r.Route("/api/tournaments", func(r chi.Router) {
		r.Get("/", app.listTournaments)
		r.With(middleware.RequireActor).Post("/", app.createTournament)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.getTournament)
			r.Get("/audit", app.getAudit)
			r.Get("/participants", app.searchParticipants)
			r.Get("/matches/{matchID}/media", app.matchMedia)
			r.With(middleware.RequireActor).Post("/commands", app.executeCommand)

			r.Route("/stages/{stageID}", func(r chi.Router) {
				r.Get("/matches", app.stageMatches)
				r.Get("/matches/{matchID}/adjacent", app.adjacentMatch)
				r.Get("/layout", app.stageLayout)
				r.Get("/standings", app.stageStandings)
				r.Get("/upsets", app.stageUpsets)
				r.Get("/path/{participantID}", app.pathToFinal)
			})
		})
	})

	return r
}
