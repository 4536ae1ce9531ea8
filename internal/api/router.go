package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.sessionMiddleware)

		r.Get("/", app.HomeHandler)
		r.Get("/workflow", app.WorkflowPartialHandler)
		r.Post("/select", app.SelectHandler)
		r.Post("/analyze", app.AnalyzeHandler)
		r.Post("/retry", app.RetryHandler)
		r.Post("/reset", app.ResetHandler)
		r.Get("/preview/{handle}", app.PreviewHandler)
		r.Get("/state", app.StateHandler)
		r.Get("/events", app.EventsHandler)
	})

	return r
}
