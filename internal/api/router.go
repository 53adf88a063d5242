package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDWithLogging)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.cors())
	r.Use(app.rateLimit())

	r.NotFound(NotFoundHandler)

	r.Get("/ping", PingHandler)
	r.Get("/ready", app.ReadyHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/login", app.LoginHandler)
	r.Post("/login", app.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.authenticate)
		r.Use(app.authorize)

		r.Get("/task/annotations", app.TaskAnnotationsHandler)
		r.Get("/task/status", app.TaskStatusHandler)
		r.Get("/tasks", app.TasksByStatusHandler)
		r.Get("/count/frames", app.CountFramesHandler)
		r.Put("/update/score/tasks", app.UpdateScoresHandler)
		r.Get("/watershed/images", app.WatershedImagesHandler)
		r.Post("/watershed/images", app.WatershedImagesHandler)
	})

	return r
}
