package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"kfashion/internal/http/handlers"
	"kfashion/internal/infra"
	"kfashion/internal/middleware"
)

// Options tunes the cross-cutting middleware.
type Options struct {
	Logger          infra.Logger
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
		r.Get("/catalog", app.Catalog)

		r.Post("/sessions", app.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Delete("/", app.DeleteSession)

			r.Put("/mode", app.SelectMode)
			r.Put("/gender", app.SelectGender)
			r.Put("/background", app.SelectBackground)
			r.Post("/background/auto", app.AutoBackground)
			r.Put("/image", app.UploadImage)

			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)
			r.Get("/result", app.DownloadResult)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", app.ListHistory)
				r.Delete("/", app.ClearHistory)
				r.Get("/archive", app.HistoryArchive)
				r.Get("/{stamp}/image", app.HistoryImage)
				r.Delete("/{stamp}", app.DeleteHistoryEntry)
			})

			r.Get("/events", app.SessionEvents)
		})
	})

	return r
}
