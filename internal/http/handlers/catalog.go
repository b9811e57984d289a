package handlers

import (
	"net/http"
	"time"

	"kfashion/internal/domain"
)

type modeCatalogDTO struct {
	Mode              string          `json:"mode"`
	DefaultBackground string          `json:"default_background"`
	Backgrounds       []backgroundDTO `json:"backgrounds"`
	UsesGender        bool            `json:"uses_gender"`
}

// Catalog lists modes, genders, and the localized background choices.
func (a *App) Catalog(w http.ResponseWriter, r *http.Request) {
	locale := requestLocale(r)
	if q := r.URL.Query().Get("locale"); q != "" {
		locale = domain.NormalizeLocale(q)
	}
	modes := make([]modeCatalogDTO, 0, len(domain.Modes))
	for _, mode := range domain.Modes {
		bgs := domain.Backgrounds(mode)
		items := make([]backgroundDTO, 0, len(bgs))
		for _, bg := range bgs {
			items = append(items, toBackgroundDTO(bg, locale))
		}
		modes = append(modes, modeCatalogDTO{
			Mode:              string(mode),
			DefaultBackground: string(domain.DefaultBackground(mode)),
			Backgrounds:       items,
			UsesGender:        mode == domain.ModeClothing,
		})
	}
	genders := make([]string, 0, len(domain.Genders))
	for _, g := range domain.Genders {
		genders = append(genders, string(g))
	}
	a.json(w, http.StatusOK, map[string]any{
		"locale":  locale,
		"modes":   modes,
		"genders": genders,
	})
}

// Health reports liveness with the number of open sessions and uptime.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"sessions":       a.Sessions.Len(),
		"uptime_seconds": int64(time.Since(a.started) / time.Second),
	})
}
