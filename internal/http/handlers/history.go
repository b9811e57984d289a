package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kfashion/internal/domain"
	"kfashion/pkg/zip"
)

func historyFilename(e domain.HistoryEntry) string {
	return fmt.Sprintf("k-fashion-history-%d.%s", e.Stamp, e.Image.Extension())
}

func (a *App) ListHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": toHistoryDTO(s.Snapshot().History)})
}

func (a *App) stampParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	stamp, err := strconv.ParseInt(chi.URLParam(r, "stamp"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "stamp must be an integer")
		return 0, false
	}
	return stamp, true
}

func (a *App) HistoryImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	stamp, ok := a.stampParam(w, r)
	if !ok {
		return
	}
	entry, err := s.HistoryEntry(stamp)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "history entry not found")
		return
	}
	a.attachment(w, entry.Image, historyFilename(entry))
}

// DeleteHistoryEntry removes one entry. Unknown stamps are not an error.
func (a *App) DeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	stamp, ok := a.stampParam(w, r)
	if !ok {
		return
	}
	s.DeleteHistoryEntry(stamp)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// HistoryArchive bundles every history image into one zip download.
func (a *App) HistoryArchive(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	assets := make([]zip.Asset, 0, len(snap.History))
	for _, e := range snap.History {
		assets = append(assets, zip.Asset{
			Filename: historyFilename(e),
			MIME:     e.Image.MediaType,
			Data:     e.Image.Data,
			Modified: e.CreatedAt,
		})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.log(r).Error().Err(err).Msg("build history archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=k-fashion-history-%s.zip", snap.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
