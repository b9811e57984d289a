package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"kfashion/internal/studio"
	"kfashion/pkg/dataurl"
)

// Generate triggers one generation for the session's current selection. By
// default the call runs in the background and 202 is returned immediately;
// with ?wait=true the response carries the finished outcome. A trigger while
// a generation is in flight is ignored and reports the loading snapshot.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		if _, err := s.GenerateAsync(ctx); err != nil {
			a.fail(w, r, err, failureMessage(s.Snapshot()))
			return
		}
		a.json(w, http.StatusAccepted, toSessionDTO(s.Snapshot()))
		return
	}

	if err := s.Generate(ctx); err != nil {
		a.fail(w, r, err, failureMessage(s.Snapshot()))
		return
	}
	snap := s.Snapshot()
	code := http.StatusOK
	if snap.Status == studio.StatusLoading {
		code = http.StatusAccepted
	}
	a.json(w, code, toSessionDTO(snap))
}

func failureMessage(snap studio.Snapshot) string {
	if snap.Failure == nil {
		return ""
	}
	return snap.Failure.Message
}

// DownloadResult serves the current result image as an attachment.
func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if snap.Result == nil {
		a.error(w, http.StatusNotFound, "not_found", "no result yet")
		return
	}
	name := fmt.Sprintf("k-fashion-%s-%d.%s",
		strings.ToLower(string(snap.Result.Mode)),
		snap.Result.CreatedAt.UnixMilli(),
		snap.Result.Image.Extension())
	a.attachment(w, snap.Result.Image, name)
}

func (a *App) attachment(w http.ResponseWriter, img dataurl.DataURL, filename string) {
	w.Header().Set("Content-Type", img.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
