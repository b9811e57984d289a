package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kfashion/internal/domain"
)

type createSessionRequest struct {
	Locale string `json:"locale" validate:"omitempty,max=35"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,max=16"`
}

type genderRequest struct {
	Gender string `json:"gender" validate:"required,max=16"`
}

type backgroundRequest struct {
	Background string `json:"background" validate:"required,max=128"`
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	locale := requestLocale(r)
	if r.ContentLength != 0 {
		var req createSessionRequest
		if !a.decode(w, r, &req) {
			return
		}
		if req.Locale != "" {
			locale = domain.NormalizeLocale(req.Locale)
		}
	}
	s := a.Sessions.Create(locale)
	w.Header().Set("Location", "/v1/sessions/"+s.ID())
	a.json(w, http.StatusCreated, toSessionDTO(s.Snapshot()))
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.Sessions.Delete(chi.URLParam(r, "id")) {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SelectMode(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.SelectMode(domain.Mode(req.Mode)); err != nil {
		a.fail(w, r, err, "")
		return
	}
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}

func (a *App) SelectGender(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req genderRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.SelectGender(domain.Gender(req.Gender)); err != nil {
		a.fail(w, r, err, "")
		return
	}
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}

func (a *App) SelectBackground(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req backgroundRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.SelectBackground(req.Background); err != nil {
		a.fail(w, r, err, "")
		return
	}
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}

func (a *App) AutoBackground(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.AutoBackground()
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}

// UploadImage accepts a multipart form with a "file" field, a raw image/*
// body, or JSON carrying a data URL, and stores it as the current mode's
// product image.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, mediaType, err := a.openUpload(r)
	if err == nil {
		err = s.SetSourceImage(file, mediaType)
		_ = file.Close()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("image exceeds %d bytes", a.MaxUploadBytes))
		case errors.Is(err, errUnsupportedMedia):
			a.error(w, http.StatusUnsupportedMediaType, "bad_request", err.Error())
		case errors.Is(err, errMissingFile), errors.Is(err, errMalformedImage):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			a.log(r).Error().Err(err).Msg("read upload")
			a.error(w, http.StatusBadRequest, "bad_request", "could not read image")
		}
		return
	}
	a.json(w, http.StatusOK, toSessionDTO(s.Snapshot()))
}
