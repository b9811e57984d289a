package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kfashion/internal/domain"
	"kfashion/internal/infra"
	"kfashion/internal/middleware"
	"kfashion/internal/studio"
)

// App carries the dependencies shared by every handler.
type App struct {
	Sessions       *studio.Manager
	Logger         infra.Logger
	MaxUploadBytes int64
	upgrader       websocket.Upgrader
	validate       *validator.Validate
	started        time.Time
}

// NewApp wires the handler container. allowedOrigins gates WebSocket
// upgrades the same way CORS gates plain requests.
func NewApp(sessions *studio.Manager, logger infra.Logger, maxUploadBytes int64, allowedOrigins []string) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &App{
		Sessions:       sessions,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		started:  time.Now(),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allow := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allow[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDTO `json:"error"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errorDTO{Code: errCode, Message: message}})
}

// decode reads a JSON body into dst and checks its validate tags. It writes
// the error response itself and reports whether the handler may continue.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return false
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		a.error(w, http.StatusUnprocessableEntity, string(domain.KindValidation), strings.Join(fields, "; "))
		return false
	}
	return true
}

// fail maps a domain error onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	kind := domain.KindOf(err)
	if message == "" {
		message = err.Error()
	}
	status := http.StatusBadGateway
	switch kind {
	case domain.KindValidation:
		status = http.StatusUnprocessableEntity
	case domain.KindConfiguration:
		status = http.StatusServiceUnavailable
	}
	a.log(r).Warn().Err(err).Str("kind", string(kind)).Int("status", status).Msg("request failed")
	a.json(w, status, errorBody{Error: errorDTO{Code: string(kind), Message: message, Detail: domain.DetailOf(err)}})
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	l := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	return &l
}

// session resolves the {id} URL parameter, writing a 404 when unknown.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*studio.Session, bool) {
	s, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return s, true
}

func requestLocale(r *http.Request) domain.Locale {
	return domain.NormalizeLocale(middleware.LocaleFromContext(r.Context()))
}
