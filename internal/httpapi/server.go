// Package httpapi serves the three screens as HTML pages and as a JSON API.
package httpapi

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"wt-go/internal/metrics"
	"wt-go/internal/wt"
)

//go:embed templates/*.html
var templateFiles embed.FS

// SessionCookie names the cookie that scopes messages and in-flight state.
const SessionCookie = "wt_session"

type ctxKey int

const sessionKey ctxKey = iota

// Options carries the screens and infrastructure a Server needs.
// Metrics may be nil, in which case /metrics is not served. Clock defaults
// to the real clock and times how long rendered messages stay on the page.
type Options struct {
	Entries   *wt.EntryStore
	Input     *wt.InputScreen
	Dashboard *wt.DashboardScreen
	Manage    *wt.ManageScreen
	Metrics   *metrics.Metrics
	Clock     wt.Clock
	Logger    wt.Logger
}

// Server routes requests to the screens.
type Server struct {
	opts      Options
	logger    wt.Logger
	templates *template.Template
	router    *mux.Router
}

// New builds a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Clock == nil {
		opts.Clock = wt.RealClock{}
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"text": func(name string) string { return uiText[name] },
		"remainingMS": func(expiresAt time.Time) int64 {
			return max(expiresAt.Sub(opts.Clock.Now()).Milliseconds(), 0)
		},
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = wt.NewNopLogger()
	}

	s := &Server{opts: opts, logger: logger, templates: tmpl}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
		r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(withSession)
	pages.HandleFunc("/", s.inputPage).Methods(http.MethodGet)
	pages.HandleFunc("/", s.submitPage).Methods(http.MethodPost)
	pages.HandleFunc("/dashboard", s.dashboardPage).Methods(http.MethodGet)
	pages.HandleFunc("/manage-data", s.managePage).Methods(http.MethodGet)
	pages.HandleFunc("/manage-data/{id:[0-9]+}/delete", s.confirmDeletePage).Methods(http.MethodGet)
	pages.HandleFunc("/manage-data/{id:[0-9]+}/delete", s.deletePage).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(withSession)
	api.HandleFunc("/entries", s.listEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries", s.createEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id:[0-9]+}", s.deleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/dashboard", s.dashboardData).Methods(http.MethodGet)

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	store := "configured"
	if !s.opts.Entries.Configured() {
		store = "unconfigured"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": store})
}

// withSession attaches the caller's session id, issuing a new cookie when the
// request has none or an unparseable one.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// statusFor maps screen errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wt.ErrValidation), errors.Is(err, wt.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, wt.ErrSubmitInProgress), errors.Is(err, wt.ErrDeleteInProgress):
		return http.StatusConflict
	case errors.Is(err, wt.ErrConfiguration), errors.Is(err, wt.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
