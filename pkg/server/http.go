package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bastiangx/birdserve/internal/logger"
	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/session"
)

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Address      string
	MaxBodyBytes int64
	Options
}

type api struct {
	sess *session.Session
	cfg  HTTPConfig
	log  *log.Logger
}

// NewHTTPServer constructs the HTTP API over sess.
func NewHTTPServer(sess *session.Session, cfg HTTPConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      NewRouter(sess, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter returns the API routes.
func NewRouter(sess *session.Session, cfg HTTPConfig) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	a := &api{sess: sess, cfg: cfg, log: logger.New("http")}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(a.requestLogger)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/annotate", a.annotate)
	router.Get("/typeahead", a.typeahead)
	router.Post("/seen/sync", a.syncSeen)
	router.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sess.Stats())
	})
	return router
}

func (a *api) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"took", time.Since(start), "id", chimw.GetReqID(r.Context()))
	})
}

func (a *api) body(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "read body")
		return "", false
	}
	return string(data), true
}

func (a *api) annotate(w http.ResponseWriter, r *http.Request) {
	pageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, "missing 'url' parameter")
		return
	}
	body, ok := a.body(w, r)
	if !ok {
		return
	}

	start := time.Now()
	report, err := a.sess.Load(r.Context(), pageURL, strings.NewReader(body))
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	out, err := a.sess.Render()
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Report: report, HTML: out, TimeTaken: time.Since(start).Microseconds()})
}

func (a *api) typeahead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing 'q' parameter")
		return
	}
	if a.cfg.EnableFilter && !utils.IsValidTerm(term) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid term %q", term))
		return
	}

	var global bool
	switch scope := q.Get("scope"); scope {
	case "", "global":
		global = true
	case "local":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scope %q", scope))
		return
	}

	limit := a.cfg.MaxResults
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "'limit' must be a positive integer")
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}

	start := time.Now()
	suggestions := toSuggestions(a.sess.Query(term, global), limit)
	writeJSON(w, http.StatusOK, SuggestResponse{
		Claimed:     true,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (a *api) syncSeen(w http.ResponseWriter, r *http.Request) {
	body, ok := a.body(w, r)
	if !ok {
		return
	}
	diff, err := a.sess.SyncSeen(r.Context(), strings.NewReader(body))
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Diff: diff})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: status})
}
