package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"daily_story_server/config"
	"daily_story_server/generator"
)

//go:embed web/dist web/dist/* web/dist/assets/*
var embeddedStatic embed.FS

// StoryTrigger requests one generation cycle and blocks until that cycle's
// result has been stored.
type StoryTrigger interface {
	Trigger(ctx context.Context) *generator.Result
}

type Server struct {
	trigger  StoryTrigger
	store    *generator.ResultStore
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *Metrics
	renderer *StoryRenderer
	staticFS http.Handler
}

func New(trigger StoryTrigger, store *generator.ResultStore, cfg *config.Config, logger *zap.Logger, metrics *Metrics) (*Server, error) {
	if trigger == nil {
		return nil, errors.New("story trigger required")
	}
	if store == nil {
		return nil, errors.New("result store required")
	}
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}

	return &Server{
		trigger:  trigger,
		store:    store,
		cfg:      cfg,
		logger:   logger.Named("http"),
		metrics:  metrics,
		renderer: NewStoryRenderer(),
		staticFS: http.FileServer(http.FS(sub)),
	}, nil
}

// Routes assembles the full handler tree. The /api/ subtree sits behind rate
// limiting and API-key auth; health, metrics and static assets stay open.
func (s *Server) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/story", s.handleStory)
	api.HandleFunc("/api/story/generate", s.handleStory)
	api.HandleFunc("/api/story/html", s.handleStoryHTML)

	var rl RateLimitConfig
	if s.cfg.RateLimit != nil {
		rl.RequestsPerMinute = s.cfg.RateLimit.RequestsPerMinute
		rl.Burst = s.cfg.RateLimit.Burst
	}
	protected := chain(api,
		RateLimitMiddleware(rl),
		APIKeyMiddleware(s.cfg.ServiceAPIKey),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", protected)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", s.staticHandler())

	return chain(mux,
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		s.metrics.Middleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cfg.AllowedOrigins, s.cfg.Environment),
	)
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// fall back to index.html for SPA-ish behavior
		upath := r.URL.Path
		if upath == "/" || !strings.HasPrefix(upath, "/api/") {
			p := upath
			if p == "/" {
				p = "/index.html"
			}
			r.URL.Path = p
			s.staticFS.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// --- Handlers ---

// handleStory serves both the read and the explicit-generate route: every
// call runs one fresh generation cycle through the coordinator and answers
// with that cycle's result. There is no cache-only read path.
func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res := s.trigger.Trigger(r.Context())
	writeJSON(w, res)
}

// handleStoryHTML renders the current snapshot as a share page without
// triggering a new generation.
func (s *Server) handleStoryHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.renderer.Render(w, s.store.Get()); err != nil {
		s.logger.Error("render story page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render story")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Helpers ---

func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
