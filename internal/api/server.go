package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

// Server exposes the current snapshot over JSON.
type Server struct {
	router  *chi.Mux
	idx     *index.Index
	sources index.Sources
	logger  *slog.Logger
}

func NewServer(idx *index.Index, sources index.Sources, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		idx:     idx,
		sources: sources,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/*", s.getSession)
		r.Post("/rebuild", s.rebuild)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("API server starting", "addr", addr)
	if strings.Contains(addr, "0.0.0.0") || strings.HasPrefix(addr, ":") {
		s.logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type sessionJSON struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Project      string    `json:"project"`
	ProjectSlug  string    `json:"projectSlug"`
	RelativePath string    `json:"relativePath"`
	FilePath     string    `json:"filePath"`
	Summary      string    `json:"summary"`
	FirstAt      *string   `json:"firstAt"`
	LastAt       *string   `json:"lastAt"`
	MessageCount int       `json:"messageCount"`
	Partial      bool      `json:"partial"`
	Snippet      string    `json:"snippet,omitempty"`
	HitIndex     int       `json:"hitIndex"`
	Messages     []msgJSON `json:"messages,omitempty"`
}

type msgJSON struct {
	Role       string  `json:"role"`
	Kind       string  `json:"kind"`
	Provenance string  `json:"provenance"`
	Timestamp  *string `json:"timestamp"`
	Line       int     `json:"line,omitempty"`
	Offset     int64   `json:"offset"`
	Text       string  `json:"text"`
}

type rootsJSON struct {
	CLI     []string `json:"cli"`
	Desktop []string `json:"desktop"`
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func fromSummary(sm search.Summary) sessionJSON {
	return sessionJSON{
		ID:           sm.ID,
		Source:       string(sm.Source),
		Project:      sm.Project,
		ProjectSlug:  sm.ProjectSlug,
		RelativePath: sm.RelativePath,
		FilePath:     sm.FilePath,
		Summary:      sm.Summary,
		FirstAt:      isoTime(sm.FirstAt),
		LastAt:       isoTime(sm.LastAt),
		MessageCount: sm.MessageCount,
		Partial:      sm.Partial,
		Snippet:      sm.Snippet,
		HitIndex:     sm.HitIndex,
	}
}

func fromSession(sess *parse.Session) sessionJSON {
	out := sessionJSON{
		ID:           sess.ID,
		Source:       string(sess.Source),
		Project:      pathkey.Display(sess.Project, pathkey.Windows),
		ProjectSlug:  pathkey.Display(sess.Project, pathkey.Slug),
		RelativePath: sess.RelativePath,
		FilePath:     sess.FilePath,
		Summary:      sess.SummaryText(),
		FirstAt:      isoTime(sess.FirstTimestamp()),
		LastAt:       isoTime(sess.LastTimestamp()),
		MessageCount: len(sess.Messages),
		Partial:      sess.Partial,
		HitIndex:     -1,
		Messages:     make([]msgJSON, 0, len(sess.Messages)),
	}
	for _, m := range sess.Messages {
		out.Messages = append(out.Messages, msgJSON{
			Role:       string(m.Role),
			Kind:       m.Kind,
			Provenance: string(m.Provenance),
			Timestamp:  isoTime(m.Timestamp),
			Line:       m.Line,
			Offset:     m.Offset,
			Text:       m.Text,
		})
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.idx.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": snap.Generation,
		"sessions":   snap.Len(),
	})
}

// filtersFromQuery maps the list endpoint's query string onto Filters.
// Every parse failure is already an INVALID_REQUEST.
func filtersFromQuery(r *http.Request) (search.Filters, error) {
	q := r.URL.Query()
	var f search.Filters
	var err error

	f.Terms = search.ParseTerms(q.Get("q"))
	if f.Mode, err = search.ParseMode(q.Get("mode")); err != nil {
		return f, err
	}
	f.Path = q.Get("path")
	if f.Since, err = search.ParseDate(q.Get("since"), false); err != nil {
		return f, err
	}
	if f.Until, err = search.ParseDate(q.Get("until"), true); err != nil {
		return f, err
	}
	if f.Source, err = search.ParseSource(q.Get("source")); err != nil {
		return f, err
	}
	if f.Role, err = search.ParseRole(q.Get("role")); err != nil {
		return f, err
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, aerrors.NewInvalidRequest("limit must be a non-negative integer")
		}
	}
	return f, nil
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := s.idx.Current()
	results := search.Search(snap, f)
	out := make([]sessionJSON, 0, len(results))
	for _, sm := range results {
		out = append(out, fromSummary(sm))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":   out,
		"total":      len(out),
		"generation": snap.Generation,
		"roots": rootsJSON{
			CLI:     nonNil(s.sources.Roots.Structured),
			Desktop: nonNil(s.sources.Roots.Binary),
		},
	})
}

// getSession serves /api/sessions/{id}; ids contain slashes, so the whole
// remaining path is the id.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	sess, err := search.GetSession(s.idx.Current(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromSession(sess))
}

// rebuild runs to completion even if the client goes away, so a dropped
// connection never discards the new snapshot.
func (s *Server) rebuild(w http.ResponseWriter, r *http.Request) {
	snap, err := s.idx.Rebuild(context.WithoutCancel(r.Context()), s.sources)
	body := map[string]any{
		"generation": snap.Generation,
		"sessions":   snap.Len(),
		"stats":      snap.Stats.String(),
	}
	if err != nil {
		s.logger.Warn("rebuild failed", "err", err)
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case aerrors.Is(err, aerrors.ErrNotFound):
		status, code = http.StatusNotFound, string(aerrors.ErrNotFound)
	case aerrors.Is(err, aerrors.ErrInvalidRequest):
		status, code = http.StatusBadRequest, string(aerrors.ErrInvalidRequest)
	}
	writeJSON(w, status, map[string]string{"code": code, "error": err.Error()})
}
