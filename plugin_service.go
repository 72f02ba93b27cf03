package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"go-editor/editor"
	"go-editor/observability"
)

// PluginInfo represents a plugin for API and CLI output
type PluginInfo struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
}

func pluginInfos(ed *editor.Editor) []PluginInfo {
	manifests := ed.Manifests()
	infos := make([]PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		infos = append(infos, PluginInfo{
			Name:        m.Name,
			Version:     m.Version,
			Description: m.Description,
			Author:      m.Author,
			Source:      m.Source,
		})
	}
	return infos
}

// PluginService exposes an editor over HTTP. Runs are serialized because the
// editor and its Lua states are not safe for concurrent use.
type PluginService struct {
	editor *editor.Editor
	logger *observability.Logger
	mu     sync.Mutex
}

// NewPluginService creates a new plugin service
func NewPluginService(ed *editor.Editor, logger *observability.Logger) *PluginService {
	return &PluginService{editor: ed, logger: logger.Named("http")}
}

// Handler returns the routes wrapped in CORS handling
func (s *PluginService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /plugins", s.handleList)
	mux.HandleFunc("POST /plugins/{name}/run", s.handleRun)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// ListenAndServe serves until ctx is cancelled
func (s *PluginService) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *PluginService) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	infos := pluginInfos(s.editor)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, infos)
}

func (s *PluginService) handleRun(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.mu.Lock()
	err := s.editor.RunPlugin(r.Context(), name)
	text := s.editor.Text()
	s.mu.Unlock()

	switch {
	case errors.Is(err, editor.ErrPluginNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"name": name, "text": text})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
